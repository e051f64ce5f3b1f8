package costing

import (
	"context"
	"fmt"

	"github.com/piwi3910/LaserCost/internal/model"
)

// Scenario is a named set of costing parameters to compare.
type Scenario struct {
	Name         string                `json:"name"`
	Allocation   model.AllocationModel `json:"allocation_model"`
	BufferFactor float64               `json:"buffer_factor"`
	Overrides    model.JobOverrides    `json:"overrides"`
}

// ScenarioResult holds the costing summary and headline figures of one scenario.
type ScenarioResult struct {
	Scenario   Scenario             `json:"scenario"`
	Summary    model.CostingSummary `json:"summary"`
	TotalA     float64              `json:"total_a"`
	TotalB     float64              `json:"total_b"`
	Difference float64              `json:"difference"` // TotalB - TotalA
	SheetCount int                  `json:"sheet_count"`
}

// CompareScenarios costs the same nesting once per scenario and returns the
// results in scenario order.
func (s *Service) CompareScenarios(ctx context.Context, scenarios []Scenario, nr model.NestingResult, pricing model.PricingConfig) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		summary, err := s.ComputeCosting(ctx, nr, scenario.Overrides, pricing, scenario.Allocation, scenario.BufferFactor)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
		}

		results = append(results, ScenarioResult{
			Scenario:   scenario,
			Summary:    summary,
			TotalA:     summary.VariantA.Total,
			TotalB:     summary.VariantB.Total,
			Difference: summary.VariantB.Total - summary.VariantA.Total,
			SheetCount: len(summary.VariantA.Sheets),
		})
	}

	return results, nil
}

// BuildDefaultScenarios generates what-if alternatives around a base scenario
// by varying the allocation model, the time buffer and the optional operations.
func BuildDefaultScenarios(base Scenario) []Scenario {
	if base.Name == "" {
		base.Name = "Current Settings"
	}
	if base.Allocation == "" {
		base.Allocation = model.AllocationOccupiedArea
	}
	if base.BufferFactor <= 0 {
		base.BufferFactor = DefaultBufferFactor
	}
	scenarios := []Scenario{base}

	// Scenario: the other allocation model
	alt := base
	if base.Allocation == model.AllocationOccupiedArea {
		alt.Allocation = model.AllocationUtilizationFactor
		alt.Name = "Utilization Factor Allocation"
	} else {
		alt.Allocation = model.AllocationOccupiedArea
		alt.Name = "Occupied Area Allocation"
	}
	scenarios = append(scenarios, alt)

	// Scenario: raw machine time without buffer
	if base.BufferFactor != 1 {
		noBuffer := base
		noBuffer.BufferFactor = 1
		noBuffer.Name = "No Time Buffer"
		scenarios = append(scenarios, noBuffer)
	}

	// Scenario: toggle foil removal
	foil := base
	foil.Overrides.IncludeFoilRemoval = !base.Overrides.IncludeFoilRemoval
	if foil.Overrides.IncludeFoilRemoval {
		foil.Name = "With Foil Removal"
	} else {
		foil.Name = "Without Foil Removal"
	}
	scenarios = append(scenarios, foil)

	// Scenario: skip piercing charges
	if base.Overrides.IncludePiercing {
		noPierce := base
		noPierce.Overrides.IncludePiercing = false
		noPierce.Name = "Without Piercing"
		scenarios = append(scenarios, noPierce)
	}

	return scenarios
}
