// Package costing turns nesting results, price tables and machine time into
// per-sheet, per-part and per-job cost breakdowns in two independent variants:
// A (price per meter of cut) and B (machine hours).
package costing

import (
	"math"

	"github.com/piwi3910/LaserCost/internal/model"
)

// DefaultBufferFactor inflates estimated machine time in variant B to cover
// loading, handling and idle time the motion model does not see.
const DefaultBufferFactor = 1.25

// Tuning holds the empirical constants of material costing.
type Tuning struct {
	UtilizationFloor float64 // Lowest utilization used by the utilization-factor model
	FullSheetRatio   float64 // Used-length fraction at which a trimmed sheet is billed whole
}

// DefaultTuning returns the constants used in production quoting.
func DefaultTuning() Tuning {
	return Tuning{
		UtilizationFloor: 0.01,
		FullSheetRatio:   model.FullSheetRatio,
	}
}

// Allocate splits sheetCost across parts with the default tuning.
func Allocate(m model.AllocationModel, sheetCost, sheetArea float64, parts []model.PartPlacement) ([]float64, error) {
	return DefaultTuning().Allocate(m, sheetCost, sheetArea, parts)
}

// Allocate splits sheetCost across parts with the selected model. The result
// is indexed like parts and covers each placement's full quantity.
func (t Tuning) Allocate(m model.AllocationModel, sheetCost, sheetArea float64, parts []model.PartPlacement) ([]float64, error) {
	switch m {
	case model.AllocationOccupiedArea:
		return AllocateOccupiedArea(sheetCost, parts), nil
	case model.AllocationUtilizationFactor:
		return t.AllocateUtilizationFactor(sheetCost, sheetArea, parts), nil
	default:
		return nil, m.Validate()
	}
}

// AllocateOccupiedArea shares sheetCost in proportion to occupied area times
// quantity. The shares sum to sheetCost; with no occupied area every share is 0.
func AllocateOccupiedArea(sheetCost float64, parts []model.PartPlacement) []float64 {
	shares := make([]float64, len(parts))
	total := 0.0
	for _, p := range parts {
		total += p.EffectiveArea()
	}
	if total <= 0 {
		return shares
	}
	for i, p := range parts {
		shares[i] = sheetCost * p.EffectiveArea() / total
	}
	return shares
}

// AllocateUtilizationFactor prices every mm² a part occupies at the sheet's
// cost per mm² divided by the sheet utilization. Shares exceed sheetCost on
// poorly utilized sheets. A sheet without area yields zero shares.
func (t Tuning) AllocateUtilizationFactor(sheetCost, sheetArea float64, parts []model.PartPlacement) []float64 {
	shares := make([]float64, len(parts))
	if sheetArea <= 0 {
		return shares
	}
	used := 0.0
	for _, p := range parts {
		used += p.EffectiveArea()
	}
	utilization := math.Max(t.UtilizationFloor, used/sheetArea)
	if utilization <= 0 {
		return shares
	}
	costPerArea := sheetCost / sheetArea
	for i, p := range parts {
		if p.Quantity <= 0 || p.OccupiedArea <= 0 {
			continue
		}
		shares[i] = p.OccupiedArea * costPerArea / utilization * float64(p.Quantity)
	}
	return shares
}

// normalize turns weights into fractions summing to 1. When the weights carry
// no information it falls back to fallback, and to an even split after that.
func normalize(weights, fallback []float64) []float64 {
	out := make([]float64, len(weights))
	total := 0.0
	for _, w := range weights {
		total += math.Max(0, w)
	}
	if total > 0 {
		for i, w := range weights {
			out[i] = math.Max(0, w) / total
		}
		return out
	}
	if fallback != nil {
		return normalize(fallback, nil)
	}
	for i := range out {
		out[i] = 1 / float64(len(out))
	}
	return out
}
