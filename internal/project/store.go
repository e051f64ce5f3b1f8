// Package project persists the inputs and results of a costing run as JSON:
// nesting results, price tables, machine profiles, job overrides, scenario
// presets and costing summaries.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/LaserCost/internal/model"
)

// DefaultConfigDir returns the default directory for application configuration.
// On all platforms this is ~/.lasercost/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".lasercost")
}

// DefaultPricingPath returns the default path for the price table.
func DefaultPricingPath() string {
	return filepath.Join(DefaultConfigDir(), "pricing.json")
}

// DefaultMachinePath returns the default path for the machine profile.
func DefaultMachinePath() string {
	return filepath.Join(DefaultConfigDir(), "machine.json")
}

// writeJSON marshals v with indentation and writes it to path, creating any
// missing parent directories.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSON reads path into v. A missing file is reported with os.ErrNotExist
// still in the chain.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveNesting writes a nesting result to path.
func SaveNesting(path string, nr model.NestingResult) error {
	return writeJSON(path, nr)
}

// LoadNesting reads a nesting result and validates every sheet in it.
func LoadNesting(path string) (model.NestingResult, error) {
	var nr model.NestingResult
	if err := readJSON(path, &nr); err != nil {
		return model.NestingResult{}, err
	}
	for i, s := range nr.Sheets {
		if err := s.Validate(); err != nil {
			return model.NestingResult{}, fmt.Errorf("sheet %d: %w", i, err)
		}
	}
	return nr, nil
}

// SaveOverrides writes job overrides to path.
func SaveOverrides(path string, o model.JobOverrides) error {
	return writeJSON(path, o)
}

// LoadOverrides reads job overrides from path.
// If the file does not exist, it returns DefaultJobOverrides with no error.
func LoadOverrides(path string) (model.JobOverrides, error) {
	o := model.DefaultJobOverrides()
	if err := readJSON(path, &o); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultJobOverrides(), nil
		}
		return model.JobOverrides{}, err
	}
	return o, nil
}

// SaveSummary writes a costing summary to path.
func SaveSummary(path string, cs model.CostingSummary) error {
	return writeJSON(path, cs)
}

// LoadSummary reads a costing summary back from path.
func LoadSummary(path string) (model.CostingSummary, error) {
	var cs model.CostingSummary
	if err := readJSON(path, &cs); err != nil {
		return model.CostingSummary{}, err
	}
	if cs.PerPart == nil {
		cs.PerPart = map[string]model.PartCostBreakdown{}
	}
	return cs, nil
}
