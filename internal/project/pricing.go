package project

import (
	"errors"
	"math"
	"os"
	"strings"

	"github.com/piwi3910/LaserCost/internal/model"
)

// SavePricing writes the price table to the specified JSON file.
// It creates parent directories if they do not exist.
func SavePricing(path string, p model.PricingConfig) error {
	return writeJSON(path, p)
}

// LoadPricing reads the price table from the specified JSON file.
// If the file does not exist, it returns the default price table.
func LoadPricing(path string) (model.PricingConfig, error) {
	var p model.PricingConfig
	if err := readJSON(path, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultPricingConfig(), nil
		}
		return model.PricingConfig{}, err
	}
	if p.Rates == nil {
		p.Rates = []model.CuttingRate{}
	}
	if p.Materials == nil {
		p.Materials = []model.MaterialSpec{}
	}
	return p, nil
}

// ImportPricing merges the rates and materials of another price table into
// existing. Entries already present (same material and thickness for rates,
// same name for materials) are kept as they are.
func ImportPricing(path string, existing model.PricingConfig) (model.PricingConfig, error) {
	var imported model.PricingConfig
	if err := readJSON(path, &imported); err != nil {
		return existing, err
	}

	merged := existing
	merged.Rates = append([]model.CuttingRate(nil), existing.Rates...)
	merged.Materials = append([]model.MaterialSpec(nil), existing.Materials...)

	for _, r := range imported.Rates {
		if !hasRate(merged.Rates, r) {
			merged.Rates = append(merged.Rates, r)
		}
	}
	for _, m := range imported.Materials {
		if _, ok := merged.Material(m.Name); !ok {
			merged.Materials = append(merged.Materials, m)
		}
	}
	return merged, nil
}

func hasRate(rates []model.CuttingRate, r model.CuttingRate) bool {
	for _, have := range rates {
		if strings.EqualFold(have.Material, r.Material) && math.Abs(have.Thickness-r.Thickness) < 1e-3 {
			return true
		}
	}
	return false
}
