package model

import (
	"math"
	"strings"
)

// thicknessTolerance is how close two thicknesses (mm) must be to match a rate entry.
const thicknessTolerance = 1e-3

// Linear fallback coefficients used when a (material, thickness) pair has no
// table entry. Thickness t is in mm.
const (
	fallbackCutPriceBase    = 0.5  // per m
	fallbackCutPricePerMM   = 0.35 // per m per mm
	fallbackPierceCostBase  = 0.1
	fallbackPierceCostPerMM = 0.05
	fallbackPierceTimeBase  = 0.2  // s
	fallbackPierceTimePerMM = 0.15 // s per mm
	fallbackSpeedBase       = 100  // mm/s
	fallbackSpeedPerMM      = 4.5  // mm/s lost per mm of thickness
	fallbackSpeedMin        = 5    // mm/s
	fallbackPunchCost       = 0.05
	fallbackPunchTime       = 0.3 // s

	// FallbackMaterialPricePerM2PerMM prices a sheet without a material entry:
	// roughly mild steel at 7.85 kg/m² per mm and 5 per kg.
	FallbackMaterialPricePerM2PerMM = 40.0

	// FallbackMinThickness is the thickness (mm) the material fallback prices
	// a sheet at when its own thickness is zero or negative.
	FallbackMinThickness = 0.5
)

// CuttingRate is the process pricing for one material and thickness.
type CuttingRate struct {
	Material             string  `json:"material"`
	Thickness            float64 `json:"thickness"`               // mm
	CuttingPricePerMeter float64 `json:"cutting_price_per_meter"` // currency per m of cut
	PierceCost           float64 `json:"pierce_cost"`             // currency per pierce
	PierceTime           float64 `json:"pierce_time"`             // s per pierce
	CuttingSpeed         float64 `json:"cutting_speed"`           // mm/s nominal feed
	PunchCost            float64 `json:"punch_cost,omitempty"`    // currency per punch mark
	PunchTime            float64 `json:"punch_time,omitempty"`    // s per punch mark
}

// MaterialSpec prices raw sheet material by mass.
type MaterialSpec struct {
	Name       string  `json:"name"`
	Density    float64 `json:"density"`      // kg/m³
	PricePerKg float64 `json:"price_per_kg"` // currency per kg
}

// PricingConfig is the shared price table for a costing run. It is owned by
// the caller and must not be mutated while a run is in progress.
type PricingConfig struct {
	Currency                string         `json:"currency"`
	Rates                   []CuttingRate  `json:"rates"`
	Materials               []MaterialSpec `json:"materials"`
	FoilRemovalRate         float64        `json:"foil_removal_rate"`          // currency per m²
	FoilRemovalTimePerM2    float64        `json:"foil_removal_time_per_m2"`   // s per m²
	MachineHourlyRate       float64        `json:"machine_hourly_rate"`        // currency per hour
	OperationalCostPerSheet float64        `json:"operational_cost_per_sheet"` // currency per sheet
}

// FallbackRate derives a rate from thickness alone.
func FallbackRate(material string, thickness float64) CuttingRate {
	t := math.Max(0, thickness)
	return CuttingRate{
		Material:             material,
		Thickness:            thickness,
		CuttingPricePerMeter: fallbackCutPriceBase + fallbackCutPricePerMM*t,
		PierceCost:           fallbackPierceCostBase + fallbackPierceCostPerMM*t,
		PierceTime:           fallbackPierceTimeBase + fallbackPierceTimePerMM*t,
		CuttingSpeed:         math.Max(fallbackSpeedMin, fallbackSpeedBase-fallbackSpeedPerMM*t),
		PunchCost:            fallbackPunchCost,
		PunchTime:            fallbackPunchTime,
	}
}

// Rate looks up the rate for a material and thickness. The boolean reports
// whether a table entry was found; on a miss the linear fallback is returned.
// A table entry with no cutting speed inherits the fallback speed.
func (p PricingConfig) Rate(material string, thickness float64) (CuttingRate, bool) {
	for _, r := range p.Rates {
		if !strings.EqualFold(r.Material, material) || math.Abs(r.Thickness-thickness) > thicknessTolerance {
			continue
		}
		if r.CuttingSpeed <= 0 {
			r.CuttingSpeed = FallbackRate(material, thickness).CuttingSpeed
		}
		return r, true
	}
	return FallbackRate(material, thickness), false
}

// Material looks up a material by name, case-insensitively.
func (p PricingConfig) Material(name string) (MaterialSpec, bool) {
	for _, m := range p.Materials {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return MaterialSpec{}, false
}

// MaterialPricePerM2 returns the sheet material price per m² for a thickness.
// The boolean is false when the thickness-linear fallback was used. A sheet
// without a positive thickness always takes the fallback at
// FallbackMinThickness, so the price is never zero.
func (p PricingConfig) MaterialPricePerM2(material string, thickness float64) (float64, bool) {
	if thickness <= 0 {
		return FallbackMaterialPricePerM2PerMM * FallbackMinThickness, false
	}
	if m, ok := p.Material(material); ok && m.Density > 0 && m.PricePerKg > 0 {
		kgPerM2 := thickness / 1000.0 * m.Density
		return kgPerM2 * m.PricePerKg, true
	}
	return FallbackMaterialPricePerM2PerMM * thickness, false
}

// DefaultPricingConfig returns a small price table for common laser materials.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Currency: "PLN",
		Rates: []CuttingRate{
			{Material: "S235", Thickness: 1, CuttingPricePerMeter: 0.9, PierceCost: 0.12, PierceTime: 0.3, CuttingSpeed: 280},
			{Material: "S235", Thickness: 2, CuttingPricePerMeter: 1.2, PierceCost: 0.15, PierceTime: 0.4, CuttingSpeed: 150},
			{Material: "S235", Thickness: 3, CuttingPricePerMeter: 1.6, PierceCost: 0.2, PierceTime: 0.6, CuttingSpeed: 70},
			{Material: "S235", Thickness: 5, CuttingPricePerMeter: 2.4, PierceCost: 0.3, PierceTime: 1.0, CuttingSpeed: 45},
			{Material: "S235", Thickness: 10, CuttingPricePerMeter: 5.0, PierceCost: 0.6, PierceTime: 2.5, CuttingSpeed: 18},
			{Material: "1.4301", Thickness: 1, CuttingPricePerMeter: 1.1, PierceCost: 0.15, PierceTime: 0.3, CuttingSpeed: 300},
			{Material: "1.4301", Thickness: 2, CuttingPricePerMeter: 1.6, PierceCost: 0.2, PierceTime: 0.5, CuttingSpeed: 130},
			{Material: "1.4301", Thickness: 3, CuttingPricePerMeter: 2.2, PierceCost: 0.3, PierceTime: 0.8, CuttingSpeed: 60},
			{Material: "AW-5754", Thickness: 2, CuttingPricePerMeter: 1.5, PierceCost: 0.2, PierceTime: 0.4, CuttingSpeed: 160},
			{Material: "AW-5754", Thickness: 3, CuttingPricePerMeter: 2.0, PierceCost: 0.25, PierceTime: 0.6, CuttingSpeed: 90},
		},
		Materials: []MaterialSpec{
			{Name: "S235", Density: 7850, PricePerKg: 5.2},
			{Name: "1.4301", Density: 7900, PricePerKg: 16.5},
			{Name: "AW-5754", Density: 2660, PricePerKg: 19.0},
		},
		FoilRemovalRate:         4.0,
		FoilRemovalTimePerM2:    40,
		MachineHourlyRate:       300,
		OperationalCostPerSheet: 15,
	}
}
