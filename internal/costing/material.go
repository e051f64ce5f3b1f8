package costing

import "github.com/piwi3910/LaserCost/internal/model"

// MaterialCost prices the costed area of a sheet. The boolean is false when
// the material was priced with the thickness-linear fallback.
func MaterialCost(p model.PricingConfig, material string, thickness, costedArea float64) (float64, bool) {
	perM2, ok := p.MaterialPricePerM2(material, thickness)
	if costedArea <= 0 {
		return 0, ok
	}
	return costedArea / 1e6 * perM2, ok
}
