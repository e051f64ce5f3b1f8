package model

// JobOverrides carries per-job additions and switches applied on top of the
// shared pricing table.
type JobOverrides struct {
	TechnologyCost     float64 `json:"technology_cost"`
	PackagingCost      float64 `json:"packaging_cost"`
	TransportCost      float64 `json:"transport_cost"`
	IncludePiercing    bool    `json:"include_piercing"`
	IncludeFoilRemoval bool    `json:"include_foil_removal"`
	IncludePunch       bool    `json:"include_punch"`
	IncludeRapidTime   bool    `json:"include_rapid_time"` // Bill rapid travel in variant B

	// OperationalCostPerSheet replaces PricingConfig.OperationalCostPerSheet when set.
	OperationalCostPerSheet *float64 `json:"operational_cost_per_sheet,omitempty"`
}

// DefaultJobOverrides enables piercing and nothing else.
func DefaultJobOverrides() JobOverrides {
	return JobOverrides{IncludePiercing: true}
}

// AdditionalCosts returns the job-level costs added once to each variant total.
func (o JobOverrides) AdditionalCosts() float64 {
	return o.TechnologyCost + o.PackagingCost + o.TransportCost
}

// OperationalCost resolves the per-sheet operational cost.
func (o JobOverrides) OperationalCost(p PricingConfig) float64 {
	if o.OperationalCostPerSheet != nil {
		return *o.OperationalCostPerSheet
	}
	return p.OperationalCostPerSheet
}

// Cost returns a pointer to a cost value, for setting optional overrides inline.
func Cost(v float64) *float64 {
	return &v
}
