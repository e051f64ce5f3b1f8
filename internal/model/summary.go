package model

import "sort"

// SheetBasis holds the sheet figures shared by both costing variants.
type SheetBasis struct {
	SheetIndex        int     `json:"sheet_index"`
	Material          string  `json:"material"`
	Thickness         float64 `json:"thickness"`     // mm
	CostedArea        float64 `json:"costed_area"`   // mm²
	MaterialCost      float64 `json:"material_cost"` // currency
	MaterialFromTable bool    `json:"material_from_table"`
	RateFromTable     bool    `json:"rate_from_table"`
	OperationalCost   float64 `json:"operational_cost"` // currency
}

// SheetPriceCost is the variant A (price-based) breakdown of one sheet.
type SheetPriceCost struct {
	SheetBasis
	CutLength   float64 `json:"cut_length"` // m
	PierceCount int     `json:"pierce_count"`
	PunchCount  int     `json:"punch_count"`
	CutCost     float64 `json:"cut_cost"`
	PierceCost  float64 `json:"pierce_cost"`
	PunchCost   float64 `json:"punch_cost"`
	FoilCost    float64 `json:"foil_cost"`
	Total       float64 `json:"total"`
}

// SheetTimeCost is the variant B (time-based) breakdown of one sheet. Times are in seconds.
type SheetTimeCost struct {
	SheetBasis
	CutTime      float64 `json:"cut_time"`
	RapidTime    float64 `json:"rapid_time"`
	PierceTime   float64 `json:"pierce_time"`
	PunchTime    float64 `json:"punch_time"`
	FoilTime     float64 `json:"foil_time"`
	BaseTime     float64 `json:"base_time"`
	BufferedTime float64 `json:"buffered_time"`
	LaserCost    float64 `json:"laser_cost"`
	Total        float64 `json:"total"`
}

// SheetCostBreakdown pairs both variants for one sheet.
type SheetCostBreakdown struct {
	A SheetPriceCost
	B SheetTimeCost
}

// PriceVariant is the variant A roll-up.
type PriceVariant struct {
	Total  float64          `json:"total"`
	Sheets []SheetPriceCost `json:"sheets"`
}

// TimeVariant is the variant B roll-up.
type TimeVariant struct {
	Total  float64         `json:"total"`
	Sheets []SheetTimeCost `json:"sheets"`
}

// JobCosts are the per-job additions, counted once per variant.
type JobCosts struct {
	Technology float64 `json:"technology"`
	Packaging  float64 `json:"packaging"`
	Transport  float64 `json:"transport"`
	Total      float64 `json:"total"`
}

// PartCostBreakdown is the share of sheet costs carried by one placement,
// covering all pieces of its quantity.
type PartCostBreakdown struct {
	PartID      string      `json:"part_id"`
	InstanceID  string      `json:"instance_id"`
	SheetIndex  int         `json:"sheet_index"`
	Quantity    int         `json:"quantity"`
	CostingMode CostingMode `json:"costing_mode"`

	CutLength   float64 `json:"cut_length"`   // mm, all pieces
	MachineTime float64 `json:"machine_time"` // s, unbuffered, all pieces
	CutShare    float64 `json:"cut_share"`    // fraction of the sheet's cut length
	AreaShare   float64 `json:"area_share"`   // fraction of the sheet's occupied area

	MaterialCost    float64 `json:"material_cost"`
	OperationalCost float64 `json:"operational_cost"`

	CutCost    float64 `json:"cut_cost"`
	PierceCost float64 `json:"pierce_cost"`
	PunchCost  float64 `json:"punch_cost"`
	FoilCost   float64 `json:"foil_cost"`
	TotalA     float64 `json:"total_a"`
	UnitPriceA float64 `json:"unit_price_a"`

	LaserCost  float64 `json:"laser_cost"`
	TotalB     float64 `json:"total_b"`
	UnitPriceB float64 `json:"unit_price_b"`
}

// CostingFlags records the switches and bookkeeping of a run.
type CostingFlags struct {
	IncludePiercing         bool    `json:"include_piercing"`
	IncludeFoilRemoval      bool    `json:"include_foil_removal"`
	IncludePunch            bool    `json:"include_punch"`
	IncludeRapidTime        bool    `json:"include_rapid_time"`
	OperationalCostPerSheet float64 `json:"operational_cost_per_sheet"`
	DetailedParts           int     `json:"detailed_parts"`
	HeuristicParts          int     `json:"heuristic_parts"`
	UntimedParts            int     `json:"untimed_parts"`
	RateFallbacks           int     `json:"rate_fallbacks"`
	MaterialFallbacks       int     `json:"material_fallbacks"`
}

// CostingSummary is the immutable result of one costing run.
type CostingSummary struct {
	AllocationModel AllocationModel              `json:"allocation_model"`
	BufferFactor    float64                      `json:"buffer_factor"`
	Currency        string                       `json:"currency,omitempty"`
	VariantA        PriceVariant                 `json:"variant_a"`
	VariantB        TimeVariant                  `json:"variant_b"`
	JobCosts        JobCosts                     `json:"job_costs"`
	PerPart         map[string]PartCostBreakdown `json:"per_part"`
	Flags           CostingFlags                 `json:"flags"`
}

// Sheets pairs the variant A and B sheet entries by position.
func (cs CostingSummary) Sheets() []SheetCostBreakdown {
	n := len(cs.VariantA.Sheets)
	if len(cs.VariantB.Sheets) < n {
		n = len(cs.VariantB.Sheets)
	}
	out := make([]SheetCostBreakdown, n)
	for i := 0; i < n; i++ {
		out[i] = SheetCostBreakdown{A: cs.VariantA.Sheets[i], B: cs.VariantB.Sheets[i]}
	}
	return out
}

// Parts returns the per-part breakdowns ordered by sheet, then instance ID.
func (cs CostingSummary) Parts() []PartCostBreakdown {
	parts := make([]PartCostBreakdown, 0, len(cs.PerPart))
	for _, p := range cs.PerPart {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].SheetIndex != parts[j].SheetIndex {
			return parts[i].SheetIndex < parts[j].SheetIndex
		}
		return parts[i].InstanceID < parts[j].InstanceID
	})
	return parts
}
