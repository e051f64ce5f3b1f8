package model

import (
	"fmt"

	"github.com/google/uuid"
)

// AllocationModel selects how a sheet's material cost is split across the
// parts nested on it.
type AllocationModel string

const (
	AllocationOccupiedArea      AllocationModel = "occupied_area"      // Proportional to occupied area x quantity, sums to the sheet cost
	AllocationUtilizationFactor AllocationModel = "utilization_factor" // Legacy: inflates cost on poorly utilized sheets
)

// ParseAllocationModel converts a selector string into an AllocationModel.
func ParseAllocationModel(s string) (AllocationModel, error) {
	m := AllocationModel(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate reports ErrUnknownAllocationModel for anything but the two known models.
func (m AllocationModel) Validate() error {
	switch m {
	case AllocationOccupiedArea, AllocationUtilizationFactor:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAllocationModel, string(m))
	}
}

// SheetMode tells whether a sheet is bought whole or cut from a coil/bar to length.
type SheetMode string

const (
	SheetModeFixed       SheetMode = "fixed_sheet"
	SheetModeCutToLength SheetMode = "cut_to_length"
)

// CostingMode records which time estimator was applied to a part.
type CostingMode string

const (
	CostingDetailed  CostingMode = "detailed"  // Lookahead planner over motion segments
	CostingHeuristic CostingMode = "heuristic" // Aggregate toolpath statistics only
	CostingNone      CostingMode = "none"      // No toolpath data at all
)

// MotionSegment is one straight or curved move produced by the toolpath source.
// Angles are tangent directions in degrees; nil means unknown.
type MotionSegment struct {
	Length     float64  `json:"length"` // mm
	StartAngle *float64 `json:"start_angle,omitempty"`
	EndAngle   *float64 `json:"end_angle,omitempty"`
	IsRapid    bool     `json:"is_rapid"`
	ContourID  int      `json:"contour_id"`
}

// Angle returns a pointer to a tangent angle, for building segments inline.
func Angle(deg float64) *float64 {
	return &deg
}

// ToolpathStats is the aggregate summary of a part's toolpath, used when no
// segment-level geometry is available.
type ToolpathStats struct {
	CutLength         float64 `json:"cut_length"`          // mm
	RapidLength       float64 `json:"rapid_length"`        // mm
	PierceCount       int     `json:"pierce_count"`        // Number of pierces (one per cut contour)
	ContourCount      int     `json:"contour_count"`       // Number of closed/open contours
	ShortSegmentRatio float64 `json:"short_segment_ratio"` // Fraction of segments considered short, 0..1
	OccupiedArea      float64 `json:"occupied_area"`       // mm², outer contour
	NetArea           float64 `json:"net_area"`            // mm², holes subtracted
	PunchCount        int     `json:"punch_count,omitempty"`
}

// PartPlacement is one part instance nested on a sheet.
type PartPlacement struct {
	PartID        string          `json:"part_id"`
	InstanceID    string          `json:"instance_id"`
	OccupiedArea  float64         `json:"occupied_area"` // mm², outer contour, holes not subtracted
	NetArea       float64         `json:"net_area"`      // mm², holes subtracted
	Quantity      int             `json:"quantity"`
	ToolpathStats *ToolpathStats  `json:"toolpath_stats,omitempty"`
	Segments      []MotionSegment `json:"segments,omitempty"`
	Source        string          `json:"source,omitempty"` // Optional DXF / G-code path for toolpath extraction
}

// NewPartPlacement creates a placement with a fresh short instance ID.
func NewPartPlacement(partID string, occupiedArea, netArea float64, qty int) PartPlacement {
	return PartPlacement{
		PartID:       partID,
		InstanceID:   uuid.New().String()[:8],
		OccupiedArea: occupiedArea,
		NetArea:      netArea,
		Quantity:     qty,
	}
}

// CostingMode checks which toolpath data the placement carries.
func (p PartPlacement) CostingMode() CostingMode {
	switch {
	case len(p.Segments) > 0:
		return CostingDetailed
	case p.ToolpathStats != nil:
		return CostingHeuristic
	default:
		return CostingNone
	}
}

// EffectiveArea returns occupied area x quantity, never negative.
func (p PartPlacement) EffectiveArea() float64 {
	if p.OccupiedArea <= 0 || p.Quantity <= 0 {
		return 0
	}
	return p.OccupiedArea * float64(p.Quantity)
}

// NestedSheet is one raw sheet with the parts placed on it.
type NestedSheet struct {
	Material  string  `json:"material"`
	Thickness float64 `json:"thickness"` // mm
	SheetSpec
	Parts []PartPlacement `json:"parts"`
}

// NestingResult is the output of the nesting step consumed by costing.
type NestingResult struct {
	Sheets []NestedSheet `json:"sheets"`
}

// PartCount returns the number of placements across all sheets.
func (nr NestingResult) PartCount() int {
	total := 0
	for _, s := range nr.Sheets {
		total += len(s.Parts)
	}
	return total
}
