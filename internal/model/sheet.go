package model

import (
	"fmt"
	"math"
)

// FullSheetRatio is the used-length fraction at or above which a cut-to-length
// sheet is costed as fully consumed. The remaining strip is too short to be
// reused economically.
const FullSheetRatio = 0.94

// SheetSpec describes the raw sheet dimensions that drive material costing.
type SheetSpec struct {
	Width         float64   `json:"width"`                   // mm
	NominalLength float64   `json:"nominal_length"`          // mm
	UsedLengthY   *float64  `json:"used_length_y,omitempty"` // mm, only for trimmed sheets
	TrimMargin    float64   `json:"trim_margin"`             // mm added to the used length when trimming
	Mode          SheetMode `json:"mode"`
}

// Validate rejects negative dimensions and unknown modes. An empty mode is
// treated as a fixed sheet.
func (s SheetSpec) Validate() error {
	if s.Width < 0 || s.NominalLength < 0 || s.TrimMargin < 0 {
		return fmt.Errorf("%w: negative dimension (width=%.2f, length=%.2f, trim=%.2f)",
			ErrInvalidSheet, s.Width, s.NominalLength, s.TrimMargin)
	}
	if s.UsedLengthY != nil && *s.UsedLengthY < 0 {
		return fmt.Errorf("%w: negative used length %.2f", ErrInvalidSheet, *s.UsedLengthY)
	}
	switch s.Mode {
	case "", SheetModeFixed, SheetModeCutToLength:
		return nil
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidSheet, ErrUnknownSheetMode, string(s.Mode))
	}
}

// FullArea returns width x nominal length in mm².
func (s SheetSpec) FullArea() float64 {
	return s.Width * s.NominalLength
}

// CostedArea returns the billable sheet area in mm², applying the full-sheet
// rounding rule at FullSheetRatio.
func (s SheetSpec) CostedArea() float64 {
	return s.CostedAreaWithRatio(FullSheetRatio)
}

// CostedAreaWithRatio is CostedArea with an explicit full-sheet threshold.
// The trimmed area never exceeds the full sheet.
func (s SheetSpec) CostedAreaWithRatio(ratio float64) float64 {
	full := s.FullArea()
	if s.Mode != SheetModeCutToLength || s.UsedLengthY == nil || s.NominalLength <= 0 {
		return full
	}
	used := *s.UsedLengthY
	if used/s.NominalLength >= ratio {
		return full
	}
	return math.Min(full, s.Width*(used+s.TrimMargin))
}

// UsedLength returns a pointer to a used length, for building specs inline.
func UsedLength(mm float64) *float64 {
	return &mm
}
