// Package motion estimates laser cutting time from toolpath geometry using a
// lookahead velocity planner under acceleration and corner-speed limits.
package motion

import (
	"math"

	"github.com/piwi3910/LaserCost/internal/model"
)

// Tuning holds the empirical constants of the corner and heuristic models.
type Tuning struct {
	CornerMinScale       float64 // Lowest fraction of the 90° corner speed (full reversal)
	CornerPivotAngle     float64 // Junction angle in degrees that maps to exactly the 90° corner speed
	StraightAngle        float64 // Junction angle in degrees at or above which no limit applies
	MinHalfTurn          float64 // rad; smaller half-turns are treated as straight in the junction-deviation model
	UnknownJunctionAngle float64 // Junction angle in degrees assumed when a tangent is missing

	ShortSegmentFloor   float64 // Heuristic: effective speed never drops below this fraction of v_max
	ShortSegmentPenalty float64 // Heuristic: speed lost per unit of short-segment ratio
	CornersPerContour   float64 // Heuristic: corners assumed per contour
}

// DefaultTuning returns the constants used in production quoting.
func DefaultTuning() Tuning {
	return Tuning{
		CornerMinScale:       0.2,
		CornerPivotAngle:     90,
		StraightAngle:        179,
		MinHalfTurn:          0.001,
		UnknownJunctionAngle: 90,
		ShortSegmentFloor:    0.3,
		ShortSegmentPenalty:  0.7,
		CornersPerContour:    4,
	}
}

// CornerSpeedLimit applies the square-corner policy with default tuning.
// angle is the junction angle in degrees: 180 is straight through, 0 a full reversal.
func CornerSpeedLimit(angle, vCorner90, vMax float64) float64 {
	return DefaultTuning().SquareCornerLimit(angle, vCorner90, vMax)
}

// SquareCornerLimit scales the 90° corner speed linearly with the junction angle.
func (t Tuning) SquareCornerLimit(angle, vCorner90, vMax float64) float64 {
	if angle >= t.StraightAngle {
		return vMax
	}
	scale := 1.0
	if t.CornerPivotAngle > 0 {
		scale = 1 + (angle-t.CornerPivotAngle)/t.CornerPivotAngle
	}
	return math.Min(vMax, vCorner90*math.Max(t.CornerMinScale, scale))
}

// JunctionDeviationLimit returns the speed at which the centripetal
// acceleration around a virtual arc of the junction stays within accel.
func (t Tuning) JunctionDeviationLimit(angle, deviation, accel, vMax float64) float64 {
	angle = clampAngle(angle)
	halfTurn := (180 - angle) * math.Pi / 180 / 2
	if halfTurn < t.MinHalfTurn {
		return vMax
	}
	radius := deviation * math.Sin(halfTurn) / (1 - math.Cos(halfTurn))
	if radius <= 0 || accel <= 0 {
		return 0
	}
	return math.Min(vMax, math.Sqrt(accel*radius))
}

// CornerLimit dispatches to the corner policy selected by the machine profile.
func (t Tuning) CornerLimit(m model.MachineProfile, angle, vMax float64) float64 {
	switch m.CornerPolicy() {
	case model.CornerJunctionDeviation:
		return t.JunctionDeviationLimit(angle, m.JunctionDeviation, m.MaxAccel, vMax)
	case model.CornerSquare:
		return t.SquareCornerLimit(angle, m.CornerVelocity90, vMax)
	default:
		return vMax
	}
}

// JunctionAngle derives the junction angle between two consecutive segments
// from the exit tangent of prev and the entry tangent of next. A missing
// tangent yields UnknownJunctionAngle.
func (t Tuning) JunctionAngle(prev, next model.MotionSegment) float64 {
	if prev.EndAngle == nil || next.StartAngle == nil {
		return t.UnknownJunctionAngle
	}
	turn := math.Abs(math.Mod(*next.StartAngle-*prev.EndAngle, 360))
	if turn > 180 {
		turn = 360 - turn
	}
	return 180 - turn
}

func clampAngle(a float64) float64 {
	return math.Max(0, math.Min(180, a))
}
