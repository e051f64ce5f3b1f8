package motion

import (
	"math"

	"github.com/piwi3910/LaserCost/internal/model"
)

// squareCorner is the junction angle the heuristic assumes for every corner.
const squareCorner = 90.0

// Estimate is the machine time of one part (one piece), split into cutting
// and rapid travel. Pierce and punch dwell times are priced separately.
type Estimate struct {
	CutTime      float64           `json:"cut_time"`     // s
	RapidTime    float64           `json:"rapid_time"`   // s
	CutLength    float64           `json:"cut_length"`   // mm
	RapidLength  float64           `json:"rapid_length"` // mm
	PierceCount  int               `json:"pierce_count"`
	ContourCount int               `json:"contour_count"`
	PunchCount   int               `json:"punch_count"`
	Mode         model.CostingMode `json:"mode"`
}

// MachineTime returns cutting plus rapid time.
func (e Estimate) MachineTime() float64 {
	return e.CutTime + e.RapidTime
}

// Estimator turns toolpath data into machine time for one machine.
type Estimator struct {
	Machine model.MachineProfile
	Tuning  Tuning
}

// NewEstimator creates an estimator with the default tuning.
func NewEstimator(m model.MachineProfile) *Estimator {
	return &Estimator{Machine: m, Tuning: DefaultTuning()}
}

// EstimatePart selects the estimator from the data the placement carries.
// Detailed segments win over aggregate statistics; a placement with neither
// yields a zero estimate tagged CostingNone.
func (e *Estimator) EstimatePart(p model.PartPlacement, cutSpeed float64) Estimate {
	switch p.CostingMode() {
	case model.CostingDetailed:
		est := e.EstimateSegments(p.Segments, cutSpeed)
		if p.ToolpathStats != nil {
			est.PunchCount = p.ToolpathStats.PunchCount
		}
		return est
	case model.CostingHeuristic:
		return e.EstimateStats(*p.ToolpathStats, cutSpeed)
	default:
		return Estimate{Mode: model.CostingNone}
	}
}

// EstimateSegments plans every contour independently. Each contour starts and
// ends at rest. Within a contour, consecutive cutting moves are planned
// against cutSpeed and consecutive rapid moves against the machine's rapid
// speed, each run again starting and ending at rest.
func (e *Estimator) EstimateSegments(segments []model.MotionSegment, cutSpeed float64) Estimate {
	est := Estimate{Mode: model.CostingDetailed}

	for _, contour := range groupContours(segments) {
		cuts := false
		for _, run := range splitRuns(contour) {
			if run[0].IsRapid {
				t, l := e.timeRun(run, e.Machine.MaxRapidSpeed)
				est.RapidTime += t
				est.RapidLength += l
				continue
			}
			t, l := e.timeRun(run, cutSpeed)
			est.CutTime += t
			est.CutLength += l
			cuts = true
		}
		if cuts {
			est.ContourCount++
			est.PierceCount++
		}
	}
	return est
}

// timeRun returns the planned time and total length of one run of segments
// sharing a speed ceiling.
func (e *Estimator) timeRun(run []model.MotionSegment, vMax float64) (float64, float64) {
	n := len(run)
	lengths := make([]float64, n)
	total := 0.0
	for i, s := range run {
		lengths[i] = math.Max(0, s.Length)
		total += lengths[i]
	}

	limits := make([]float64, n+1)
	for k := 1; k < n; k++ {
		angle := e.Tuning.JunctionAngle(run[k-1], run[k])
		limits[k] = e.Tuning.CornerLimit(e.Machine, angle, vMax)
	}

	planned := PlanVelocities(lengths, limits, vMax, e.Machine.MaxAccel)
	seconds := 0.0
	for k := 0; k < n; k++ {
		seconds += SegmentTime(lengths[k], planned[k], planned[k+1], vMax, e.Machine.MaxAccel)
	}
	return seconds, total
}

// EstimateStats approximates machine time from aggregate statistics. Short
// segments lower the effective speed, every pierce pays one acceleration ramp
// and every assumed corner pays the deficit to the 90° corner speed.
func (e *Estimator) EstimateStats(stats model.ToolpathStats, cutSpeed float64) Estimate {
	est := Estimate{
		CutLength:    math.Max(0, stats.CutLength),
		RapidLength:  math.Max(0, stats.RapidLength),
		PierceCount:  max(0, stats.PierceCount),
		ContourCount: max(0, stats.ContourCount),
		PunchCount:   max(0, stats.PunchCount),
		Mode:         model.CostingHeuristic,
	}

	if e.Machine.MaxRapidSpeed > 0 {
		est.RapidTime = est.RapidLength / e.Machine.MaxRapidSpeed
	}

	effective := e.EffectiveSpeed(cutSpeed, stats.ShortSegmentRatio)
	if effective <= 0 {
		return est
	}
	est.CutTime = est.CutLength / effective

	accel := e.Machine.MaxAccel
	if accel <= 0 {
		return est
	}

	corners := float64(est.ContourCount) * e.Tuning.CornersPerContour
	if est.ContourCount == 0 {
		corners = float64(est.PierceCount)
	}
	deficit := math.Max(0, effective-e.Tuning.CornerLimit(e.Machine, squareCorner, effective))

	est.CutTime += float64(est.PierceCount) * effective / accel
	est.CutTime += corners * deficit / accel
	return est
}

// EffectiveSpeed is the cruise speed a path with the given share of short
// segments actually sustains.
func (e *Estimator) EffectiveSpeed(vMax, shortRatio float64) float64 {
	if vMax <= 0 {
		return 0
	}
	r := math.Max(0, math.Min(1, shortRatio))
	return math.Max(e.Tuning.ShortSegmentFloor*vMax, vMax*(1-e.Tuning.ShortSegmentPenalty*r))
}

// groupContours buckets segments by contour ID in order of first appearance,
// keeping the original order inside each contour.
func groupContours(segments []model.MotionSegment) [][]model.MotionSegment {
	index := make(map[int]int)
	var contours [][]model.MotionSegment
	for _, s := range segments {
		i, ok := index[s.ContourID]
		if !ok {
			i = len(contours)
			index[s.ContourID] = i
			contours = append(contours, nil)
		}
		contours[i] = append(contours[i], s)
	}
	return contours
}

// splitRuns cuts a contour wherever the motion switches between rapid and cutting.
func splitRuns(contour []model.MotionSegment) [][]model.MotionSegment {
	var runs [][]model.MotionSegment
	start := 0
	for i := 1; i <= len(contour); i++ {
		if i == len(contour) || contour[i].IsRapid != contour[start].IsRapid {
			runs = append(runs, contour[start:i])
			start = i
		}
	}
	return runs
}
