package motion

import "math"

// SegmentTime returns the traversal time in seconds of one segment entered at
// vStart and left at vEnd. The same formula covers the trapezoidal profile
// (cruise at vMax) and the triangular one (peak below vMax, no cruise).
func SegmentTime(length, vStart, vEnd, vMax, aMax float64) float64 {
	if length <= 0 || vMax <= 0 {
		return 0
	}
	if aMax <= 0 {
		return length / vMax
	}

	vPeak := math.Min(vMax, math.Sqrt(math.Max(0, aMax*length+0.5*(vStart*vStart+vEnd*vEnd))))
	if vPeak <= 0 {
		return 0
	}

	t1 := math.Max(0, (vPeak-vStart)/aMax)
	s1 := math.Max(0, (vPeak*vPeak-vStart*vStart)/(2*aMax))

	t3 := math.Max(0, (vPeak-vEnd)/aMax)
	s3 := math.Max(0, (vPeak*vPeak-vEnd*vEnd)/(2*aMax))

	s2 := math.Max(0, length-s1-s3)
	t2 := s2 / vPeak

	return t1 + t2 + t3
}
