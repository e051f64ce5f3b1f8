package motion

import "math"

// PlanVelocities runs the forward/backward lookahead pass over one contour.
//
// lengths holds the n segment lengths and limits the n+1 junction speed
// ceilings. The returned slice has n+1 planned junction speeds with both
// endpoints at zero; every entry is reachable from its neighbours within aMax.
// Missing limit entries are unconstrained.
func PlanVelocities(lengths, limits []float64, vMax, aMax float64) []float64 {
	n := len(lengths)
	planned := make([]float64, n+1)
	if n == 0 {
		return planned
	}
	vMax = math.Max(0, vMax)
	accel2 := 2 * math.Max(0, aMax)

	limitAt := func(k int) float64 {
		if k < len(limits) {
			return math.Max(0, limits[k])
		}
		return vMax
	}

	planned[0] = 0
	for k := 1; k < n; k++ {
		reachable := math.Sqrt(planned[k-1]*planned[k-1] + accel2*math.Max(0, lengths[k-1]))
		planned[k] = math.Min(reachable, math.Min(limitAt(k), vMax))
	}
	planned[n] = 0

	for k := n - 1; k >= 0; k-- {
		reachable := math.Sqrt(planned[k+1]*planned[k+1] + accel2*math.Max(0, lengths[k]))
		planned[k] = math.Min(planned[k], reachable)
	}
	return planned
}
