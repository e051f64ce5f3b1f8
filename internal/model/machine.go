package model

// CornerPolicy selects the junction speed model.
type CornerPolicy int

const (
	CornerSquare            CornerPolicy = iota // Angle-scaled 90° corner speed heuristic
	CornerJunctionDeviation                     // Centripetal junction-deviation model
)

func (c CornerPolicy) String() string {
	switch c {
	case CornerJunctionDeviation:
		return "JunctionDeviation"
	default:
		return "SquareCorner"
	}
}

// MachineProfile holds the kinematic limits of one laser cutter.
// It is created once and only read afterwards.
type MachineProfile struct {
	Name                 string  `json:"name"`
	MaxAccel             float64 `json:"max_accel"`              // mm/s²
	MaxRapidSpeed        float64 `json:"max_rapid_speed"`        // mm/s
	CornerVelocity90     float64 `json:"corner_velocity_90"`     // mm/s at a square corner
	JunctionDeviation    float64 `json:"junction_deviation"`     // mm
	UseJunctionDeviation bool    `json:"use_junction_deviation"` // Select the junction-deviation policy
}

// CornerPolicy returns the corner speed model selected by the profile.
func (m MachineProfile) CornerPolicy() CornerPolicy {
	if m.UseJunctionDeviation {
		return CornerJunctionDeviation
	}
	return CornerSquare
}

// DefaultMachineProfile describes a mid-range fibre laser.
func DefaultMachineProfile() MachineProfile {
	return MachineProfile{
		Name:                 "Generic Fiber 3kW",
		MaxAccel:             2000,
		MaxRapidSpeed:        1000,
		CornerVelocity90:     50,
		JunctionDeviation:    0.05,
		UseJunctionDeviation: false,
	}
}
