package toolpath

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/piwi3910/LaserCost/internal/model"
)

// MoveType represents the type of toolpath movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0: rapid positioning (beam off)
	MoveFeed                    // G1: linear cutting move in XY
	MoveArcCW                   // G2: clockwise arc in XY
	MoveArcCCW                  // G3: counter-clockwise arc in XY
	MovePlunge                  // Z decreasing without XY motion
	MoveRetract                 // Z increasing without XY motion
)

// Move represents a single parsed movement from G-code.
type Move struct {
	Type     MoveType
	FromX    float64
	FromY    float64
	FromZ    float64
	ToX      float64
	ToY      float64
	ToZ      float64
	CenterX  float64 // Arc center, only for MoveArcCW / MoveArcCCW
	CenterY  float64
	FeedRate float64
	Cutting  bool    // Beam on and head at cutting height
}

var (
	wordRe  = regexp.MustCompile(`([GMXYZFIJ])\s*([-+]?\d*\.?\d+)`)
	arcStep = math.Pi / 16 // Arc discretization step for outlines, rad
)

// ParseGCode parses a G-code program into structured moves. It tracks modal
// motion (G0-G3), absolute/incremental mode (G90/G91) and the beam state.
// Programs with M3/M4 cut only while the beam is on; programs without them
// cut whenever the head is at or below Z0.
func ParseGCode(code string) []Move {
	var moves []Move

	curX, curY, curZ := 0.0, 0.0, 0.0
	curFeed := 0.0
	motion := -1
	absolute := true

	lines := strings.Split(code, "\n")
	beamCodes := hasBeamCodes(lines)
	beamOn := !beamCodes

	for _, line := range lines {
		line = stripComments(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)

		newX, newY, newZ, newFeed := curX, curY, curZ, curFeed
		var offI, offJ float64
		hasAxis := false

		for _, m := range wordRe.FindAllStringSubmatch(upper, -1) {
			val, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "G":
				switch int(val) {
				case 0, 1, 2, 3:
					motion = int(val)
				case 90:
					absolute = true
				case 91:
					absolute = false
				}
			case "M":
				switch int(val) {
				case 3, 4:
					beamOn = true
				case 5:
					beamOn = false
				}
			case "X":
				newX = axis(absolute, curX, val)
				hasAxis = true
			case "Y":
				newY = axis(absolute, curY, val)
				hasAxis = true
			case "Z":
				newZ = axis(absolute, curZ, val)
				hasAxis = true
			case "I":
				offI = val
			case "J":
				offJ = val
			case "F":
				newFeed = val
			}
		}

		if !hasAxis || motion < 0 {
			curFeed = newFeed
			continue
		}

		hasXY := newX != curX || newY != curY
		move := Move{
			Type:     classifyMove(motion, curZ, newZ, hasXY),
			FromX:    curX,
			FromY:    curY,
			FromZ:    curZ,
			ToX:      newX,
			ToY:      newY,
			ToZ:      newZ,
			FeedRate: newFeed,
		}
		if move.Type == MoveArcCW || move.Type == MoveArcCCW {
			move.CenterX, move.CenterY = curX+offI, curY+offJ
			if offI == 0 && offJ == 0 {
				move.Type = MoveFeed
			}
		}
		move.Cutting = beamOn && move.Type != MoveRapid &&
			move.Type != MovePlunge && move.Type != MoveRetract &&
			(beamCodes || newZ <= 0)

		moves = append(moves, move)
		curX, curY, curZ, curFeed = newX, newY, newZ, newFeed
	}

	return moves
}

// hasBeamCodes reports whether the program switches the beam with M3/M4.
func hasBeamCodes(lines []string) bool {
	for _, line := range lines {
		for _, m := range wordRe.FindAllStringSubmatch(strings.ToUpper(stripComments(line)), -1) {
			if m[1] != "M" {
				continue
			}
			if v, err := strconv.ParseFloat(m[2], 64); err == nil && (v == 3 || v == 4) {
				return true
			}
		}
	}
	return false
}

func axis(absolute bool, cur, val float64) float64 {
	if absolute {
		return val
	}
	return cur + val
}

func stripComments(line string) string {
	if idx := strings.Index(line, ";"); idx >= 0 {
		line = line[:idx]
	}
	for {
		start := strings.Index(line, "(")
		if start < 0 {
			break
		}
		end := strings.Index(line[start:], ")")
		if end < 0 {
			line = line[:start]
			break
		}
		line = line[:start] + line[start+end+1:]
	}
	return strings.TrimSpace(line)
}

// classifyMove determines the MoveType from the modal motion code and the
// movement characteristics.
func classifyMove(motion int, fromZ, toZ float64, hasXY bool) MoveType {
	zDelta := toZ - fromZ

	switch {
	case motion == 0:
		if zDelta > 0 && !hasXY {
			return MoveRetract
		}
		return MoveRapid
	case zDelta < -0.001 && !hasXY:
		return MovePlunge
	case zDelta > 0.001 && !hasXY:
		return MoveRetract
	case motion == 2:
		return MoveArcCW
	case motion == 3:
		return MoveArcCCW
	default:
		return MoveFeed
	}
}

// sweep returns the arc radius, start angle and signed sweep in radians. A
// coincident start and end point is a full circle.
func (m Move) sweep() (radius, start, sweep float64) {
	radius = math.Hypot(m.FromX-m.CenterX, m.FromY-m.CenterY)
	start = math.Atan2(m.FromY-m.CenterY, m.FromX-m.CenterX)
	end := math.Atan2(m.ToY-m.CenterY, m.ToX-m.CenterX)
	sweep = end - start
	if m.Type == MoveArcCCW {
		if sweep <= 1e-12 {
			sweep += 2 * math.Pi
		}
	} else if sweep >= -1e-12 {
		sweep -= 2 * math.Pi
	}
	return radius, start, sweep
}

// Segment converts the move into a motion segment. Arc tangents are
// perpendicular to the radius at each end.
func (m Move) Segment(contourID int) model.MotionSegment {
	from, to := Point{m.FromX, m.FromY}, Point{m.ToX, m.ToY}
	seg := model.MotionSegment{IsRapid: !m.Cutting, ContourID: contourID}

	switch m.Type {
	case MoveArcCW, MoveArcCCW:
		r, start, sw := m.sweep()
		turn := math.Pi / 2
		if sw < 0 {
			turn = -turn
		}
		seg.Length = r * math.Abs(sw)
		seg.StartAngle = model.Angle((start + turn) * 180 / math.Pi)
		seg.EndAngle = model.Angle((start + sw + turn) * 180 / math.Pi)
	default:
		seg.Length = from.Dist(to)
		if seg.Length > 0 {
			h := heading(from, to)
			seg.StartAngle = model.Angle(h)
			seg.EndAngle = model.Angle(h)
		}
	}
	return seg
}

// points returns the XY positions visited by the move after its start point.
func (m Move) points() []Point {
	if m.Type != MoveArcCW && m.Type != MoveArcCCW {
		return []Point{{m.ToX, m.ToY}}
	}
	r, start, sw := m.sweep()
	n := int(math.Max(4, math.Ceil(math.Abs(sw)/arcStep)))
	pts := make([]Point, n)
	for i := 1; i <= n; i++ {
		a := start + sw*float64(i)/float64(n)
		pts[i-1] = Point{m.CenterX + r*math.Cos(a), m.CenterY + r*math.Sin(a)}
	}
	return pts
}

// GCodeExtraction turns parsed moves into motion segments and contours. Each
// uninterrupted run of cutting moves is one contour; rapid travel is tagged
// with the contour it leads into.
func GCodeExtraction(moves []Move) Extraction {
	var segments []model.MotionSegment
	var contours []Contour
	var current *Contour
	contourID := 0

	closeContour := func() {
		if current == nil {
			return
		}
		n := len(current.Points)
		if n > 2 && current.Points[0].Dist(current.Points[n-1]) <= closeTolerance {
			current.Points = current.Points[:n-1]
			current.Closed = true
		}
		contours = append(contours, *current)
		current = nil
	}

	for _, m := range moves {
		if !m.Cutting {
			closeContour()
			if m.Type != MovePlunge && m.Type != MoveRetract && (m.FromX != m.ToX || m.FromY != m.ToY) {
				segments = append(segments, m.Segment(contourID+1))
			}
			continue
		}
		if current == nil {
			contourID++
			current = &Contour{Points: []Point{{m.FromX, m.FromY}}}
		}
		seg := m.Segment(contourID)
		if seg.Length <= 0 {
			continue
		}
		segments = append(segments, seg)
		current.Points = append(current.Points, m.points()...)
	}
	closeContour()

	return newExtraction(segments, contours)
}

// ExtractGCode reads a G-code file and extracts its toolpath.
func ExtractGCode(path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("failed to read G-code file: %w", err)
	}
	ext := GCodeExtraction(ParseGCode(string(data)))
	if len(ext.Segments) == 0 {
		return Extraction{}, fmt.Errorf("%w: no moves in %s", ErrNoToolpath, path)
	}
	return ext, nil
}
