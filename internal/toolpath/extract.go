package toolpath

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/piwi3910/LaserCost/internal/model"
)

// ShortSegmentLength is the cut segment length in mm below which the head is
// assumed never to reach cruise speed.
const ShortSegmentLength = 5.0

// closeTolerance is the maximum endpoint gap in mm for a path to count as closed.
const closeTolerance = 0.01

var (
	// ErrUnsupportedSource is returned for a source file that is neither DXF nor G-code.
	ErrUnsupportedSource = errors.New("unsupported toolpath source")

	// ErrNoToolpath is returned when a source file holds no cuttable geometry.
	ErrNoToolpath = errors.New("no toolpath found")
)

// Extraction is the geometry of one part as seen by the cutting head. It is
// shared between callers once cached and must not be modified.
type Extraction struct {
	Segments []model.MotionSegment `json:"segments"`
	Stats    model.ToolpathStats   `json:"stats"`
	Contours []Contour             `json:"-"`
}

func newExtraction(segments []model.MotionSegment, contours []Contour) Extraction {
	stats := Summarize(segments)
	stats.OccupiedArea, stats.NetArea = areas(contours)
	return Extraction{Segments: segments, Stats: stats, Contours: contours}
}

// Summarize reduces motion segments to aggregate toolpath statistics. Each
// contour holding at least one cutting move counts as one pierce.
func Summarize(segments []model.MotionSegment) model.ToolpathStats {
	var stats model.ToolpathStats
	cutContours := make(map[int]bool)
	cuts, short := 0, 0

	for _, s := range segments {
		length := math.Max(0, s.Length)
		if s.IsRapid {
			stats.RapidLength += length
			continue
		}
		stats.CutLength += length
		cutContours[s.ContourID] = true
		cuts++
		if length < ShortSegmentLength {
			short++
		}
	}

	stats.ContourCount = len(cutContours)
	stats.PierceCount = len(cutContours)
	if cuts > 0 {
		stats.ShortSegmentRatio = float64(short) / float64(cuts)
	}
	return stats
}

// Extract reads a toolpath source, choosing the reader by file extension.
func Extract(path string) (Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dxf":
		return ExtractDXF(path)
	case ".nc", ".gcode", ".ngc", ".tap", ".gc":
		return ExtractGCode(path)
	default:
		return Extraction{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}
}
