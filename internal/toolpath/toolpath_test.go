package toolpath

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/piwi3910/LaserCost/internal/model"
)

func square(x, y, size float64) Contour {
	return Contour{
		Points: []Point{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}},
		Closed: true,
	}
}

// ─── Geometry Tests ──────────────────────────────────────

func TestContour_AreaAndLength(t *testing.T) {
	c := square(0, 0, 100)
	assert.InDelta(t, 10000.0, c.Area(), 1e-9)
	assert.InDelta(t, 400.0, c.Length(), 1e-9)

	c.Closed = false
	assert.Equal(t, 0.0, c.Area())
	assert.InDelta(t, 300.0, c.Length(), 1e-9)
}

func TestContour_BoundingBox(t *testing.T) {
	lo, hi := square(-5, 10, 20).BoundingBox()
	assert.Equal(t, Point{-5, 10}, lo)
	assert.Equal(t, Point{15, 30}, hi)
}

func TestContour_Contains(t *testing.T) {
	c := square(0, 0, 100)
	assert.True(t, c.Contains(Point{50, 50}))
	assert.False(t, c.Contains(Point{150, 50}))

	c.Closed = false
	assert.False(t, c.Contains(Point{50, 50}))
}

func TestAreas_HoleSubtracted(t *testing.T) {
	occupied, net := areas([]Contour{square(40, 40, 10), square(0, 0, 100), square(200, 200, 5)})
	assert.InDelta(t, 10000.0, occupied, 1e-9)
	assert.InDelta(t, 9900.0, net, 1e-9, "contours outside the outer one are ignored")
}

func TestAreas_NoClosedContour(t *testing.T) {
	occupied, net := areas([]Contour{{Points: []Point{{0, 0}, {10, 0}}}})
	assert.Equal(t, 0.0, occupied)
	assert.Equal(t, 0.0, net)
}

// ─── Summary Tests ───────────────────────────────────────

func TestSummarize(t *testing.T) {
	stats := Summarize([]model.MotionSegment{
		{Length: 10, ContourID: 1},
		{Length: 2, ContourID: 1},
		{Length: 50, IsRapid: true, ContourID: 2},
		{Length: 3, ContourID: 2},
		{Length: -4, ContourID: 2},
	})

	assert.InDelta(t, 15.0, stats.CutLength, 1e-9)
	assert.InDelta(t, 50.0, stats.RapidLength, 1e-9)
	assert.Equal(t, 2, stats.PierceCount)
	assert.Equal(t, 2, stats.ContourCount)
	assert.InDelta(t, 3.0/4.0, stats.ShortSegmentRatio, 1e-9)
}

func TestSummarize_RapidsOnly(t *testing.T) {
	stats := Summarize([]model.MotionSegment{{Length: 20, IsRapid: true, ContourID: 1}})
	assert.Equal(t, 0, stats.PierceCount)
	assert.Equal(t, 0.0, stats.ShortSegmentRatio)
}

// ─── DXF Tests ───────────────────────────────────────────

func TestDXFExtraction_HolesBeforeOuter(t *testing.T) {
	ext := DXFExtraction([]Contour{square(0, 0, 100), square(40, 40, 10)})

	require.Len(t, ext.Contours, 2)
	assert.InDelta(t, 100.0, ext.Contours[0].Area(), 1e-9, "hole cut first")
	assert.InDelta(t, 10000.0, ext.Contours[1].Area(), 1e-9, "outer cut last")

	assert.InDelta(t, 440.0, ext.Stats.CutLength, 1e-9)
	assert.InDelta(t, 2*math.Hypot(40, 40), ext.Stats.RapidLength, 1e-9)
	assert.Equal(t, 2, ext.Stats.PierceCount)
	assert.InDelta(t, 10000.0, ext.Stats.OccupiedArea, 1e-9)
	assert.InDelta(t, 9900.0, ext.Stats.NetArea, 1e-9)

	require.Len(t, ext.Segments, 10)
	assert.True(t, ext.Segments[0].IsRapid)
	assert.Equal(t, 1, ext.Segments[0].ContourID)
	last := ext.Segments[len(ext.Segments)-1]
	assert.False(t, last.IsRapid)
	assert.Equal(t, 2, last.ContourID)
}

func TestCutOrder_NearestNext(t *testing.T) {
	ordered := cutOrder([]Contour{square(80, 80, 5), square(0, 0, 100), square(10, 10, 5)})
	require.Len(t, ordered, 3)
	assert.Equal(t, Point{10, 10}, ordered[0].Points[0])
	assert.Equal(t, Point{80, 80}, ordered[1].Points[0])
	assert.Equal(t, Point{0, 0}, ordered[2].Points[0])
}

func TestChainEdges(t *testing.T) {
	edges := []edge{
		{Point{0, 0}, Point{10, 0}},
		{Point{10, 10}, Point{10, 0}}, // reversed
		{Point{10, 10}, Point{0, 10}},
		{Point{0, 10}, Point{0, 0}},
		{Point{50, 50}, Point{60, 50}},
	}
	contours := chainEdges(edges, closeTolerance)
	require.Len(t, contours, 2)
	assert.True(t, contours[0].Closed)
	assert.InDelta(t, 100.0, contours[0].Area(), 1e-9)
	assert.False(t, contours[1].Closed)
}

func TestChainEdges_SeedInMiddleOfOpenPath(t *testing.T) {
	edges := []edge{
		{Point{5, 0}, Point{10, 0}},
		{Point{0, 0}, Point{5, 0}},
		{Point{15, 0}, Point{10, 0}},
	}
	contours := chainEdges(edges, closeTolerance)
	require.Len(t, contours, 1)
	assert.False(t, contours[0].Closed)
	assert.Equal(t, []Point{{0, 0}, {5, 0}, {10, 0}, {15, 0}}, contours[0].Points)
	assert.InDelta(t, 15.0, contours[0].Length(), 1e-9)
}

func TestBulgeArc(t *testing.T) {
	// bulge 1 is a counterclockwise half circle
	half, ok := bulgeArc(Point{0, 0}, Point{10, 0}, 1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, half.center.X, 1e-9)
	assert.InDelta(t, 0.0, half.center.Y, 1e-9)
	assert.InDelta(t, 5.0, half.radius, 1e-9)
	mid := half.sample(2)[1]
	assert.InDelta(t, 5.0, mid.X, 1e-9)
	assert.InDelta(t, -5.0, mid.Y, 1e-9)

	quarter, ok := bulgeArc(Point{10, 0}, Point{0, 10}, math.Tan(math.Pi/8))
	require.True(t, ok)
	assert.InDelta(t, 0.0, quarter.center.X, 1e-9)
	assert.InDelta(t, 0.0, quarter.center.Y, 1e-9)
	assert.InDelta(t, 10.0, quarter.radius, 1e-9)
	end := quarter.sample(4)[4]
	assert.InDelta(t, 0.0, end.X, 1e-9)
	assert.InDelta(t, 10.0, end.Y, 1e-9)

	// clockwise mirror bends the other way
	cw, ok := bulgeArc(Point{0, 0}, Point{10, 0}, -1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, cw.sample(2)[1].Y, 1e-9)

	_, ok = bulgeArc(Point{3, 3}, Point{3, 3}, 0.5)
	assert.False(t, ok)
}

func TestLwPolylineWithBulges(t *testing.T) {
	lw := entity.NewLwPolyline(2)
	lw.Vertices[0] = []float64{0, 0}
	lw.Vertices[1] = []float64{10, 0}
	lw.Bulges[0], lw.Bulges[1] = 1, 1

	c := lwPolylineToContour(lw)
	assert.True(t, c.Closed)
	assert.Len(t, c.Points, 2*arcSegments)
	assert.InDelta(t, 25*math.Pi, c.Area(), 0.5)
	assert.InDelta(t, 10*math.Pi, c.Length(), 0.1)
}

func TestCircleToContour(t *testing.T) {
	circle := entity.NewCircle()
	circle.Center = []float64{20, 30, 0}
	circle.Radius = 4

	c := circleToContour(circle, circleSegments)
	require.Len(t, c.Points, circleSegments)
	assert.InDelta(t, 24.0, c.Points[0].X, 1e-9)
	assert.InDelta(t, 30.0, c.Points[0].Y, 1e-9)
	assert.InDelta(t, 16*math.Pi, c.Area(), 0.2)
}

func TestExtractDXF_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.dxf")

	d := dxf.NewDrawing()
	for _, l := range [][4]float64{{0, 0, 100, 0}, {100, 0, 100, 50}, {100, 50, 0, 50}, {0, 50, 0, 0}} {
		_, err := d.Line(l[0], l[1], 0, l[2], l[3], 0)
		require.NoError(t, err)
	}
	_, err := d.Circle(50, 25, 0, 5)
	require.NoError(t, err)
	require.NoError(t, d.SaveAs(path))

	ext, err := Extract(path)
	require.NoError(t, err)

	assert.Equal(t, 2, ext.Stats.PierceCount)
	assert.InDelta(t, 5000.0, ext.Stats.OccupiedArea, 1e-6)
	assert.InDelta(t, 5000.0-math.Pi*25, ext.Stats.NetArea, 0.5)
	assert.InDelta(t, 300.0+10*math.Pi, ext.Stats.CutLength, 0.1)
	assert.InDelta(t, 5000.0, ext.Contours[len(ext.Contours)-1].Area(), 1e-6)
}

func TestExtract_UnsupportedExtension(t *testing.T) {
	_, err := Extract("part.step")
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestExtractGCode_Files(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "square.nc")
	require.NoError(t, os.WriteFile(good, []byte(laserSquare), 0o644))
	ext, err := Extract(good)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, ext.Stats.CutLength, 1e-9)

	empty := filepath.Join(dir, "empty.gcode")
	require.NoError(t, os.WriteFile(empty, []byte("; nothing\n"), 0o644))
	_, err = Extract(empty)
	assert.ErrorIs(t, err, ErrNoToolpath)

	_, err = Extract(filepath.Join(dir, "missing.nc"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// ─── Cache Tests ─────────────────────────────────────────

func countingExtractor(calls *atomic.Int32) ExtractFunc {
	return func(path string) (Extraction, error) {
		calls.Add(1)
		return GCodeExtraction(ParseGCode(laserSquare)), nil
	}
}

func TestCache_ComputesOnce(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache(countingExtractor(&calls))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ext, err := cache.Get("parts/../parts/square.nc")
			assert.NoError(t, err)
			assert.InDelta(t, 200.0, ext.Stats.CutLength, 1e-9)
		}()
	}
	wg.Wait()

	_, err := cache.Get("parts/square.nc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "equivalent paths share one entry")
	assert.Equal(t, 1, cache.Len())
}

func TestCache_ErrorsNotCached(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("disk on fire")
	cache := NewCache(func(path string) (Extraction, error) {
		if calls.Add(1) == 1 {
			return Extraction{}, fail
		}
		return GCodeExtraction(ParseGCode(laserSquare)), nil
	})

	_, err := cache.Get("a.nc")
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Get("a.nc")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_Forget(t *testing.T) {
	var calls atomic.Int32
	cache := NewCache(countingExtractor(&calls))

	_, _ = cache.Get("a.nc")
	cache.Forget("a.nc")
	assert.Equal(t, 0, cache.Len())
	_, _ = cache.Get("a.nc")
	assert.Equal(t, int32(2), calls.Load())
}

// ─── Resolver Tests ──────────────────────────────────────

func resolverNesting(sources ...string) model.NestingResult {
	sheet := model.NestedSheet{
		Material:  "DC01",
		Thickness: 2,
		SheetSpec: model.SheetSpec{Width: 1500, NominalLength: 3000, Mode: model.SheetModeFixed},
	}
	for i, src := range sources {
		p := model.NewPartPlacement("part", 0, 0, i+1)
		p.Source = src
		sheet.Parts = append(sheet.Parts, p)
	}
	return model.NestingResult{Sheets: []model.NestedSheet{sheet}}
}

func TestResolver_AttachesToolpaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "square.nc"), []byte(laserSquare), 0o644))

	var calls atomic.Int32
	cache := NewCache(func(path string) (Extraction, error) {
		calls.Add(1)
		return Extract(path)
	})
	r := NewResolver(cache, dir, 4, nil)

	in := resolverNesting("square.nc", "square.nc", "")
	out, err := r.Resolve(context.Background(), in)
	require.NoError(t, err)

	parts := out.Sheets[0].Parts
	require.Len(t, parts, 3)
	for _, p := range parts[:2] {
		assert.Equal(t, model.CostingDetailed, p.CostingMode())
		require.NotNil(t, p.ToolpathStats)
		assert.InDelta(t, 200.0, p.ToolpathStats.CutLength, 1e-9)
		assert.InDelta(t, 2500.0, p.OccupiedArea, 1e-9)
	}
	assert.Equal(t, model.CostingNone, parts[2].CostingMode())
	assert.Equal(t, int32(1), calls.Load())

	assert.Nil(t, in.Sheets[0].Parts[0].Segments, "input is not modified")
	assert.Equal(t, 0.0, in.Sheets[0].Parts[0].OccupiedArea)
}

func TestResolver_KeepsGivenAreasAndSegments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "square.nc"), []byte(laserSquare), 0o644))

	in := resolverNesting("square.nc", "square.nc")
	in.Sheets[0].Parts[0].OccupiedArea = 4000
	in.Sheets[0].Parts[1].Segments = []model.MotionSegment{{Length: 1, ContourID: 1}}

	out, err := NewResolver(nil, dir, 1, nil).Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 4000.0, out.Sheets[0].Parts[0].OccupiedArea)
	assert.Len(t, out.Sheets[0].Parts[1].Segments, 1)
}

func TestResolver_ExtractionError(t *testing.T) {
	_, err := NewResolver(nil, t.TempDir(), 2, nil).Resolve(context.Background(), resolverNesting("missing.nc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "failed to extract toolpath")
}

func TestResolver_ExtractionErrorKeepsGivenStats(t *testing.T) {
	in := resolverNesting("missing.nc", "missing.nc")
	for i := range in.Sheets[0].Parts {
		in.Sheets[0].Parts[i].ToolpathStats = &model.ToolpathStats{CutLength: 120, PierceCount: 2, ContourCount: 2}
	}

	out, err := NewResolver(nil, t.TempDir(), 2, nil).Resolve(context.Background(), in)
	require.NoError(t, err)
	for _, p := range out.Sheets[0].Parts {
		assert.Equal(t, model.CostingHeuristic, p.CostingMode())
		require.NotNil(t, p.ToolpathStats)
		assert.Equal(t, 120.0, p.ToolpathStats.CutLength)
	}
}

func TestResolver_ExtractionErrorWhenAnyPlacementLacksStats(t *testing.T) {
	in := resolverNesting("missing.nc", "missing.nc")
	in.Sheets[0].Parts[0].ToolpathStats = &model.ToolpathStats{CutLength: 120}

	_, err := NewResolver(nil, t.TempDir(), 2, nil).Resolve(context.Background(), in)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
