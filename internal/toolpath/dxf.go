package toolpath

import (
	"fmt"
	"math"
	"sort"

	"github.com/piwi3910/LaserCost/internal/model"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
)

// Discretization of curved DXF entities.
const (
	circleSegments = 64
	arcSegments    = 32
)

// edge is a straight piece between two points, used for chaining loose
// LINE and ARC entities into contours.
type edge struct {
	start Point
	end   Point
}

// ExtractDXF reads a DXF drawing of one part and builds its cutting path.
// Each LWPOLYLINE and CIRCLE is a closed contour; loose LINEs and ARCs are
// chained by their endpoints into closed or open contours. Inner contours are
// cut first, nearest next, and the outer contour last.
func ExtractDXF(path string) (Extraction, error) {
	drawing, err := dxf.Open(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("cannot open DXF file: %w", err)
	}

	contours := dxfContours(drawing.Entities())
	if len(contours) == 0 {
		return Extraction{}, fmt.Errorf("%w: no usable shapes in %s", ErrNoToolpath, path)
	}
	return DXFExtraction(contours), nil
}

// dxfContours converts the supported entities into contours.
func dxfContours(entities []entity.Entity) []Contour {
	var contours []Contour
	var loose []edge

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			if c := lwPolylineToContour(e); len(c.Points) >= 2 {
				contours = append(contours, c)
			}

		case *entity.Circle:
			contours = append(contours, circleToContour(e, circleSegments))

		case *entity.Arc:
			pts := arcEntityPath(e).sample(arcSegments)
			for i := 1; i < len(pts); i++ {
				loose = append(loose, edge{start: pts[i-1], end: pts[i]})
			}

		case *entity.Line:
			loose = append(loose, edge{
				start: Point{X: e.Start[0], Y: e.Start[1]},
				end:   Point{X: e.End[0], Y: e.End[1]},
			})

		default:
			// Unsupported entity types are silently skipped
		}
	}

	return append(contours, chainEdges(loose, closeTolerance)...)
}

// DXFExtraction orders contours for cutting and converts them to motion segments.
func DXFExtraction(contours []Contour) Extraction {
	ordered := cutOrder(contours)

	var segments []model.MotionSegment
	head := Point{}
	for i, c := range ordered {
		id := i + 1
		start := c.Points[0]
		if d := head.Dist(start); d > 0 {
			h := heading(head, start)
			segments = append(segments, model.MotionSegment{
				Length:     d,
				StartAngle: model.Angle(h),
				EndAngle:   model.Angle(h),
				IsRapid:    true,
				ContourID:  id,
			})
		}
		for _, e := range c.edges() {
			length := e[0].Dist(e[1])
			if length <= 0 {
				continue
			}
			h := heading(e[0], e[1])
			segments = append(segments, model.MotionSegment{
				Length:     length,
				StartAngle: model.Angle(h),
				EndAngle:   model.Angle(h),
				ContourID:  id,
			})
		}
		head = start
		if !c.Closed {
			head = c.Points[len(c.Points)-1]
		}
	}

	return newExtraction(segments, ordered)
}

// cutOrder puts the largest closed contour last and visits the others by
// nearest start point from the origin.
func cutOrder(contours []Contour) []Contour {
	rest := make([]Contour, 0, len(contours))
	for _, c := range contours {
		if len(c.Points) > 0 {
			rest = append(rest, c)
		}
	}
	if len(rest) == 0 {
		return nil
	}

	outer := -1
	best := 0.0
	for i, c := range rest {
		if a := c.Area(); a > best {
			best = a
			outer = i
		}
	}
	var last *Contour
	if outer >= 0 {
		o := rest[outer]
		last = &o
		rest = append(rest[:outer], rest[outer+1:]...)
	}

	ordered := make([]Contour, 0, len(rest)+1)
	head := Point{}
	for len(rest) > 0 {
		next := 0
		for i := 1; i < len(rest); i++ {
			if head.Dist(rest[i].Points[0]) < head.Dist(rest[next].Points[0]) {
				next = i
			}
		}
		c := rest[next]
		ordered = append(ordered, c)
		head = c.Points[0]
		if !c.Closed {
			head = c.Points[len(c.Points)-1]
		}
		rest = append(rest[:next], rest[next+1:]...)
	}
	if last != nil {
		ordered = append(ordered, *last)
	}
	return ordered
}

// lwPolylineToContour walks the polyline vertices. A non-zero bulge on a
// vertex turns the span to the next vertex into an arc.
func lwPolylineToContour(lw *entity.LwPolyline) Contour {
	n := len(lw.Vertices)
	pts := make([]Point, 0, n)
	for i, v := range lw.Vertices {
		from := Point{X: v[0], Y: v[1]}
		pts = append(pts, from)

		if i >= len(lw.Bulges) || math.Abs(lw.Bulges[i]) <= 1e-9 {
			continue
		}
		w := lw.Vertices[(i+1)%n]
		arc, ok := bulgeArc(from, Point{X: w[0], Y: w[1]}, lw.Bulges[i])
		if !ok {
			continue
		}
		// Interior points only; both span ends are vertices.
		span := arc.sample(arcSegments)
		pts = append(pts, span[1:len(span)-1]...)
	}
	return Contour{Points: pts, Closed: len(pts) >= 3}
}

// arcPath is a circular arc swept from angle from to angle to, in radians
// around center. A sweep with to < from runs clockwise.
type arcPath struct {
	center   Point
	radius   float64
	from, to float64
}

// sample returns steps+1 evenly spaced points from the arc start to its end.
func (a arcPath) sample(steps int) []Point {
	pts := make([]Point, steps+1)
	for i := range pts {
		ang := a.from + (a.to-a.from)*float64(i)/float64(steps)
		pts[i] = Point{X: a.center.X + a.radius*math.Cos(ang), Y: a.center.Y + a.radius*math.Sin(ang)}
	}
	return pts
}

// bulgeArc builds the arc between two polyline vertices. The bulge is
// tan(sweep/4), positive for counterclockwise. Coincident vertices give no arc.
func bulgeArc(p, q Point, bulge float64) (arcPath, bool) {
	chord := p.Dist(q)
	if chord < 1e-9 {
		return arcPath{}, false
	}
	sweep := 4 * math.Atan(bulge)
	half := sweep / 2

	// Signed offset of the center from the chord midpoint along its left normal.
	offset := chord / 2 / math.Tan(half)
	nx, ny := -(q.Y-p.Y)/chord, (q.X-p.X)/chord
	center := Point{
		X: (p.X+q.X)/2 + nx*offset,
		Y: (p.Y+q.Y)/2 + ny*offset,
	}
	from := math.Atan2(p.Y-center.Y, p.X-center.X)
	return arcPath{
		center: center,
		radius: math.Abs(chord / 2 / math.Sin(half)),
		from:   from,
		to:     from + sweep,
	}, true
}

// circleToContour cuts a CIRCLE as a closed polygon starting at 0°.
func circleToContour(c *entity.Circle, steps int) Contour {
	arc := arcPath{center: Point{X: c.Center[0], Y: c.Center[1]}, radius: c.Radius, to: 2 * math.Pi}
	pts := arc.sample(steps)
	return Contour{Points: pts[:steps], Closed: true}
}

// arcEntityPath converts an ARC entity, whose angles are degrees swept
// counterclockwise from start to end.
func arcEntityPath(a *entity.Arc) arcPath {
	from := a.Angle[0] * math.Pi / 180
	to := a.Angle[1] * math.Pi / 180
	if to <= from {
		to += 2 * math.Pi
	}
	return arcPath{
		center: Point{X: a.Circle.Center[0], Y: a.Circle.Center[1]},
		radius: a.Circle.Radius,
		from:   from,
		to:     to,
	}
}

// chainEdges joins loose edges that meet within tolerance into cut paths. A
// path grows at its tail and then at its head, so a chain seeded mid-way still
// collects both ends. Paths that return to their start are closed contours;
// the rest are open cuts. Contours come back largest first.
func chainEdges(edges []edge, tolerance float64) []Contour {
	pool := append([]edge(nil), edges...)

	// take removes and returns the far end of a pool edge touching at.
	take := func(at Point) (Point, bool) {
		for i, e := range pool {
			var far Point
			switch {
			case at.Dist(e.start) <= tolerance:
				far = e.end
			case at.Dist(e.end) <= tolerance:
				far = e.start
			default:
				continue
			}
			pool = append(pool[:i], pool[i+1:]...)
			return far, true
		}
		return Point{}, false
	}

	var contours []Contour
	for len(pool) > 0 {
		seed := pool[0]
		pool = pool[1:]
		path := []Point{seed.start, seed.end}

		for {
			far, ok := take(path[len(path)-1])
			if !ok {
				break
			}
			path = append(path, far)
		}
		closed := len(path) >= 4 && path[0].Dist(path[len(path)-1]) <= tolerance
		if closed {
			path = path[:len(path)-1]
		} else {
			for {
				far, ok := take(path[0])
				if !ok {
					break
				}
				path = append([]Point{far}, path...)
			}
		}
		contours = append(contours, Contour{Points: path, Closed: closed})
	}

	sort.SliceStable(contours, func(i, j int) bool {
		return contours[i].Area() > contours[j].Area()
	})
	return contours
}
