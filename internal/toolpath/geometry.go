// Package toolpath extracts cutting geometry from DXF drawings and G-code
// programs and reduces it to the motion segments and toolpath statistics the
// time estimator consumes.
package toolpath

import "math"

// Point is a 2D position in mm.
type Point struct {
	X, Y float64
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// heading returns the direction from p to q in degrees.
func heading(p, q Point) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X) * 180 / math.Pi
}

// Contour is one connected cutting path.
type Contour struct {
	Points []Point
	Closed bool
}

// Area returns the absolute enclosed area of a closed contour (shoelace formula).
// Open contours have no area.
func (c Contour) Area() float64 {
	n := len(c.Points)
	if !c.Closed || n < 3 {
		return 0
	}
	var area float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += c.Points[i].X * c.Points[j].Y
		area -= c.Points[j].X * c.Points[i].Y
	}
	return math.Abs(area) / 2
}

// Length returns the path length, including the closing edge of a closed contour.
func (c Contour) Length() float64 {
	total := 0.0
	for i := 1; i < len(c.Points); i++ {
		total += c.Points[i-1].Dist(c.Points[i])
	}
	if c.Closed && len(c.Points) > 2 {
		total += c.Points[len(c.Points)-1].Dist(c.Points[0])
	}
	return total
}

// BoundingBox returns the min and max corners of the contour.
func (c Contour) BoundingBox() (Point, Point) {
	if len(c.Points) == 0 {
		return Point{}, Point{}
	}
	lo, hi := c.Points[0], c.Points[0]
	for _, p := range c.Points[1:] {
		lo.X = math.Min(lo.X, p.X)
		lo.Y = math.Min(lo.Y, p.Y)
		hi.X = math.Max(hi.X, p.X)
		hi.Y = math.Max(hi.Y, p.Y)
	}
	return lo, hi
}

// Contains reports whether p lies inside the closed contour (ray casting).
func (c Contour) Contains(p Point) bool {
	if !c.Closed {
		return false
	}
	inside := false
	n := len(c.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := c.Points[i], c.Points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// edges returns the straight edges of the contour in cutting order.
func (c Contour) edges() [][2]Point {
	n := len(c.Points)
	if n < 2 {
		return nil
	}
	out := make([][2]Point, 0, n)
	for i := 1; i < n; i++ {
		out = append(out, [2]Point{c.Points[i-1], c.Points[i]})
	}
	if c.Closed && n > 2 {
		out = append(out, [2]Point{c.Points[n-1], c.Points[0]})
	}
	return out
}

// areas returns the occupied area (largest closed contour) and the net area
// (occupied minus every closed contour lying inside it).
func areas(contours []Contour) (occupied, net float64) {
	outer := -1
	for i, c := range contours {
		if a := c.Area(); a > occupied {
			occupied = a
			outer = i
		}
	}
	if outer < 0 {
		return 0, 0
	}
	net = occupied
	for i, c := range contours {
		if i == outer || !c.Closed || len(c.Points) == 0 {
			continue
		}
		if contours[outer].Contains(c.Points[0]) {
			net -= c.Area()
		}
	}
	return occupied, math.Max(0, net)
}
