package detection

import (
	"math"

	"github.com/golang/geo/r2"
)

// Polygon is a closed outline. Squares are stored top-left, top-right,
// bottom-right, bottom-left, which is clockwise on screen (y down).
type Polygon struct {
	Vertices []r2.Point `json:"vertices"`
}

// Sides returns the side lengths; side i runs from vertex i to vertex i+1.
func (p Polygon) Sides() []float64 {
	n := len(p.Vertices)
	sides := make([]float64, n)
	for i := 0; i < n; i++ {
		sides[i] = p.Vertices[(i+1)%n].Sub(p.Vertices[i]).Norm()
	}
	return sides
}

// Angles returns the interior angle at each vertex in degrees.
func (p Polygon) Angles() []float64 {
	n := len(p.Vertices)
	angles := make([]float64, n)
	for i := 0; i < n; i++ {
		prev := p.Vertices[(i+n-1)%n].Sub(p.Vertices[i])
		next := p.Vertices[(i+1)%n].Sub(p.Vertices[i])
		d := prev.Norm() * next.Norm()
		if d == 0 {
			continue
		}
		c := math.Max(-1, math.Min(1, prev.Dot(next)/d))
		angles[i] = math.Acos(c) * 180 / math.Pi
	}
	return angles
}

// Longest returns the longest side length.
func (p Polygon) Longest() float64 {
	longest := 0.0
	for _, s := range p.Sides() {
		longest = math.Max(longest, s)
	}
	return longest
}

// Shortest returns the shortest side length, 0 for an empty polygon.
func (p Polygon) Shortest() float64 {
	sides := p.Sides()
	if len(sides) == 0 {
		return 0
	}
	shortest := sides[0]
	for _, s := range sides[1:] {
		shortest = math.Min(shortest, s)
	}
	return shortest
}

// SideRatio returns shortest/longest, 0 when degenerate.
func (p Polygon) SideRatio() float64 {
	longest := p.Longest()
	if longest == 0 {
		return 0
	}
	return p.Shortest() / longest
}

// Squareness measures how far a quadrilateral is from a square as the summed
// deviation from 1 of the opposite side ratios and one adjacent side ratio.
// A perfect square scores 0. Anything other than a quadrilateral scores +Inf.
func (p Polygon) Squareness() float64 {
	if len(p.Vertices) != 4 {
		return math.Inf(1)
	}
	s := p.Sides()
	if s[0] == 0 || s[1] == 0 || s[2] == 0 || s[3] == 0 {
		return math.Inf(1)
	}
	return math.Abs(1-s[0]/s[2]) + math.Abs(1-s[1]/s[3]) + math.Abs(1-s[0]/s[1])
}

// Orientation returns the angle of the first side in degrees.
func (p Polygon) Orientation() float64 {
	if len(p.Vertices) < 2 {
		return 0
	}
	d := p.Vertices[1].Sub(p.Vertices[0])
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// Centroid returns the vertex mean.
func (p Polygon) Centroid() r2.Point {
	var c r2.Point
	if len(p.Vertices) == 0 {
		return c
	}
	for _, v := range p.Vertices {
		c = c.Add(v)
	}
	return c.Mul(1 / float64(len(p.Vertices)))
}

// Area returns the absolute shoelace area.
func (p Polygon) Area() float64 {
	n := len(p.Vertices)
	a := 0.0
	for i := 0; i < n; i++ {
		a += p.Vertices[i].Cross(p.Vertices[(i+1)%n])
	}
	return math.Abs(a) / 2
}

// Scale returns a copy scaled by f about the centroid.
func (p Polygon) Scale(f float64) Polygon {
	c := p.Centroid()
	out := Polygon{Vertices: make([]r2.Point, len(p.Vertices))}
	for i, v := range p.Vertices {
		out.Vertices[i] = c.Add(v.Sub(c).Mul(f))
	}
	return out
}

// Shrink moves every vertex toward the centroid by d pixels (away for
// negative d). Vertices closer than d stop at the centroid.
func (p Polygon) Shrink(d float64) Polygon {
	c := p.Centroid()
	out := Polygon{Vertices: make([]r2.Point, len(p.Vertices))}
	for i, v := range p.Vertices {
		off := v.Sub(c)
		n := off.Norm()
		if n == 0 || n <= d {
			out.Vertices[i] = c
			continue
		}
		out.Vertices[i] = c.Add(off.Mul((n - d) / n))
	}
	return out
}

// Contains reports whether q lies inside the polygon (even-odd rule).
func (p Polygon) Contains(q r2.Point) bool {
	inside := false
	n := len(p.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > q.Y) != (b.Y > q.Y) &&
			q.X < (b.X-a.X)*(q.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Overlaps reports whether any vertex or the centroid of either polygon lies
// inside the other.
func (p Polygon) Overlaps(o Polygon) bool {
	if len(p.Vertices) == 0 || len(o.Vertices) == 0 {
		return false
	}
	if p.Contains(o.Centroid()) || o.Contains(p.Centroid()) {
		return true
	}
	for _, v := range o.Vertices {
		if p.Contains(v) {
			return true
		}
	}
	for _, v := range p.Vertices {
		if o.Contains(v) {
			return true
		}
	}
	return false
}
