package detection

import (
	"image"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// MaxPerimeterPoints caps the member list of a single perimeter. Pixels past
// the cap are still cleared from the edge map (they belong to the same
// component) but are not recorded, and the perimeter is marked Truncated.
const MaxPerimeterPoints = 16000

// Perimeter is one 8-connected component of edge pixels.
type Perimeter struct {
	// Points are the member pixels in traversal order.
	Points []image.Point

	// Bounds encloses every visited pixel; Max is exclusive.
	Bounds image.Rectangle

	// Centroid is the mean position of every visited pixel.
	Centroid r2.Point

	// Visited counts every pixel cleared by the trace, recorded or not.
	Visited int

	// Truncated is set when the component exceeded MaxPerimeterPoints.
	Truncated bool
}

// Len returns the number of recorded member pixels.
func (p *Perimeter) Len() int {
	return len(p.Points)
}

// TracePerimeters splits an edge map into connected perimeters.
//
// Tracing starts from each entry of m.Points that is still an edge pixel and
// clears every pixel it visits from m.Edge, so each pixel belongs to at most
// one perimeter. The map is consumed; pass a Clone to keep the original.
func TracePerimeters(m *imaging.EdgeMap) []Perimeter {
	var perimeters []Perimeter
	for _, start := range m.Points {
		if !m.IsEdge(start.X, start.Y) {
			continue
		}
		perimeters = append(perimeters, TraceEdge(m, start))
	}
	return perimeters
}

// TraceEdge follows the component containing start using an explicit stack,
// clearing visited pixels from the map.
func TraceEdge(m *imaging.EdgeMap, start image.Point) Perimeter {
	p := Perimeter{
		Bounds: image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))},
	}
	if !m.IsEdge(start.X, start.Y) {
		return p
	}

	var sumX, sumY float64
	m.Edge[start.Y*m.Width+start.X] = false
	stack := []image.Point{start}

	for len(stack) > 0 {
		pt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		p.Visited++
		sumX += float64(pt.X)
		sumY += float64(pt.Y)
		p.Bounds = p.Bounds.Union(image.Rectangle{Min: pt, Max: pt.Add(image.Pt(1, 1))})
		if len(p.Points) < MaxPerimeterPoints {
			p.Points = append(p.Points, pt)
		} else {
			p.Truncated = true
		}

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				x, y := pt.X+dx, pt.Y+dy
				if !m.IsEdge(x, y) {
					continue
				}
				m.Edge[y*m.Width+x] = false
				stack = append(stack, image.Point{X: x, Y: y})
			}
		}
	}

	p.Centroid = r2.Point{X: sumX / float64(p.Visited), Y: sumY / float64(p.Visited)}
	return p
}

// FilterByLength drops perimeters shorter than minPercent of the longest one.
func FilterByLength(perimeters []Perimeter, minPercent float64) []Perimeter {
	longest := 0
	for i := range perimeters {
		if perimeters[i].Len() > longest {
			longest = perimeters[i].Len()
		}
	}
	min := float64(longest) * minPercent / 100
	out := perimeters[:0:0]
	for _, p := range perimeters {
		if float64(p.Len()) >= min {
			out = append(out, p)
		}
	}
	return out
}
