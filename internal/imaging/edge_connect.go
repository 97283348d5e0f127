package imaging

import (
	"image"
	"math"
)

// corners returns the edge points that end a chain: those with at most two
// edge pixels (themselves included) in their 3x3 neighborhood.
func (m *EdgeMap) corners() []image.Point {
	var out []image.Point
	for _, p := range m.Points {
		n := 0
		for y := p.Y - 1; y <= p.Y+1; y++ {
			for x := p.X - 1; x <= p.X+1; x++ {
				if m.IsEdge(x, y) {
					n++
				}
			}
		}
		if n <= 2 {
			out = append(out, p)
		}
	}
	return out
}

// ConnectBrokenEdges bridges small gaps in the edge map. Chain ends closer
// than maxSeparation on both axes are joined by a straight run of new edge
// pixels. Pairing is greedy in point order: the first qualifying partner wins
// and every end is joined at most once. Pairs whose midpoint is already an
// edge pixel belong to the same chain and are left alone.
//
// It returns the number of bridges drawn.
func (m *EdgeMap) ConnectBrokenEdges(maxSeparation int) int {
	if maxSeparation <= 0 {
		return 0
	}
	ends := m.corners()
	linked := make([]bool, len(ends))
	bridges := 0

	for i := range ends {
		if linked[i] {
			continue
		}
		a := ends[i]
		for j := i + 1; j < len(ends); j++ {
			if linked[j] {
				continue
			}
			b := ends[j]
			dx, dy := b.X-a.X, b.Y-a.Y
			if abs(dx) > maxSeparation || abs(dy) > maxSeparation {
				continue
			}
			if abs(dx) <= 1 && abs(dy) <= 1 {
				continue
			}
			if m.IsEdge((a.X+b.X)/2, (a.Y+b.Y)/2) {
				continue
			}
			m.drawLine(a, b)
			linked[i], linked[j] = true, true
			bridges++
			break
		}
	}
	return bridges
}

func (m *EdgeMap) drawLine(a, b image.Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	for s := 1; s < steps; s++ {
		t := float64(s) / float64(steps)
		x := a.X + int(math.Round(t*float64(dx)))
		y := a.Y + int(math.Round(t*float64(dy)))
		if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
			continue
		}
		i := y*m.Width + x
		if m.Edge[i] {
			continue
		}
		m.Edge[i] = true
		m.Points = append(m.Points, image.Point{X: x, Y: y})
	}
}
