package detection

import (
	"math"

	"github.com/golang/geo/r2"
)

// profileTolerance is the inlier distance, in pixels, when scoring a
// candidate line against a profile.
const profileTolerance = 2.0

// coarseSteps is the number of candidate anchor positions per profile in the
// coarse stage of FitProfileLine.
const coarseSteps = 12

// Line is an infinite line through two points.
type Line struct {
	A r2.Point `json:"a"`
	B r2.Point `json:"b"`
}

// Direction returns the unit direction from A to B.
func (l Line) Direction() r2.Point {
	return l.B.Sub(l.A).Normalize()
}

// Distance returns the perpendicular distance from q to the line. A
// degenerate line measures the distance to A.
func (l Line) Distance(q r2.Point) float64 {
	if l.A == l.B {
		return q.Sub(l.A).Norm()
	}
	return math.Abs(l.Direction().Cross(q.Sub(l.A)))
}

// AngleDegrees returns the direction angle in degrees.
func (l Line) AngleDegrees() float64 {
	d := l.B.Sub(l.A)
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// Intersect returns the intersection with o using the determinant form. It
// returns false for parallel or degenerate lines.
func (l Line) Intersect(o Line) (r2.Point, bool) {
	x1, y1, x2, y2 := l.A.X, l.A.Y, l.B.X, l.B.Y
	x3, y3, x4, y4 := o.A.X, o.A.Y, o.B.X, o.B.Y

	den := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if math.Abs(den) < 1e-9 {
		return r2.Point{}, false
	}
	a := x1*y2 - y1*x2
	b := x3*y4 - y3*x4
	return r2.Point{
		X: (a*(x3-x4) - (x1-x2)*b) / den,
		Y: (a*(y3-y4) - (y1-y2)*b) / den,
	}, true
}

// FitProfileLine finds the line through two profile samples that has the most
// samples within 2 px.
//
// A coarse pass tries anchor pairs on a sparse lattice of sample indices; a
// fine pass then tries every pair within one lattice step of the best coarse
// pair. Scoring stops early once a candidate can no longer beat the best.
// It returns false when fewer than two samples are given.
func FitProfileLine(samples []r2.Point) (Line, int, bool) {
	n := len(samples)
	if n < 2 {
		return Line{}, 0, false
	}

	step := n / coarseSteps
	if step < 1 {
		step = 1
	}

	bestI, bestJ, best := 0, n-1, -1
	try := func(i, j int) {
		if i < 0 || j >= n || i >= j {
			return
		}
		if s := scoreLine(samples, samples[i], samples[j], best); s > best {
			bestI, bestJ, best = i, j, s
		}
	}

	for i := 0; i < n; i += step {
		for j := i + step; j < n; j += step {
			try(i, j)
		}
		try(i, n-1)
	}

	ci, cj := bestI, bestJ
	for i := ci - step; i <= ci+step; i++ {
		for j := cj - step; j <= cj+step; j++ {
			try(i, j)
		}
	}

	return Line{A: samples[bestI], B: samples[bestJ]}, best, true
}

// scoreLine counts samples within profileTolerance of the line a-b, giving up
// as soon as the count cannot exceed best.
func scoreLine(samples []r2.Point, a, b r2.Point, best int) int {
	l := Line{A: a, B: b}
	count := 0
	for k, s := range samples {
		if count+len(samples)-k <= best {
			return count
		}
		if l.Distance(s) <= profileTolerance {
			count++
		}
	}
	return count
}
