package lens

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/polyfit"
)

const (
	// curveDegree is the degree of the radial curve. Coefficient 0 is pinned
	// to zero and the cubic term is unused, leaving two searched terms.
	curveDegree = 3

	// minRadius is the smallest radius a point may have to be rectified.
	minRadius = 0.01

	newtonIterations = 20
	newtonTolerance  = 1e-6
)

// Model describes a radial distortion and the rectification built on it.
//
// Curve maps a rectified radius to the original radius, both measured from
// Center. Rectified points are scaled by Scale, rotated by Rotation radians
// and offset to ImageCenter.
type Model struct {
	Curve       *polyfit.Curve
	Center      r2.Point
	ImageCenter r2.Point
	Scale       float64
	Rotation    float64
}

// NewModel returns a model for the curve r -> k1*r + k2*r^2 centered on
// center, with unit scale and no rotation.
func NewModel(k1, k2 float64, center r2.Point) *Model {
	c := polyfit.New(curveDegree)
	c.SetCoeff(0, 0)
	c.SetCoeff(1, k1)
	c.SetCoeff(2, k2)
	return &Model{
		Curve:       c,
		Center:      center,
		ImageCenter: center,
		Scale:       1,
	}
}

// Identity returns the model that leaves every point in place.
func Identity(center r2.Point) *Model {
	return NewModel(1, 0, center)
}

// K1 returns the linear coefficient.
func (m *Model) K1() float64 { return m.Curve.Coeff(1) }

// K2 returns the quadratic coefficient.
func (m *Model) K2() float64 { return m.Curve.Coeff(2) }

// original returns the original radius for a rectified radius.
func (m *Model) original(r float64) (float64, bool) {
	ro := m.Curve.RegVal(r)
	if ro <= 0 || math.IsNaN(ro) || math.IsInf(ro, 0) {
		return 0, false
	}
	return ro, true
}

// rectified inverts the curve with Newton iterations.
func (m *Model) rectified(ro float64) (float64, bool) {
	k1 := m.K1()
	r := ro
	if k1 > 0 {
		r = ro / k1
	}
	for i := 0; i < newtonIterations; i++ {
		d := m.Curve.Derivative(r)
		if d <= 0 {
			return 0, false
		}
		step := (m.Curve.RegVal(r) - ro) / d
		r -= step
		if math.Abs(step) < newtonTolerance {
			break
		}
	}
	if r <= 0 || math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

func rotate(v r2.Point, angle float64) r2.Point {
	if angle == 0 {
		return v
	}
	sin, cos := math.Sincos(angle)
	return r2.Point{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Rectify maps an original image point to its rectified position. It fails
// for points closer than 0.01 px to the center and where the curve cannot be
// inverted.
func (m *Model) Rectify(p r2.Point) (r2.Point, bool) {
	v := p.Sub(m.Center)
	ro := v.Norm()
	if ro < minRadius {
		return r2.Point{}, false
	}
	r, ok := m.rectified(ro)
	if !ok {
		return r2.Point{}, false
	}
	q := v.Mul(r / ro * m.Scale)
	return rotate(q, m.Rotation).Add(m.ImageCenter), true
}

// Source maps a rectified point back to the original image. It is the
// inverse of Rectify.
func (m *Model) Source(p r2.Point) (r2.Point, bool) {
	if m.Scale == 0 {
		return r2.Point{}, false
	}
	v := rotate(p.Sub(m.ImageCenter), -m.Rotation).Mul(1 / m.Scale)
	r := v.Norm()
	if r < minRadius {
		return r2.Point{}, false
	}
	ro, ok := m.original(r)
	if !ok {
		return r2.Point{}, false
	}
	return m.Center.Add(v.Mul(ro / r)), true
}

// RectifyLines rectifies every point of every line. Points that fail are
// dropped and lines left with fewer than three points are discarded.
func (m *Model) RectifyLines(lines [][]r2.Point) [][]r2.Point {
	out := make([][]r2.Point, 0, len(lines))
	for _, line := range lines {
		rl := make([]r2.Point, 0, len(line))
		for _, p := range line {
			if q, ok := m.Rectify(p); ok {
				rl = append(rl, q)
			}
		}
		if len(rl) >= minLinePoints {
			out = append(out, rl)
		}
	}
	return out
}
