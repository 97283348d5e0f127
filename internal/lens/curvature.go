package lens

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
)

// minLinePoints is the fewest points a line needs to have a curvature.
const minLinePoints = 3

// LineCurvature returns the RMS perpendicular distance of the interior
// points of line from the chord joining its end points.
func LineCurvature(line []r2.Point) (float64, bool) {
	if len(line) < minLinePoints {
		return 0, false
	}
	a, b := line[0], line[len(line)-1]
	chord := b.Sub(a)
	n := chord.Norm()
	if n == 0 {
		return 0, false
	}
	dev := make([]float64, 0, len(line)-2)
	for _, p := range line[1 : len(line)-1] {
		dev = append(dev, chord.Cross(p.Sub(a))/n)
	}
	return floats.Norm(dev, 2) / math.Sqrt(float64(len(dev))), true
}

// Curvature sums LineCurvature over lines, skipping lines too short to
// measure.
func Curvature(lines [][]r2.Point) float64 {
	total := 0.0
	for _, l := range lines {
		if c, ok := LineCurvature(l); ok {
			total += c
		}
	}
	return total
}

// LineLength returns the summed segment length of a polyline.
func LineLength(line []r2.Point) float64 {
	if len(line) < 2 {
		return 0
	}
	seg := make([]float64, len(line)-1)
	for i := 1; i < len(line); i++ {
		seg[i-1] = line[i].Sub(line[i-1]).Norm()
	}
	return floats.Sum(seg)
}

// TotalLength sums LineLength over lines.
func TotalLength(lines [][]r2.Point) float64 {
	total := 0.0
	for _, l := range lines {
		total += LineLength(l)
	}
	return total
}

// Angle returns the chord angle of line in radians, folded into
// (-pi/2, pi/2].
func Angle(line []r2.Point) float64 {
	if len(line) < 2 {
		return 0
	}
	d := line[len(line)-1].Sub(line[0])
	a := math.Atan2(d.Y, d.X)
	switch {
	case a > math.Pi/2:
		a -= math.Pi
	case a <= -math.Pi/2:
		a += math.Pi
	}
	return a
}
