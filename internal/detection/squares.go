package detection

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

const (
	// minSquareSideRatio rejects quadrilaterals whose shortest side is at
	// most this fraction of the longest.
	minSquareSideRatio = 0.2

	// overlapScale enlarges squares before overlap testing.
	overlapScale = 1.1
)

// profiles extracts the four edge profiles of a group: the leftmost and
// rightmost x of each row, and the topmost and bottommost y of each column.
// Rows and columns without member pixels are skipped.
func profiles(g *Group) (left, right, top, bottom []r2.Point) {
	b := g.Bounds
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, nil, nil, nil
	}
	minX := make([]int, h)
	maxX := make([]int, h)
	minY := make([]int, w)
	maxY := make([]int, w)
	for i := range minX {
		minX[i], maxX[i] = math.MaxInt, math.MinInt
	}
	for i := range minY {
		minY[i], maxY[i] = math.MaxInt, math.MinInt
	}
	for _, p := range g.Points {
		r, c := p.Y-b.Min.Y, p.X-b.Min.X
		if p.X < minX[r] {
			minX[r] = p.X
		}
		if p.X > maxX[r] {
			maxX[r] = p.X
		}
		if p.Y < minY[c] {
			minY[c] = p.Y
		}
		if p.Y > maxY[c] {
			maxY[c] = p.Y
		}
	}
	for r := 0; r < h; r++ {
		if minX[r] == math.MaxInt {
			continue
		}
		y := float64(b.Min.Y + r)
		left = append(left, r2.Point{X: float64(minX[r]), Y: y})
		right = append(right, r2.Point{X: float64(maxX[r]), Y: y})
	}
	for c := 0; c < w; c++ {
		if minY[c] == math.MaxInt {
			continue
		}
		x := float64(b.Min.X + c)
		top = append(top, r2.Point{X: x, Y: float64(minY[c])})
		bottom = append(bottom, r2.Point{X: x, Y: float64(maxY[c])})
	}
	return left, right, top, bottom
}

// GetSquarePeriphery fits a quadrilateral to the outline of a group.
//
// A line is fitted to each of the four edge profiles and adjacent lines are
// intersected to give the corners in top-left, top-right, bottom-right,
// bottom-left order. The result is shrunk by level*sqrt(2) toward its centroid
// to undo the growth of dark shapes caused by erosion at that level (negative
// levels grow it). It returns false for degenerate profiles, parallel lines or
// a shortest/longest side ratio of 0.2 or less.
func GetSquarePeriphery(g *Group, level int) (Polygon, bool) {
	left, right, top, bottom := profiles(g)

	var lines [4]Line
	for i, prof := range [][]r2.Point{left, top, right, bottom} {
		l, _, ok := FitProfileLine(prof)
		if !ok || l.A == l.B {
			return Polygon{}, false
		}
		lines[i] = l
	}
	lLeft, lTop, lRight, lBottom := lines[0], lines[1], lines[2], lines[3]

	var corners [4]r2.Point
	for i, pair := range [][2]Line{{lLeft, lTop}, {lTop, lRight}, {lRight, lBottom}, {lBottom, lLeft}} {
		p, ok := pair[0].Intersect(pair[1])
		if !ok {
			return Polygon{}, false
		}
		corners[i] = p
	}

	poly := Polygon{Vertices: corners[:]}
	if poly.SideRatio() <= minSquareSideRatio {
		return Polygon{}, false
	}
	if level != 0 {
		poly = poly.Shrink(float64(level) * math.Sqrt2)
	}
	return poly, true
}

// SelectSquares removes overlapping candidates. Candidates are compared
// pairwise in input order after scaling by 1.1; of two overlapping squares
// the one with the lower Squareness survives (the earlier one on ties).
// The result depends on input order.
func SelectSquares(candidates []Polygon) []Polygon {
	alive := make([]bool, len(candidates))
	scaled := make([]Polygon, len(candidates))
	for i := range candidates {
		alive[i] = true
		scaled[i] = candidates[i].Scale(overlapScale)
	}

	for i := range candidates {
		if !alive[i] {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if !alive[j] || !scaled[i].Overlaps(scaled[j]) {
				continue
			}
			if candidates[j].Squareness() < candidates[i].Squareness() {
				alive[i] = false
				break
			}
			alive[j] = false
		}
	}

	var out []Polygon
	for i, ok := range alive {
		if ok {
			out = append(out, candidates[i])
		}
	}
	return out
}

// SquareConfig controls DetectSquares.
type SquareConfig struct {
	ExtractConfig

	// Levels lists the erosion/dilation trials; each overrides
	// ExtractConfig.ErosionDilation.
	Levels []int

	// MinSide and MaxSide bound the group bounding box sides in pixels.
	MinSide int
	MaxSide int
}

// DefaultSquareConfig returns settings for finding the alignment square.
func DefaultSquareConfig() SquareConfig {
	return SquareConfig{
		ExtractConfig: ExtractConfig{
			ConnectSeparation:     3,
			MinimumSizePercent:    10,
			GroupingRadiusPercent: 0.5,
		},
		Levels:  []int{0, 1, -1},
		MinSide: 12,
		MaxSide: 2000,
	}
}

// DetectSquares runs the extraction once per level, fits a periphery to
// every suitably sized group and arbitrates the overlapping candidates.
func DetectSquares(buf *imaging.Buffer, cfg SquareConfig) ([]Polygon, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	levels := cfg.Levels
	if len(levels) == 0 {
		levels = []int{cfg.ErosionDilation}
	}

	var candidates []Polygon
	for _, level := range levels {
		ec := cfg.ExtractConfig
		ec.ErosionDilation = level
		ex, err := Extract(buf, ec)
		if err != nil {
			return nil, err
		}
		for i := range ex.Groups {
			g := &ex.Groups[i]
			if g.Width() < cfg.MinSide || g.Height() < cfg.MinSide ||
				g.Width() > cfg.MaxSide || g.Height() > cfg.MaxSide {
				continue
			}
			if poly, ok := GetSquarePeriphery(g, level); ok {
				candidates = append(candidates, poly)
			}
		}
	}
	return SelectSquares(candidates), nil
}
