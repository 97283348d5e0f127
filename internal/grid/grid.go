package grid

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
)

// maxCoord bounds the grid coordinates accepted by Materialize.
const maxCoord = 50

// MinLineDots is the minimum number of dots in a row or column for it to be
// used as a line.
const MinLineDots = 4

// Grid is a dense 2D table of linked dots indexed by grid coordinates.
// Column 0 is the lowest grid x and row 0 the lowest grid y, so row 0 is the
// bottom row of the target.
type Grid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`

	Dots  []CalibrationDot `json:"dots"`
	cells []int
}

// Materialize places every assigned, non-center dot with |x| and |y| below 50
// into a grid. Cells without a dot stay empty.
func Materialize(dots []CalibrationDot) (*Grid, error) {
	minX, minY := maxCoord, maxCoord
	maxX, maxY := -maxCoord, -maxCoord
	n := 0
	for i := range dots {
		d := &dots[i]
		if !usable(d) {
			continue
		}
		minX, maxX = min(minX, d.GridX), max(maxX, d.GridX)
		minY, maxY = min(minY, d.GridY), max(maxY, d.GridY)
		n++
	}
	if n == 0 {
		return nil, errors.New("no dots with grid coordinates")
	}

	g := &Grid{
		Cols: maxX - minX + 1,
		Rows: maxY - minY + 1,
		MinX: minX,
		MinY: minY,
		Dots: dots,
	}
	g.cells = make([]int, g.Cols*g.Rows)
	for i := range g.cells {
		g.cells[i] = -1
	}
	for i := range dots {
		d := &dots[i]
		if !usable(d) {
			continue
		}
		g.cells[(d.GridY-minY)*g.Cols+d.GridX-minX] = i
	}
	return g, nil
}

func usable(d *CalibrationDot) bool {
	return !d.IsCenter && d.Assigned() &&
		abs(d.GridX) < maxCoord && abs(d.GridY) < maxCoord
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// At returns the dot at grid coordinates (x, y).
func (g *Grid) At(x, y int) (*CalibrationDot, bool) {
	c, r := x-g.MinX, y-g.MinY
	if c < 0 || c >= g.Cols || r < 0 || r >= g.Rows {
		return nil, false
	}
	i := g.cells[r*g.Cols+c]
	if i < 0 {
		return nil, false
	}
	return &g.Dots[i], true
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for _, i := range g.cells {
		if i >= 0 {
			n++
		}
	}
	return n
}

// Nulls returns the number of empty cells.
func (g *Grid) Nulls() int {
	return len(g.cells) - g.Count()
}

// RowLines returns the dot centers of every grid row with at least
// MinLineDots dots, ordered by increasing grid x.
func (g *Grid) RowLines() [][]r2.Point {
	var lines [][]r2.Point
	for r := 0; r < g.Rows; r++ {
		var line []r2.Point
		for c := 0; c < g.Cols; c++ {
			if i := g.cells[r*g.Cols+c]; i >= 0 {
				line = append(line, g.Dots[i].Center)
			}
		}
		if len(line) >= MinLineDots {
			lines = append(lines, line)
		}
	}
	return lines
}

// ColumnLines returns the dot centers of every grid column with at least
// MinLineDots dots, ordered by increasing grid y.
func (g *Grid) ColumnLines() [][]r2.Point {
	var lines [][]r2.Point
	for c := 0; c < g.Cols; c++ {
		var line []r2.Point
		for r := 0; r < g.Rows; r++ {
			if i := g.cells[r*g.Cols+c]; i >= 0 {
				line = append(line, g.Dots[i].Center)
			}
		}
		if len(line) >= MinLineDots {
			lines = append(lines, line)
		}
	}
	return lines
}

// Lines returns row lines followed by column lines.
func (g *Grid) Lines() [][]r2.Point {
	return append(g.RowLines(), g.ColumnLines()...)
}

// Spacings returns the distances between linked neighbors, rightward and
// downward links only so each pair counts once.
func (g *Grid) Spacings() []float64 {
	var out []float64
	for i := range g.Dots {
		d := &g.Dots[i]
		for _, dir := range []Direction{Right, Down} {
			if n, ok := d.Neighbor(dir); ok {
				out = append(out, g.Dots[n].Center.Sub(d.Center).Norm())
			}
		}
	}
	sort.Float64s(out)
	return out
}

// Build runs center detection, linking and coordinate propagation on
// detected dots and materializes the grid.
func Build(found []detection.Dot) (*Grid, error) {
	dots := NewDots(found)
	centers, err := FindCenterDots(dots)
	if err != nil {
		return nil, err
	}
	LinkDots(dots, centers)
	ApplyGrid(dots, centers)
	g, err := Materialize(dots)
	if err != nil {
		return nil, errors.Wrap(err, "materialize grid")
	}
	return g, nil
}
