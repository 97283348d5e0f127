package calibrate

import (
	"fmt"
	"image/color"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
	"github.com/ironsheep/stereo-calibrate/internal/grid"
	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// DrawDots outlines every detected dot in c and fills the center dot.
func DrawDots(o *imaging.Overlay, dots []detection.Dot, c color.Color) {
	for _, d := range dots {
		if d.IsCenter {
			o.Disc(d.Center, d.Radius, imaging.ColorCenter)
			continue
		}
		o.Circle(d.Center, d.Radius+1, c, 2)
	}
}

// DrawGrid draws the links between dots, outlines assigned dots in c and,
// when labels is set, writes each dot's grid coordinates.
func DrawGrid(o *imaging.Overlay, g *grid.Grid, c color.Color, labels bool) {
	for i := range g.Dots {
		d := &g.Dots[i]
		for _, dir := range []grid.Direction{grid.Right, grid.Down} {
			if n, ok := d.Neighbor(dir); ok {
				o.Line(d.Center, g.Dots[n].Center, imaging.ColorLink, 1)
			}
		}
	}
	for i := range g.Dots {
		d := &g.Dots[i]
		if d.IsCenter {
			o.Disc(d.Center, d.Radius, imaging.ColorCenter)
			continue
		}
		if !d.Assigned() {
			o.Circle(d.Center, d.Radius+1, imaging.ColorLine, 2)
			continue
		}
		o.Circle(d.Center, d.Radius+1, c, 2)
		if labels {
			o.Label(d.Center.Add(r2.Point{X: d.Radius + 2, Y: d.Radius + 2}), fmt.Sprintf("%d,%d", d.GridX, d.GridY), 9)
		}
	}
}

// DrawLines draws each line as a polyline with a marker on every point.
func DrawLines(o *imaging.Overlay, lines [][]r2.Point, c color.Color) {
	for _, l := range lines {
		o.Polyline(l, c, 1)
		for _, p := range l {
			o.Disc(p, 2, c)
		}
	}
}

// DrawSquares outlines each polygon in c and labels it with its index.
func DrawSquares(o *imaging.Overlay, squares []detection.Polygon, c color.Color) {
	for i, s := range squares {
		o.Polygon(s.Vertices, c, 2)
		o.Label(s.Centroid(), fmt.Sprintf("%d", i), 12)
	}
}
