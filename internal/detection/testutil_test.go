package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// drawDisc fills a disc of the given radius.
func drawDisc(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}
}

// drawSquare fills the axis-aligned square [x1,x2]x[y1,y2].
func drawSquare(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, c)
		}
	}
}

// newEdgeMap builds an edge map from a list of points.
func newEdgeMap(width, height int, pts ...image.Point) *imaging.EdgeMap {
	m := &imaging.EdgeMap{Width: width, Height: height, Edge: make([]bool, width*height)}
	for _, p := range pts {
		m.Edge[p.Y*width+p.X] = true
		m.Points = append(m.Points, p)
	}
	return m
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if got < want-tol || got > want+tol {
		t.Errorf("%s: got %v, want %v ± %v", name, got, want, tol)
	}
}
