package detection

import (
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

func square(x, y, side float64) Polygon {
	return Polygon{Vertices: []r2.Point{{X: x, Y: y}, {X: x + side, Y: y}, {X: x + side, Y: y + side}, {X: x, Y: y + side}}}
}

func rect(x, y, w, h float64) Polygon {
	return Polygon{Vertices: []r2.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}}
}

// largestGroup extracts the group with the most points.
func largestGroup(t *testing.T, buf *imaging.Buffer) *Group {
	t.Helper()
	ex, err := Extract(buf, DefaultSquareConfig().ExtractConfig)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(ex.Groups) == 0 {
		t.Fatal("no groups found")
	}
	best := &ex.Groups[0]
	for i := range ex.Groups {
		if len(ex.Groups[i].Points) > len(best.Points) {
			best = &ex.Groups[i]
		}
	}
	return best
}

func TestGetSquarePeriphery(t *testing.T) {
	img := createTestImage(160, 160, color.White)
	drawSquare(img, 40, 40, 110, 110, color.Black)

	poly, ok := GetSquarePeriphery(largestGroup(t, imaging.FromImage(img)), 0)
	if !ok {
		t.Fatal("GetSquarePeriphery returned no polygon")
	}
	if len(poly.Vertices) != 4 {
		t.Fatalf("got %d vertices, want 4", len(poly.Vertices))
	}
	for i, a := range poly.Angles() {
		if math.Abs(a-90) > 2 {
			t.Errorf("angle %d: got %.2f°, want 90±2°", i, a)
		}
	}
	if r := poly.SideRatio(); r <= 0.9 {
		t.Errorf("side ratio: got %.3f, want > 0.9", r)
	}

	// Top-left, top-right, bottom-right, bottom-left.
	tl, br := poly.Vertices[0], poly.Vertices[2]
	approx(t, "top-left x", tl.X, 39.5, 1.5)
	approx(t, "top-left y", tl.Y, 39.5, 1.5)
	approx(t, "bottom-right x", br.X, 110.5, 1.5)
	approx(t, "bottom-right y", br.Y, 110.5, 1.5)
}

func TestGetSquarePeriphery_ShrinksWithLevel(t *testing.T) {
	img := createTestImage(160, 160, color.White)
	drawSquare(img, 40, 40, 110, 110, color.Black)
	g := largestGroup(t, imaging.FromImage(img))

	p0, ok0 := GetSquarePeriphery(g, 0)
	p2, ok2 := GetSquarePeriphery(g, 2)
	if !ok0 || !ok2 {
		t.Fatal("GetSquarePeriphery failed")
	}
	// Every corner moves diagonally inward by level px on each axis.
	for i := range p0.Vertices {
		approx(t, "shrink", p0.Vertices[i].Sub(p2.Vertices[i]).Norm(), 2*math.Sqrt2, 1e-9)
		if p2.Vertices[i].Sub(p2.Centroid()).Norm() >= p0.Vertices[i].Sub(p0.Centroid()).Norm() {
			t.Errorf("vertex %d did not move toward the centroid", i)
		}
	}
}

func TestGetSquarePeriphery_Degenerate(t *testing.T) {
	// A thin horizontal bar collapses to a very elongated outline.
	img := createTestImage(200, 60, color.White)
	drawSquare(img, 20, 28, 180, 31, color.Black)
	if p, ok := GetSquarePeriphery(largestGroup(t, imaging.FromImage(img)), 0); ok {
		t.Errorf("expected rejection, got %v (ratio %.3f)", p.Vertices, p.SideRatio())
	}

	if _, ok := GetSquarePeriphery(&Group{}, 0); ok {
		t.Error("empty group should be rejected")
	}
}

func TestSelectSquares(t *testing.T) {
	good := square(10, 10, 40)
	skewed := rect(12, 12, 40, 30)
	apart := square(200, 200, 40)

	got := SelectSquares([]Polygon{skewed, apart, good})
	if len(got) != 2 {
		t.Fatalf("got %d squares, want 2", len(got))
	}
	if got[0].Vertices[0] != apart.Vertices[0] || got[1].Vertices[0] != good.Vertices[0] {
		t.Errorf("unexpected survivors: %v", got)
	}
}

func TestSelectSquares_ScaledTolerance(t *testing.T) {
	// 2 px apart: disjoint as drawn, overlapping once scaled by 1.1.
	a := square(0, 0, 40)
	b := rect(42, 0, 40, 38)

	got := SelectSquares([]Polygon{a, b})
	if len(got) != 1 || got[0].Vertices[0] != a.Vertices[0] {
		t.Errorf("expected only the perfect square to survive, got %v", got)
	}
	if got := SelectSquares([]Polygon{a, square(60, 0, 40)}); len(got) != 2 {
		t.Errorf("distant squares: got %d, want 2", len(got))
	}
}

func TestDetectSquares(t *testing.T) {
	img := createTestImage(240, 160, color.White)
	drawSquare(img, 30, 40, 90, 100, color.Black)
	drawSquare(img, 150, 50, 200, 100, color.Black)

	squares, err := DetectSquares(imaging.FromImage(img), DefaultSquareConfig())
	if err != nil {
		t.Fatalf("DetectSquares failed: %v", err)
	}
	if len(squares) != 2 {
		t.Fatalf("got %d squares, want 2", len(squares))
	}
	for _, sq := range squares {
		if sq.SideRatio() < 0.9 {
			t.Errorf("square side ratio %.3f", sq.SideRatio())
		}
	}
}
