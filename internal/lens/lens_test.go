package lens

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"go.uber.org/zap/zaptest"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v ± %v", name, got, want, tol)
	}
}

func TestModel_RoundTrip(t *testing.T) {
	m := NewModel(1.05, 5e-4, r2.Point{X: 320, Y: 240})
	m.Scale = 0.9
	m.Rotation = 0.1

	for _, p := range []r2.Point{{X: 10, Y: 10}, {X: 600, Y: 50}, {X: 321, Y: 240}, {X: 320, Y: 470}} {
		q, ok := m.Rectify(p)
		if !ok {
			t.Fatalf("Rectify(%v) failed", p)
		}
		back, ok := m.Source(q)
		if !ok {
			t.Fatalf("Source(%v) failed", q)
		}
		approx(t, "x", back.X, p.X, 1e-6)
		approx(t, "y", back.Y, p.Y, 1e-6)
	}
}

// The curve takes a rectified radius to the original one, so rectification
// runs it backwards.
func TestModel_CurveDirection(t *testing.T) {
	m := NewModel(1, 1e-3, r2.Point{X: 200, Y: 200})

	src, ok := m.Source(r2.Point{X: 300, Y: 200})
	if !ok {
		t.Fatal("Source failed")
	}
	// 100 + 1e-3*100^2
	approx(t, "source x", src.X, 310, 1e-9)
	approx(t, "source y", src.Y, 200, 1e-9)

	q, ok := m.Rectify(r2.Point{X: 310, Y: 200})
	if !ok {
		t.Fatal("Rectify failed")
	}
	approx(t, "rectified x", q.X, 300, 1e-6)
	approx(t, "rectified y", q.Y, 200, 1e-6)
}

func TestModel_Identity(t *testing.T) {
	m := Identity(r2.Point{X: 50, Y: 50})
	q, ok := m.Rectify(r2.Point{X: 80, Y: 20})
	if !ok {
		t.Fatal("identity Rectify failed")
	}
	approx(t, "x", q.X, 80, 1e-9)
	approx(t, "y", q.Y, 20, 1e-9)

	if _, ok := m.Rectify(r2.Point{X: 50, Y: 50.001}); ok {
		t.Error("point at the center should not rectify")
	}
	if _, ok := m.Source(r2.Point{X: 50, Y: 50}); ok {
		t.Error("center should not have a source")
	}
}

func TestModel_Degenerate(t *testing.T) {
	// Negative slope: the curve cannot be inverted.
	m := NewModel(-1, 0, r2.Point{})
	if _, ok := m.Rectify(r2.Point{X: 5, Y: 5}); ok {
		t.Error("Rectify should fail for a decreasing curve")
	}
	if _, ok := m.Source(r2.Point{X: 5, Y: 5}); ok {
		t.Error("Source should fail where the curve is negative")
	}

	z := Identity(r2.Point{})
	z.Scale = 0
	if _, ok := z.Source(r2.Point{X: 1, Y: 1}); ok {
		t.Error("Source should fail with zero scale")
	}
}

func TestRectifyLines_DropsShortLines(t *testing.T) {
	m := Identity(r2.Point{X: 0, Y: 0})
	lines := [][]r2.Point{
		{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}},
		// The point at the center is dropped, leaving two.
		{{X: 0, Y: 0}, {X: 0, Y: 5}, {X: 0, Y: 10}},
	}
	out := m.RectifyLines(lines)
	if len(out) != 1 {
		t.Errorf("got %d lines, want 1", len(out))
	}
}

func TestCurvature(t *testing.T) {
	straight := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	if c, ok := LineCurvature(straight); !ok || c > 1e-12 {
		t.Errorf("straight line curvature: %v %v", c, ok)
	}

	bent := []r2.Point{{X: 0, Y: 0}, {X: 5, Y: 3}, {X: 10, Y: 4}, {X: 15, Y: 3}, {X: 20, Y: 0}}
	c, ok := LineCurvature(bent)
	if !ok {
		t.Fatal("bent line not measured")
	}
	approx(t, "bent", c, math.Sqrt((9+16+9)/3.0), 1e-9)

	if _, ok := LineCurvature(straight[:2]); ok {
		t.Error("two points should not be measured")
	}
	if _, ok := LineCurvature([]r2.Point{{}, {X: 1}, {}}); ok {
		t.Error("zero chord should not be measured")
	}

	approx(t, "sum", Curvature([][]r2.Point{straight, bent, straight[:2]}), c, 1e-9)
	approx(t, "length", LineLength(straight), 3*math.Sqrt2, 1e-9)
	approx(t, "total", TotalLength([][]r2.Point{straight, straight}), 6*math.Sqrt2, 1e-9)
}

func TestAngle(t *testing.T) {
	tests := []struct {
		line []r2.Point
		want float64
	}{
		{[]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, 0},
		{[]r2.Point{{X: 10, Y: 0}, {X: 0, Y: 0}}, 0},
		{[]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, math.Pi / 4},
		{[]r2.Point{{X: 10, Y: 10}, {X: 0, Y: 0}}, math.Pi / 4},
		{[]r2.Point{{X: 0, Y: 0}, {X: 0, Y: 10}}, math.Pi / 2},
	}
	for _, tt := range tests {
		approx(t, "angle", Angle(tt.line), tt.want, 1e-9)
	}
}

// distortedLines builds a grid of straight rows and columns and pushes it
// through the inverse of truth, as a camera with that distortion would see it.
func distortedLines(t *testing.T, truth *Model) Lines {
	t.Helper()
	var ls Lines
	const cols, rows, spacing = 9, 7, 50.0
	pt := func(i, j int) r2.Point {
		ideal := r2.Point{
			X: 320 + (float64(i)-float64(cols-1)/2)*spacing + 25,
			Y: 240 + (float64(j)-float64(rows-1)/2)*spacing + 25,
		}
		p, ok := truth.Source(ideal)
		if !ok {
			t.Fatalf("no source for %v", ideal)
		}
		return p
	}
	for j := 0; j < rows; j++ {
		var line []r2.Point
		for i := 0; i < cols; i++ {
			line = append(line, pt(i, j))
		}
		ls.Rows = append(ls.Rows, line)
	}
	for i := 0; i < cols; i++ {
		var line []r2.Point
		for j := 0; j < rows; j++ {
			line = append(line, pt(i, j))
		}
		ls.Columns = append(ls.Columns, line)
	}
	return ls
}

func testSolverConfig() SolverConfig {
	cfg := DefaultSolverConfig()
	cfg.Rounds = 6
	cfg.Samples = 20
	cfg.Workers = 2
	return cfg
}

func TestSolve_ImprovesOnIdentity(t *testing.T) {
	truth := NewModel(1.05, 4e-4, r2.Point{X: 320, Y: 240})
	lines := distortedLines(t, truth)

	res, err := Solve(context.Background(), 640, 480, lines, testSolverConfig(), zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if res.IdentityCurvature <= 0 {
		t.Fatalf("distorted lines should be curved, got %v", res.IdentityCurvature)
	}
	if res.Curvature > res.IdentityCurvature {
		t.Errorf("curvature %v worse than identity %v", res.Curvature, res.IdentityCurvature)
	}
	if res.Curvature > 0.5*res.IdentityCurvature {
		t.Errorf("curvature %v barely improves on identity %v", res.Curvature, res.IdentityCurvature)
	}
	if math.Abs(res.Rotation) > 0.01 {
		t.Errorf("rotation %v for level rows", res.Rotation)
	}
	if len(res.Lines) != len(lines.Rows)+len(lines.Columns) {
		t.Errorf("rectified %d lines", len(res.Lines))
	}
	if res.Evaluated != 6*20*20 || res.Accepted == 0 {
		t.Errorf("evaluated %d accepted %d", res.Evaluated, res.Accepted)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	lines := distortedLines(t, NewModel(1.02, 3e-4, r2.Point{X: 320, Y: 240}))
	cfg := testSolverConfig()
	cfg.Rounds = 3

	a, err := Solve(context.Background(), 640, 480, lines, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Workers = 5
	b, err := Solve(context.Background(), 640, 480, lines, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.K1 != b.K1 || a.K2 != b.K2 || a.Curvature != b.Curvature {
		t.Errorf("results differ across worker counts: %+v vs %+v", a, b)
	}
}

func TestSolve_NotDetermined(t *testing.T) {
	ctx := context.Background()
	if _, err := Solve(ctx, 640, 480, Lines{}, testSolverConfig(), nil); !errors.Is(err, ErrNotDetermined) {
		t.Errorf("no lines: got %v", err)
	}

	lines := distortedLines(t, NewModel(1.05, 4e-4, r2.Point{X: 320, Y: 240}))
	cfg := testSolverConfig()
	cfg.LengthTolerance = 1e-12
	if _, err := Solve(ctx, 640, 480, lines, cfg, nil); !errors.Is(err, ErrNotDetermined) {
		t.Errorf("impossible tolerance: got %v", err)
	}
}

func TestSolve_InvalidInput(t *testing.T) {
	lines := distortedLines(t, Identity(r2.Point{X: 320, Y: 240}))

	cfg := testSolverConfig()
	cfg.Samples = 0
	if _, err := Solve(context.Background(), 640, 480, lines, cfg, nil); err == nil {
		t.Error("expected error for zero samples")
	}
	if _, err := Solve(context.Background(), 0, 480, lines, testSolverConfig(), nil); err == nil {
		t.Error("expected error for zero width")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Solve(ctx, 640, 480, lines, testSolverConfig(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v", err)
	}
}

func TestBuildMap_Identity(t *testing.T) {
	rm, err := BuildMap(20, 10, Identity(r2.Point{X: 10, Y: 5}))
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			src, ok := rm.Lookup(x, y)
			if x == 10 && y == 5 {
				if ok {
					t.Error("center pixel should be unmapped")
				}
				continue
			}
			if !ok || src != (image.Point{X: x, Y: y}) {
				t.Errorf("Lookup(%d,%d) = %v %v", x, y, src, ok)
			}
		}
	}
	if got := rm.Inverse[4*20+3]; got != (image.Point{X: 3, Y: 4}) {
		t.Errorf("Inverse: got %v", got)
	}
	if got := rm.Inverse[5*20+10]; got != (image.Point{X: -1, Y: -1}) {
		t.Errorf("unsampled source: got %v", got)
	}
	approx(t, "coverage", rm.Coverage(), 199.0/200, 1e-9)
	if _, ok := rm.Lookup(-1, 0); ok {
		t.Error("Lookup outside the map succeeded")
	}
}

func TestBuildMap_OutOfBounds(t *testing.T) {
	m := Identity(r2.Point{X: 10, Y: 5})
	m.Scale = 0.5
	rm, err := BuildMap(20, 10, m)
	if err != nil {
		t.Fatal(err)
	}
	approx(t, "coverage", rm.Coverage(), 49.0/200, 1e-9)

	if _, err := BuildMap(0, 10, m); err == nil {
		t.Error("expected error for empty map")
	}
	if _, err := BuildMap(10, 10, nil); err == nil {
		t.Error("expected error for nil model")
	}
}

func TestRemap(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 10), uint8(y * 20), 50, 255})
		}
	}
	rm, err := BuildMap(20, 10, Identity(r2.Point{X: 10, Y: 5}))
	if err != nil {
		t.Fatal(err)
	}
	out, err := rm.Remap(img)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.NRGBAAt(3, 7); got != img.NRGBAAt(3, 7) {
		t.Errorf("pixel (3,7): got %v, want %v", got, img.NRGBAAt(3, 7))
	}
	if got := out.NRGBAAt(10, 5); got != (color.NRGBA{A: 255}) {
		t.Errorf("unmapped pixel: got %v, want opaque black", got)
	}

	if _, err := rm.Remap(image.NewNRGBA(image.Rect(0, 0, 5, 5))); err == nil {
		t.Error("expected error for size mismatch")
	}
}

func TestPlotCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	if err := PlotCurve(NewModel(1.05, 4e-4, r2.Point{}), 400, path); err != nil {
		t.Fatalf("PlotCurve failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}
	if err := PlotCurve(Identity(r2.Point{}), 0, path); err == nil {
		t.Error("expected error for zero radius")
	}
}
