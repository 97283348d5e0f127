package grid

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// syntheticGrid lays out cols x rows dots around a center dot at c, rotated
// by angle degrees. Grid coordinates run from -cols/2 and -rows/2+1 so the
// four seeds sit around the center.
func syntheticGrid(c r2.Point, cols, rows int, spacing, angle float64) ([]detection.Dot, map[[2]int]r2.Point) {
	sin, cos := math.Sincos(angle * math.Pi / 180)
	want := make(map[[2]int]r2.Point)
	dots := []detection.Dot{{Center: c, Radius: 5, IsCenter: true}}
	for gy := -rows/2 + 1; gy <= rows/2; gy++ {
		for gx := -cols / 2; gx < cols/2; gx++ {
			lx := (float64(gx) + 0.5) * spacing
			ly := -(float64(gy) - 0.5) * spacing
			p := r2.Point{X: c.X + lx*cos - ly*sin, Y: c.Y + lx*sin + ly*cos}
			want[[2]int{gx, gy}] = p
			dots = append(dots, detection.Dot{Center: p, Radius: 5})
		}
	}
	return dots, want
}

func TestDirection(t *testing.T) {
	tests := []struct {
		d          Direction
		opposite   Direction
		horizontal bool
		name       string
	}{
		{Up, Down, false, "up"},
		{Right, Left, true, "right"},
		{Down, Up, false, "down"},
		{Left, Right, true, "left"},
	}
	for _, tt := range tests {
		if got := tt.d.Opposite(); got != tt.opposite {
			t.Errorf("%v.Opposite(): got %v, want %v", tt.d, got, tt.opposite)
		}
		if got := tt.d.Horizontal(); got != tt.horizontal {
			t.Errorf("%v.Horizontal(): got %v", tt.d, got)
		}
		if got := tt.d.String(); got != tt.name {
			t.Errorf("String(): got %q, want %q", got, tt.name)
		}
	}
	if Direction(7).String() != "invalid" {
		t.Error("out of range direction should be invalid")
	}
}

func TestFindCenterDots(t *testing.T) {
	dots := NewDots([]detection.Dot{
		{Center: r2.Point{X: 50, Y: 50}, IsCenter: true},
		{Center: r2.Point{X: 30, Y: 30}},
		{Center: r2.Point{X: 10, Y: 10}}, // farther top-left
		{Center: r2.Point{X: 70, Y: 30}},
		{Center: r2.Point{X: 70, Y: 70}},
		{Center: r2.Point{X: 30, Y: 70}},
		{Center: r2.Point{X: 50, Y: 80}}, // on the axis, no quadrant
	})

	centers, err := FindCenterDots(dots)
	if err != nil {
		t.Fatalf("FindCenterDots failed: %v", err)
	}
	want := [4]int{1, 3, 4, 5}
	if centers != want {
		t.Errorf("centers: got %v, want %v", centers, want)
	}
}

func TestFindCenterDots_Errors(t *testing.T) {
	_, err := FindCenterDots(NewDots([]detection.Dot{{Center: r2.Point{X: 1, Y: 1}}}))
	if !errors.Is(err, ErrNoCenterDot) {
		t.Errorf("got %v, want ErrNoCenterDot", err)
	}

	dots := NewDots([]detection.Dot{
		{Center: r2.Point{X: 50, Y: 50}, IsCenter: true},
		{Center: r2.Point{X: 30, Y: 30}},
		{Center: r2.Point{X: 70, Y: 30}},
		{Center: r2.Point{X: 70, Y: 70}},
	})
	if _, err := FindCenterDots(dots); !errors.Is(err, ErrCenterNeighbors) {
		t.Errorf("got %v, want ErrCenterNeighbors", err)
	}
}

func TestBuild_PerfectGrid(t *testing.T) {
	for _, angle := range []float64{0, 6, -4} {
		found, want := syntheticGrid(r2.Point{X: 300, Y: 240}, 8, 8, 40, angle)

		g, err := Build(found)
		if err != nil {
			t.Fatalf("angle %v: Build failed: %v", angle, err)
		}
		if g.Cols != 8 || g.Rows != 8 {
			t.Fatalf("angle %v: size %dx%d, want 8x8", angle, g.Cols, g.Rows)
		}
		if g.Nulls() != 0 {
			t.Errorf("angle %v: %d empty cells", angle, g.Nulls())
		}
		for k, p := range want {
			d, ok := g.At(k[0], k[1])
			if !ok {
				t.Errorf("angle %v: no dot at %v", angle, k)
				continue
			}
			if d.Center != p {
				t.Errorf("angle %v: dot at %v is %v, want %v", angle, k, d.Center, p)
			}
		}
		if g.Dots[0].Assigned() {
			t.Errorf("angle %v: center dot received coordinates", angle)
		}
		if len(g.RowLines()) != 8 || len(g.ColumnLines()) != 8 || len(g.Lines()) != 16 {
			t.Errorf("angle %v: unexpected line counts", angle)
		}
	}
}

func TestLinkDots_Symmetric(t *testing.T) {
	found, _ := syntheticGrid(r2.Point{X: 200, Y: 200}, 6, 6, 30, 3)
	dots := NewDots(found)
	centers, err := FindCenterDots(dots)
	if err != nil {
		t.Fatal(err)
	}

	links := LinkDots(dots, centers)
	// 6 rows and 6 columns, 5 links each.
	if links != 60 {
		t.Errorf("links: got %d, want 60", links)
	}
	for i := range dots {
		for dir := Up; dir <= Left; dir++ {
			n, ok := dots[i].Neighbor(dir)
			if !ok {
				continue
			}
			if back := dots[n].Links[dir.Opposite()]; back != i {
				t.Errorf("dot %d %v -> %d, but back link is %d", i, dir, n, back)
			}
			if dots[n].IsCenter {
				t.Errorf("dot %d linked to the center dot", i)
			}
		}
	}
}

func TestLinkDots_Distorted(t *testing.T) {
	// Barrel distortion: points pulled toward the center by r^2.
	c := r2.Point{X: 320, Y: 240}
	found, _ := syntheticGrid(c, 10, 8, 50, 0)
	for i := range found {
		v := found[i].Center.Sub(c)
		r := v.Norm() / 320
		found[i].Center = c.Add(v.Mul(1 - 0.12*r*r))
	}

	g, err := Build(found)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.Cols != 10 || g.Rows != 8 || g.Nulls() != 0 {
		t.Errorf("grid %dx%d with %d nulls, want 10x8 complete", g.Cols, g.Rows, g.Nulls())
	}
}

func TestApplyGrid_MissingDot(t *testing.T) {
	found, want := syntheticGrid(r2.Point{X: 200, Y: 200}, 6, 6, 30, 0)
	// Remove the dot at (2, 2); neighbors still reach everything else.
	var kept []detection.Dot
	for _, d := range found {
		if d.Center != want[[2]int{2, 2}] {
			kept = append(kept, d)
		}
	}

	g, err := Build(kept)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.At(2, 2); ok {
		t.Error("removed dot present")
	}
	if g.Nulls() != 1 {
		t.Errorf("nulls: got %d, want 1", g.Nulls())
	}
	if d, ok := g.At(2, 3); !ok || d.Center != want[[2]int{2, 3}] {
		t.Error("dot above the hole misplaced")
	}
}

func TestMaterialize_Bounds(t *testing.T) {
	dots := NewDots([]detection.Dot{{}, {}, {}})
	dots[0].GridX, dots[0].GridY = 0, 0
	dots[1].GridX, dots[1].GridY = 60, 0 // out of range
	// dots[2] unassigned

	g, err := Materialize(dots)
	if err != nil {
		t.Fatal(err)
	}
	if g.Cols != 1 || g.Rows != 1 || g.Count() != 1 {
		t.Errorf("got %dx%d with %d dots", g.Cols, g.Rows, g.Count())
	}
	if _, ok := g.At(5, 5); ok {
		t.Error("At outside the grid succeeded")
	}

	if _, err := Materialize(NewDots([]detection.Dot{{}})); err == nil {
		t.Error("expected error for grid without assigned dots")
	}
}

func TestSpacings(t *testing.T) {
	found, _ := syntheticGrid(r2.Point{X: 200, Y: 200}, 4, 4, 25, 0)
	g, err := Build(found)
	if err != nil {
		t.Fatal(err)
	}
	s := g.Spacings()
	if len(s) != 24 {
		t.Fatalf("spacings: got %d, want 24", len(s))
	}
	for _, v := range s {
		if math.Abs(v-25) > 1e-9 {
			t.Errorf("spacing %v, want 25", v)
		}
	}
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

func TestBuild_FromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	const spacing = 40
	for gy := -3; gy <= 4; gy++ {
		for gx := -4; gx <= 3; gx++ {
			x := 200 + int((float64(gx)+0.5)*spacing)
			y := 200 - int((float64(gy)-0.5)*spacing)
			drawDisc(img, x, y, 7, color.Black)
		}
	}
	drawDisc(img, 200, 200, 7, color.RGBA{220, 30, 30, 255})

	res, err := detection.DetectDots(imaging.FromImage(img), detection.DefaultDotConfig())
	if err != nil {
		t.Fatalf("DetectDots failed: %v", err)
	}
	if len(res.Dots) != 65 {
		t.Fatalf("detected %d dots, want 65", len(res.Dots))
	}

	g, err := Build(res.Dots)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if g.Cols != 8 || g.Rows != 8 || g.Nulls() != 0 {
		t.Fatalf("grid %dx%d with %d nulls", g.Cols, g.Rows, g.Nulls())
	}
	for y := g.MinY; y < g.MinY+g.Rows; y++ {
		prev := math.Inf(-1)
		for x := g.MinX; x < g.MinX+g.Cols; x++ {
			d, _ := g.At(x, y)
			if d.Center.X <= prev {
				t.Errorf("row %d not increasing in x at column %d", y, x)
			}
			prev = d.Center.X
		}
	}
	if d, ok := g.At(0, 0); !ok || math.Abs(d.Center.X-220) > 1.5 || math.Abs(d.Center.Y-220) > 1.5 {
		t.Errorf("dot (0,0) misplaced: %+v", d)
	}
}
