package lens

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Map is a per-pixel rectification lookup table.
//
// Forward[i] is the source pixel index for rectified pixel i and is valid
// only where Mapped[i] is set. Inverse holds, for each source pixel, the
// rectified pixel it lands on, or (-1, -1) when no rectified pixel samples it.
type Map struct {
	Width   int
	Height  int
	Forward []int32
	Mapped  []bool
	Inverse []image.Point
}

// BuildMap computes the lookup table for a width x height image.
func BuildMap(width, height int, m *Model) (*Map, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid map size %dx%d", width, height)
	}
	if m == nil {
		return nil, errors.New("nil model")
	}
	n := width * height
	rm := &Map{
		Width:   width,
		Height:  height,
		Forward: make([]int32, n),
		Mapped:  make([]bool, n),
		Inverse: make([]image.Point, n),
	}
	for i := range rm.Inverse {
		rm.Inverse[i] = image.Point{X: -1, Y: -1}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			src, ok := m.Source(r2.Point{X: float64(x), Y: float64(y)})
			if !ok {
				continue
			}
			sx, sy := int(math.Round(src.X)), int(math.Round(src.Y))
			if sx < 0 || sx >= width || sy < 0 || sy >= height {
				continue
			}
			i := y*width + x
			si := sy*width + sx
			rm.Forward[i] = int32(si)
			rm.Mapped[i] = true
			rm.Inverse[si] = image.Point{X: x, Y: y}
		}
	}
	return rm, nil
}

// Coverage returns the fraction of rectified pixels with a source.
func (rm *Map) Coverage() float64 {
	n := 0
	for _, ok := range rm.Mapped {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(rm.Mapped))
}

// Lookup returns the source pixel of rectified pixel (x, y).
func (rm *Map) Lookup(x, y int) (image.Point, bool) {
	if x < 0 || x >= rm.Width || y < 0 || y >= rm.Height {
		return image.Point{}, false
	}
	i := y*rm.Width + x
	if !rm.Mapped[i] {
		return image.Point{}, false
	}
	si := int(rm.Forward[i])
	return image.Point{X: si % rm.Width, Y: si / rm.Width}, true
}

// Remap resamples img through the forward table with nearest-neighbor
// sampling. Unmapped pixels are opaque black.
func (rm *Map) Remap(img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() != rm.Width || b.Dy() != rm.Height {
		return nil, errors.Errorf("image is %dx%d, map is %dx%d", b.Dx(), b.Dy(), rm.Width, rm.Height)
	}
	src := imaging.Clone(img)
	dst := imaging.New(rm.Width, rm.Height, color.NRGBA{A: 255})
	for y := 0; y < rm.Height; y++ {
		for x := 0; x < rm.Width; x++ {
			p, ok := rm.Lookup(x, y)
			if !ok {
				continue
			}
			di := dst.PixOffset(x, y)
			si := src.PixOffset(p.X, p.Y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return dst, nil
}
