package imaging

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

const (
	gaussianCutOff = 0.005
	magnitudeScale = 100
	magnitudeLimit = 1000
	magnitudeMax   = magnitudeScale * magnitudeLimit
)

// Default Canny parameters.
const (
	DefaultLowThreshold         = 2.5
	DefaultHighThreshold        = 7.5
	DefaultGaussianKernelRadius = 2.0
	DefaultGaussianKernelWidth  = 16
)

// EdgeMap is the output of one Canny update.
//
// Edge and Magnitude are indexed y*Width+x. Magnitude holds the suppressed
// gradient magnitude in fixed point (scaled by 100). Points lists the edge
// pixels (row-major as produced by Update, bridge pixels appended by
// ConnectBrokenEdges) and is the interchange format for tracing. Tracing
// consumes Edge destructively, so callers that need the edge set afterwards
// should trace a Clone.
type EdgeMap struct {
	Width     int
	Height    int
	Edge      []bool
	Magnitude []int
	Points    []image.Point
}

// IsEdge reports whether (x, y) is an edge pixel. Out-of-range is false.
func (m *EdgeMap) IsEdge(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Edge[y*m.Width+x]
}

// Count returns the number of edge pixels.
func (m *EdgeMap) Count() int {
	return len(m.Points)
}

// Clone returns a deep copy.
func (m *EdgeMap) Clone() *EdgeMap {
	out := &EdgeMap{
		Width:     m.Width,
		Height:    m.Height,
		Edge:      make([]bool, len(m.Edge)),
		Magnitude: make([]int, len(m.Magnitude)),
		Points:    make([]image.Point, len(m.Points)),
	}
	copy(out.Edge, m.Edge)
	copy(out.Magnitude, m.Magnitude)
	copy(out.Points, m.Points)
	return out
}

// Bytes returns the binary edge image: 0 for edge pixels, 255 elsewhere.
func (m *EdgeMap) Bytes() []byte {
	out := make([]byte, len(m.Edge))
	for i, e := range m.Edge {
		if !e {
			out[i] = 255
		}
	}
	return out
}

// Image returns the binary edge image as a gray image (edges black).
func (m *EdgeMap) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(img.Pix, m.Bytes())
	return img
}

type kernelKey struct {
	radius float64
	width  int
}

// gaussianKernel holds the smoothing taps and the matching derivative taps,
// truncated once the smoothing tap falls below gaussianCutOff.
type gaussianKernel struct {
	smooth []float64
	diff   []float64
}

// Canny is a Canny edge detector.
//
// The detector keeps a cache of Gaussian kernels keyed by (radius, width) and
// remembers the thresholds and contrast measured by its last Update. It is not
// safe for concurrent use; give each goroutine its own detector.
//
// # Algorithm
//
//  1. Luminance: RGB buffers are converted with BT.601 weights.
//  2. Thresholds: when AutomaticThresholds is set, the low/high thresholds are
//     derived from the image contrast (see estimateThresholds).
//  3. Gradients: separable Gaussian smoothing and Gaussian-derivative
//     convolution in x then y.
//  4. Non-maximal suppression: the magnitude at each pixel is compared with
//     the interpolated magnitudes of its 8-neighborhood along the gradient.
//  5. Hysteresis: pixels at or above the high threshold seed an 8-connected
//     fill accepting neighbors at or above the low threshold.
type Canny struct {
	LowThreshold         float64
	HighThreshold        float64
	GaussianKernelRadius float64
	GaussianKernelWidth  int
	AutomaticThresholds  bool

	kernels map[kernelKey]*gaussianKernel

	usedLow  float64
	usedHigh float64
	contrast float64
}

// NewCanny returns a detector with default parameters and automatic thresholds.
func NewCanny() *Canny {
	return &Canny{
		LowThreshold:         DefaultLowThreshold,
		HighThreshold:        DefaultHighThreshold,
		GaussianKernelRadius: DefaultGaussianKernelRadius,
		GaussianKernelWidth:  DefaultGaussianKernelWidth,
		AutomaticThresholds:  true,
		kernels:              make(map[kernelKey]*gaussianKernel),
	}
}

// Thresholds returns the low and high thresholds used by the last Update.
func (c *Canny) Thresholds() (low, high float64) {
	return c.usedLow, c.usedHigh
}

// Contrast returns the contrast measured by the last Update with automatic
// thresholds enabled, in [0, 1].
func (c *Canny) Contrast() float64 {
	return c.contrast
}

// Update runs edge detection over a packed RGB (3 bytes per pixel) or
// luminance (1 byte per pixel) buffer.
func (c *Canny) Update(pix []byte, width, height int) (*EdgeMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}
	n := width * height
	if len(pix) != n && len(pix) != n*3 {
		return nil, errors.Errorf("pixel buffer has %d bytes, want %d or %d", len(pix), n, n*3)
	}
	if c.kernels == nil {
		c.kernels = make(map[kernelKey]*gaussianKernel)
	}

	lum := Luminance(pix, width, height)

	low, high := c.LowThreshold, c.HighThreshold
	c.contrast = 0
	if c.AutomaticThresholds {
		if est, ok := estimateThresholds(lum, width, height); ok {
			low, high, c.contrast = est.low, est.high, est.contrast
		}
	}
	c.usedLow, c.usedHigh = low, high

	magnitude := c.gradients(lum, width, height)
	edge := hysteresis(magnitude, width, height,
		int(math.Round(low*magnitudeScale)), int(math.Round(high*magnitudeScale)))

	m := &EdgeMap{
		Width:     width,
		Height:    height,
		Edge:      edge,
		Magnitude: magnitude,
	}
	for i, e := range edge {
		if e {
			m.Points = append(m.Points, image.Point{X: i % width, Y: i / width})
		}
	}
	return m, nil
}

// UpdateBuffer is Update for a Buffer.
func (c *Canny) UpdateBuffer(buf *Buffer) (*EdgeMap, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	return c.Update(buf.Pix, buf.Width, buf.Height)
}

func gaussian(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}

func (c *Canny) kernel() *gaussianKernel {
	key := kernelKey{radius: c.GaussianKernelRadius, width: c.GaussianKernelWidth}
	if k, ok := c.kernels[key]; ok {
		return k
	}

	radius := key.radius
	k := &gaussianKernel{}
	for i := 0; i < key.width; i++ {
		g1 := gaussian(float64(i), radius)
		if g1 <= gaussianCutOff && i >= 2 {
			break
		}
		g2 := gaussian(float64(i)-0.5, radius)
		g3 := gaussian(float64(i)+0.5, radius)
		k.smooth = append(k.smooth, (g1+g2+g3)/3/(2*math.Pi*radius*radius))
		k.diff = append(k.diff, g3-g2)
	}
	c.kernels[key] = k
	return k
}

// gradients computes the non-maximum-suppressed gradient magnitude. Samples
// beyond the border replicate the nearest edge pixel.
func (c *Canny) gradients(lum []byte, width, height int) []int {
	n := width * height
	magnitude := make([]int, n)

	k := c.kernel()
	kw := len(k.smooth)
	if kw == 0 || width < 3 || height < 3 {
		return magnitude
	}

	clampX := func(x int) int { return clampInt(x, 0, width-1) }
	clampY := func(y int) int { return clampInt(y, 0, height-1) }

	xConv := make([]float64, n)
	yConv := make([]float64, n)
	xGradient := make([]float64, n)
	yGradient := make([]float64, n)

	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			index := row + x
			sumX := float64(lum[index]) * k.smooth[0]
			sumY := sumX
			for i := 1; i < kw; i++ {
				sumY += k.smooth[i] * (float64(lum[clampY(y-i)*width+x]) + float64(lum[clampY(y+i)*width+x]))
				sumX += k.smooth[i] * (float64(lum[row+clampX(x-i)]) + float64(lum[row+clampX(x+i)]))
			}
			yConv[index] = sumY
			xConv[index] = sumX
		}
	}

	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			index := row + x
			sumX, sumY := 0.0, 0.0
			for i := 1; i < kw; i++ {
				sumX += k.diff[i] * (yConv[row+clampX(x-i)] - yConv[row+clampX(x+i)])
				sumY += k.diff[i] * (xConv[clampY(y-i)*width+x] - xConv[clampY(y+i)*width+x])
			}
			xGradient[index] = sumX
			yGradient[index] = sumY
		}
	}

	hyp := func(i int) float64 { return math.Hypot(xGradient[i], yGradient[i]) }

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			index := y*width + x
			xGrad := xGradient[index]
			yGrad := yGradient[index]
			gradMag := math.Hypot(xGrad, yGrad)
			if gradMag == 0 {
				continue
			}

			indexN := index - width
			indexS := index + width
			nMag := hyp(indexN)
			sMag := hyp(indexS)
			wMag := hyp(index - 1)
			eMag := hyp(index + 1)
			neMag := hyp(indexN + 1)
			seMag := hyp(indexS + 1)
			swMag := hyp(indexS - 1)
			nwMag := hyp(indexN - 1)

			if isLocalMaximum(xGrad, yGrad, gradMag, nMag, sMag, wMag, eMag, neMag, seMag, swMag, nwMag) {
				if gradMag >= magnitudeLimit {
					magnitude[index] = magnitudeMax
				} else {
					magnitude[index] = int(magnitudeScale * gradMag)
				}
			}
		}
	}
	return magnitude
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// isLocalMaximum compares the gradient magnitude against the magnitudes
// interpolated between the two neighbors either side along the gradient.
// The four cases cover the sign agreement of the gradient components and
// which axis dominates.
func isLocalMaximum(xGrad, yGrad, gradMag, nMag, sMag, wMag, eMag, neMag, seMag, swMag, nwMag float64) bool {
	ax, ay := math.Abs(xGrad), math.Abs(yGrad)
	if xGrad*yGrad <= 0 {
		if ax >= ay {
			tmp := math.Abs(xGrad * gradMag)
			return tmp >= math.Abs(yGrad*neMag-(xGrad+yGrad)*eMag) &&
				tmp > math.Abs(yGrad*swMag-(xGrad+yGrad)*wMag)
		}
		tmp := math.Abs(yGrad * gradMag)
		return tmp >= math.Abs(xGrad*neMag-(yGrad+xGrad)*nMag) &&
			tmp > math.Abs(xGrad*swMag-(yGrad+xGrad)*sMag)
	}
	if ax >= ay {
		tmp := math.Abs(xGrad * gradMag)
		return tmp >= math.Abs(yGrad*seMag+(xGrad-yGrad)*eMag) &&
			tmp > math.Abs(yGrad*nwMag+(xGrad-yGrad)*wMag)
	}
	tmp := math.Abs(yGrad * gradMag)
	return tmp >= math.Abs(xGrad*seMag+(yGrad-xGrad)*sMag) &&
		tmp > math.Abs(xGrad*nwMag+(yGrad-xGrad)*nMag)
}

// hysteresis marks every pixel reachable from a strong pixel through pixels
// at or above the low threshold. Each pixel is followed at most once.
// Zero-magnitude pixels are never edges.
func hysteresis(magnitude []int, width, height, low, high int) []bool {
	followed := make([]bool, len(magnitude))
	var stack []int

	for seed, mag := range magnitude {
		if followed[seed] || mag <= 0 || mag < high {
			continue
		}
		followed[seed] = true
		stack = append(stack[:0], seed)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x1, y1 := i%width, i/width

			for y := y1 - 1; y <= y1+1; y++ {
				if y < 0 || y >= height {
					continue
				}
				for x := x1 - 1; x <= x1+1; x++ {
					if x < 0 || x >= width {
						continue
					}
					j := y*width + x
					if followed[j] || magnitude[j] <= 0 || magnitude[j] < low {
						continue
					}
					followed[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return followed
}
