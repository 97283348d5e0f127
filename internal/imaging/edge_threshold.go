package imaging

// The automatic threshold mapping is linear over this contrast band. Outside
// it the mapping extrapolates; see Canny.ContrastOutOfBand.
const (
	MinContrast = 0.048
	MaxContrast = 0.42

	minLowThreshold  = 1.6
	maxLowThreshold  = 8.0
	minHighThreshold = 2.0
	maxHighThreshold = 10.0

	histogramStride = 2
)

type thresholdEstimate struct {
	low      float64
	high     float64
	contrast float64
	level    int
}

// ContrastOutOfBand reports whether the contrast measured by the last Update
// fell outside [MinContrast, MaxContrast], in which case the thresholds were
// extrapolated and may be unusually small, negative or large.
func (c *Canny) ContrastOutOfBand() bool {
	return c.AutomaticThresholds && (c.contrast < MinContrast || c.contrast > MaxContrast)
}

// centralHistogram builds a 256 bin luminance histogram over the central third
// of the image, sampling every second pixel in both directions.
func centralHistogram(lum []byte, width, height int) [256]float64 {
	var hist [256]float64
	x0, x1 := width/3, width*2/3
	y0, y1 := height/3, height*2/3
	for y := y0; y < y1; y += histogramStride {
		row := y * width
		for x := x0; x < x1; x += histogramStride {
			hist[lum[row+x]]++
		}
	}
	return hist
}

// estimateThresholds splits the central histogram into dark and light classes
// and maps the distance between their means onto the threshold range.
//
// The split minimizes the summed within-class sum of squares where each bin is
// weighted by the square of its count, so dominant levels (paper and ink)
// outweigh the sparse transition levels along edges. It returns false when
// the histogram cannot be split into two non-empty classes.
func estimateThresholds(lum []byte, width, height int) (thresholdEstimate, bool) {
	hist := centralHistogram(lum, width, height)

	// Prefix sums of w, w*i and w*i*i with w = h[i]^2.
	var sw, swi, swii [257]float64
	for i := 0; i < 256; i++ {
		w := hist[i] * hist[i]
		sw[i+1] = sw[i] + w
		swi[i+1] = swi[i] + w*float64(i)
		swii[i+1] = swii[i] + w*float64(i)*float64(i)
	}

	ss := func(from, to int) float64 {
		w := sw[to] - sw[from]
		if w == 0 {
			return 0
		}
		m := swi[to] - swi[from]
		return (swii[to] - swii[from]) - m*m/w
	}

	best := -1
	bestScore := 0.0
	for level := 1; level < 256; level++ {
		if sw[level] == 0 || sw[256]-sw[level] == 0 {
			continue
		}
		score := ss(0, level) + ss(level, 256)
		if best < 0 || score < bestScore {
			best, bestScore = level, score
		}
	}
	if best < 0 {
		return thresholdEstimate{}, false
	}

	meanDark := swi[best] / sw[best]
	meanLight := (swi[256] - swi[best]) / (sw[256] - sw[best])
	contrast := (meanLight - meanDark) / 255

	f := (contrast - MinContrast) / (MaxContrast - MinContrast)
	return thresholdEstimate{
		low:      minLowThreshold + f*(maxLowThreshold-minLowThreshold),
		high:     minHighThreshold + f*(maxHighThreshold-minHighThreshold),
		contrast: contrast,
		level:    best,
	}, true
}
