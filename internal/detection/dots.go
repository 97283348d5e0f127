package detection

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// Dot aspect limits (bounding box width / height).
const (
	minDotAspect = 0.7
	maxDotAspect = 1.3
)

// Dot is a detected calibration dot.
type Dot struct {
	Center   r2.Point         `json:"center"`
	Radius   float64          `json:"radius"`
	Width    int              `json:"width"`
	Height   int              `json:"height"`
	Color    imaging.RGBColor `json:"color"`
	IsCenter bool             `json:"is_center"`
}

// DotConfig controls DetectDots.
type DotConfig struct {
	ExtractConfig

	// MinWidth and MaxWidth bound both bounding box sides in pixels.
	MinWidth int
	MaxWidth int
}

// DefaultDotConfig returns settings suited to a printed dot grid filling
// most of a VGA to HD frame.
func DefaultDotConfig() DotConfig {
	return DotConfig{
		ExtractConfig: ExtractConfig{
			ConnectSeparation:     3,
			MinimumSizePercent:    20,
			GroupingRadiusPercent: 1,
		},
		MinWidth: 4,
		MaxWidth: 60,
	}
}

// DotResult is the outcome of DetectDots.
type DotResult struct {
	Dots []Dot

	// Center indexes the center dot in Dots, or -1 when no dot was found.
	Center int

	*Extraction
}

// CenterDot returns the center dot, if any.
func (r *DotResult) CenterDot() (Dot, bool) {
	if r.Center < 0 {
		return Dot{}, false
	}
	return r.Dots[r.Center], true
}

// DetectDots finds calibration dots in buf.
//
// Each perimeter group becomes a dot when both bounding box sides lie in
// [MinWidth, MaxWidth] and the box is roughly square. The dot's radius is a
// quarter of the box width plus height and its color is the 5x5 mean around
// the centroid. The reddest dot (highest 2R-G-B, first found on ties) is
// flagged as the center dot.
func DetectDots(buf *imaging.Buffer, cfg DotConfig) (*DotResult, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	ex, err := Extract(buf, cfg.ExtractConfig)
	if err != nil {
		return nil, err
	}

	res := &DotResult{Center: -1, Extraction: ex}
	for i := range ex.Groups {
		d, ok := groupToDot(buf, &ex.Groups[i], cfg.MinWidth, cfg.MaxWidth)
		if ok {
			res.Dots = append(res.Dots, d)
		}
	}

	best := math.MinInt
	for i := range res.Dots {
		if r := res.Dots[i].Color.Redness(); r > best {
			best = r
			res.Center = i
		}
	}
	if res.Center >= 0 {
		res.Dots[res.Center].IsCenter = true
	}
	return res, nil
}

func groupToDot(buf *imaging.Buffer, g *Group, minWidth, maxWidth int) (Dot, bool) {
	w, h := g.Width(), g.Height()
	if w < minWidth || w > maxWidth || h < minWidth || h > maxWidth {
		return Dot{}, false
	}
	aspect := float64(w) / float64(h)
	if aspect < minDotAspect || aspect > maxDotAspect {
		return Dot{}, false
	}
	return Dot{
		Center: g.Centroid,
		Radius: float64(w+h) / 4,
		Width:  w,
		Height: h,
		Color:  imaging.MeanColor(buf, int(math.Round(g.Centroid.X)), int(math.Round(g.Centroid.Y))),
	}, true
}
