package detection

import (
	"github.com/ironsheep/stereo-calibrate/internal/imaging"
)

// ExtractConfig controls the shared front end of dot and square detection.
type ExtractConfig struct {
	// ErosionDilation is applied before edge detection: positive erodes
	// (light regions shrink), negative dilates.
	ErosionDilation int

	// ConnectSeparation bridges edge gaps up to this many pixels; 0 disables.
	ConnectSeparation int

	// MinimumSizePercent drops perimeters shorter than this percentage of the
	// longest perimeter.
	MinimumSizePercent float64

	// GroupingRadiusPercent is the perimeter grouping distance as a
	// percentage of the image width.
	GroupingRadiusPercent float64
}

// Extraction holds the intermediate products of Extract.
type Extraction struct {
	// Edges is the edge map before tracing; tracing runs on a clone.
	Edges *imaging.EdgeMap

	Perimeters []Perimeter
	Groups     []Group

	// Truncated counts perimeters that hit MaxPerimeterPoints.
	Truncated int

	// Thresholds and contrast used by the edge detector.
	LowThreshold  float64
	HighThreshold float64
	Contrast      float64
	OutOfBand     bool
}

// Extract runs preprocessing, edge detection, tracing, length filtering and
// grouping over buf.
func Extract(buf *imaging.Buffer, cfg ExtractConfig) (*Extraction, error) {
	src := imaging.MorphBuffer(buf, cfg.ErosionDilation)

	canny := imaging.NewCanny()
	edges, err := canny.UpdateBuffer(src)
	if err != nil {
		return nil, err
	}
	if cfg.ConnectSeparation > 0 {
		edges.ConnectBrokenEdges(cfg.ConnectSeparation)
	}

	ex := &Extraction{Edges: edges, Contrast: canny.Contrast(), OutOfBand: canny.ContrastOutOfBand()}
	ex.LowThreshold, ex.HighThreshold = canny.Thresholds()

	perimeters := TracePerimeters(edges.Clone())
	for i := range perimeters {
		if perimeters[i].Truncated {
			ex.Truncated++
		}
	}
	ex.Perimeters = FilterByLength(perimeters, cfg.MinimumSizePercent)
	ex.Groups = GroupPerimeters(ex.Perimeters, buf.Width, buf.Height, cfg.GroupingRadiusPercent)
	return ex, nil
}
