package calibrate

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
	"github.com/ironsheep/stereo-calibrate/internal/grid"
	"github.com/ironsheep/stereo-calibrate/internal/imaging"
	"github.com/ironsheep/stereo-calibrate/internal/lens"
)

// ImageResult is the calibration of a single image.
type ImageResult struct {
	Path   string
	Camera int
	Width  int
	Height int

	Detection *detection.DotResult
	Grid      *grid.Grid
	Lens      *lens.Result

	CenterDot          r2.Point
	RectifiedCenterDot r2.Point

	MedianRadius  float64
	MedianSpacing float64

	// Source is the decoded image, kept for diagnostics.
	Source image.Image
}

// Pipeline runs detection, topology and lens fitting on calibration images.
type Pipeline struct {
	cfg    Config
	logger *zap.SugaredLogger
}

// NewPipeline returns a pipeline for cfg. A nil logger discards output.
func NewPipeline(cfg Config, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// ProcessImage loads path and calibrates it.
func (p *Pipeline) ProcessImage(ctx context.Context, path string, camera int) (*ImageResult, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	res, err := p.Process(ctx, img)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	res.Path = path
	res.Camera = camera
	return res, nil
}

// Process calibrates a decoded image: dots, grid, lines, lens curve.
func (p *Pipeline) Process(ctx context.Context, img image.Image) (*ImageResult, error) {
	buf := imaging.FromImage(img)
	res := &ImageResult{Width: buf.Width, Height: buf.Height, Source: img}

	dr, err := detection.DetectDots(buf, p.cfg.Dots)
	if err != nil {
		return nil, errors.Wrap(err, "detect dots")
	}
	res.Detection = dr
	if dr.OutOfBand {
		p.logger.Warnw("image contrast outside automatic threshold band",
			"contrast", dr.Contrast, "low", dr.LowThreshold, "high", dr.HighThreshold)
	}
	if dr.Truncated > 0 {
		p.logger.Warnw("perimeters truncated", "count", dr.Truncated, "cap", detection.MaxPerimeterPoints)
	}
	p.logger.Debugw("dots detected", "dots", len(dr.Dots), "groups", len(dr.Groups))

	g, err := grid.Build(dr.Dots)
	if err != nil {
		return nil, errors.Wrap(err, "build grid")
	}
	res.Grid = g
	if c, ok := dr.CenterDot(); ok {
		res.CenterDot = c.Center
	}
	p.logger.Debugw("grid built", "cols", g.Cols, "rows", g.Rows, "nulls", g.Nulls())

	res.MedianRadius, res.MedianSpacing = p.measure(g)

	lines := lens.Lines{Rows: g.RowLines(), Columns: g.ColumnLines()}
	lr, err := lens.Solve(ctx, buf.Width, buf.Height, lines, p.cfg.Solver, p.logger)
	if err != nil {
		return nil, errors.Wrap(err, "solve lens distortion")
	}
	res.Lens = lr
	res.RectifiedCenterDot = p.rectifyCenter(lr.Model, res.CenterDot)
	return res, nil
}

// rectifyCenter rectifies the center dot. A dot on the distortion center
// maps to the image center.
func (p *Pipeline) rectifyCenter(m *lens.Model, c r2.Point) r2.Point {
	if q, ok := m.Rectify(c); ok {
		return q
	}
	if c.Sub(m.Center).Norm() < 1 {
		return m.ImageCenter
	}
	p.logger.Warnw("center dot could not be rectified", "x", c.X, "y", c.Y)
	return r2.Point{}
}

// measure returns the median dot radius and neighbor spacing of the grid.
func (p *Pipeline) measure(g *grid.Grid) (radius, spacing float64) {
	var radii []float64
	for i := range g.Dots {
		if g.Dots[i].Assigned() {
			radii = append(radii, g.Dots[i].Radius)
		}
	}
	radius, err := stats.Median(radii)
	if err != nil {
		p.logger.Debugw("no dot radii", "error", err)
	}
	spacing, err = stats.Median(g.Spacings())
	if err != nil {
		p.logger.Debugw("no dot spacings", "error", err)
	}
	return radius, spacing
}
