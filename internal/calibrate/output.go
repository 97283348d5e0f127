package calibrate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/stereo-calibrate/internal/imaging"
	"github.com/ironsheep/stereo-calibrate/internal/lens"
)

// WriteOutputs saves the calibration, one undistorted image per camera and,
// when diagnostics are enabled, overlay images and curve plots. It returns
// the paths written.
func WriteOutputs(dir string, cal *Calibration, diagnostics bool, logger *zap.SugaredLogger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	path, err := cal.Save(dir)
	if err != nil {
		return nil, err
	}
	written := []string{path}

	var errs error
	for cam := 0; cam < 2; cam++ {
		r := cal.Best(cam)
		if r == nil {
			continue
		}
		paths, err := writeCamera(dir, cam, r, diagnostics)
		written = append(written, paths...)
		errs = multierr.Append(errs, err)
	}
	logger.Infow("outputs written", "dir", dir, "files", len(written))
	return written, errs
}

func writeCamera(dir string, cam int, r *ImageResult, diagnostics bool) ([]string, error) {
	var written []string
	save := func(name string, fn func(string) error) error {
		p := filepath.Join(dir, name)
		if err := fn(p); err != nil {
			return err
		}
		written = append(written, p)
		return nil
	}

	rm, err := lens.BuildMap(r.Width, r.Height, r.Lens.Model)
	if err != nil {
		return nil, errors.Wrapf(err, "camera %d", cam)
	}
	rectified, err := rm.Remap(r.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "camera %d", cam)
	}
	if err := save(fmt.Sprintf("rectified%d.png", cam), func(p string) error {
		return imaging.Save(rectified, p)
	}); err != nil {
		return written, err
	}
	if !diagnostics {
		return written, nil
	}

	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	if base == "" {
		base = fmt.Sprintf("camera%d", cam)
	}

	var errs error
	errs = multierr.Append(errs, save(base+"_edges.png", func(p string) error {
		return imaging.Save(r.Detection.Edges.Image(), p)
	}))
	errs = multierr.Append(errs, save(base+"_grid.png", func(p string) error {
		o := imaging.NewOverlay(r.Source)
		DrawGrid(o, r.Grid, imaging.ColorDot, true)
		return o.Save(p)
	}))
	errs = multierr.Append(errs, save(base+"_lines.png", func(p string) error {
		o := imaging.NewOverlay(rectified)
		DrawLines(o, r.Lens.Lines, imaging.ColorLine)
		return o.Save(p)
	}))
	errs = multierr.Append(errs, save(base+"_curve.png", func(p string) error {
		return lens.PlotCurve(r.Lens.Model, math.Hypot(float64(r.Width), float64(r.Height))/2, p)
	}))
	return written, errs
}
