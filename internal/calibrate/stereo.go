package calibrate

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Camera file name prefixes.
const (
	LeftPrefix  = "raw0"
	RightPrefix = "raw1"
)

var (
	// ErrNoImages is returned when the directory holds no calibration images.
	ErrNoImages = errors.New("no calibration images found")

	// ErrImageCountMismatch is returned when the two cameras have a different
	// number of images.
	ErrImageCountMismatch = errors.New("camera image counts differ")
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// Pair is one left/right capture of the target.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// FindPairs lists the raw0*/raw1* images in dir, sorted by name, and pairs
// them in order.
func FindPairs(dir string) ([]Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", dir)
	}
	var left, right []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		switch {
		case strings.HasPrefix(e.Name(), LeftPrefix):
			left = append(left, filepath.Join(dir, e.Name()))
		case strings.HasPrefix(e.Name(), RightPrefix):
			right = append(right, filepath.Join(dir, e.Name()))
		}
	}
	if len(left) == 0 && len(right) == 0 {
		return nil, errors.Wrapf(ErrNoImages, "in %s", dir)
	}
	if len(left) != len(right) {
		return nil, errors.Wrapf(ErrImageCountMismatch, "%d %s images, %d %s images", len(left), LeftPrefix, len(right), RightPrefix)
	}
	sort.Strings(left)
	sort.Strings(right)

	pairs := make([]Pair, len(left))
	for i := range left {
		pairs[i] = Pair{Left: left[i], Right: right[i]}
	}
	return pairs, nil
}

// PairResult holds the results of both images of a pair; either may be nil
// when that image failed.
type PairResult struct {
	Pair
	Results [2]*ImageResult
}

// Run calibrates every pair in the configured directory and returns the
// combined calibration. Image failures are logged and collected; Run fails
// only when a camera has no usable image at all.
func (p *Pipeline) Run(ctx context.Context) (*Calibration, []*PairResult, error) {
	pairs, err := FindPairs(p.cfg.Dir)
	if err != nil {
		return nil, nil, err
	}
	p.logger.Infow("calibration images found", "pairs", len(pairs), "dir", p.cfg.Dir)

	results := make([]*PairResult, len(pairs))
	errs := make([]error, 2*len(pairs))

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pair := range pairs {
		results[i] = &PairResult{Pair: pair}
		for cam, path := range []string{pair.Left, pair.Right} {
			i, cam, path := i, cam, path
			g.Go(func() error {
				res, err := p.ProcessImage(gctx, path, cam)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					p.logger.Warnw("image failed", "path", path, "error", err)
					errs[2*i+cam] = err
					return nil
				}
				p.logger.Infow("image calibrated",
					"path", path,
					"dots", len(res.Detection.Dots),
					"grid", [2]int{res.Grid.Cols, res.Grid.Rows},
					"curvature", res.Lens.Curvature,
				)
				results[i].Results[cam] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "calibration cancelled")
	}

	var best [2]*ImageResult
	for _, pr := range results {
		for cam, res := range pr.Results {
			if res != nil && (best[cam] == nil || res.Lens.Curvature < best[cam].Lens.Curvature) {
				best[cam] = res
			}
		}
	}
	for cam, b := range best {
		if b == nil {
			return nil, results, multierr.Append(
				errors.Errorf("camera %d: no usable calibration image", cam),
				multierr.Combine(errs...),
			)
		}
	}
	if err := multierr.Combine(errs...); err != nil {
		p.logger.Warnw("some images failed", "failed", len(multierr.Errors(err)))
	}

	return NewCalibration(p.cfg, best, results), results, nil
}
