package lens

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNotDetermined is returned when no candidate curve passed validation.
var ErrNotDetermined = errors.New("lens distortion not determined")

// Lines are the straight grid lines fed to the solver, as seen by the camera.
type Lines struct {
	Rows    [][]r2.Point
	Columns [][]r2.Point
}

// All returns rows followed by columns.
func (l Lines) All() [][]r2.Point {
	out := make([][]r2.Point, 0, len(l.Rows)+len(l.Columns))
	out = append(out, l.Rows...)
	return append(out, l.Columns...)
}

// SolverConfig controls the coarse-to-fine search.
type SolverConfig struct {
	// Rounds of refinement; each shrinks the window by Shrink.
	Rounds int
	// Samples per axis per round, so Samples^2 candidates per round.
	Samples int
	Shrink  float64
	// K1 and K2 are the initial search ranges.
	K1 [2]float64
	K2 [2]float64
	// LengthTolerance bounds the relative change in total line length.
	LengthTolerance float64
	Seed            int64
	// Workers scoring candidates in parallel; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultSolverConfig returns the full search budget.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Rounds:          20,
		Samples:         200,
		Shrink:          0.9,
		K1:              [2]float64{1, 1.2},
		K2:              [2]float64{0.0001, 0.001},
		LengthTolerance: 0.2,
		Seed:            1,
	}
}

// Validate checks the search budget.
func (c SolverConfig) Validate() error {
	if c.Rounds < 1 || c.Samples < 1 {
		return errors.Errorf("solver needs at least one round and sample, got %d rounds %d samples", c.Rounds, c.Samples)
	}
	if c.Shrink <= 0 || c.Shrink > 1 {
		return errors.Errorf("shrink factor %v outside (0, 1]", c.Shrink)
	}
	if c.K1[1] < c.K1[0] || c.K2[1] < c.K2[0] {
		return errors.New("search range upper bound below lower bound")
	}
	if c.LengthTolerance <= 0 {
		return errors.Errorf("length tolerance %v must be positive", c.LengthTolerance)
	}
	return nil
}

// Result is the outcome of a successful search.
type Result struct {
	Model *Model `json:"-"`

	K1       float64 `json:"k1"`
	K2       float64 `json:"k2"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`

	// Curvature of the winning candidate and of the untouched lines.
	Curvature         float64 `json:"curvature"`
	IdentityCurvature float64 `json:"identity_curvature"`

	// Lines rectified by the final model, rows first.
	Lines [][]r2.Point `json:"-"`

	Evaluated int `json:"evaluated"`
	Accepted  int `json:"accepted"`
}

type candidate struct {
	k1, k2 float64
	score  float64
	scale  float64
	valid  bool
}

// Solve searches for the radial curve that makes the grid lines straightest.
//
// Each round scores Samples x Samples jittered candidates on a grid over the
// current window in parallel, then recenters the window on the best
// candidate so far and shrinks it. A candidate is scored only if every line
// survives rectification and the total line length after normalizing the
// scale stays within LengthTolerance of the original. The distortion center
// is fixed at the image center.
func Solve(ctx context.Context, width, height int, lines Lines, cfg SolverConfig, logger *zap.SugaredLogger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	all := lines.All()
	if len(all) == 0 {
		return nil, errors.Wrap(ErrNotDetermined, "no lines")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}

	center := r2.Point{X: float64(width) / 2, Y: float64(height) / 2}
	s := &search{
		lines:      all,
		center:     center,
		normRadius: float64(width) / 2,
		origLen:    TotalLength(all),
		tolerance:  cfg.LengthTolerance,
	}

	res := &Result{IdentityCurvature: Curvature(all)}
	best := candidate{score: math.Inf(1)}

	c1, c2 := (cfg.K1[0]+cfg.K1[1])/2, (cfg.K2[0]+cfg.K2[1])/2
	h1, h2 := (cfg.K1[1]-cfg.K1[0])/2, (cfg.K2[1]-cfg.K2[0])/2
	rng := rand.New(rand.NewSource(cfg.Seed))

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	for round := 0; round < cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "lens search cancelled")
		}

		cands := make([]candidate, 0, cfg.Samples*cfg.Samples)
		step1, step2 := 2*h1/float64(cfg.Samples), 2*h2/float64(cfg.Samples)
		for i := 0; i < cfg.Samples; i++ {
			for j := 0; j < cfg.Samples; j++ {
				cands = append(cands, candidate{
					k1: c1 - h1 + (float64(i)+rng.Float64())*step1,
					k2: c2 - h2 + (float64(j)+rng.Float64())*step2,
				})
			}
		}

		if err := s.score(ctx, cands, workers); err != nil {
			return nil, err
		}

		accepted := 0
		for _, c := range cands {
			if !c.valid {
				continue
			}
			accepted++
			if c.score < best.score {
				best = c
			}
		}
		res.Evaluated += len(cands)
		res.Accepted += accepted

		if best.valid {
			c1, c2 = best.k1, best.k2
		}
		h1 *= cfg.Shrink
		h2 *= cfg.Shrink

		logger.Debugw("lens search round",
			"round", round+1,
			"accepted", accepted,
			"best_curvature", best.score,
			"k1", c1,
			"k2", c2,
		)
	}

	if !best.valid {
		return nil, ErrNotDetermined
	}

	m := NewModel(best.k1, best.k2, center)
	m.Scale = best.scale

	// Level the rows: rotate by the negated mean angle of the rectified rows.
	if rows := m.RectifyLines(lines.Rows); len(rows) > 0 {
		sum := 0.0
		for _, l := range rows {
			sum += Angle(l)
		}
		m.Rotation = -sum / float64(len(rows))
	}

	res.Model = m
	res.K1, res.K2 = best.k1, best.k2
	res.Scale = m.Scale
	res.Rotation = m.Rotation
	res.Curvature = best.score
	res.Lines = m.RectifyLines(all)

	logger.Infow("lens distortion solved",
		"k1", res.K1,
		"k2", res.K2,
		"scale", res.Scale,
		"rotation_deg", res.Rotation*180/math.Pi,
		"curvature", res.Curvature,
		"identity_curvature", res.IdentityCurvature,
	)
	return res, nil
}

type search struct {
	lines      [][]r2.Point
	center     r2.Point
	normRadius float64
	origLen    float64
	tolerance  float64
}

// score evaluates candidates in place, split into contiguous chunks.
func (s *search) score(ctx context.Context, cands []candidate, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (len(cands) + workers - 1) / workers
	for start := 0; start < len(cands); start += chunk {
		part := cands[start:min(start+chunk, len(cands))]
		g.Go(func() error {
			for i := range part {
				if i%256 == 0 {
					if err := ctx.Err(); err != nil {
						return errors.Wrap(err, "lens search cancelled")
					}
				}
				s.evaluate(&part[i])
			}
			return nil
		})
	}
	return g.Wait()
}

// evaluate rectifies the lines with the candidate curve, normalizes the scale
// so the point at normRadius keeps its radius, and scores curvature.
func (s *search) evaluate(c *candidate) {
	m := NewModel(c.k1, c.k2, s.center)
	r, ok := m.rectified(s.normRadius)
	if !ok {
		return
	}
	m.Scale = s.normRadius / r

	rect := m.RectifyLines(s.lines)
	if len(rect) != len(s.lines) {
		return
	}
	l := TotalLength(rect)
	if s.origLen == 0 || math.Abs(l-s.origLen)/s.origLen > s.tolerance {
		return
	}
	c.score = Curvature(rect)
	c.scale = m.Scale
	c.valid = true
}
