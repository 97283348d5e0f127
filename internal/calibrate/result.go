package calibrate

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CameraCalibration is the solved lens and geometry of one camera.
type CameraCalibration struct {
	Camera int    `json:"camera"`
	Image  string `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Radial curve r_original = K1*r + K2*r^2 about the image center, then
	// Scale and Rotation (radians) applied to the rectified image.
	//
	// r is the rectified radius, so the curve distorts: it takes an
	// undistorted point to where the camera saw it. Rectifying an observed
	// point inverts the curve numerically. A barrel lens therefore has
	// K2 < 0, the opposite sign of a curve applied directly to observed
	// points.
	K1       float64 `json:"k1"`
	K2       float64 `json:"k2"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`

	Curvature         float64 `json:"curvature"`
	IdentityCurvature float64 `json:"identity_curvature"`

	FocalLengthPx float64 `json:"focal_length_px"`
	// MMPerPixel is the target resolution at the grid center.
	MMPerPixel float64 `json:"mm_per_pixel"`

	GridCols      int     `json:"grid_cols"`
	GridRows      int     `json:"grid_rows"`
	Dots          int     `json:"dots"`
	MedianRadius  float64 `json:"median_dot_radius"`
	MedianSpacing float64 `json:"median_dot_spacing"`

	CenterDot          [2]float64 `json:"center_dot"`
	RectifiedCenterDot [2]float64 `json:"rectified_center_dot"`
}

// PairOffset is the displacement of the right camera's rectified center dot
// relative to the left's for one pair.
type PairOffset struct {
	Left    string  `json:"left"`
	Right   string  `json:"right"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// Calibration is the persisted result of a stereo calibration run.
type Calibration struct {
	BaselineMM   float64 `json:"baseline_mm"`
	DotSpacingMM float64 `json:"dot_spacing_mm"`
	HeightMM     float64 `json:"height_mm"`
	FOVDegrees   float64 `json:"fov_degrees"`

	Cameras []CameraCalibration `json:"cameras"`
	Pairs   []PairOffset        `json:"pairs"`

	// Mean rectified center dot offset over all pairs.
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`

	best [2]*ImageResult
}

// FocalLengthPixels returns the pinhole focal length for an image width and
// horizontal field of view.
func FocalLengthPixels(width int, fovDegrees float64) float64 {
	half := fovDegrees * math.Pi / 360
	if width <= 0 || half <= 0 || half >= math.Pi/2 {
		return 0
	}
	return float64(width) / 2 / math.Tan(half)
}

// NewCalibration assembles the calibration from the best image of each
// camera and the per-pair center dot offsets.
func NewCalibration(cfg Config, best [2]*ImageResult, pairs []*PairResult) *Calibration {
	cal := &Calibration{
		BaselineMM:   cfg.BaselineMM,
		DotSpacingMM: cfg.DotSpacingMM,
		HeightMM:     cfg.HeightMM,
		FOVDegrees:   cfg.FOVDegrees,
		best:         best,
	}
	for cam, r := range best {
		if r == nil {
			continue
		}
		cc := CameraCalibration{
			Camera:             cam,
			Image:              filepath.Base(r.Path),
			Width:              r.Width,
			Height:             r.Height,
			K1:                 r.Lens.K1,
			K2:                 r.Lens.K2,
			Scale:              r.Lens.Scale,
			Rotation:           r.Lens.Rotation,
			CenterX:            r.Lens.Model.Center.X,
			CenterY:            r.Lens.Model.Center.Y,
			Curvature:          r.Lens.Curvature,
			IdentityCurvature:  r.Lens.IdentityCurvature,
			FocalLengthPx:      FocalLengthPixels(r.Width, cfg.FOVDegrees),
			GridCols:           r.Grid.Cols,
			GridRows:           r.Grid.Rows,
			Dots:               r.Grid.Count(),
			MedianRadius:       r.MedianRadius,
			MedianSpacing:      r.MedianSpacing,
			CenterDot:          [2]float64{r.CenterDot.X, r.CenterDot.Y},
			RectifiedCenterDot: [2]float64{r.RectifiedCenterDot.X, r.RectifiedCenterDot.Y},
		}
		if r.MedianSpacing > 0 {
			cc.MMPerPixel = cfg.DotSpacingMM / r.MedianSpacing
		}
		cal.Cameras = append(cal.Cameras, cc)
	}

	for _, pr := range pairs {
		l, r := pr.Results[0], pr.Results[1]
		if l == nil || r == nil {
			continue
		}
		cal.Pairs = append(cal.Pairs, PairOffset{
			Left:    filepath.Base(pr.Left),
			Right:   filepath.Base(pr.Right),
			OffsetX: r.RectifiedCenterDot.X - l.RectifiedCenterDot.X,
			OffsetY: r.RectifiedCenterDot.Y - l.RectifiedCenterDot.Y,
		})
	}
	if n := len(cal.Pairs); n > 0 {
		for _, po := range cal.Pairs {
			cal.OffsetX += po.OffsetX
			cal.OffsetY += po.OffsetY
		}
		cal.OffsetX /= float64(n)
		cal.OffsetY /= float64(n)
	}
	return cal
}

// Best returns the image chosen for camera cam, if any.
func (c *Calibration) Best(cam int) *ImageResult {
	if cam < 0 || cam > 1 {
		return nil
	}
	return c.best[cam]
}

// Save writes the calibration as indented JSON to dir/calibration.json.
func (c *Calibration) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode calibration")
	}
	path := filepath.Join(dir, ResultFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// LoadCalibration reads a calibration written by Save.
func LoadCalibration(path string) (*Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var c Calibration
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return &c, nil
}
