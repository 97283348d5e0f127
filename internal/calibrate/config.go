package calibrate

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-calibrate/internal/detection"
	"github.com/ironsheep/stereo-calibrate/internal/lens"
)

// ResultFile is the name of the calibration written to the output directory.
const ResultFile = "calibration.json"

// Config holds every setting of a calibration run.
type Config struct {
	// Dir holds the raw0*/raw1* calibration images.
	Dir string `json:"dir"`
	// OutputDir receives the results; defaults to Dir.
	OutputDir string `json:"output_dir"`
	// Diagnostics enables overlay images and curve plots.
	Diagnostics bool `json:"diagnostics"`

	// Rig geometry.
	BaselineMM   float64 `json:"baseline_mm"`
	DotSpacingMM float64 `json:"dot_spacing_mm"`
	HeightMM     float64 `json:"height_mm"`
	FOVDegrees   float64 `json:"fov_degrees"`

	Dots   detection.DotConfig `json:"dots"`
	Solver lens.SolverConfig   `json:"solver"`

	// Workers bounds how many images are processed at once; 0 means two,
	// one per camera.
	Workers int `json:"workers"`
}

// DefaultConfig returns a config with default detection and search settings
// and no rig geometry.
func DefaultConfig() Config {
	return Config{
		Dots:    detection.DefaultDotConfig(),
		Solver:  lens.DefaultSolverConfig(),
		Workers: 2,
	}
}

// LoadConfigFile overlays the JSON file at path onto cfg. Fields missing from
// the file keep their current values.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return errors.New("calibration directory is required")
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return errors.Wrapf(err, "calibration directory %s", c.Dir)
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", c.Dir)
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"baseline", c.BaselineMM},
		{"dot spacing", c.DotSpacingMM},
		{"camera height", c.HeightMM},
		{"field of view", c.FOVDegrees},
	} {
		if f.v <= 0 {
			return errors.Errorf("%s must be positive, got %v", f.name, f.v)
		}
	}
	if c.FOVDegrees >= 180 {
		return errors.Errorf("field of view must be below 180 degrees, got %v", c.FOVDegrees)
	}

	if c.Dots.MinWidth < 1 || c.Dots.MaxWidth < c.Dots.MinWidth {
		return errors.Errorf("invalid dot width range [%d, %d]", c.Dots.MinWidth, c.Dots.MaxWidth)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return errors.Wrap(c.Solver.Validate(), "solver")
}

// Output returns the directory results are written to.
func (c *Config) Output() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.Dir
}
