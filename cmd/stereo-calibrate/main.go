// Package main is the stereo-calibrate command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/stereo-calibrate/internal/calibrate"
	"github.com/ironsheep/stereo-calibrate/internal/logging"
	"github.com/ironsheep/stereo-calibrate/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	// Flags.
	flagDir         = "dir"
	flagOut         = "out"
	flagBaseline    = "baseline"
	flagDotDist     = "dotdist"
	flagHeight      = "height"
	flagFOV         = "fov"
	flagConfig      = "config"
	flagDiagnostics = "diagnostics"
	flagDebug       = "debug"
	flagSeed        = "seed"
	flagRounds      = "rounds"
	flagSamples     = "samples"
	flagLogFile     = "log-file"
)

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("stereo-calibrate %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
	}

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command line. Calibration flags are accepted both at the
// top level and under the calibrate command.
func newApp() *cli.App {
	return &cli.App{
		Name:    "stereo-calibrate",
		Usage:   "calibrate a stereo camera pair from images of a dot target",
		Version: Version,
		UsageText: "stereo-calibrate [global options] -dir <path> -baseline <mm> -dotdist <mm> " +
			"-height <mm> -fov <degrees>\n   stereo-calibrate [global options] command [options]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
			&cli.StringSliceFlag{
				Name:  flagLogFile,
				Usage: "also write logs to this file",
			},
			&cli.StringFlag{
				Name:  flagConfig,
				Usage: "JSON config file applied before flags",
			},
		}, calibrateFlags()...),
		Action: rootAction,
		Commands: []*cli.Command{
			{
				Name:  "calibrate",
				Usage: "calibrate from a directory of raw0*/raw1* images",
				UsageText: "stereo-calibrate calibrate -dir <path> -baseline <mm> -dotdist <mm> " +
					"-height <mm> -fov <degrees> [other options]",
				Flags:  calibrateFlags(),
				Action: calibrateAction,
			},
			{
				Name:   "serve",
				Usage:  "serve the calibration tools over MCP on stdin/stdout",
				Action: serveAction,
			},
		},
	}
}

func calibrateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagDir,
			Usage: "directory holding the calibration images",
		},
		&cli.StringFlag{
			Name:  flagOut,
			Usage: "output directory (default: -dir)",
		},
		&cli.Float64Flag{
			Name:  flagBaseline,
			Usage: "distance between the camera centers in mm",
		},
		&cli.Float64Flag{
			Name:  flagDotDist,
			Usage: "distance between neighboring target dots in mm",
		},
		&cli.Float64Flag{
			Name:  flagHeight,
			Usage: "camera height above the target in mm",
		},
		&cli.Float64Flag{
			Name:  flagFOV,
			Usage: "horizontal field of view in degrees",
		},
		&cli.BoolFlag{
			Name:  flagDiagnostics,
			Usage: "write overlay images and curve plots",
		},
		&cli.Int64Flag{
			Name:  flagSeed,
			Usage: "random seed for the lens search",
		},
		&cli.IntFlag{
			Name:  flagRounds,
			Usage: "lens search rounds",
		},
		&cli.IntFlag{
			Name:  flagSamples,
			Usage: "lens search samples per axis per round",
		},
	}
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// free for the MCP protocol.
func newLogger(c *cli.Context) (*zap.SugaredLogger, error) {
	return logging.NewLogger("stereo-calibrate", c.Bool(flagDebug), c.StringSlice(flagLogFile)...)
}

// loadConfig starts from defaults, applies the config file, then any flags
// that were set.
func loadConfig(c *cli.Context) (calibrate.Config, error) {
	cfg := calibrate.DefaultConfig()
	if path := c.String(flagConfig); path != "" {
		if err := calibrate.LoadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if c.IsSet(flagDir) {
		cfg.Dir = c.String(flagDir)
	}
	if c.IsSet(flagOut) {
		cfg.OutputDir = c.String(flagOut)
	}
	if c.IsSet(flagBaseline) {
		cfg.BaselineMM = c.Float64(flagBaseline)
	}
	if c.IsSet(flagDotDist) {
		cfg.DotSpacingMM = c.Float64(flagDotDist)
	}
	if c.IsSet(flagHeight) {
		cfg.HeightMM = c.Float64(flagHeight)
	}
	if c.IsSet(flagFOV) {
		cfg.FOVDegrees = c.Float64(flagFOV)
	}
	if c.IsSet(flagDiagnostics) {
		cfg.Diagnostics = c.Bool(flagDiagnostics)
	}
	if c.IsSet(flagSeed) {
		cfg.Solver.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagRounds) {
		cfg.Solver.Rounds = c.Int(flagRounds)
	}
	if c.IsSet(flagSamples) {
		cfg.Solver.Samples = c.Int(flagSamples)
	}
	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// rootAction runs a calibration when flags are given without a command and
// prints help otherwise.
func rootAction(c *cli.Context) error {
	if c.NumFlags() == 0 && !c.Args().Present() {
		return cli.ShowAppHelp(c)
	}
	if c.Args().Present() {
		return errors.Errorf("unknown command %q", c.Args().First())
	}
	return runCalibrate(c, cli.ShowAppHelpAndExit)
}

func calibrateAction(c *cli.Context) error {
	return runCalibrate(c, cli.ShowSubcommandHelpAndExit)
}

// runCalibrate calibrates with the configuration from c. An invalid
// configuration prints the error and usage, then exits with status 2.
func runCalibrate(c *cli.Context, usage func(*cli.Context, int)) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "%v\n\n", err)
		usage(c, 2)
		return nil
	}

	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	logger.Infow("calibrating", "dir", cfg.Dir, "output", cfg.Output(), "version", Version)
	cal, _, err := calibrate.NewPipeline(cfg, logger).Run(ctx)
	if err != nil {
		return errors.Wrap(err, "calibration failed")
	}

	files, err := calibrate.WriteOutputs(cfg.Output(), cal, cfg.Diagnostics, logger)
	if err != nil {
		return err
	}
	for _, cam := range cal.Cameras {
		logger.Infow("camera",
			"camera", cam.Camera,
			"image", cam.Image,
			"k1", cam.K1,
			"k2", cam.K2,
			"scale", cam.Scale,
			"rotation", cam.Rotation,
			"curvature", cam.Curvature)
	}
	logger.Infow("offset", "x", cal.OffsetX, "y", cal.OffsetY, "files", len(files))
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	server.Version = Version
	logger.Debugw("serving", "version", Version, "built", BuildTime, "commit", GitCommit)
	return server.New(cfg, logger).Run(ctx, os.Stdin, os.Stdout)
}
