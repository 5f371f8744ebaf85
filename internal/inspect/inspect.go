package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/config"
	"github.com/san-kum/calinspect/internal/plot"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Pipeline stages, in run order.
const (
	StageLocate    = "locate"
	StageLoad      = "load"
	StageActuation = "actuation"
	StageAnalyze   = "analyze"
	StagePlot      = "plot"
	StageTipTilt   = "tiptilt"
)

// ActuationTitle is the plot title of the reconstructed actuation matrix.
const ActuationTitle = "Actuation matrix"

type Config struct {
	OutDir      string
	ImageFormat string
	TipTiltFile string
	Cutoff      float64
	PlotWidth   float64
	PlotHeight  float64
	Patterns    map[calib.Kind]string
	Plots       bool

	// Workers bounds concurrent image rendering; GOMAXPROCS when zero.
	Workers int
}

// FromConfig takes the pipeline settings from a loaded config file.
func FromConfig(c *config.Config) Config {
	return Config{
		OutDir:      c.OutDir,
		ImageFormat: c.ImageFormat,
		TipTiltFile: c.TipTiltFile,
		Cutoff:      c.Cutoff,
		PlotWidth:   c.Plot.Width,
		PlotHeight:  c.Plot.Height,
		Patterns:    c.PatternMap(),
		Plots:       true,
		Workers:     c.Workers,
	}
}

// StageError records which stage of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Report is the outcome of one inspection run.
type Report struct {
	Dir         string
	Device      string
	NMeas       int
	NModes      int
	Files       map[calib.Kind]string
	Stats       calib.Stats
	Tip         []float64
	Tilt        []float64
	Images      []string
	Timestamp   time.Time
	Elapsed     time.Duration
	Calibration *calib.Calibration
	Actuation   *mat.Dense
}

type Inspector struct {
	cfg      Config
	log      *zap.Logger
	renderer *plot.Renderer
}

func New(cfg Config, log *zap.Logger) *Inspector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{
		cfg:      cfg,
		log:      log,
		renderer: plot.New(cfg.OutDir, cfg.ImageFormat, cfg.PlotWidth, cfg.PlotHeight, log),
	}
}

// Open locates and loads the calibration files in dir.
func (in *Inspector) Open(dir string) (*calib.Calibration, error) {
	ds, err := calib.Locate(dir, in.cfg.Patterns)
	if err != nil {
		return nil, &StageError{Stage: StageLocate, Err: err}
	}
	for kind, extra := range ds.Extra {
		in.log.Warn("several files match, using the first",
			zap.String("kind", string(kind)),
			zap.String("selected", ds.Files[kind]),
			zap.Strings("ignored", extra))
	}
	in.log.Info("located calibration",
		zap.String("dir", dir),
		zap.String("device", ds.Device),
		zap.Int("nmeas", ds.NMeas),
		zap.Int("nmodes", ds.NModes))

	cal, err := calib.Load(ds)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	return cal, nil
}

// Actuation reconstructs the actuation matrix of cal with the configured cutoff.
func (in *Inspector) Actuation(cal *calib.Calibration) (*mat.Dense, error) {
	act, err := calib.ActuationCutoff(cal.U, cal.SingVal, cal.V, in.cfg.Cutoff)
	if err != nil {
		return nil, &StageError{Stage: StageActuation, Err: err}
	}
	return act, nil
}

// Run inspects the calibration in dir: load, reconstruct, check and plot.
func (in *Inspector) Run(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cal, err := in.Open(dir)
	if err != nil {
		return nil, err
	}
	ds := cal.Dataset

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act, err := in.Actuation(cal)
	if err != nil {
		return nil, err
	}

	stats := calib.Analyze(cal, act, in.cfg.Cutoff)
	if stats.ZeroSingular > 0 {
		in.log.Warn("zero singular values, actuation matrix is not finite",
			zap.Int("count", stats.ZeroSingular))
	}
	in.log.Info("reconstructed actuation matrix",
		zap.Float64("condition", stats.Condition),
		zap.Int("modes_used", stats.ModesUsed),
		zap.Float64("pseudo_ident_residual", stats.PseudoIdentResidual))

	tip, tilt, err := calib.TipTilt(act)
	if err != nil {
		return nil, &StageError{Stage: StageTipTilt, Err: err}
	}

	rep := &Report{
		Dir:         dir,
		Device:      ds.Device,
		NMeas:       ds.NMeas,
		NModes:      ds.NModes,
		Files:       ds.Files,
		Stats:       stats,
		Tip:         calib.Values(tip),
		Tilt:        calib.Values(tilt),
		Timestamp:   start,
		Calibration: cal,
		Actuation:   act,
	}

	if in.cfg.Plots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		images, err := in.plot(ctx, cal, act, tip, tilt)
		if err != nil {
			return nil, err
		}
		rep.Images = images
	}

	rep.Elapsed = time.Since(start)
	return rep, nil
}

func (in *Inspector) plot(ctx context.Context, cal *calib.Calibration, act *mat.Dense, tip, tilt *mat.VecDense) ([]string, error) {
	device := cal.Dataset.Device
	jobs := make([]job, 0, len(calib.Kinds)+2)

	for _, k := range calib.Kinds {
		title := k.Title()
		if m := cal.Matrix(k); m != nil {
			jobs = append(jobs, job{stage: StagePlot, run: func() (string, error) {
				return in.renderer.Matrix(m, title, device)
			}})
		} else {
			jobs = append(jobs, job{stage: StagePlot, run: func() (string, error) {
				return in.renderer.Vector(cal.SingVal, title, device)
			}})
		}
	}
	jobs = append(jobs,
		job{stage: StagePlot, run: func() (string, error) {
			return in.renderer.Matrix(act, ActuationTitle, device)
		}},
		job{stage: StageTipTilt, run: func() (string, error) {
			return in.renderer.TipTilt(tip, tilt, in.cfg.TipTiltFile)
		}},
	)

	images, err := runJobs(ctx, jobs, in.cfg.Workers)
	if err != nil {
		return nil, err
	}

	in.log.Info("wrote plots", zap.Int("count", len(images)), zap.String("dir", in.cfg.OutDir))
	return images, nil
}
