package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
	"github.com/san-kum/calinspect/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Batch is a scripted list of calibrations to inspect.
type Batch struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Steps       []BatchStep `yaml:"steps"`
}

// BatchStep inspects one directory. Unset fields keep the base settings.
type BatchStep struct {
	Dir    string   `yaml:"dir"`
	Cutoff *float64 `yaml:"cutoff"`
	OutDir string   `yaml:"out_dir"`
	Plots  *bool    `yaml:"plots"`
	Save   bool     `yaml:"save"`
}

// BatchResult is the outcome of one step; Err is set when it failed.
type BatchResult struct {
	Dir    string
	Report *inspect.Report
	ID     string
	Err    error
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, step := range b.Steps {
		if step.Dir == "" {
			return nil, fmt.Errorf("%s: step %d has no dir", path, i+1)
		}
	}
	return &b, nil
}

// RunBatch inspects every step in order. A failing step is recorded in its
// result and the batch goes on; only cancellation stops it early. st may be
// nil when no step saves.
func RunBatch(ctx context.Context, b *Batch, base inspect.Config, st *storage.Store, log *zap.Logger) ([]BatchResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]BatchResult, 0, len(b.Steps))

	for i, step := range b.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		log.Info("batch step",
			zap.Int("step", i+1),
			zap.Int("of", len(b.Steps)),
			zap.String("dir", step.Dir))

		cfg := base
		if step.Cutoff != nil {
			cfg.Cutoff = *step.Cutoff
		}
		if step.OutDir != "" {
			cfg.OutDir = step.OutDir
		}
		if step.Plots != nil {
			cfg.Plots = *step.Plots
		}

		res := BatchResult{Dir: step.Dir}
		res.Report, res.Err = inspect.New(cfg, log).Run(ctx, step.Dir)
		if res.Err == nil && step.Save {
			if st == nil {
				res.Err = fmt.Errorf("step %d: save requested without a report store", i+1)
			} else {
				res.ID, res.Err = st.Save(res.Report)
			}
		}
		if res.Err != nil {
			log.Warn("batch step failed", zap.String("dir", step.Dir), zap.Error(res.Err))
		}
		results = append(results, res)
	}

	return results, nil
}

// CutoffSweep steps the singular value cutoff linearly from Min to Max.
type CutoffSweep struct {
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult holds the reconstruction quality at one cutoff.
type SweepResult struct {
	Cutoff            float64
	ModesUsed         int
	SingularUsed      float64
	IdentityDeviation float64
	MaxActuation      float64
}

// RunSweep rebuilds the actuation matrix of cal at each cutoff of the sweep.
func RunSweep(ctx context.Context, cal *calib.Calibration, sweep CutoffSweep) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	step := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		c := sweep.Min + float64(i)*step

		act, err := calib.ActuationCutoff(cal.U, cal.SingVal, cal.V, c)
		if err != nil {
			return nil, err
		}
		st := calib.Analyze(cal, act, c)

		maxAct := 0.0
		rows, cols := act.Dims()
		for r := 0; r < rows; r++ {
			for k := 0; k < cols; k++ {
				if v := act.At(r, k); v > maxAct || -v > maxAct {
					maxAct = max(v, -v)
				}
			}
		}

		results = append(results, SweepResult{
			Cutoff:            c,
			ModesUsed:         st.ModesUsed,
			SingularUsed:      st.SingularUsed,
			IdentityDeviation: st.IdentityDeviation,
			MaxActuation:      maxAct,
		})
	}
	return results, nil
}
