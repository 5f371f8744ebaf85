package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/san-kum/calinspect/internal/automation"
	"github.com/san-kum/calinspect/internal/calib"
	"github.com/san-kum/calinspect/internal/inspect"
	"github.com/san-kum/calinspect/internal/storage"
	"github.com/san-kum/calinspect/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInspector(plots bool) *inspect.Inspector {
	ic := inspect.FromConfig(cfg)
	ic.Plots = plots
	return inspect.New(ic, logger)
}

// analyze runs the pipeline without image output.
func analyze(cmd *cobra.Command, dir string) (*inspect.Report, error) {
	return newInspector(false).Run(cmd.Context(), dir)
}

func runInspect(cmd *cobra.Command, args []string) error {
	dir := dirArg(args)

	rep, err := newInspector(!noPlots).Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	id := ""
	if save {
		st := storage.New(dataDir)
		if id, err = st.Save(rep); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		logger.Info("stored report", zap.String("id", id))
	}

	if jsonOut {
		return storage.ExportJSONStdout(storage.NewExport(id, rep))
	}

	th := viz.GetTheme(cfg.Theme)
	fmt.Println(viz.Summary(rep, th))
	fmt.Println(viz.TipTiltPanel(rep, 60, th))
	if id != "" {
		fmt.Printf("report id: %s\n", id)
	}
	return nil
}

func runLocate(cmd *cobra.Command, args []string) error {
	dir := dirArg(args)
	ds, err := calib.Locate(dir, cfg.PatternMap())
	if err != nil {
		return err
	}

	fmt.Printf("device:  %s\n", ds.Device)
	fmt.Printf("nmeas:   %d\n", ds.NMeas)
	fmt.Printf("nmodes:  %d\n\n", ds.NModes)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tSHAPE\tFILE")
	for _, k := range calib.Kinds {
		rows, cols := ds.Shape(k)
		shape := fmt.Sprintf("%dx%d", rows, cols)
		if cols == 0 {
			shape = fmt.Sprintf("%d", rows)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", k, shape, filepath.Base(ds.Files[k]))
		for _, extra := range ds.Extra[k] {
			fmt.Fprintf(w, "\t\t%s (ignored)\n", filepath.Base(extra))
		}
	}
	return w.Flush()
}

func runSVD(cmd *cobra.Command, args []string) error {
	rep, err := analyze(cmd, dirArg(args))
	if err != nil {
		return err
	}
	s := rep.Stats
	sv := calib.Values(rep.Calibration.SingVal)

	th := viz.GetTheme(cfg.Theme)
	if chart := viz.SingularChart(sv, 60, 12, th); chart != "" {
		fmt.Println(chart)
		fmt.Println()
	}

	fmt.Printf("modes:            %d\n", s.Modes)
	fmt.Printf("singular values:  %.6g .. %.6g\n", s.MinSingular, s.MaxSingular)
	fmt.Printf("condition number: %.6g\n", s.Condition)
	fmt.Printf("zero values:      %d\n", s.ZeroSingular)
	fmt.Printf("cutoff:           %g -> %d modes, %.2f%% of the singular value sum\n",
		s.Cutoff, s.ModesUsed, 100*s.SingularUsed)

	fresh, err := calib.Refactor(rep.Calibration)
	if err != nil {
		return err
	}
	if math.IsNaN(fresh.MaxDiff) {
		fmt.Printf("refactorization:  %d values, stored file has %d\n", len(fresh.Values), len(sv))
	} else {
		fmt.Printf("refactorization:  max |s - s_stored| = %.3g\n", fresh.MaxDiff)
	}
	return nil
}

func runTipTilt(cmd *cobra.Command, args []string) error {
	rep, err := analyze(cmd, dirArg(args))
	if err != nil {
		return err
	}

	th := viz.GetTheme(cfg.Theme)
	fmt.Println(viz.TipTiltPanel(rep, 70, th))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tTIP\tTILT")
	for i := range rep.Tip {
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\n", i, rep.Tip[i], rep.Tilt[i])
	}
	return w.Flush()
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ic := inspect.FromConfig(cfg)
	ic.Plots = false
	// Log lines on stderr would corrupt the alternate screen.
	rep, err := inspect.New(ic, zap.NewNop()).Run(cmd.Context(), dirArg(args))
	if err != nil {
		return err
	}
	return viz.Browse(rep, viz.GetTheme(cfg.Theme))
}

func runSynth(cmd *cobra.Command, args []string) error {
	dir := dirArg(args)

	cal, err := calib.Synthesize(calib.RandomInfluence(nmeas, nmodes, seed))
	if err != nil {
		return err
	}
	ds, err := calib.Write(dir, prefix, device, cal)
	if err != nil {
		return err
	}

	logger.Info("wrote synthetic calibration", zap.String("dir", dir), zap.Int("files", len(ds.Files)))
	for _, k := range calib.Kinds {
		fmt.Println(ds.Files[k])
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}

	results, err := automation.RunBatch(cmd.Context(), b, inspect.FromConfig(cfg), storage.New(dataDir), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIR\tDEVICE\tMODES\tCOND\tRESIDUAL\tSTATUS")
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%v\n", r.Dir, r.Err)
			continue
		}
		s := r.Report.Stats
		status := "ok"
		if warnings := viz.Warnings(r.Report); len(warnings) > 0 {
			status = warnings[0]
		}
		if r.ID != "" {
			status += " (" + r.ID + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.4g\t%.3g\t%s\n",
			r.Dir, r.Report.Device, s.ModesUsed, s.Modes, s.Condition, s.PseudoIdentResidual, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch steps failed", failed, len(results))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	in := newInspector(false)
	cal, err := in.Open(dirArg(args))
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), cal, sweepRange(cmd, cal.Dataset.NModes))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CUTOFF\tMODES\tPOWER\t|A*M - I|\tMAX |A|")
	dev := make([]float64, len(results))
	for i, r := range results {
		dev[i] = r.IdentityDeviation
		fmt.Fprintf(w, "%g\t%d\t%.1f%%\t%.3g\t%.4g\n",
			r.Cutoff, r.ModesUsed, 100*r.SingularUsed, r.IdentityDeviation, r.MaxActuation)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println("\n|A*M - I| " + viz.Sparkline(dev, 60))
	return nil
}

// sweepRange resolves the sweep flags. Unset --to means nmodes and unset
// --steps means one cutoff per integer between the ends.
func sweepRange(cmd *cobra.Command, nmodes int) automation.CutoffSweep {
	sweep := automation.CutoffSweep{Min: sweepFrom, Max: sweepTo, NumSteps: sweepSteps}
	if !cmd.Flags().Changed("to") {
		sweep.Max = float64(nmodes)
	}
	if !cmd.Flags().Changed("steps") {
		sweep.NumSteps = max(int(math.Abs(sweep.Max-sweep.Min))+1, 2)
	}
	return sweep
}

func runHistory(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	reports, err := st.List()
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		fmt.Println("no reports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDEVICE\tTIME\tSHAPE\tCOND\tRESIDUAL")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%s\t%s\n",
			r.ID,
			r.Device,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.NModes, r.NMeas,
			metric(r, "condition"),
			metric(r, "pseudo_ident_residual"),
		)
	}
	return w.Flush()
}

func metric(r storage.ReportMetadata, name string) string {
	if v, ok := r.Metrics[name]; ok {
		return fmt.Sprintf("%.4g", v)
	}
	if v, ok := r.NonFinite[name]; ok {
		return v
	}
	return "-"
}

func runShow(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	tip, tilt, err := st.LoadTipTilt(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("id:        %s\n", meta.ID)
	fmt.Printf("device:    %s\n", meta.Device)
	fmt.Printf("dir:       %s\n", meta.Dir)
	fmt.Printf("time:      %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("geometry:  %d meas x %d modes\n", meta.NMeas, meta.NModes)
	fmt.Println("\nmetrics:")
	for _, name := range []string{"condition", "min_singular", "max_singular", "zero_singular",
		"cutoff", "modes_used", "singular_used", "pseudo_ident_residual", "identity_deviation"} {
		fmt.Printf("  %-22s %s\n", name, metric(*meta, name))
	}

	rep := &inspect.Report{Device: meta.Device, Tip: tip, Tilt: tilt}
	fmt.Println()
	fmt.Println(viz.TipTiltPanel(rep, 60, viz.GetTheme(cfg.Theme)))

	if act, err := st.LoadActuation(args[0]); err == nil {
		fmt.Println("\nactuation matrix:")
		fmt.Println(viz.Heat(act, 60, 16))
	}
	return nil
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	data, err := st.Export(args[0])
	if err != nil {
		return err
	}
	if exportPath == "" {
		return storage.ExportJSONStdout(data)
	}
	if err := storage.ExportJSON(exportPath, data); err != nil {
		return err
	}
	fmt.Printf("exported to %s\n", exportPath)
	return nil
}
