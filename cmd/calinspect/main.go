package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/san-kum/calinspect/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configFile string
	dataDir    string
	verbose    bool

	outDir      string
	imageFormat string
	cutoff      float64
	noPlots     bool
	save        bool
	theme       string
	preset      string
	jsonOut     bool

	// synth
	nmeas  int
	nmodes int
	device string
	prefix string
	seed   uint64

	exportPath string

	// sweep
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int

	logger *zap.Logger
	cfg    *config.Config
)

// main runs the command line and exits with status 1 if the command fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd registers the commands and flags. The root command runs the
// full inspection when no subcommand is given.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "calinspect [dir]",
		Short: "inspect adaptive optics calibration data",
		Long: `calinspect loads the influence matrix, pseudo-identity and SVD factors of a
wavefront sensor to deformable mirror calibration, reconstructs the actuation
matrix, checks it and plots everything.

Run without a subcommand to inspect [dir], or data_dir from the config.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: runInspect,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".calinspect", "report store directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	addInspectFlags(rootCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "load, reconstruct, check and plot a calibration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInspect,
	}
	addInspectFlags(inspectCmd)

	locateCmd := &cobra.Command{
		Use:   "locate [dir]",
		Short: "show the calibration files found in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLocate,
	}

	svdCmd := &cobra.Command{
		Use:   "svd [dir]",
		Short: "singular value spectrum and cutoff usage",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSVD,
	}
	svdCmd.Flags().Float64Var(&cutoff, "cutoff", 0, "singular value cutoff")

	tipTiltCmd := &cobra.Command{
		Use:   "tiptilt [dir]",
		Short: "terminal plot of the tip/tilt actuation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTipTilt,
	}
	tipTiltCmd.Flags().Float64Var(&cutoff, "cutoff", 0, "singular value cutoff")

	browseCmd := &cobra.Command{
		Use:   "browse [dir]",
		Short: "browse the calibration matrices interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBrowse,
	}
	browseCmd.Flags().Float64Var(&cutoff, "cutoff", 0, "singular value cutoff")
	browseCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "color theme")

	synthCmd := &cobra.Command{
		Use:   "synth [dir]",
		Short: "write a synthetic calibration dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSynth,
	}
	synthCmd.Flags().IntVar(&nmeas, "nmeas", 80, "number of measurements")
	synthCmd.Flags().IntVar(&nmodes, "nmodes", 50, "number of modes")
	synthCmd.Flags().StringVar(&device, "device", "ixonwfs_alpao_dm97", "device name")
	synthCmd.Flags().StringVar(&prefix, "prefix", "dev.wfs.shwfs", "file name prefix")
	synthCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "inspect every calibration listed in a batch file (yaml)",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [dir]",
		Short: "reconstruction quality across a range of cutoffs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 1, "first cutoff")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 0, "last cutoff (default: number of modes)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 0, "number of cutoffs (default: one per mode)")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "list stored reports",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "show a stored report",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "color theme")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [id]",
		Short: "export a stored report to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list output presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-8s %s %gx%g cm\n", name, p.ImageFormat, p.Plot.Width, p.Plot.Height)
			}
		},
	}

	rootCmd.AddCommand(inspectCmd, locateCmd, svdCmd, tipTiltCmd, browseCmd, synthCmd,
		batchCmd, sweepCmd, historyCmd, showCmd, exportJSONCmd, presetsCmd)

	return rootCmd
}

func addInspectFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outDir, "out", "o", config.DefaultOutDir, "plot output directory")
	cmd.Flags().StringVar(&imageFormat, "format", config.DefaultImageFormat, "image format (png, pdf, svg, eps, jpg, tif)")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "singular value cutoff: 0 all, <0 drop, >=1 keep count, (0,1) power fraction")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip image output")
	cmd.Flags().BoolVar(&save, "save", false, "store the report")
	cmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "color theme")
	cmd.Flags().StringVar(&preset, "preset", "", "output preset (see presets)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
}

// setup builds the logger and resolves the configuration. Flags override the
// preset, which overrides the config file.
func setup(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg = config.DefaultConfig()
	if configFile != "" {
		cfg, err = config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Debug("loaded config", zap.String("path", configFile))
	}

	flags := cmd.Flags()
	if flags.Lookup("preset") != nil && preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return err
		}
	}
	if flags.Changed("out") {
		cfg.OutDir = outDir
	}
	if flags.Changed("format") {
		cfg.ImageFormat = imageFormat
	}
	if flags.Changed("cutoff") {
		cfg.Cutoff = cutoff
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}
	return cfg.Validate()
}

// dirArg is the calibration directory: the argument, or data_dir.
func dirArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.DataDir
}
