package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pathloop/internal/analysis"
	"github.com/san-kum/pathloop/internal/automation"
	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/config"
	"github.com/san-kum/pathloop/internal/drivetrain"
	"github.com/san-kum/pathloop/internal/dynamo"
	"github.com/san-kum/pathloop/internal/export"
	"github.com/san-kum/pathloop/internal/logging"
	"github.com/san-kum/pathloop/internal/optim"
	"github.com/san-kum/pathloop/internal/sim"
	"github.com/san-kum/pathloop/internal/statespace"
	"github.com/san-kum/pathloop/internal/storage"
	"github.com/san-kum/pathloop/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	lookahead  float64
	epsilon    float64
	maxSpeed   float64
	rear       bool
	period     float64
	timeout    float64
	logDir     string
	logCSV     bool
	noSave     bool
	speed      int
	lookaheads []float64
	outFile    string
	format     string
	gridValues []string
	stepTarget float64
	stepCount  int
	metricName string
	trials     int
	offset     float64
	headingOff float64
	seed       int64

	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pathloop",
		Short:         "pure pursuit path following on a simulated tank drive",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.NewLogger("pathloop", logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "follow a path headless and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPath,
	}
	addFollowFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "follow a path with live terminal visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addFollowFlags(liveCmd)
	liveCmd.Flags().IntVar(&speed, "speed", 1, "loop ticks per frame")
	liveCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "compare lookahead distances on one path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addFollowFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&lookaheads, "lookaheads", []float64{0.1, 0.2, 0.4, 0.8}, "lookahead distances in meters")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Delete(args[0])
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Printf("  %-10s %d waypoints, lookahead %.2fm\n", name, len(cfg.Waypoints), cfg.Follower.Lookahead)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [preset] [file]",
		Short: "write a preset as an editable config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return unknownPreset(args[0])
			}
			if err := config.Save(args[1], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[1])
			return nil
		},
	}

	controllerCmd := &cobra.Command{
		Use:   "controller [preset]",
		Short: "show the state-space velocity controller for the robot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showController,
	}
	controllerCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	controllerCmd.Flags().Float64Var(&stepTarget, "target", 1.0, "wheel velocity step for the response (m/s)")
	controllerCmd.Flags().IntVar(&stepCount, "steps", 100, "periods to simulate the step response for")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json or svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&format, "format", "json", "json or svg")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "steering wobble and run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search follower parameters",
		Long:  "Runs every combination of --param name=v1,v2,... and reports the one with the lowest metric.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneParams,
	}
	addFollowFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridValues, "param", nil, "grid axis as name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "cross_track_rms", "metric to minimize")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of several runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "perturb the start pose and count completed runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addFollowFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&offset, "offset", 0.1, "max start offset per axis in meters")
	monteCarloCmd.Flags().Float64Var(&headingOff, "heading-offset", 10, "max start heading offset in degrees")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the time)")

	rootCmd.AddCommand(runCmd, liveCmd, sweepCmd, listCmd, plotCmd, deleteCmd, presetsCmd, initCmd, controllerCmd,
		exportCmd, analyzeCmd, tuneCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addFollowFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&lookahead, "lookahead", 0, "lookahead distance in meters")
	cmd.Flags().Float64Var(&epsilon, "epsilon", 0, "finish radius in meters")
	cmd.Flags().Float64Var(&maxSpeed, "max-speed", 0, "output cap in (0, 1]")
	cmd.Flags().BoolVar(&rear, "rear", false, "drive with the rear side forward")
	cmd.Flags().Float64Var(&period, "period", 0, "loop period in seconds")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "interrupt the command after this many seconds")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory for the CSV progress log")
	cmd.Flags().BoolVar(&logCSV, "csv", false, "write the CSV progress log")
}

func unknownPreset(name string) error {
	return fmt.Errorf("unknown preset: %s (available: %s)", name, strings.Join(config.ListPresets(), ", "))
}

// loadConfig starts from --config or the named preset, then applies every
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	case len(args) > 0:
		if cfg = config.GetPreset(args[0]); cfg == nil {
			return nil, unknownPreset(args[0])
		}
	default:
		cfg = config.GetPreset("line")
	}

	flags := cmd.Flags()
	if flags.Changed("lookahead") {
		cfg.Follower.Lookahead = lookahead
	}
	if flags.Changed("epsilon") {
		cfg.Follower.Epsilon = epsilon
	}
	if flags.Changed("max-speed") {
		cfg.Follower.MaxSpeed = maxSpeed
	}
	if flags.Changed("rear") && rear {
		cfg.Follower.FrontSide = drivetrain.Rear
	}
	if flags.Changed("period") {
		cfg.Loop.Period = period
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("log-dir") {
		cfg.Follower.LogDir = logDir
		cfg.Follower.LogCSV = true
	}
	if flags.Changed("csv") {
		cfg.Follower.LogCSV = logCSV
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPath(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	res, err := sim.Run(ctx, logger, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printResult(cfg, res)
	return saveRun(cfg, res)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// the TUI owns the terminal
	s, err := sim.NewSession(zap.NewNop(), cfg)
	if err != nil {
		return err
	}
	res, err := viz.Run(s, speed)
	if err != nil {
		return err
	}
	printResult(cfg, res)
	return saveRun(cfg, res)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	results, err := sim.SweepLookahead(ctx, logger, cfg, lookaheads)
	if err != nil {
		logger.Warn("some runs failed", zap.Error(err))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOOKAHEAD\tSTATE\tTIME\tCROSS RMS\tTRACKING\tEFFORT")
	for i, res := range results {
		if res == nil {
			fmt.Fprintf(w, "%.2f\tfailed\t\t\t\t\n", lookaheads[i])
			continue
		}
		fmt.Fprintf(w, "%.2f\t%s\t%.2fs\t%.4f\t%.4f\t%.3f\n",
			lookaheads[i], res.State, res.Elapsed.Seconds(),
			res.Metrics["cross_track_rms"], res.Metrics["tracking_error"], res.Metrics["control_effort"])
	}
	return w.Flush()
}

func printResult(cfg *config.Config, res *sim.Result) {
	fmt.Printf("path:     %s (%d waypoints)\n", cfg.Name, len(cfg.Waypoints))
	fmt.Printf("state:    %s", res.State)
	if res.TimedOut {
		fmt.Printf(" (timed out after %.0fs)", cfg.Timeout)
	}
	fmt.Println()
	fmt.Printf("time:     %.2fs over %d ticks\n", res.Elapsed.Seconds(), res.Ticks)
	fmt.Printf("final:    %s\n", res.FinalPose)
	if res.LogPath != "" {
		fmt.Printf("csv:      %s\n", res.LogPath)
	}

	keys := make([]string, 0, len(res.Metrics))
	for k := range res.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-16s %.4f\n", k, res.Metrics[k])
	}
}

func saveRun(cfg *config.Config, res *sim.Result) error {
	if noSave {
		return nil
	}
	p, err := cfg.Path()
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	id, err := st.Save(storage.RunMetadata{
		Name:      cfg.Name,
		Timestamp: time.Now(),
		Period:    cfg.Loop.Period,
		Lookahead: cfg.Follower.Lookahead,
		Epsilon:   cfg.Follower.Epsilon,
		MaxSpeed:  cfg.Follower.MaxSpeed,
		FrontSide: cfg.Follower.FrontSide.String(),
		State:     res.State.String(),
		Ticks:     res.Ticks,
		Metrics:   res.Metrics,
	}, p, res.Samples)
	if err != nil {
		return err
	}
	fmt.Printf("saved:    %s\n", id)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tTIME\tSTATE\tTICKS\tLOOKAHEAD\tCROSS RMS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.4f\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.State,
			run.Ticks,
			run.Lookahead,
			run.Metrics["cross_track_rms"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}
	p, err := st.LoadPath(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("path: %s, %s\n", meta.Name, meta.State)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := map[string][]float64{}
	order := []string{"x (m)", "y (m)", "heading (deg)", "cross-track error (m)"}
	for _, s := range samples {
		series[order[0]] = append(series[order[0]], s.Pose.Translation.X)
		series[order[1]] = append(series[order[1]], s.Pose.Translation.Y)
		series[order[2]] = append(series[order[2]], s.Pose.Rotation.Degrees())
		series[order[3]] = append(series[order[3]], p.DistanceTo(s.Pose.Translation))
	}
	for _, caption := range order {
		graph := asciigraph.Plot(series[caption],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	wheels := asciigraph.PlotMany([][]float64{wheel(samples, true), wheel(samples, false)},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Blue),
		asciigraph.Caption("left (green) and right (blue) wheel speed (m/s)"),
	)
	fmt.Println(wheels)
	return nil
}

func wheel(samples []command.Sample, left bool) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		if left {
			out[i] = s.Left
		} else {
			out[i] = s.Right
		}
	}
	return out
}

func showController(cmd *cobra.Command, args []string) error {
	var cfg *config.Config
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return err
		}
	} else {
		name := "line"
		if len(args) > 0 {
			name = args[0]
		}
		if cfg = config.GetPreset(name); cfg == nil {
			return unknownPreset(name)
		}
	}

	c, err := cfg.Controller()
	if err != nil {
		return err
	}
	motor := c.MotorCharacteristics()
	fmt.Printf("motor:     %d x %s, gear ratio %.2f\n", motor.Count, motor.Name, c.GearRatio())
	fmt.Printf("inertia:   %.3f kg m^2\n", c.MomentOfInertia())
	fmt.Printf("period:    %s\n\n", c.Plant().Period)

	fmt.Printf("Ad =\n%v\n\n", mat.Formatted(c.Plant().Ad, mat.Prefix("     "), mat.Squeeze()))
	fmt.Printf("Bd =\n%v\n\n", mat.Formatted(c.Plant().Bd, mat.Prefix("     "), mat.Squeeze()))
	fmt.Printf("K  =\n%v\n\n", mat.Formatted(c.Regulator().K, mat.Prefix("     "), mat.Squeeze()))

	radius, err := statespace.SpectralRadius(c.ClosedLoop())
	if err != nil {
		return err
	}
	fmt.Printf("closed loop spectral radius: %.4f", radius)
	if radius < 1 {
		fmt.Println(" (stable)")
	} else {
		fmt.Println(" (unstable)")
	}

	chassis, err := drivetrain.NewSim(nil, cfg.Drivetrain(), cfg.StartPose())
	if err != nil {
		return err
	}
	printGains(chassis)

	target := dynamo.State{stepTarget, stepTarget}
	resp, err := c.StepResponse(c.Regulator().Controller(target), target, stepCount)
	if err != nil {
		return err
	}
	velocity := make([]float64, len(resp))
	for i, p := range resp {
		velocity[i] = p.Velocity[0]
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(velocity,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("wheel velocity step to %.2f m/s", stepTarget))))
	last := resp[len(resp)-1]
	fmt.Printf("\nafter %.2fs: velocity %.3f m/s, voltage %.2f V, error %.3f m/s\n",
		last.Time, last.Velocity[0], last.Voltage[0], last.Error)
	return nil
}

func printGains(c dynamo.Configurable) {
	params := c.GetParams()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nchassis gains:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%g\n", name, params[name])
	}
	w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}
	p, err := st.LoadPath(args[0])
	if err != nil {
		return err
	}

	w := io.Writer(os.Stdout)
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return export.JSON(w, *meta, p, samples)
	case "svg":
		return export.SVG(w, p, samples, 800, 600)
	default:
		return fmt.Errorf("unknown format %q (json, svg)", format)
	}
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	samples, err := storage.New(dataDir).LoadSamples(args[0])
	if err != nil {
		return err
	}

	sum := analysis.Summarize(samples)
	fmt.Printf("distance:    %.2fm\n", sum.Distance)
	fmt.Printf("efficiency:  %.1f%%\n", sum.Efficiency*100)
	fmt.Printf("peak wheel:  %.2fm/s\n", sum.PeakWheel)
	fmt.Printf("heading:     %.1f° ± %.1f°\n", sum.MeanHeading, sum.HeadingStd)

	w, err := analysis.Wobble(samples)
	if err != nil {
		return err
	}
	fmt.Printf("wobble:      %.2fHz, %.3fm/s (sampled at %.0fHz)\n", w.Frequency, w.Amplitude, w.SampleRate)
	return nil
}

// parseGrid turns name=v1,v2 flags into grid axes.
func parseGrid(values []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(values))
	ranges := make([][]float64, 0, len(values))
	for _, v := range values {
		name, list, ok := strings.Cut(v, "=")
		if !ok {
			return nil, nil, fmt.Errorf("bad --param %q, want name=v1,v2", v)
		}
		var axis []float64
		for _, f := range strings.Split(list, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bad --param %q: %w", v, err)
			}
			axis = append(axis, x)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, axis)
	}
	return names, ranges, nil
}

func tuneParams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(gridValues) == 0 {
		return fmt.Errorf("no --param given (known: %s)", strings.Join(config.ParamNames(), ", "))
	}
	names, ranges, err := parseGrid(gridValues)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	best, err := g.Search(ctx, logger, cfg, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.4f after %d runs\n", metricName, best.Value, best.Runs)
	for _, name := range names {
		fmt.Printf("  %-14s %g\n", name, best.Params[name])
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunScenario(ctx, logger, sc)
	for _, r := range results {
		fmt.Println()
		printResult(r.Config, r.Result)
		if serr := saveRun(r.Config, r.Result); serr != nil {
			return serr
		}
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, logger, &automation.MonteCarloConfig{
		Base:          cfg,
		Offset:        offset,
		HeadingOffset: headingOff,
		NumTrials:     trials,
		Seed:          seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSTART X\tSTART Y\tHEADING\tDONE\tTIME\tCROSS RMS")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%.3f\t%.3f\t%.1f\t%t\t%.2fs\t%.4f\n",
			r.TrialID, r.Start.X, r.Start.Y, r.Start.Heading, r.Completed, r.Elapsed.Seconds(), r.CrossRMS)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	completed, failed := automation.MonteCarloStats(results)
	fmt.Printf("\ncompleted %d of %d (%d failed)\n", completed, len(results), failed)
	return nil
}
