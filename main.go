package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/facebookgo/clock"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd(clock.New())
	cmd.SetOut(colorable.NewColorableStdout())
	cmd.SetErr(colorable.NewColorableStderr())
	if err := execute(cmd); err != nil {
		os.Exit(exitCode(err))
	}
}

// execute runs cmd and always releases the log file, including on failed runs.
func execute(cmd *cobra.Command) error {
	defer func() { _ = CloseLogger() }()
	return cmd.Execute()
}

type solveFlags struct {
	configPath string
	calPath    string
	inputPath  string
	count      int
	outDir     string
	compress   string
	jsonOut    string
	workers    int
	step       float64
	tolerance  float64
}

func newRootCmd(clk clock.Clock) *cobra.Command {
	var (
		debug   bool
		logPath string
	)

	sf := &solveFlags{}
	root := &cobra.Command{
		Use:           "thermocouple [temperature...]",
		Short:         "Estimate type K thermocouple voltages for target temperatures",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			_, err := SetupLogger(LogConfig{Path: logPath, Debug: debug})
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportErr(cmd, runSolve(cmd, clk, sf, args))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&logPath, "log-file", "", "write JSON logs to this file instead of stderr")
	bindSolveFlags(root, sf)

	solve := &cobra.Command{
		Use:   "solve [temperature...]",
		Short: "Solve target temperatures and write a timestamped CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportErr(cmd, runSolve(cmd, clk, sf, args))
		},
	}
	bindSolveFlags(solve, sf)

	root.AddCommand(solve, evalCmd(), segmentsCmd())
	return root
}

func bindSolveFlags(c *cobra.Command, sf *solveFlags) {
	c.Flags().StringVar(&sf.configPath, "config", "", "path to YAML config")
	c.Flags().StringVar(&sf.calPath, "cal", "", "path to JSON coefficient table (default: built-in type K)")
	c.Flags().StringVarP(&sf.inputPath, "input", "i", "", "read temperatures from this file")
	c.Flags().IntVarP(&sf.count, "count", "n", AllInputs, "number of temperatures to read")
	c.Flags().StringVar(&sf.outDir, "out-dir", "", "directory for the result CSV")
	c.Flags().StringVar(&sf.compress, "compress", "", "result file compression: none|zstd|s2|lz4")
	c.Flags().StringVar(&sf.jsonOut, "json-out", "", "also write a JSON report to this path")
	c.Flags().IntVar(&sf.workers, "workers", 0, "parallel solver workers, 0 = one per CPU (default: config value, else 1)")
	c.Flags().Float64Var(&sf.step, "step", DefaultStep, "sweep step in mV")
	c.Flags().Float64Var(&sf.tolerance, "tolerance", DefaultTolerance, "match tolerance in °C")
}

func runSolve(cmd *cobra.Command, clk clock.Clock, sf *solveFlags, args []string) error {
	cfg, err := resolveConfig(cmd, sf)
	if err != nil {
		return err
	}

	model, err := LoadModel(cfg.Calibration)
	if err != nil {
		return err
	}
	solver, err := NewSolver(model, cfg.SolverOptions()...)
	if err != nil {
		return err
	}
	L().Info("solve.start", "fingerprint", fmt.Sprintf("%016x", model.Fingerprint()),
		"step", cfg.Step, "tolerance", cfg.Tolerance, "workers", cfg.Workers)

	count := sf.count
	if cmd.Flags().Changed("count") && count <= 0 {
		return opErr("cli.flags", KindInvalidInputCount, fmt.Errorf("%w: %d (must be > 0)", ErrInvalidInputCount, count))
	}

	temps, err := readInputs(cmd, sf.inputPath, count, cfg.InputBound, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", InputSummary(temps))

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	solutions, err := solver.SolveBatch(cmd.Context(), temps, workers)
	if err != nil {
		return err
	}

	path, err := WriteResultFile(cfg.OutputDir, clk, cfg.Compression, solutions)
	if err != nil {
		return err
	}
	if cfg.JSONOut != "" {
		if err := WriteJSON(cfg.JSONOut, NewSolveReport(clk, solver, path, solutions)); err != nil {
			return err
		}
	}
	printStatus(out, true, "SUCCESS: Output written to : "+path)
	return nil
}

func resolveConfig(cmd *cobra.Command, sf *solveFlags) (Config, error) {
	cfg := DefaultConfig()
	if sf.configPath != "" {
		var err error
		if cfg, err = LoadConfig(sf.configPath); err != nil {
			return Config{}, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("cal") {
		cfg.Calibration = sf.calPath
	}
	if flags.Changed("out-dir") {
		cfg.OutputDir = sf.outDir
	}
	if flags.Changed("compress") {
		c, err := ParseCompression(sf.compress)
		if err != nil {
			return Config{}, opErr("cli.flags", KindInvalidConfig, err)
		}
		cfg.Compression = c
	}
	if flags.Changed("json-out") {
		cfg.JSONOut = sf.jsonOut
	}
	if flags.Changed("workers") {
		cfg.Workers = sf.workers
	}
	if flags.Changed("step") {
		cfg.Step = sf.step
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = sf.tolerance
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, opErr("cli.flags", KindInvalidConfig, err)
	}
	return cfg, nil
}

func readInputs(cmd *cobra.Command, inputPath string, count int, bound float64, args []string) ([]float64, error) {
	if len(args) > 0 {
		if count != AllInputs && count != len(args) {
			return nil, opErr("cli.args", KindInvalidInput,
				fmt.Errorf("%w: --count %d but %d temperatures given", ErrInvalidInput, count, len(args)))
		}
		temps := make([]float64, 0, len(args))
		for _, a := range args {
			t, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return nil, opErr("cli.args", KindInvalidInput, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, a))
			}
			if err := checkBound(t, bound); err != nil {
				return nil, err
			}
			temps = append(temps, t)
		}
		return temps, nil
	}

	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return nil, &OpError{Op: "cli.read_input", Kind: KindIO, Path: inputPath, Err: err}
		}
		defer f.Close()
		return ReadTemperatures(f, count, bound)
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) && count == AllInputs {
		return promptInputs(in, cmd.OutOrStdout(), bound)
	}
	return ReadTemperatures(in, count, bound)
}

// promptInputs runs the console dialogue: a count, then that many values.
func promptInputs(in io.Reader, out io.Writer, bound float64) ([]float64, error) {
	sc := newTokenScanner(bufio.NewReader(in))
	fmt.Fprint(out, "\nEnter number of inputs : ")
	n, err := ReadCount(sc)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Enter %d temperatures : ", n)
	return scanTemperatures(sc, n, bound)
}

func evalCmd() *cobra.Command {
	var calPath string
	c := &cobra.Command{
		Use:   "eval <voltage-mV>",
		Short: "Print the predicted temperature for a voltage in every segment covering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return reportErr(cmd, opErr("cli.eval", KindInvalidInput, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, args[0])))
			}
			model, err := LoadModel(calPath)
			if err != nil {
				return reportErr(cmd, err)
			}
			out := cmd.OutOrStdout()
			found := false
			for i, s := range model.Segments() {
				if !s.ContainsVoltage(v) {
					continue
				}
				found = true
				t, err := s.EvaluateChecked(v)
				if err != nil {
					fmt.Fprintf(out, "segment %d (%s): %v\n", i, s.Name, err)
					continue
				}
				fmt.Fprintf(out, "segment %d (%s): %s mV -> %s C\n", i, s.Name, formatNumber(v), formatNumber(t))
			}
			if !found {
				return reportErr(cmd, opErr("cli.eval", KindOutOfRange, fmt.Errorf("%w: %g mV outside every segment domain", ErrOutOfRange, v)))
			}
			return nil
		},
	}
	c.Flags().StringVar(&calPath, "cal", "", "path to JSON coefficient table")
	return c
}

func segmentsCmd() *cobra.Command {
	var calPath string
	c := &cobra.Command{
		Use:   "segments",
		Short: "List calibration segments and the table fingerprint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, err := LoadModel(calPath)
			if err != nil {
				return reportErr(cmd, err)
			}
			out := cmd.OutOrStdout()
			for i, s := range model.Segments() {
				fmt.Fprintf(out, "%d  %-12s T [%g, %g] C  V [%g, %g] mV\n", i, s.Name, s.TempMin, s.TempMax, s.VoltageMin, s.VoltageMax)
			}
			fmt.Fprintf(out, "fingerprint %016x\n", model.Fingerprint())
			return nil
		},
	}
	c.Flags().StringVar(&calPath, "cal", "", "path to JSON coefficient table")
	return c
}

func reportErr(cmd *cobra.Command, err error) error {
	if err != nil {
		printStatus(cmd.ErrOrStderr(), false, "ERROR : "+err.Error())
	}
	return err
}

type statusTheme struct {
	OK  lipgloss.Style
	Err lipgloss.Style
}

// newStatusTheme binds the styles to w's colour profile, so non-terminal
// writers get plain text.
func newStatusTheme(w io.Writer) statusTheme {
	return statusThemeFor(lipgloss.NewRenderer(w))
}

func statusThemeFor(r *lipgloss.Renderer) statusTheme {
	return statusTheme{
		OK:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Err: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

func (t statusTheme) print(w io.Writer, ok bool, msg string) {
	style := t.Err
	if ok {
		style = t.OK
	}
	fmt.Fprintf(w, "\n%s\n", style.Render(msg))
}

func printStatus(w io.Writer, ok bool, msg string) {
	newStatusTheme(w).print(w, ok, msg)
}

// exitCode is 2 for rejected input or configuration, 1 for everything else.
func exitCode(err error) int {
	switch KindOf(err) {
	case KindInvalidInputCount, KindInvalidInput, KindOutOfRange, KindInvalidConfig:
		return 2
	default:
		return 1
	}
}
