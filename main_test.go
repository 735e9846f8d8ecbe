package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(mockClock(1700000000))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := execute(cmd)
	return out.String(), errOut.String(), err
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestCLISolveArgs(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runCLI(t, "", "solve", "--out-dir", dir, "--", "-200", "25")
	require.NoError(t, err)

	path := filepath.Join(dir, "out-1700000000.csv")
	assert.Contains(t, out, "Obtained 2 inputs | firstInput : -200 | lastInput : 25")
	assert.Contains(t, out, "SUCCESS: Output written to : "+path)

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, CSVHeader, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "-200, -5.89"))
	assert.True(t, strings.HasPrefix(lines[2], "25, 1.000"))
}

func TestCLIRootSolvesFromInputFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	_, _, err := runCLI(t, "", "--input", filepath.Join("testdata", "input.txt"), "--count", "3",
		"--out-dir", dir, "--compress", "none", "--json-out", jsonPath, "--workers", "2")
	require.NoError(t, err)

	lines := readLines(t, filepath.Join(dir, "out-1700000000.csv"))
	require.Len(t, lines, 4)
	assert.FileExists(t, jsonPath)
}

func TestCLISolveFromStdin(t *testing.T) {
	dir := t.TempDir()
	out, _, err := runCLI(t, "0\n100\n", "solve", "--out-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Obtained 2 inputs")
	assert.Len(t, readLines(t, filepath.Join(dir, "out-1700000000.csv")), 3)
}

func TestCLISolveWithConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "cfg.yaml")
	yaml := "output:\n  dir: " + dir + "\n  compression: s2\n"
	require.NoError(t, os.WriteFile(cfg, []byte(yaml), 0o644))

	_, _, err := runCLI(t, "", "solve", "--config", cfg, "50")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out-1700000000.csv.s2"))
}

func TestCLIErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		args []string
		kind ErrorKind
	}{
		{"zero count", "1 2", []string{"solve", "--count", "0"}, KindInvalidInputCount},
		{"negative count", "1 2", []string{"solve", "--count=-3"}, KindInvalidInputCount},
		{"out of range", "", []string{"solve", "6000"}, KindOutOfRange},
		{"out of range on stdin", "25\n-6000\n", []string{"solve"}, KindOutOfRange},
		{"no segment", "", []string{"solve", "--", "-300"}, KindSegmentNotFound},
		{"bad compression", "", []string{"solve", "--compress", "rar", "1"}, KindInvalidConfig},
		{"bad step", "", []string{"solve", "--step", "0", "1"}, KindInvalidConfig},
		{"step too fine to sweep", "", []string{"solve", "--step", "1e-20", "25"}, KindInvalidConfig},
		{"not a number", "", []string{"solve", "abc"}, KindInvalidInput},
		{"count mismatch", "", []string{"solve", "--count", "3", "1", "2"}, KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args[:1:1], append([]string{"--out-dir", t.TempDir()}, tt.args[1:]...)...)
			_, errOut, err := runCLI(t, tt.in, args...)
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
			assert.Contains(t, errOut, "ERROR : ")
		})
	}
}

func TestCLIEval(t *testing.T) {
	out, _, err := runCLI(t, "", "eval", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "segment 1 (-100..100): 0 mV ->")

	out, _, err = runCLI(t, "", "eval", "4.096")
	require.NoError(t, err)
	assert.Contains(t, out, "segment 1")
	assert.Contains(t, out, "segment 2")

	_, _, err = runCLI(t, "", "eval", "20")
	assert.True(t, IsKind(err, KindOutOfRange))
}

func TestCLISegments(t *testing.T) {
	out, _, err := runCLI(t, "", "segments", "--cal", filepath.Join("testdata", "typek.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "100..400")
	assert.Contains(t, out, "fingerprint ")
}

func TestPromptInputs(t *testing.T) {
	var out bytes.Buffer
	temps, err := promptInputs(strings.NewReader("2\n-50 75\n"), &out, DefaultInputBound)
	require.NoError(t, err)
	assert.Equal(t, []float64{-50, 75}, temps)
	assert.Contains(t, out.String(), "Enter number of inputs : ")

	_, err = promptInputs(strings.NewReader("0\n"), &out, DefaultInputBound)
	assert.True(t, IsKind(err, KindInvalidInputCount))
}

func TestExecuteClosesLogFileOnError(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	_, _, err := runCLI(t, "", "solve", "--log-file", logPath, "--out-dir", t.TempDir(), "6000")
	require.Error(t, err)
	assert.FileExists(t, logPath)

	logMu.RLock()
	defer logMu.RUnlock()
	assert.Nil(t, logFile)
}

func TestStatusTheme(t *testing.T) {
	var plain bytes.Buffer
	printStatus(&plain, false, "ERROR : boom")
	assert.Equal(t, "\nERROR : boom\n", plain.String())

	var colored bytes.Buffer
	r := lipgloss.NewRenderer(&colored)
	r.SetColorProfile(termenv.ANSI)
	statusThemeFor(r).print(&colored, true, "SUCCESS: done")
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "SUCCESS: done")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{opErr("cli.flags", KindInvalidInputCount, ErrInvalidInputCount), 2},
		{opErr("cli.args", KindInvalidInput, ErrInvalidInput), 2},
		{fmt.Errorf("target #1: %w", opErr("solver.check_target", KindOutOfRange, ErrOutOfRange)), 2},
		{opErr("solver.new", KindInvalidConfig, ErrInvalidConfig), 2},
		{opErr("model.select_segment", KindSegmentNotFound, ErrSegmentNotFound), 1},
		{&OpError{Op: "output.write", Kind: KindIO, Err: os.ErrPermission}, 1},
		{errors.New("unexpected"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}

func TestWorkersFlagUsage(t *testing.T) {
	cmd := newRootCmd(mockClock(1700000000))
	for _, c := range []*cobra.Command{cmd, findCmd(t, cmd, "solve")} {
		f := c.Flags().Lookup("workers")
		require.NotNil(t, f)
		assert.Contains(t, f.Usage, "0 = one per CPU")
	}
}

func findCmd(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	c, _, err := root.Find([]string{name})
	require.NoError(t, err)
	return c
}
