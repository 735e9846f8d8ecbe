package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// OutputWidth is the number of voltage columns in a CSV row.
const OutputWidth = 4

// CSVHeader is the first line of every result file.
const CSVHeader = "Input T, Output V1, Output V2, Output V3, Output V4"

// Compression selects how a result file is encoded on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionS2   Compression = "s2"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression accepts none|zstd|s2|lz4; empty means none.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd, CompressionS2, CompressionLZ4:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unsupported compression %q (expected none|zstd|s2|lz4)", ErrInvalidConfig, s)
	}
}

// Ext is the file suffix appended after .csv.
func (c Compression) Ext() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionS2:
		return ".s2"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// wrap returns a writer that encodes into w; closing it flushes the encoder
// but leaves w open.
func (c Compression) wrap(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case CompressionZstd:
		return zstd.NewWriter(w)
	case CompressionS2:
		return s2.NewWriter(w), nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

// NewDecompressor undoes wrap; used to read result files back.
func (c Compression) NewDecompressor(r io.Reader) (io.Reader, func(), error) {
	switch c {
	case CompressionZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case CompressionS2:
		return s2.NewReader(r), func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	default:
		return r, func() {}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// WriteCSV writes the header and one fixed-width row per solution.
func WriteCSV(w io.Writer, solutions []Solution) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, CSVHeader); err != nil {
		return err
	}
	fields := make([]string, 0, OutputWidth+1)
	for _, sol := range solutions {
		fields = fields[:0]
		fields = append(fields, formatNumber(sol.Target))
		for _, v := range sol.Slots(OutputWidth) {
			fields = append(fields, formatNumber(v))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, ", ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// formatNumber prints f with six significant digits, trailing zeros dropped.
func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'g', 6, 64)
	if s == "-0" {
		return "0"
	}
	return s
}

// OutputName returns the timestamped result file name.
func OutputName(clk clock.Clock, c Compression) string {
	return fmt.Sprintf("out-%d.csv%s", clk.Now().Unix(), c.Ext())
}

// WriteResultFile writes solutions as CSV to a timestamped file in dir and
// returns its path.
func WriteResultFile(dir string, clk clock.Clock, c Compression, solutions []Solution) (path string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &OpError{Op: "output.write_result", Kind: KindIO, Path: dir, Err: err}
	}
	path = filepath.Join(dir, OutputName(clk, c))

	f, err := os.Create(path)
	if err != nil {
		return "", &OpError{Op: "output.write_result", Kind: KindIO, Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &OpError{Op: "output.write_result", Kind: KindIO, Path: path, Err: cerr}
		}
	}()

	enc, err := c.wrap(f)
	if err != nil {
		return "", &OpError{Op: "output.write_result", Kind: KindIO, Path: path, Err: err}
	}
	if err := WriteCSV(enc, solutions); err != nil {
		_ = enc.Close()
		return "", &OpError{Op: "output.write_result", Kind: KindIO, Path: path, Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &OpError{Op: "output.write_result", Kind: KindIO, Path: path, Err: err}
	}

	L().Info("output.written", "path", path, "rows", len(solutions), "compression", string(c))
	return path, nil
}

// NewSolveReport builds the JSON report for a finished batch.
func NewSolveReport(clk clock.Clock, solver *Solver, csvPath string, solutions []Solution) SolveReport {
	cfg := solver.Config()
	rep := SolveReport{
		RunID:       uuid.NewString(),
		GeneratedAt: clk.Now().UTC().Format(time.RFC3339),
		Fingerprint: fmt.Sprintf("%016x", solver.Model().Fingerprint()),
		Step:        cfg.Step,
		Tolerance:   cfg.Tolerance,
		ClusterGap:  cfg.ClusterGap,
		CSVPath:     csvPath,
		Results:     make([]SolveRecord, 0, len(solutions)),
	}
	for _, sol := range solutions {
		v := sol.Voltages
		if v == nil {
			v = []float64{}
		}
		rep.Results = append(rep.Results, SolveRecord{Target: sol.Target, Segment: sol.Segment, Voltages: v})
	}
	return rep
}

// WriteJSON writes the report to path, indented.
func WriteJSON(path string, rep SolveReport) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return &OpError{Op: "output.write_json", Kind: KindIO, Path: path, Err: err}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return &OpError{Op: "output.write_json", Kind: KindIO, Path: path, Err: err}
	}
	return nil
}
