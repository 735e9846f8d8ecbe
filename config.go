package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the validated run configuration.
type Config struct {
	Step         float64
	Tolerance    float64
	ClusterGap   float64
	MaxSolutions int
	InputBound   float64
	OutputDir    string
	Compression  Compression
	JSONOut      string
	Workers      int
	CacheSize    int
	Calibration  string
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Step:         DefaultStep,
		Tolerance:    DefaultTolerance,
		ClusterGap:   DefaultClusterGap,
		MaxSolutions: DefaultMaxSolutions,
		InputBound:   DefaultInputBound,
		OutputDir:    ".",
		Compression:  CompressionNone,
		Workers:      1,
	}
}

// yamlConfig is the on-disk shape. Pointers distinguish unset from zero.
type yamlConfig struct {
	Sweep struct {
		Step         *float64 `yaml:"step"`
		Tolerance    *float64 `yaml:"tolerance"`
		ClusterGap   *float64 `yaml:"cluster_gap"`
		MaxSolutions *int     `yaml:"max_solutions"`
	} `yaml:"sweep"`
	Input struct {
		Bound *float64 `yaml:"bound"`
	} `yaml:"input"`
	Output struct {
		Dir         string `yaml:"dir"`
		Compression string `yaml:"compression"`
		JSON        string `yaml:"json"`
	} `yaml:"output"`
	Workers     *int   `yaml:"workers"`
	CacheSize   *int   `yaml:"cache_size"`
	Calibration string `yaml:"calibration"`
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindIO, Path: path, Err: err}
	}

	var dto yamlConfig
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindInvalidConfig, Path: path, Err: err}
	}

	cfg, err := mapConfig(dto)
	if err != nil {
		return Config{}, &OpError{Op: "config.load", Kind: KindInvalidConfig, Path: path, Err: err}
	}
	return cfg, nil
}

func mapConfig(dto yamlConfig) (Config, error) {
	cfg := DefaultConfig()
	if dto.Sweep.Step != nil {
		cfg.Step = *dto.Sweep.Step
	}
	if dto.Sweep.Tolerance != nil {
		cfg.Tolerance = *dto.Sweep.Tolerance
	}
	if dto.Sweep.ClusterGap != nil {
		cfg.ClusterGap = *dto.Sweep.ClusterGap
	}
	if dto.Sweep.MaxSolutions != nil {
		cfg.MaxSolutions = *dto.Sweep.MaxSolutions
	}
	if dto.Input.Bound != nil {
		cfg.InputBound = *dto.Input.Bound
	}
	if dto.Output.Dir != "" {
		cfg.OutputDir = dto.Output.Dir
	}
	c, err := ParseCompression(dto.Output.Compression)
	if err != nil {
		return Config{}, fmt.Errorf("output.compression: %w", err)
	}
	cfg.Compression = c
	cfg.JSONOut = dto.Output.JSON
	if dto.Workers != nil {
		cfg.Workers = *dto.Workers
	}
	if dto.CacheSize != nil {
		cfg.CacheSize = *dto.CacheSize
	}
	cfg.Calibration = dto.Calibration

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges that the solver options would otherwise reject later.
func (c Config) Validate() error {
	switch {
	case !(c.Step > 0):
		return fmt.Errorf("%w: sweep.step must be > 0, got %g", ErrInvalidConfig, c.Step)
	case !(c.Tolerance > 0):
		return fmt.Errorf("%w: sweep.tolerance must be > 0, got %g", ErrInvalidConfig, c.Tolerance)
	case c.ClusterGap < 0:
		return fmt.Errorf("%w: sweep.cluster_gap must be >= 0, got %g", ErrInvalidConfig, c.ClusterGap)
	case c.MaxSolutions < 1 || c.MaxSolutions > OutputWidth:
		return fmt.Errorf("%w: sweep.max_solutions must be in [1, %d], got %d", ErrInvalidConfig, OutputWidth, c.MaxSolutions)
	case !(c.InputBound > 0):
		return fmt.Errorf("%w: input.bound must be > 0, got %g", ErrInvalidConfig, c.InputBound)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	case c.CacheSize < 0:
		return fmt.Errorf("%w: cache_size must be >= 0, got %d", ErrInvalidConfig, c.CacheSize)
	}
	return nil
}

// SolverOptions translates the sweep settings into solver options.
func (c Config) SolverOptions() []SolverOption {
	return []SolverOption{
		WithStep(c.Step),
		WithTolerance(c.Tolerance),
		WithClusterGap(c.ClusterGap),
		WithMaxSolutions(c.MaxSolutions),
		WithInputBound(c.InputBound),
		WithCacheSize(c.CacheSize),
	}
}

// LoadModel reads a JSON coefficient table. An empty path yields the built-in model.
func LoadModel(path string) (*Model, error) {
	if path == "" {
		return DefaultModel(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpError{Op: "config.load_model", Kind: KindIO, Path: path, Err: err}
	}
	var table CoefficientTable
	if err := json.Unmarshal(b, &table); err != nil {
		return nil, &OpError{Op: "config.load_model", Kind: KindInvalidModel, Path: path, Err: err}
	}
	m, err := ModelFromTable(table)
	if err != nil {
		return nil, &OpError{Op: "config.load_model", Kind: KindInvalidModel, Path: path, Err: err}
	}
	return m, nil
}

// ModelFromTable converts the JSON schema into a validated model.
func ModelFromTable(table CoefficientTable) (*Model, error) {
	segs := make([]Segment, 0, len(table.Segments))
	for _, d := range table.Segments {
		segs = append(segs, Segment{
			Name:        d.Name,
			Offset:      d.T0,
			RefVoltage:  d.V0,
			Numerator:   d.P,
			Denominator: d.Q,
			VoltageMin:  d.VMin,
			VoltageMax:  d.VMax,
			TempMin:     d.TMin,
			TempMax:     d.TMax,
		})
	}
	return NewModel(segs)
}

// TableFromModel is the inverse of ModelFromTable.
func TableFromModel(m *Model) CoefficientTable {
	var table CoefficientTable
	for _, s := range m.Segments() {
		table.Segments = append(table.Segments, SegmentData{
			Name: s.Name,
			T0:   s.Offset,
			V0:   s.RefVoltage,
			P:    s.Numerator,
			Q:    s.Denominator,
			VMin: s.VoltageMin,
			VMax: s.VoltageMax,
			TMin: s.TempMin,
			TMax: s.TempMax,
		})
	}
	return table
}
