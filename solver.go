package main

import (
	"context"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
)

// Defaults for the voltage sweep.
const (
	DefaultStep         = 1e-4 // mV
	DefaultTolerance    = 1e-2 // °C, two decimal places
	DefaultClusterGap   = 0.5  // mV
	DefaultMaxSolutions = 4    // maxAnswers - 1
	DefaultInputBound   = 5000 // °C, sensor sanity guard

	// maxSweepSamples bounds the samples per segment so the sweep index fits an int32.
	maxSweepSamples = math.MaxInt32
)

// SolverConfig holds the sweep parameters.
type SolverConfig struct {
	Step         float64
	Tolerance    float64
	ClusterGap   float64
	MaxSolutions int
	InputBound   float64
	CacheSize    int
}

func defaultSolverConfig() SolverConfig {
	return SolverConfig{
		Step:         DefaultStep,
		Tolerance:    DefaultTolerance,
		ClusterGap:   DefaultClusterGap,
		MaxSolutions: DefaultMaxSolutions,
		InputBound:   DefaultInputBound,
	}
}

// SolverOption is a functional option for NewSolver.
type SolverOption = Option[*SolverConfig]

// WithStep sets the sweep increment in mV.
func WithStep(step float64) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if !(step > 0) {
			return opErr("solver.with_step", KindInvalidConfig, fmt.Errorf("%w: step must be > 0, got %g", ErrInvalidConfig, step))
		}
		c.Step = step
		return nil
	})
}

// WithTolerance sets the match tolerance in °C.
func WithTolerance(tol float64) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if !(tol > 0) {
			return opErr("solver.with_tolerance", KindInvalidConfig, fmt.Errorf("%w: tolerance must be > 0, got %g", ErrInvalidConfig, tol))
		}
		c.Tolerance = tol
		return nil
	})
}

// WithClusterGap sets the voltage distance above which a match starts a new root.
func WithClusterGap(gap float64) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if gap < 0 {
			return opErr("solver.with_cluster_gap", KindInvalidConfig, fmt.Errorf("%w: cluster gap must be >= 0, got %g", ErrInvalidConfig, gap))
		}
		c.ClusterGap = gap
		return nil
	})
}

// WithMaxSolutions bounds the number of distinct roots reported per target.
func WithMaxSolutions(n int) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if n < 1 {
			return opErr("solver.with_max_solutions", KindInvalidConfig, fmt.Errorf("%w: max solutions must be >= 1, got %d", ErrInvalidConfig, n))
		}
		c.MaxSolutions = n
		return nil
	})
}

// WithInputBound sets the magnitude above which a target is rejected outright.
func WithInputBound(bound float64) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if !(bound > 0) {
			return opErr("solver.with_input_bound", KindInvalidConfig, fmt.Errorf("%w: input bound must be > 0, got %g", ErrInvalidConfig, bound))
		}
		c.InputBound = bound
		return nil
	})
}

// WithCacheSize enables an LRU of solved targets. Zero disables it.
func WithCacheSize(n int) SolverOption {
	return newOption(func(c *SolverConfig) error {
		if n < 0 {
			return opErr("solver.with_cache_size", KindInvalidConfig, fmt.Errorf("%w: cache size must be >= 0, got %d", ErrInvalidConfig, n))
		}
		c.CacheSize = n
		return nil
	})
}

// Solution is the set of voltages reproducing one target temperature.
type Solution struct {
	Target   float64
	Segment  int
	Voltages []float64 // ascending, one representative per root
	Samples  int       // evaluated sweep points
	Singular int       // sweep points skipped for a vanishing denominator
}

// Slots returns Voltages padded with the 0 sentinel to exactly width entries.
// Extra voltages beyond width are dropped.
func (s Solution) Slots(width int) []float64 {
	out := make([]float64, width)
	copy(out, s.Voltages)
	return out
}

// Solver finds the voltages that map to a target temperature by sweeping the
// selected segment's voltage domain. It is safe for concurrent use.
type Solver struct {
	model *Model
	cfg   SolverConfig
	cache *lru.Cache
}

// NewSolver creates a solver over model.
func NewSolver(model *Model, opts ...SolverOption) (*Solver, error) {
	if model == nil {
		return nil, opErr("solver.new", KindInvalidModel, fmt.Errorf("%w: nil model", ErrInvalidModel))
	}
	cfg := defaultSolverConfig()
	if err := applyOptions(&cfg, opts...); err != nil {
		return nil, err
	}
	for i, seg := range model.Segments() {
		if n := (seg.VoltageMax - seg.VoltageMin) / cfg.Step; !(n <= maxSweepSamples) {
			return nil, opErr("solver.new", KindInvalidConfig,
				fmt.Errorf("%w: step %g gives %.3g samples over segment %d, limit %d", ErrInvalidConfig, cfg.Step, n, i, maxSweepSamples))
		}
	}
	s := &Solver{model: model, cfg: cfg}
	if cfg.CacheSize > 0 {
		c, err := lru.New(cfg.CacheSize)
		if err != nil {
			return nil, opErr("solver.new", KindInvalidConfig, err)
		}
		s.cache = c
	}
	return s, nil
}

// Config returns the effective sweep parameters.
func (s *Solver) Config() SolverConfig { return s.cfg }

// Model returns the calibration model the solver sweeps.
func (s *Solver) Model() *Model { return s.model }

// CheckTarget validates t against the input bound.
func (s *Solver) CheckTarget(t float64) error {
	return checkBound(t, s.cfg.InputBound)
}

func checkBound(t, bound float64) error {
	if math.IsNaN(t) || math.Abs(t) > bound {
		return &OpError{
			Op:   "solver.check_target",
			Kind: KindOutOfRange,
			Err:  fmt.Errorf("%w: %g is an invalid input (|t| > %g)", ErrOutOfRange, t, bound),
		}
	}
	return nil
}

// Solve returns the distinct voltages whose predicted temperature is within
// tolerance of t. Matches closer than the cluster gap to the previous match
// belong to the same root; each root is represented by its best sample.
func (s *Solver) Solve(t float64) (Solution, error) {
	if err := s.CheckTarget(t); err != nil {
		return Solution{}, err
	}
	if s.cache != nil {
		if v, ok := s.cache.Get(t); ok {
			sol := v.(Solution)
			sol.Voltages = append([]float64(nil), sol.Voltages...)
			return sol, nil
		}
	}

	idx, seg, err := s.model.SelectSegment(t)
	if err != nil {
		return Solution{}, err
	}

	sol := s.sweep(seg, t)
	sol.Segment = idx
	if sol.Singular > 0 {
		L().Debug("solver.singular_samples", "target", t, "segment", seg.Name, "skipped", sol.Singular)
	}
	if s.cache != nil {
		cached := sol
		cached.Voltages = append([]float64(nil), sol.Voltages...)
		s.cache.Add(t, cached)
	}
	return sol, nil
}

func (s *Solver) sweep(seg Segment, t float64) Solution {
	sol := Solution{Target: t}

	n := int(math.Floor((seg.VoltageMax-seg.VoltageMin)/s.cfg.Step + 1e-9))
	var (
		haveMatch bool
		lastV     float64
		bestErr   float64
	)
	for i := 0; i <= n; i++ {
		v := seg.VoltageMin + float64(i)*s.cfg.Step
		sol.Samples++

		predicted, err := seg.EvaluateChecked(v)
		if err != nil {
			sol.Singular++
			continue
		}
		diff := math.Abs(predicted - t)
		if diff >= s.cfg.Tolerance {
			continue
		}

		if !haveMatch || math.Abs(v-lastV) > s.cfg.ClusterGap {
			if len(sol.Voltages) == s.cfg.MaxSolutions {
				break
			}
			sol.Voltages = append(sol.Voltages, v)
			bestErr = diff
		} else if diff < bestErr {
			sol.Voltages[len(sol.Voltages)-1] = v
			bestErr = diff
		}
		haveMatch = true
		lastV = v
	}
	return sol
}

// SolveBatch solves every target on up to workers goroutines and returns the
// solutions in input order. The first error aborts the batch.
func (s *Solver) SolveBatch(ctx context.Context, temps []float64, workers int) ([]Solution, error) {
	if workers < 1 {
		workers = 1
	}
	L().Debug("solver.batch_start", "targets", len(temps), "workers", workers)

	out := make([]Solution, len(temps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range temps {
		i, t := i, t
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sol, err := s.Solve(t)
			if err != nil {
				return fmt.Errorf("target #%d: %w", i+1, err)
			}
			out[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	L().Debug("solver.batch_done", "targets", len(temps))
	return out, nil
}
