// Package main contains the thermocouple calibration model and the inverse
// solver that recovers the voltage(s) producing a requested temperature.
package main

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// singularityEpsilon is the smallest denominator magnitude accepted by EvaluateChecked.
const singularityEpsilon = 1e-12

// Segment is one temperature sub-range of the transfer function with its own
// rational polynomial. Voltages are in mV, temperatures in °C.
type Segment struct {
	Name        string
	Offset      float64    // t0
	RefVoltage  float64    // v0
	Numerator   [4]float64 // p1..p4
	Denominator [3]float64 // q1..q3, leading 1 implied
	VoltageMin  float64
	VoltageMax  float64
	TempMin     float64
	TempMax     float64
}

// Evaluate returns the predicted temperature for voltage v:
//
//	T(v) = t0 + (p1*x + p2*x^2 + p3*x^3 + p4*x^4) / (1 + q1*x + q2*x^2 + q3*x^3)
//
// where x = v - v0. The result is ±Inf or NaN when the denominator vanishes.
func (s Segment) Evaluate(v float64) float64 {
	num, den := s.terms(v)
	return num/den + s.Offset
}

// EvaluateChecked is Evaluate with an explicit guard against a vanishing
// denominator. It returns ErrDivisionSingularity instead of a non-finite value.
func (s Segment) EvaluateChecked(v float64) (float64, error) {
	num, den := s.terms(v)
	if math.Abs(den) < singularityEpsilon {
		return 0, ErrDivisionSingularity
	}
	t := num/den + s.Offset
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, ErrDivisionSingularity
	}
	return t, nil
}

// terms evaluates numerator and denominator with Horner's scheme.
func (s Segment) terms(v float64) (num, den float64) {
	x := v - s.RefVoltage
	p, q := s.Numerator, s.Denominator
	num = x * (p[0] + x*(p[1]+x*(p[2]+x*p[3])))
	den = 1 + x*(q[0]+x*(q[1]+x*q[2]))
	return num, den
}

// ContainsTemp reports whether t lies in the segment's closed temperature range.
func (s Segment) ContainsTemp(t float64) bool {
	return t >= s.TempMin && t <= s.TempMax
}

// ContainsVoltage reports whether v lies in the segment's closed voltage domain.
func (s Segment) ContainsVoltage(v float64) bool {
	return v >= s.VoltageMin && v <= s.VoltageMax
}

// Model is an ordered, read-only set of calibration segments.
type Model struct {
	segments []Segment
}

// NewModel builds a model from segments in table order and validates it.
func NewModel(segments []Segment) (*Model, error) {
	m := &Model{segments: append([]Segment(nil), segments...)}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// typeK is the type K rational approximation, -250 °C to 400 °C in three segments.
var typeK = [3]Segment{
	{
		Name:        "-250..-100",
		Offset:      -1.2147164e+02,
		RefVoltage:  -4.1790858e+00,
		Numerator:   [4]float64{+3.6069513e+01, +3.0722076e+01, +7.7913860e+00, +5.2593991e-01},
		Denominator: [3]float64{+9.3939547e-01, +2.7791285e-01, +2.5163349e-02},
		VoltageMin:  -6.404,
		VoltageMax:  -3.554,
		TempMin:     -250,
		TempMax:     -100,
	},
	{
		Name:        "-100..100",
		Offset:      -8.7935962e+00,
		RefVoltage:  -3.4489914e-01,
		Numerator:   [4]float64{+2.5678719e+01, -4.9887904e-01, -4.4705222e-01, -4.4869203e-02},
		Denominator: [3]float64{+2.3893439e-04, -2.0397750e-02, -1.8424107e-03},
		VoltageMin:  -3.554,
		VoltageMax:  4.096,
		TempMin:     -100,
		TempMax:     100,
	},
	{
		Name:        "100..400",
		Offset:      +3.1018976e+02,
		RefVoltage:  +1.2631386e+01,
		Numerator:   [4]float64{+2.4061949e+01, +4.0158622e+00, +2.6853917e-01, -9.7188544e-03},
		Denominator: [3]float64{+1.6995872e-01, +1.1413069e-02, -3.9275155e-04},
		VoltageMin:  4.096,
		VoltageMax:  16.397,
		TempMin:     100,
		TempMax:     400,
	},
}

// DefaultModel returns the built-in type K model.
func DefaultModel() *Model {
	return &Model{segments: typeK[:]}
}

// Segments returns a copy of the segment table.
func (m *Model) Segments() []Segment {
	return append([]Segment(nil), m.segments...)
}

// Len returns the number of segments.
func (m *Model) Len() int { return len(m.segments) }

// SelectSegment returns the index and segment whose temperature range contains t.
// Ranges are closed; a temperature on a shared boundary belongs to the earlier segment.
func (m *Model) SelectSegment(t float64) (int, Segment, error) {
	for i, s := range m.segments {
		if s.ContainsTemp(t) {
			return i, s, nil
		}
	}
	return -1, Segment{}, &OpError{
		Op:   "model.select_segment",
		Kind: KindSegmentNotFound,
		Err:  fmt.Errorf("%w: %g outside %s", ErrSegmentNotFound, t, m.rangeString()),
	}
}

// Validate checks domain ordering and that temperature ranges leave no gaps.
func (m *Model) Validate() error {
	if len(m.segments) == 0 {
		return opErr("model.validate", KindInvalidModel, fmt.Errorf("%w: no segments", ErrInvalidModel))
	}
	for i, s := range m.segments {
		if !(s.VoltageMin < s.VoltageMax) {
			return opErr("model.validate", KindInvalidModel,
				fmt.Errorf("%w: segment %d voltage domain [%g, %g] is empty", ErrInvalidModel, i, s.VoltageMin, s.VoltageMax))
		}
		if !(s.TempMin <= s.TempMax) {
			return opErr("model.validate", KindInvalidModel,
				fmt.Errorf("%w: segment %d temperature range [%g, %g] is inverted", ErrInvalidModel, i, s.TempMin, s.TempMax))
		}
		if i > 0 && m.segments[i-1].TempMax != s.TempMin {
			return opErr("model.validate", KindInvalidModel,
				fmt.Errorf("%w: segments %d and %d are not contiguous (%g != %g)", ErrInvalidModel, i-1, i, m.segments[i-1].TempMax, s.TempMin))
		}
	}
	return nil
}

// Fingerprint is the xxHash64 of the coefficient table in table order.
func (m *Model) Fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	for _, s := range m.segments {
		put(s.Offset)
		put(s.RefVoltage)
		for _, p := range s.Numerator {
			put(p)
		}
		for _, q := range s.Denominator {
			put(q)
		}
		put(s.VoltageMin)
		put(s.VoltageMax)
		put(s.TempMin)
		put(s.TempMax)
	}
	return d.Sum64()
}

func (m *Model) rangeString() string {
	if len(m.segments) == 0 {
		return "[]"
	}
	return fmt.Sprintf("[%g, %g]", m.segments[0].TempMin, m.segments[len(m.segments)-1].TempMax)
}
