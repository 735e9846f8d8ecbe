package main

import (
	"errors"
	"strings"
)

// Sentinel errors for broad classification.
var (
	ErrInvalidInputCount   = errors.New("invalid input count")
	ErrOutOfRange          = errors.New("temperature out of range")
	ErrSegmentNotFound     = errors.New("no calibration segment for temperature")
	ErrDivisionSingularity = errors.New("rational polynomial denominator is singular")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidConfig       = errors.New("invalid config")
	ErrInvalidModel        = errors.New("invalid calibration model")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindInvalidInputCount ErrorKind = "invalid_input_count"
	KindOutOfRange        ErrorKind = "out_of_range_input"
	KindSegmentNotFound   ErrorKind = "segment_not_found"
	KindSingularity       ErrorKind = "division_singularity"
	KindInvalidInput      ErrorKind = "invalid_input"
	KindInvalidConfig     ErrorKind = "invalid_config"
	KindInvalidModel      ErrorKind = "invalid_model"
	KindIO                ErrorKind = "io"
)

// OpError records which step of a solve run failed, its kind, and the file
// involved, if any.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string
	Err  error
}

// Error renders as "op [kind] path: cause", e.g.
// "config.load [invalid_config] cfg.yaml: invalid config: ...".
func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" [")
	b.WriteString(string(e.Kind))
	b.WriteByte(']')
	if e.Path != "" {
		b.WriteByte(' ')
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the kind of the outermost OpError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) && oe != nil {
		return oe.Kind
	}
	return ""
}

// IsKind reports whether err carries an OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func opErr(op string, kind ErrorKind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}
