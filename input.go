package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// AllInputs asks ReadTemperatures to read every value until EOF.
const AllInputs = -1

// ValidateCount rejects a requested input count that is neither positive nor AllInputs.
func ValidateCount(count int) error {
	if count > 0 || count == AllInputs {
		return nil
	}
	return &OpError{
		Op:   "input.validate_count",
		Kind: KindInvalidInputCount,
		Err:  fmt.Errorf("%w: %d (must be > 0)", ErrInvalidInputCount, count),
	}
}

// ReadTemperatures reads whitespace separated target temperatures from r.
// Reading stops at the first value whose magnitude exceeds bound.
func ReadTemperatures(r io.Reader, count int, bound float64) ([]float64, error) {
	return scanTemperatures(newTokenScanner(r), count, bound)
}

// ReadCount reads the requested number of inputs from the next token.
func ReadCount(sc *bufio.Scanner) (int, error) {
	tok, err := nextToken(sc)
	if err != nil {
		return 0, opErr("input.read_count", KindInvalidInputCount, fmt.Errorf("%w: %v", ErrInvalidInputCount, err))
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, opErr("input.read_count", KindInvalidInputCount, fmt.Errorf("%w: %q", ErrInvalidInputCount, tok))
	}
	if n <= 0 {
		return 0, opErr("input.read_count", KindInvalidInputCount, fmt.Errorf("%w: %d (must be > 0)", ErrInvalidInputCount, n))
	}
	return n, nil
}

func newTokenScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return sc
}

func scanTemperatures(sc *bufio.Scanner, count int, bound float64) ([]float64, error) {
	if err := ValidateCount(count); err != nil {
		return nil, err
	}

	var temps []float64
	if count > 0 {
		temps = make([]float64, 0, count)
	}
	for count == AllInputs || len(temps) < count {
		tok, err := nextToken(sc)
		if errors.Is(err, io.EOF) {
			if count == AllInputs {
				break
			}
			return nil, opErr("input.read_temperatures", KindInvalidInput,
				fmt.Errorf("%w: expected %d values, got %d", ErrInvalidInput, count, len(temps)))
		}
		if err != nil {
			return nil, opErr("input.read_temperatures", KindIO, err)
		}

		t, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, opErr("input.read_temperatures", KindInvalidInput,
				fmt.Errorf("%w: value #%d %q is not a number", ErrInvalidInput, len(temps)+1, tok))
		}
		if err := checkBound(t, bound); err != nil {
			return nil, err
		}
		temps = append(temps, t)
	}
	if len(temps) == 0 {
		return nil, opErr("input.read_temperatures", KindInvalidInput, fmt.Errorf("%w: no values", ErrInvalidInput))
	}
	return temps, nil
}

func nextToken(sc *bufio.Scanner) (string, error) {
	if sc.Scan() {
		return sc.Text(), nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// InputSummary mirrors the console line printed after reading inputs.
func InputSummary(temps []float64) string {
	if len(temps) == 0 {
		return "Obtained 0 inputs"
	}
	return fmt.Sprintf("Obtained %d inputs | firstInput : %s | lastInput : %s",
		len(temps), formatNumber(temps[0]), formatNumber(temps[len(temps)-1]))
}
