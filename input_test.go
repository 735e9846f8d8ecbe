package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTemperatures(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
		want  []float64
	}{
		{"one per line", "-200\n0\n25.5\n", 3, []float64{-200, 0, 25.5}},
		{"tokens on one line", "1 2\t3", 3, []float64{1, 2, 3}},
		{"count stops early", "1\n2\n3\n4\n", 2, []float64{1, 2}},
		{"read all", "10\n20\n\n30\n", AllInputs, []float64{10, 20, 30}},
		{"bound is inclusive", "5000 -5000", AllInputs, []float64{5000, -5000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadTemperatures(strings.NewReader(tt.input), tt.count, DefaultInputBound)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadTemperaturesInvalidCount(t *testing.T) {
	for _, count := range []int{0, -2, -100} {
		_, err := ReadTemperatures(strings.NewReader("1 2 3"), count, DefaultInputBound)
		require.ErrorIs(t, err, ErrInvalidInputCount, "count %d", count)
		assert.True(t, IsKind(err, KindInvalidInputCount))
	}
}

func TestReadTemperaturesOutOfRangeAbortsBatch(t *testing.T) {
	got, err := ReadTemperatures(strings.NewReader("25\n6000\n50\n"), 3, DefaultInputBound)
	require.ErrorIs(t, err, ErrOutOfRange)
	assert.True(t, IsKind(err, KindOutOfRange))
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "6000")

	_, err = ReadTemperatures(strings.NewReader("-5000.1"), AllInputs, DefaultInputBound)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadTemperaturesInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"too few values", "1 2", 3},
		{"not a number", "1 abc", 2},
		{"empty", "", AllInputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTemperatures(strings.NewReader(tt.input), tt.count, DefaultInputBound)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, IsKind(err, KindInvalidInput))
		})
	}
}

func TestReadCount(t *testing.T) {
	n, err := ReadCount(newTokenScanner(strings.NewReader("3\n1 2 3")))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, in := range []string{"0", "-1", "x", ""} {
		_, err := ReadCount(newTokenScanner(strings.NewReader(in)))
		require.ErrorIs(t, err, ErrInvalidInputCount, "input %q", in)
	}
}

func TestInputSummary(t *testing.T) {
	assert.Equal(t, "Obtained 3 inputs | firstInput : -200 | lastInput : 25.5",
		InputSummary([]float64{-200, 0, 25.5}))
	assert.Equal(t, "Obtained 0 inputs", InputSummary(nil))
}
