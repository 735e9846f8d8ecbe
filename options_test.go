package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	cfg := defaultSolverConfig()
	err := applyOptions(&cfg, WithStep(0.001), nil, WithMaxSolutions(2))
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Step)
	assert.Equal(t, 2, cfg.MaxSolutions)
}

func TestApplyOptionsStopsAtFirstError(t *testing.T) {
	cfg := defaultSolverConfig()
	boom := errors.New("boom")
	called := false

	err := applyOptions(&cfg,
		newOption(func(*SolverConfig) error { return boom }),
		newOption(func(*SolverConfig) error { called = true; return nil }),
	)
	require.ErrorIs(t, err, boom)
	assert.False(t, called)
}
