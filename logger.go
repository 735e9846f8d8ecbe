package main

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	colorable "github.com/mattn/go-colorable"
)

// LogConfig selects the log destination and verbosity.
type LogConfig struct {
	Path  string // JSON log file; empty logs text to stderr
	Debug bool
}

var (
	logMu   sync.RWMutex
	global  = slog.New(slog.NewTextHandler(io.Discard, nil))
	logFile *os.File
)

// SetupLogger installs the process logger and returns its cleanup func.
func SetupLogger(cfg LogConfig) (func() error, error) {
	level := slog.LevelWarn
	addSource := false
	if cfg.Debug {
		level = slog.LevelDebug
		addSource = true
	}
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var (
		h slog.Handler
		f *os.File
	)
	if cfg.Path != "" {
		var err error
		f, err = os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, &OpError{Op: "logger.setup", Kind: KindIO, Path: cfg.Path, Err: err}
		}
		h = slog.NewJSONHandler(f, opts)
	} else {
		h = slog.NewTextHandler(colorable.NewColorableStderr(), opts)
	}

	logMu.Lock()
	if logFile != nil {
		_ = logFile.Close()
	}
	global = slog.New(h)
	logFile = f
	logMu.Unlock()

	L().Debug("logger.initialized", "path", cfg.Path, "debug", cfg.Debug)

	return CloseLogger, nil
}

// CloseLogger closes the log file, if any, and discards further records.
// It is safe to call more than once.
func CloseLogger() error {
	logMu.Lock()
	defer logMu.Unlock()

	var cerr error
	if logFile != nil {
		cerr = logFile.Close()
	}
	logFile = nil
	global = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cerr
}

// L returns the process logger.
func L() *slog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return global
}
