package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"autoposter/internal/config"
)

// Options describes logger construction parameters. Records below error
// level go to OutputPaths and the rest to ErrorOutputPaths. A path is
// "stdout", "stderr", or a file that is created and appended to.
type Options struct {
	Level            string
	Format           string
	OutputPaths      []string
	ErrorOutputPaths []string
	Development      bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	addSource := opts.Development || level.Level() <= slog.LevelDebug

	sinks := sinkSet{}
	out, err := sinks.writer(opts.OutputPaths, "stdout")
	if err != nil {
		return nil, err
	}
	errOut, err := sinks.writer(opts.ErrorOutputPaths, "stderr")
	if err != nil {
		return nil, err
	}

	build := func(w io.Writer) slog.Handler {
		if format == "json" {
			return newJSONHandler(w, level, addSource)
		}
		return newConsoleHandler(w, level, addSource)
	}
	return slog.New(&splitHandler{out: build(out), err: build(errOut)}), nil
}

// NewFromConfig logs to stdout and the configured log file, with errors on
// stderr and the same file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	outputs := []string{"stdout"}
	errOutputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		outputs = append(outputs, cfg.LogPath())
		errOutputs = append(errOutputs, cfg.LogPath())
	}
	return New(Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// sinkSet opens each destination once so a file shared by the output and
// error lists is a single descriptor.
type sinkSet map[string]io.Writer

func (s sinkSet) writer(paths []string, fallback string) (io.Writer, error) {
	var writers []io.Writer
	seen := map[string]bool{}
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		w, err := s.open(path)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return s.open(fallback)
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func (s sinkSet) open(path string) (io.Writer, error) {
	if w, ok := s[path]; ok {
		return w, nil
	}
	var w io.Writer
	switch path {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		w = file
	}
	locked := &lockedWriter{w: w}
	s[path] = locked
	return locked, nil
}

// lockedWriter serialises writes from every handler sharing one destination.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
