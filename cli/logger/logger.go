package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Options struct {
	Level  string `doc:"log from debug, info, warn or error"`
	File   string `doc:"append logs to file"`
	Format string `doc:"format logs as text or json"         default:"text"`
	Source bool   `doc:"log the source file and line"`
}

func level(option string) (slog.Leveler, bool) {
	switch strings.ToLower(option) {
	case "":
		return nil, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return nil, false
	}
}

// New builds a logger from options and returns the closer of its output file.
// Invalid options are reset to their defaults and reported as warnings by the
// returned logger.
func New(options *Options) (*slog.Logger, io.Closer) {
	return newLogger(options, os.Stdout)
}

type warning struct {
	msg  string
	args []any
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(options *Options, stdout io.Writer) (*slog.Logger, io.Closer) {
	var warnings []warning

	leveler, ok := level(options.Level)
	if !ok {
		options.Level = ""
		warnings = append(warnings, warning{"could not parse logger level", nil})
	}

	var (
		output io.Writer = stdout
		closer io.Closer = nopCloser{}
	)
	switch options.File {
	case "", "-":
	case os.DevNull:
		return slog.New(slog.DiscardHandler), closer
	default:
		f, err := os.OpenFile(options.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			options.File = ""
			warnings = append(warnings, warning{"could not open logger file", []any{"err", err}})
		} else {
			output, closer = f, f
		}
	}

	opts := &slog.HandlerOptions{Level: leveler, AddSource: options.Source}
	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		options.Format = "text"
		handler = slog.NewTextHandler(output, opts)
		warnings = append(warnings, warning{"could not parse logger format", nil})
	}

	logger := slog.New(handler)
	for _, w := range warnings {
		logger.Warn(w.msg, w.args...)
	}
	return logger, closer
}
