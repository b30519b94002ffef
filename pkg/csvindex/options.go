package csvindex

import (
	"context"
	"log/slog"
	"time"
)

// Progress reports how far an index build has come.
type Progress struct {
	// Bytes is the number of source bytes read so far.
	Bytes int64
	// Records is the number of record starts seen so far, including
	// skipped comment and empty lines.
	Records int
}

// Option configures Build, BuildFile, Open and OpenFile.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	progress func(Progress)
}

func newConfig(options []Option) *config {
	c := &config{}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// WithLogger logs start and finish events to logger. Nothing is logged by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithProgress calls fn from the building goroutine after every read from
// the source.
func WithProgress(fn func(Progress)) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// event logs one stage of an operation.
func (c *config) event(ctx context.Context, level slog.Level, comp, stage string, began time.Time, attrs ...slog.Attr) {
	if c.logger == nil {
		return
	}
	attrs = append(attrs,
		slog.String("comp", comp),
		slog.String("stage", stage),
	)
	if !began.IsZero() {
		attrs = append(attrs, slog.Int64("dur_ms", time.Since(began).Milliseconds()))
	}
	c.logger.LogAttrs(ctx, level, "csvindex "+comp+" "+stage, attrs...)
}
