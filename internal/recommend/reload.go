package recommend

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/metrics"
)

// Reloader rebuilds the session from a source and publishes it through a Holder.
// A failed rebuild leaves the current session in place.
type Reloader struct {
	holder *Holder
	src    Source
	opts   Options
	logger *zap.Logger
	// mu serialises rebuilds so two bursts of file changes never race.
	mu sync.Mutex
}

// NewReloader returns a reloader for src.
func NewReloader(h *Holder, src Source, opts Options) *Reloader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reloader{holder: h, src: src, opts: opts, logger: logger}
}

// Source returns the files the reloader reads.
func (r *Reloader) Source() Source { return r.src }

// Reload builds a new session and swaps it in. The previous session is closed
// once its in-flight queries finish.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	next, err := Load(ctx, r.src, r.opts)
	metrics.RecordReload(err)
	if err != nil {
		r.logger.Warn("Session reload failed; keeping current session", zap.Error(err))
		return err
	}
	if prev := r.holder.Swap(next); prev != nil {
		go func() { _ = prev.Close() }()
	}
	r.logger.Info("Session reloaded", zap.Duration("took", time.Since(start)))
	return nil
}
