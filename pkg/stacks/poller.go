package stacks

import (
	"context"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"go.uber.org/zap"
)

// PollingWatcher periodically walks the unseen height range up to the chain tip
type PollingWatcher struct {
	*base
}

// Start begins polling in the background. Starting a running watcher is a no-op.
func (w *PollingWatcher) Start(ctx context.Context, sink bridge.EventSink) error {
	if !w.launch(ctx, func(ctx context.Context) { w.run(ctx, sink) }) {
		w.logger.Warn("Source watcher already running")
		return nil
	}
	w.logger.Info("Source watcher started",
		zap.String("mode", ModePolling),
		zap.Duration("poll_interval", w.cfg.PollInterval))
	return nil
}

func (w *PollingWatcher) run(ctx context.Context, sink bridge.EventSink) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx, sink); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Polling iteration failed; retrying",
				zap.Error(err),
				zap.Duration("retry_delay", w.cfg.RetryDelay))
			if !sleep(ctx, w.cfg.RetryDelay) {
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *PollingWatcher) poll(ctx context.Context, sink bridge.EventSink) error {
	tip, err := w.api.TipHeight(ctx)
	if err != nil {
		return err
	}
	return w.catchUp(ctx, sink, tip)
}
