package stacks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"go.uber.org/zap"
)

// Monitoring strategies
const (
	ModePolling   = "polling"
	ModeStreaming = "streaming"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultRetryDelay   = 5 * time.Second
)

// Watcher detects deposits and forwards each one to a sink
type Watcher interface {
	Start(ctx context.Context, sink bridge.EventSink) error
	Stop()
	Status() bridge.MonitoringState
}

// Checkpointer persists the last fully processed height between restarts
type Checkpointer interface {
	LoadHeight(ctx context.Context, chain string) (uint64, bool, error)
	SaveHeight(ctx context.Context, chain string, height uint64) error
}

// WatchConfig configures the monitoring loop
type WatchConfig struct {
	Mode         string
	WSURL        string
	PollInterval time.Duration
	RetryDelay   time.Duration
	// StartHeight is the first height to scan; zero resumes from the checkpoint or the tip
	StartHeight uint64
	// MaxDepositAttempts bounds non-transient hand-off failures per deposit
	MaxDepositAttempts int
}

// NewWatcher builds the watcher for cfg.Mode
func NewWatcher(api API, scan ScanConfig, cfg WatchConfig, checkpoints Checkpointer, logger *zap.Logger) (Watcher, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Mode {
	case ModePolling, "":
		cfg.Mode = ModePolling
		return &PollingWatcher{base: newBase(api, scan, cfg, checkpoints, logger)}, nil
	case ModeStreaming:
		if cfg.WSURL == "" {
			return nil, fmt.Errorf("%w: streaming mode requires a websocket url", bridge.ErrFatalStartup)
		}
		return &StreamingWatcher{base: newBase(api, scan, cfg, checkpoints, logger)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown monitoring mode %q", bridge.ErrFatalStartup, cfg.Mode)
	}
}

// base holds the lifecycle and height tracking shared by both strategies
type base struct {
	api         API
	scanner     *scanner
	cfg         WatchConfig
	chain       string
	checkpoints Checkpointer
	logger      *zap.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	running bool

	initialized atomic.Bool
	lastHeight  atomic.Uint64
}

func newBase(api API, scan ScanConfig, cfg WatchConfig, checkpoints Checkpointer, logger *zap.Logger) *base {
	sc := newScanner(api, scan, logger)
	sc.retryDelay = cfg.RetryDelay
	if cfg.MaxDepositAttempts > 0 {
		sc.maxAttempts = cfg.MaxDepositAttempts
	}
	return &base{
		api:         api,
		scanner:     sc,
		cfg:         cfg,
		chain:       scan.Chain,
		checkpoints: checkpoints,
		logger:      logger,
	}
}

// launch runs loop in a goroutine until Stop or ctx cancellation
func (b *base) launch(ctx context.Context, loop func(ctx context.Context)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return false
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.running = true

	go func() {
		defer cancel()
		loop(runCtx)

		b.mu.Lock()
		if b.gen == gen {
			b.running = false
		}
		b.mu.Unlock()
	}()
	return true
}

// Stop cancels detection. It does not wait for a deposit that is being handed off.
func (b *base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.cancel()
	b.running = false
	b.logger.Info("Source watcher stopped", zap.Uint64("last_processed_block", b.lastHeight.Load()))
}

// Status reports the monitoring state
func (b *base) Status() bridge.MonitoringState {
	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	return bridge.MonitoringState{
		Chain:              b.chain,
		Mode:               b.cfg.Mode,
		IsMonitoring:       running,
		LastProcessedBlock: b.lastHeight.Load(),
		PendingRetries:     b.scanner.pendingCount(),
	}
}

// resolveStart picks the height before the first block to scan
func (b *base) resolveStart(ctx context.Context, tip uint64) uint64 {
	if b.cfg.StartHeight > 0 {
		return b.cfg.StartHeight - 1
	}
	if b.checkpoints != nil {
		h, ok, err := b.checkpoints.LoadHeight(ctx, b.chain)
		if err != nil {
			b.logger.Warn("Failed to load checkpoint; starting from tip", zap.Error(err))
		} else if ok {
			return h
		}
	}
	return tip
}

// catchUp re-offers queued deposits, then scans every unseen height up to tip in
// order. A height advances once its block has been read and its deposits offered;
// the saved checkpoint stays below any deposit still queued for retry.
func (b *base) catchUp(ctx context.Context, sink bridge.EventSink, tip uint64) error {
	if !b.initialized.Load() {
		b.lastHeight.Store(b.resolveStart(ctx, tip))
		b.initialized.Store(true)
		b.logger.Info("Source watcher positioned",
			zap.String("mode", b.cfg.Mode),
			zap.Uint64("last_processed_block", b.lastHeight.Load()),
			zap.Uint64("tip", tip))
	}

	if err := b.scanner.retryPending(ctx, sink); err != nil {
		return err
	}

	for h := b.lastHeight.Load() + 1; h <= tip; h++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.scanner.scanBlock(ctx, h, sink); err != nil {
			return fmt.Errorf("scan block %d: %w", h, err)
		}
		b.lastHeight.Store(h)
		metrics.BlocksProcessed.WithLabelValues(b.chain).Inc()
		metrics.LastProcessedBlock.WithLabelValues(b.chain).Set(float64(h))

		if b.checkpoints != nil {
			safe := b.scanner.checkpointFloor(h)
			if err := b.checkpoints.SaveHeight(ctx, b.chain, safe); err != nil {
				b.logger.Warn("Failed to save checkpoint", zap.Uint64("height", safe), zap.Error(err))
			}
		}
	}
	return nil
}

// sleep waits d or until ctx is done; it reports whether the loop should continue
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
