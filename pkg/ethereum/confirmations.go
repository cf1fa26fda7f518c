package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
)

// Confirmation monitoring modes
const (
	ModeSubscription = "subscription"
	ModePolling      = "polling"
)

// ConfirmationSource provides destination confirmation events
type ConfirmationSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterConfirmations(ctx context.Context, from, to uint64) ([]*bridge.Confirmation, error)
	SubscribeConfirmations(ctx context.Context, sink chan<- *bridge.Confirmation) (event.Subscription, error)
}

// ConfirmationConfig configures the confirmation watcher
type ConfirmationConfig struct {
	Chain        string
	PollInterval time.Duration
	RetryDelay   time.Duration
	// StartBlock is the first block to query; zero starts LookbackBlocks behind the tip
	StartBlock     uint64
	LookbackBlocks uint64
	// MaxBlockRange caps the span of one log query
	MaxBlockRange uint64
}

const defaultMaxBlockRange = 2000

// ConfirmationWatcher observes CrossChainMessageProcessed and DepositReceived events.
// It never gates submission.
type ConfirmationWatcher struct {
	source ConfirmationSource
	cfg    ConfirmationConfig
	logger *zap.Logger

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	running   bool
	mode      string
	handler   bridge.ConfirmationHandler
	confirmed map[[32]byte]struct{}
	deposits  map[[32]byte]struct{}

	lastBlock atomic.Uint64
}

// NewConfirmationWatcher creates a confirmation watcher
func NewConfirmationWatcher(source ConfirmationSource, cfg ConfirmationConfig, logger *zap.Logger) *ConfirmationWatcher {
	if cfg.Chain == "" {
		cfg.Chain = "ethereum"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = defaultMaxBlockRange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationWatcher{
		source:    source,
		cfg:       cfg,
		logger:    logger,
		mode:      ModePolling,
		confirmed: make(map[[32]byte]struct{}),
		deposits:  make(map[[32]byte]struct{}),
	}
}

// OnConfirmation registers the handler invoked once per newly observed event
func (w *ConfirmationWatcher) OnConfirmation(h bridge.ConfirmationHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = h
}

// Start positions the watcher and observes events in the background.
// Starting a running watcher is a no-op.
func (w *ConfirmationWatcher) Start(ctx context.Context) error {
	if w.Status().IsMonitoring {
		w.logger.Warn("Confirmation watcher already running")
		return nil
	}

	tip, err := w.source.BlockNumber(ctx)
	if err != nil {
		return err
	}
	from := w.cfg.StartBlock
	if from == 0 && tip > w.cfg.LookbackBlocks {
		from = tip - w.cfg.LookbackBlocks
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if from > 0 {
		w.lastBlock.Store(from - 1)
	} else {
		w.lastBlock.Store(0)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.gen++
	gen := w.gen
	w.cancel = cancel
	w.running = true

	go func() {
		defer cancel()
		w.run(runCtx)

		w.mu.Lock()
		if w.gen == gen {
			w.running = false
		}
		w.mu.Unlock()
	}()

	w.logger.Info("Confirmation watcher started", zap.Uint64("from_block", from), zap.Uint64("tip", tip))
	return nil
}

// Stop halts observation
func (w *ConfirmationWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cancel()
	w.running = false
	w.logger.Info("Confirmation watcher stopped", zap.Uint64("last_processed_block", w.lastBlock.Load()))
}

// Status reports the monitoring state
func (w *ConfirmationWatcher) Status() bridge.MonitoringState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return bridge.MonitoringState{
		Chain:              w.cfg.Chain,
		Mode:               w.mode,
		IsMonitoring:       w.running,
		LastProcessedBlock: w.lastBlock.Load(),
	}
}

// IsConfirmed reports whether a CrossChainMessageProcessed event was seen for the id
func (w *ConfirmationWatcher) IsConfirmed(messageID [32]byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.confirmed[messageID]
	return ok
}

// ConfirmedCount is the number of distinct confirmed message ids
func (w *ConfirmationWatcher) ConfirmedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.confirmed)
}

func (w *ConfirmationWatcher) setMode(mode string) {
	w.mu.Lock()
	w.mode = mode
	w.mu.Unlock()
}

func (w *ConfirmationWatcher) run(ctx context.Context) {
	for ctx.Err() == nil {
		err := w.subscribe(ctx)
		if errors.Is(err, ErrNoSubscription) {
			w.setMode(ModePolling)
			w.pollLoop(ctx)
			return
		}
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("Confirmation subscription ended; catching up and resubscribing",
			zap.Error(err), zap.Duration("retry_delay", w.cfg.RetryDelay))
		if !sleepCtx(ctx, w.cfg.RetryDelay) {
			return
		}
		if err := w.poll(ctx); err != nil {
			w.logger.Warn("Confirmation catch-up failed", zap.Error(err))
		}
	}
}

// subscribe delivers live events until the subscription fails or ctx ends
func (w *ConfirmationWatcher) subscribe(ctx context.Context) error {
	// backfill anything between the start block and the live stream
	if err := w.poll(ctx); err != nil {
		w.logger.Warn("Confirmation backfill failed", zap.Error(err))
	}

	ch := make(chan *bridge.Confirmation, 16)
	sub, err := w.source.SubscribeConfirmations(ctx, ch)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()
	w.setMode(ModeSubscription)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case c := <-ch:
			if c.BlockNumber > w.lastBlock.Load() {
				w.lastBlock.Store(c.BlockNumber)
			}
			w.handle(c)
		}
	}
}

func (w *ConfirmationWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("Confirmation poll failed; retrying",
				zap.Error(err), zap.Duration("retry_delay", w.cfg.RetryDelay))
			if !sleepCtx(ctx, w.cfg.RetryDelay) {
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

// poll queries logs from the last processed block to the tip in MaxBlockRange chunks.
// Each completed chunk advances the last processed block.
func (w *ConfirmationWatcher) poll(ctx context.Context) error {
	tip, err := w.source.BlockNumber(ctx)
	if err != nil {
		return err
	}

	for from := w.lastBlock.Load() + 1; from <= tip; from = w.lastBlock.Load() + 1 {
		if err := ctx.Err(); err != nil {
			return err
		}
		to := tip
		if to-from >= w.cfg.MaxBlockRange {
			to = from + w.cfg.MaxBlockRange - 1
		}

		confs, err := w.source.FilterConfirmations(ctx, from, to)
		if err != nil {
			return fmt.Errorf("filter logs [%d, %d]: %w", from, to, err)
		}
		for _, c := range confs {
			w.handle(c)
		}

		w.lastBlock.Store(to)
		metrics.LastProcessedBlock.WithLabelValues(w.cfg.Chain).Set(float64(to))
	}
	return nil
}

// handle records a confirmation and invokes the handler the first time it is seen
func (w *ConfirmationWatcher) handle(c *bridge.Confirmation) {
	if c == nil {
		return
	}

	w.mu.Lock()
	var seen bool
	switch c.Kind {
	case bridge.ConfirmationMessageProcessed:
		_, seen = w.confirmed[c.MessageID]
		w.confirmed[c.MessageID] = struct{}{}
	case bridge.ConfirmationDepositReceived:
		_, seen = w.deposits[c.SourceTxHash]
		w.deposits[c.SourceTxHash] = struct{}{}
	}
	handler := w.handler
	w.mu.Unlock()

	if seen {
		return
	}

	metrics.Confirmations.WithLabelValues(string(c.Kind)).Inc()
	w.logger.Info("Destination confirmation observed",
		zap.String("kind", string(c.Kind)),
		zap.String("message_id", common.Hash(c.MessageID).Hex()),
		zap.String("source_tx_hash", common.Hash(c.SourceTxHash).Hex()),
		zap.String("tx_hash", c.TxHash.Hex()),
		zap.Uint64("block_number", c.BlockNumber))

	if handler != nil {
		handler(c)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
