package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Submitter delivers cross-chain messages to the destination chain
type Submitter interface {
	Submit(ctx context.Context, msg *bridge.CrossChainMessage) (*ethereum.Receipt, error)
}

// SourceWatcher detects deposits on the source chain
type SourceWatcher interface {
	Start(ctx context.Context, sink bridge.EventSink) error
	Stop()
	Status() bridge.MonitoringState
}

// ConfirmationWatcher observes destination confirmations
type ConfirmationWatcher interface {
	Start(ctx context.Context) error
	Stop()
	Status() bridge.MonitoringState
	OnConfirmation(h bridge.ConfirmationHandler)
}

// RecordStore persists processed-message records
type RecordStore interface {
	GetRecord(ctx context.Context, messageID string) (*bridge.ProcessedMessageRecord, bool, error)
	SaveRecord(ctx context.Context, rec *bridge.ProcessedMessageRecord) error
	ListRecords(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error)
}

// Stats are the coordinator's message counters
type Stats struct {
	TotalMessages      int64 `json:"total_messages"`
	SuccessfulMessages int64 `json:"successful_messages"`
	FailedMessages     int64 `json:"failed_messages"`
	PendingMessages    int64 `json:"pending_messages"`
	ConfirmedMessages  int64 `json:"confirmed_messages"`
}

// MonitoringStatus holds the state of both chain loops
type MonitoringStatus struct {
	Source      bridge.MonitoringState `json:"source"`
	Destination bridge.MonitoringState `json:"destination"`
}

// CoordinatorOption customizes a Coordinator
type CoordinatorOption func(*Coordinator)

// WithProofBuilder sets the proof builder used for new messages
func WithProofBuilder(p bridge.ProofBuilder) CoordinatorOption {
	return func(c *Coordinator) { c.proofs = p }
}

// Coordinator turns detected deposits into destination submissions
type Coordinator struct {
	watcher       SourceWatcher
	confirmations ConfirmationWatcher
	submitter     Submitter
	records       RecordStore
	proofs        bridge.ProofBuilder
	logger        *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	confirmed atomic.Int64
}

// NewCoordinator creates a coordinator and registers its confirmation handler
func NewCoordinator(
	watcher SourceWatcher,
	confirmations ConfirmationWatcher,
	submitter Submitter,
	records RecordStore,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		watcher:       watcher,
		confirmations: confirmations,
		submitter:     submitter,
		records:       records,
		proofs:        bridge.PlaceholderProof{},
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		inFlight:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if confirmations != nil {
		confirmations.OnConfirmation(c.handleConfirmation)
	}
	return c
}

// Start launches the source watcher and the confirmation watcher
func (c *Coordinator) Start(ctx context.Context) error {
	if err := c.watcher.Start(ctx, c); err != nil {
		return fmt.Errorf("start source watcher: %w", err)
	}
	if c.confirmations != nil {
		if err := c.confirmations.Start(ctx); err != nil {
			c.watcher.Stop()
			return fmt.Errorf("start confirmation watcher: %w", err)
		}
	}
	c.logger.Info("Message coordinator started")
	return nil
}

// Stop halts both watchers. In-flight submissions run to completion.
func (c *Coordinator) Stop() {
	c.watcher.Stop()
	if c.confirmations != nil {
		c.confirmations.Stop()
	}
	c.logger.Info("Message coordinator stopped")
}

// HandleDeposit implements bridge.EventSink.
// A non-nil error means the deposit should be offered again on a later pass.
func (c *Coordinator) HandleDeposit(ctx context.Context, event *bridge.SourceDepositEvent) error {
	_, err := c.Process(ctx, event)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bridge.ErrValidation), errors.Is(err, ethereum.ErrAlreadyProcessed):
		return nil
	default:
		return err
	}
}

// Process relays one deposit and returns the stored record.
// A nil record with a nil error means the deposit was skipped as a duplicate.
func (c *Coordinator) Process(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
	msg, err := bridge.NewDepositMessage(event, c.proofs)
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("coordinator", "validation").Inc()
		fields := []zap.Field{zap.Error(err)}
		if event != nil {
			fields = append(fields, zap.String("source_tx_hash", event.SourceTxHash))
		}
		c.logger.Warn("Dropping deposit that cannot be relayed", fields...)
		return nil, err
	}

	id := msg.IDHex()
	log := c.logger.With(
		zap.String("message_id", id),
		zap.String("source_tx_hash", event.SourceTxHash),
	)

	prior, found, err := c.records.GetRecord(ctx, id)
	if err != nil {
		// the destination contract still rejects duplicates
		log.Warn("Record lookup failed; continuing", zap.Error(err))
		found = false
	}
	if found && prior.Success {
		log.Debug("Message already relayed; skipping", zap.String("destination_tx_hash", prior.DestinationTxHash))
		event.MarkProcessed()
		return nil, nil
	}
	if !c.claim(id) {
		log.Debug("Message already in flight; skipping")
		return nil, nil
	}
	defer c.release(id)

	// a failed record is superseded by this attempt's record, never edited
	retries := 0
	if found {
		retries = prior.RetryCount + 1
	}

	log.Info("Relaying deposit",
		zap.String("source_address", event.SourceAddress),
		zap.String("amount", event.Amount.String()),
		zap.String("custodian", msg.DestinationCustodian.Hex()),
		zap.Uint64("block_height", event.BlockHeight),
		zap.Int("retry_count", retries))

	c.total.Add(1)
	receipt, err := c.submitter.Submit(context.WithoutCancel(ctx), msg)

	rec := &bridge.ProcessedMessageRecord{
		MessageID:  id,
		Timestamp:  c.now(),
		RetryCount: retries,
	}
	if err != nil {
		rec.Error = err.Error()
		var subErr *ethereum.SubmissionError
		if errors.As(err, &subErr) && subErr.TxHash != (common.Hash{}) {
			rec.DestinationTxHash = subErr.TxHash.Hex()
		}
		c.failed.Add(1)
		metrics.MessagesTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, ethereum.ErrAlreadyProcessed) {
			event.MarkProcessed()
			log.Warn("Destination already processed message", zap.Error(err))
		} else {
			metrics.ErrorsTotal.WithLabelValues("coordinator", errorType(err)).Inc()
			log.Error("Failed to relay deposit", zap.Error(err))
		}
		c.save(ctx, rec, log)
		return rec, err
	}

	rec.Success = true
	rec.DestinationTxHash = receipt.TxHash.Hex()
	c.succeeded.Add(1)
	metrics.MessagesTotal.WithLabelValues("success").Inc()
	event.MarkProcessed()
	c.save(ctx, rec, log)

	log.Info("Deposit relayed",
		zap.String("destination_tx_hash", rec.DestinationTxHash),
		zap.Uint64("destination_block", receipt.BlockNumber),
		zap.Uint64("gas_used", receipt.GasUsed))
	return rec, nil
}

// Stats returns the message counters
func (c *Coordinator) Stats() Stats {
	return Stats{
		TotalMessages:      c.total.Load(),
		SuccessfulMessages: c.succeeded.Load(),
		FailedMessages:     c.failed.Load(),
		ConfirmedMessages:  c.confirmed.Load(),
	}
}

// MonitoringStatus reports both chain loops
func (c *Coordinator) MonitoringStatus() MonitoringStatus {
	s := MonitoringStatus{Source: c.watcher.Status()}
	if c.confirmations != nil {
		s.Destination = c.confirmations.Status()
	}
	return s
}

// Records returns up to limit records, newest first
func (c *Coordinator) Records(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	return c.records.ListRecords(ctx, limit)
}

func (c *Coordinator) handleConfirmation(conf *bridge.Confirmation) {
	if conf.Kind != bridge.ConfirmationMessageProcessed {
		return
	}
	c.confirmed.Add(1)
	c.logger.Debug("Message confirmed on destination",
		zap.String("message_id", common.Hash(conf.MessageID).Hex()),
		zap.String("tx_hash", conf.TxHash.Hex()))
}

func (c *Coordinator) save(ctx context.Context, rec *bridge.ProcessedMessageRecord, log *zap.Logger) {
	if err := c.records.SaveRecord(context.WithoutCancel(ctx), rec); err != nil {
		metrics.ErrorsTotal.WithLabelValues("coordinator", "store").Inc()
		log.Error("Failed to save processed message record", zap.Error(err))
	}
}

func (c *Coordinator) claim(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inFlight[id]; ok {
		return false
	}
	c.inFlight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	delete(c.inFlight, id)
	c.mu.Unlock()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, bridge.ErrPreflight):
		return "preflight"
	case errors.Is(err, bridge.ErrSubmission):
		return "submission"
	case errors.Is(err, bridge.ErrTransientNetwork):
		return "network"
	default:
		return "unknown"
	}
}
