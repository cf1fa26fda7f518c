package stacks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ScanConfig selects which transfers count as bridge deposits
type ScanConfig struct {
	Chain             string
	AssetIdentifier   string // e.g. SP...token::sbtc
	GatewayAddress    string // recipient principal of deposits
	CustodianContract string // <address>.<name>
	CustodianFunction string
}

// deposit is a matched transfer before custodian resolution
type deposit struct {
	tx     Transaction
	sender string
	amount *big.Int
}

const (
	defaultMaxDepositAttempts = 5
	maxRetryBackoff           = 5 * time.Minute
)

// pendingDeposit is a deposit whose hand-off failed and waits for another attempt
type pendingDeposit struct {
	d        deposit
	attempts int // non-transient failures
	failures int
	next     time.Time
}

// scanner filters block transactions into deposit events and hands them to a sink.
// It owns the forwarded-tx set and the retry queue shared by every strategy of one watcher.
type scanner struct {
	api    API
	cfg    ScanConfig
	logger *zap.Logger

	retryDelay  time.Duration
	maxAttempts int
	now         func() time.Time

	mu        sync.Mutex
	forwarded map[string]struct{}
	pending   map[string]*pendingDeposit
}

func newScanner(api API, cfg ScanConfig, logger *zap.Logger) *scanner {
	return &scanner{
		api:         api,
		cfg:         cfg,
		logger:      logger,
		retryDelay:  defaultRetryDelay,
		maxAttempts: defaultMaxDepositAttempts,
		now:         time.Now,
		forwarded:   make(map[string]struct{}),
		pending:     make(map[string]*pendingDeposit),
	}
}

// scanBlock fetches and filters every transaction at height and offers matching
// deposits to the sink. A deposit the sink fails is queued for retry and does not
// hold the block back; only a failure to read the block is returned.
func (s *scanner) scanBlock(ctx context.Context, height uint64, sink bridge.EventSink) error {
	txs, err := s.api.BlockTransactions(ctx, height)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.seen(tx.TxID) || s.isPending(tx.TxID) {
			continue
		}
		full, err := s.complete(ctx, tx)
		if err != nil {
			return err
		}
		d, ok := s.match(full)
		if !ok {
			continue
		}
		metrics.EventsDetected.WithLabelValues(s.cfg.Chain, string(bridge.EventTypeDeposit)).Inc()

		if err := s.forward(ctx, d, sink); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.schedule(d, err)
		}
	}
	return nil
}

// complete loads the full event list of a listed transaction whose events were truncated
func (s *scanner) complete(ctx context.Context, tx Transaction) (Transaction, error) {
	if tx.TxStatus != TxStatusSuccess || len(tx.Events) >= tx.EventCount {
		return tx, nil
	}
	full, err := s.api.Transaction(ctx, tx.TxID)
	if err != nil {
		return tx, fmt.Errorf("load events of %s: %w", tx.TxID, err)
	}
	s.logger.Debug("Loaded full transaction events",
		zap.String("tx_id", tx.TxID),
		zap.Int("listed", len(tx.Events)),
		zap.Int("event_count", tx.EventCount))
	return *full, nil
}

// retryPending re-offers queued deposits whose backoff has elapsed, oldest height first
func (s *scanner) retryPending(ctx context.Context, sink bridge.EventSink) error {
	now := s.now()
	s.mu.Lock()
	var due []*pendingDeposit
	for _, p := range s.pending {
		if !p.next.After(now) {
			due = append(due, p)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].d.tx.BlockHeight != due[j].d.tx.BlockHeight {
			return due[i].d.tx.BlockHeight < due[j].d.tx.BlockHeight
		}
		return due[i].d.tx.TxID < due[j].d.tx.TxID
	})

	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return err
		}
		txID := p.d.tx.TxID
		err := s.forward(ctx, p.d, sink)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			s.mu.Lock()
			delete(s.pending, txID)
			s.mu.Unlock()
			s.logger.Info("Queued deposit handed off",
				zap.String("tx_id", txID),
				zap.Int("failures", p.failures))
			continue
		}
		s.schedule(p.d, err)
	}
	return nil
}

// schedule queues d for another attempt with linear backoff. Transient failures retry
// until they clear; any other failure gives up after maxAttempts.
func (s *scanner) schedule(d deposit, cause error) {
	txID := d.tx.TxID
	s.mu.Lock()
	p, ok := s.pending[txID]
	if !ok {
		p = &pendingDeposit{d: d}
		s.pending[txID] = p
	}
	p.failures++
	if !errors.Is(cause, bridge.ErrTransientNetwork) {
		p.attempts++
	}
	if p.attempts >= s.maxAttempts {
		delete(s.pending, txID)
		s.mu.Unlock()
		s.logger.Error("Giving up on deposit after repeated failures",
			zap.String("tx_id", txID),
			zap.Uint64("height", d.tx.BlockHeight),
			zap.Int("attempts", p.attempts),
			zap.Error(cause))
		metrics.EventsSkipped.WithLabelValues(s.cfg.Chain, "retries_exhausted").Inc()
		return
	}
	backoff := s.retryDelay * time.Duration(p.failures)
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	p.next = s.now().Add(backoff)
	s.mu.Unlock()

	s.logger.Warn("Deposit queued for retry",
		zap.String("tx_id", txID),
		zap.Uint64("height", d.tx.BlockHeight),
		zap.Int("failures", p.failures),
		zap.Duration("backoff", backoff),
		zap.Error(cause))
}

// checkpointFloor caps height below the oldest queued deposit so a restart re-scans it
func (s *scanner) checkpointFloor(height uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if h := p.d.tx.BlockHeight; h > 0 && h-1 < height {
			height = h - 1
		}
	}
	return height
}

func (s *scanner) isPending(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[txID]
	return ok
}

func (s *scanner) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// match applies the deposit predicate: successful tx carrying a fungible transfer of
// the configured asset to the gateway
func (s *scanner) match(tx Transaction) (deposit, bool) {
	if tx.TxStatus != TxStatusSuccess {
		return deposit{}, false
	}
	for _, ev := range tx.Events {
		if ev.EventType != EventTypeFungible || ev.Asset == nil {
			continue
		}
		a := ev.Asset
		if a.AssetEventType != AssetEventTransfer {
			continue
		}
		if !strings.EqualFold(a.AssetID, s.cfg.AssetIdentifier) || !strings.EqualFold(a.Recipient, s.cfg.GatewayAddress) {
			continue
		}
		amount, ok := new(big.Int).SetString(a.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			s.logger.Warn("Ignoring transfer with malformed amount",
				zap.String("tx_id", tx.TxID),
				zap.String("amount", a.Amount))
			continue
		}
		sender := a.Sender
		if sender == "" {
			sender = tx.SenderAddress
		}
		return deposit{tx: tx, sender: sender, amount: amount}, true
	}
	return deposit{}, false
}

func (s *scanner) forward(ctx context.Context, d deposit, sink bridge.EventSink) error {
	txID := d.tx.TxID
	if s.seen(txID) {
		return nil
	}

	custodian, err := s.resolveCustodian(ctx, d.sender)
	if err != nil {
		if errors.Is(err, bridge.ErrValidation) {
			s.logger.Warn("Dropping deposit with unusable custodian mapping",
				zap.String("tx_id", txID),
				zap.String("sender", d.sender),
				zap.Error(err))
			metrics.EventsSkipped.WithLabelValues(s.cfg.Chain, "invalid_custodian").Inc()
			return nil
		}
		return fmt.Errorf("resolve custodian for %s: %w", txID, err)
	}
	if custodian == nil {
		s.logger.Warn("No custodian registered for sender; skipping deposit",
			zap.String("tx_id", txID),
			zap.String("sender", d.sender),
			zap.String("amount", d.amount.String()))
		metrics.EventsSkipped.WithLabelValues(s.cfg.Chain, "no_custodian").Inc()
		return nil
	}

	event := &bridge.SourceDepositEvent{
		ID:                   txID,
		EventType:            bridge.EventTypeDeposit,
		SourceAddress:        d.sender,
		Amount:               d.amount,
		SourceTxHash:         txID,
		BlockHeight:          d.tx.BlockHeight,
		Timestamp:            time.Unix(d.tx.BurnBlockTime, 0).UTC(),
		DestinationCustodian: custodian,
	}

	// mark before handing off so a concurrent pass cannot forward the same tx
	if !s.markForwarded(txID) {
		return nil
	}

	s.logger.Info("Deposit detected",
		zap.String("tx_id", txID),
		zap.String("sender", d.sender),
		zap.String("amount", d.amount.String()),
		zap.String("custodian", custodian.Hex()),
		zap.Uint64("height", d.tx.BlockHeight))

	if err := sink.HandleDeposit(ctx, event); err != nil {
		s.unmark(txID)
		s.logger.Error("Deposit handler failed",
			zap.String("tx_id", txID),
			zap.Error(err))
		return fmt.Errorf("forward %s: %w", txID, err)
	}
	return nil
}

func (s *scanner) resolveCustodian(ctx context.Context, sender string) (*common.Address, error) {
	arg, err := PrincipalArg(sender)
	if err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", bridge.ErrValidation, sender, err)
	}
	result, err := s.api.CallReadOnly(ctx, s.cfg.CustodianContract, s.cfg.CustodianFunction, []string{arg})
	if err != nil {
		return nil, err
	}
	custodian, err := DecodeCustodianResult(result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bridge.ErrValidation, err)
	}
	return custodian, nil
}

func (s *scanner) seen(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.forwarded[txID]
	return ok
}

func (s *scanner) markForwarded(txID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forwarded[txID]; ok {
		return false
	}
	s.forwarded[txID] = struct{}{}
	return true
}

func (s *scanner) unmark(txID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forwarded, txID)
}
