package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

const (
	defaultFeeQuoteTimeout     = 5 * time.Second
	defaultReceiptPollInterval = 2 * time.Second
)

// Fees are the gas parameters attached to a transaction
type Fees struct {
	GasLimit uint64
	GasPrice *big.Int
}

// Contract is the bridge contract surface used by the submitter
type Contract interface {
	EmergencyPaused(ctx context.Context) (bool, error)
	PriceAndValidity(ctx context.Context) (*big.Int, bool, error)
	ExpectedPayout(ctx context.Context, amount *big.Int) (*big.Int, error)
	PoolBalance(ctx context.Context) (*big.Int, error)
	IsMessageProcessed(ctx context.Context, messageID [32]byte) (bool, error)
	IsSourceTxHashUsed(ctx context.Context, txHash [32]byte) (bool, error)
	EstimateProcessGas(ctx context.Context, msg *bridge.CrossChainMessage) (uint64, error)
	SendProcessMessage(ctx context.Context, msg *bridge.CrossChainMessage, fees Fees) (*types.Transaction, error)
}

// Backend is the chain access used for fee quotes and receipts
type Backend interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// SubmissionState is the lifecycle of one submission attempt
type SubmissionState string

const (
	StateNew               SubmissionState = "new"
	StatePreflightChecking SubmissionState = "preflight_checking"
	StateSubmitting        SubmissionState = "submitting"
	StateRejected          SubmissionState = "rejected"
	StateConfirmed         SubmissionState = "confirmed"
	StateFailed            SubmissionState = "failed"
)

// SubmitterConfig configures fee policy and receipt waiting
type SubmitterConfig struct {
	Chain string
	// GasLimit caps the estimate and is the fallback when estimation fails
	GasLimit uint64
	// MaxGasPrice caps the quoted gas price; nil means uncapped
	MaxGasPrice         *big.Int
	FeeQuoteTimeout     time.Duration
	ReceiptPollInterval time.Duration
	// ReceiptTimeout bounds the receipt wait; zero waits until the context ends
	ReceiptTimeout time.Duration
}

// Receipt summarizes a mined, successful submission
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Fees        Fees
}

// Submitter turns cross-chain messages into processCrossChainMessage transactions
type Submitter struct {
	contract Contract
	backend  Backend
	cfg      SubmitterConfig
	logger   *zap.Logger
}

// NewSubmitter creates a submitter
func NewSubmitter(contract Contract, backend Backend, cfg SubmitterConfig, logger *zap.Logger) *Submitter {
	if cfg.Chain == "" {
		cfg.Chain = "ethereum"
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.FeeQuoteTimeout <= 0 {
		cfg.FeeQuoteTimeout = defaultFeeQuoteTimeout
	}
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = defaultReceiptPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{contract: contract, backend: backend, cfg: cfg, logger: logger}
}

// Submit runs the preflight checks in order, sends the transaction and waits for its receipt.
// Preflight failures return *PreflightError and no transaction is built.
func (s *Submitter) Submit(ctx context.Context, msg *bridge.CrossChainMessage) (*Receipt, error) {
	start := time.Now()
	log := s.logger.With(
		zap.String("message_id", msg.IDHex()),
		zap.String("source_tx_hash", common.Hash(msg.SourceTxHash).Hex()))

	s.transition(log, StateNew)
	s.transition(log, StatePreflightChecking)

	payout, err := s.preflight(ctx, msg)
	if err != nil {
		s.transition(log, StateRejected, zap.Error(err))
		s.observe(start, "rejected")
		return nil, err
	}

	s.transition(log, StateSubmitting, zap.String("expected_payout", payout.String()))
	fees := s.quoteFees(ctx, msg, log)

	tx, err := s.contract.SendProcessMessage(ctx, msg, fees)
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(s.cfg.Chain, "error").Inc()
		s.transition(log, StateFailed, zap.Error(err))
		s.observe(start, "failed")
		return nil, &SubmissionError{Err: err}
	}
	metrics.TransactionsSent.WithLabelValues(s.cfg.Chain, "sent").Inc()
	log.Info("Transaction sent",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("gas_limit", fees.GasLimit),
		zap.String("gas_price", fees.GasPrice.String()))

	receipt, err := s.waitReceipt(ctx, tx.Hash())
	if err != nil {
		s.transition(log, StateFailed, zap.String("tx_hash", tx.Hash().Hex()), zap.Error(err))
		s.observe(start, "failed")
		return nil, &SubmissionError{TxHash: tx.Hash(), Err: err}
	}
	metrics.GasUsed.WithLabelValues("process_message").Observe(float64(receipt.GasUsed))

	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.TransactionsSent.WithLabelValues(s.cfg.Chain, "reverted").Inc()
		s.transition(log, StateFailed,
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Uint64("gas_used", receipt.GasUsed))
		s.observe(start, "failed")
		return nil, &SubmissionError{TxHash: receipt.TxHash, Err: errors.New("transaction reverted")}
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	metrics.TransactionsSent.WithLabelValues(s.cfg.Chain, "confirmed").Inc()
	s.transition(log, StateConfirmed,
		zap.String("tx_hash", receipt.TxHash.Hex()),
		zap.Uint64("block_number", block),
		zap.Uint64("gas_used", receipt.GasUsed))
	s.observe(start, "confirmed")

	return &Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: block,
		GasUsed:     receipt.GasUsed,
		Fees:        fees,
	}, nil
}

func (s *Submitter) transition(log *zap.Logger, state SubmissionState, fields ...zap.Field) {
	fields = append(fields, zap.String("state", string(state)))
	switch state {
	case StateRejected, StateFailed:
		log.Error("Submission "+string(state), fields...)
	case StateConfirmed:
		log.Info("Submission confirmed", fields...)
	default:
		log.Debug("Submission state changed", fields...)
	}
}

func (s *Submitter) observe(start time.Time, status string) {
	metrics.SubmissionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

// preflight runs the safety checks strictly in order and returns the expected payout
func (s *Submitter) preflight(ctx context.Context, msg *bridge.CrossChainMessage) (*big.Int, error) {
	id := msg.IDHex()
	fail := func(check PreflightCheck, err error) error {
		metrics.PreflightFailures.WithLabelValues(string(check)).Inc()
		return &PreflightError{Check: check, MessageID: id, Err: err}
	}

	paused, err := s.contract.EmergencyPaused(ctx)
	if err != nil {
		return nil, fail(CheckEmergencyPause, callFailure("emergencyPaused", err))
	}
	if paused {
		return nil, fail(CheckEmergencyPause, ErrEmergencyPaused)
	}

	price, valid, err := s.contract.PriceAndValidity(ctx)
	if err != nil {
		return nil, fail(CheckPrice, fmt.Errorf("%w: %w", ErrStalePrice, err))
	}
	if !valid || price == nil || price.Sign() <= 0 {
		return nil, fail(CheckPrice, ErrStalePrice)
	}

	payout, err := s.contract.ExpectedPayout(ctx, msg.Amount)
	if err != nil {
		return nil, fail(CheckPayout, fmt.Errorf("%w: %w", ErrPayoutUnavailable, err))
	}
	if payout == nil || payout.Sign() <= 0 {
		return nil, fail(CheckPayout, ErrPayoutUnavailable)
	}

	balance, err := s.contract.PoolBalance(ctx)
	if err != nil {
		return nil, fail(CheckLiquidity, callFailure("getPoolBalance", err))
	}
	if balance.Cmp(payout) < 0 {
		return nil, fail(CheckLiquidity, fmt.Errorf("%w: pool %s < payout %s", ErrInsufficientLiquidity, balance, payout))
	}

	processed, err := s.contract.IsMessageProcessed(ctx, msg.MessageID)
	if err != nil {
		return nil, fail(CheckIdempotency, callFailure("isMessageProcessed", err))
	}
	if processed {
		return nil, fail(CheckIdempotency, ErrAlreadyProcessed)
	}
	used, err := s.contract.IsSourceTxHashUsed(ctx, msg.SourceTxHash)
	if err != nil {
		return nil, fail(CheckIdempotency, callFailure("isStacksTxHashUsed", err))
	}
	if used {
		return nil, fail(CheckIdempotency, fmt.Errorf("%w: source tx hash already used", ErrAlreadyProcessed))
	}

	return payout, nil
}

func callFailure(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", bridge.ErrTransientNetwork, method, err)
}

// quoteFees never blocks longer than FeeQuoteTimeout per quote and always returns usable fees
func (s *Submitter) quoteFees(ctx context.Context, msg *bridge.CrossChainMessage, log *zap.Logger) Fees {
	fees := Fees{GasLimit: s.cfg.GasLimit}

	estCtx, cancel := context.WithTimeout(ctx, s.cfg.FeeQuoteTimeout)
	estimate, err := s.contract.EstimateProcessGas(estCtx, msg)
	cancel()
	if err != nil {
		log.Warn("Gas estimation failed; using configured limit",
			zap.Uint64("gas_limit", fees.GasLimit), zap.Error(err))
	} else {
		// 20% headroom over the estimate
		padded := estimate + estimate/5
		if padded < fees.GasLimit {
			fees.GasLimit = padded
		}
	}

	priceCtx, cancel := context.WithTimeout(ctx, s.cfg.FeeQuoteTimeout)
	price, err := s.backend.SuggestGasPrice(priceCtx)
	cancel()
	if err != nil || price == nil {
		log.Warn("Gas price quote failed; using default",
			zap.String("gas_price", DefaultGasPrice.String()), zap.Error(err))
		price = new(big.Int).Set(DefaultGasPrice)
	}
	if s.cfg.MaxGasPrice != nil && price.Cmp(s.cfg.MaxGasPrice) > 0 {
		log.Warn("Gas price exceeds maximum; capping",
			zap.String("quoted", price.String()),
			zap.String("max", s.cfg.MaxGasPrice.String()))
		price = new(big.Int).Set(s.cfg.MaxGasPrice)
	}
	fees.GasPrice = price
	return fees
}

// waitReceipt polls until the transaction is mined
func (s *Submitter) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if s.cfg.ReceiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ReceiptTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, geth.NotFound) {
			s.logger.Warn("Failed to fetch receipt; retrying",
				zap.String("tx_hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
