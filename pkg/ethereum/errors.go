package ethereum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Fallbacks used when fee estimation fails or times out
const (
	DefaultGasLimit uint64 = 500_000
)

// DefaultGasPrice is 20 gwei
var DefaultGasPrice = new(big.Int).Mul(big.NewInt(20), big.NewInt(params.GWei))

// Preflight failures, one per check
var (
	ErrEmergencyPaused       = errors.New("bridge is emergency paused")
	ErrStalePrice            = errors.New("price feed is missing or stale")
	ErrPayoutUnavailable     = errors.New("expected payout unavailable")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrAlreadyProcessed      = errors.New("message already processed on-chain")
)

// PreflightCheck names one of the ordered safety checks run before submission
type PreflightCheck string

const (
	CheckEmergencyPause PreflightCheck = "emergency_pause"
	CheckPrice          PreflightCheck = "price"
	CheckPayout         PreflightCheck = "payout"
	CheckLiquidity      PreflightCheck = "liquidity"
	CheckIdempotency    PreflightCheck = "idempotency"
)

// PreflightError aborts a submission before any transaction is built
type PreflightError struct {
	Check     PreflightCheck
	MessageID string
	Err       error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight %s failed for message %s: %v", e.Check, e.MessageID, e.Err)
}

// Unwrap exposes both the check-specific cause and bridge.ErrPreflight
func (e *PreflightError) Unwrap() []error {
	return []error{e.Err, bridge.ErrPreflight}
}

// SubmissionError is a destination transaction that could not be sent or did not succeed
type SubmissionError struct {
	TxHash common.Hash
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.TxHash == (common.Hash{}) {
		return fmt.Sprintf("submission failed: %v", e.Err)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.TxHash.Hex(), e.Err)
}

// Unwrap exposes both the cause and bridge.ErrSubmission
func (e *SubmissionError) Unwrap() []error {
	return []error{e.Err, bridge.ErrSubmission}
}
