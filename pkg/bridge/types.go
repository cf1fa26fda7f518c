// Package bridge holds the domain types shared by the source watcher, the
// destination submitter and the relayer coordinator.
package bridge

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies the kind of source-chain event
type EventType string

const (
	EventTypeDeposit EventType = "Deposit"
)

// MessageType is the cross-chain message discriminator understood by the bridge contract
type MessageType uint8

const (
	MessageTypeDeposit    MessageType = 1
	MessageTypeWithdrawal MessageType = 2
	MessageTypeStageAck   MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeDeposit:
		return "deposit"
	case MessageTypeWithdrawal:
		return "withdrawal"
	case MessageTypeStageAck:
		return "stage_ack"
	default:
		return "unknown"
	}
}

// SourceDepositEvent is a normalized deposit detected on the source chain.
// Only the processed flag changes after creation.
type SourceDepositEvent struct {
	ID                   string
	EventType            EventType
	SourceAddress        string
	Amount               *big.Int
	SourceTxHash         string
	BlockHeight          uint64
	Timestamp            time.Time
	DestinationCustodian *common.Address

	processed atomic.Bool
}

// MarkProcessed flags the event as consumed by the coordinator
func (e *SourceDepositEvent) MarkProcessed() {
	e.processed.Store(true)
}

// Processed reports whether the coordinator has consumed the event
func (e *SourceDepositEvent) Processed() bool {
	return e.processed.Load()
}

// CrossChainMessage is the payload submitted to processCrossChainMessage
type CrossChainMessage struct {
	MessageID            [32]byte
	MessageType          MessageType
	DestinationCustodian common.Address
	SourceAddress        string
	Amount               *big.Int
	SourceTxHash         [32]byte
	Proof                []byte
	Timestamp            time.Time
}

// IDHex returns the 0x-prefixed message id
func (m *CrossChainMessage) IDHex() string {
	return common.Hash(m.MessageID).Hex()
}

// ProcessedMessageRecord is the outcome of one processing attempt for a message id
type ProcessedMessageRecord struct {
	MessageID         string    `json:"message_id"`
	Success           bool      `json:"success"`
	Error             string    `json:"error,omitempty"`
	DestinationTxHash string    `json:"destination_tx_hash,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	RetryCount        int       `json:"retry_count"`
}

// MonitoringState describes a chain component's loop
type MonitoringState struct {
	Chain              string `json:"chain"`
	Mode               string `json:"mode,omitempty"`
	IsMonitoring       bool   `json:"is_monitoring"`
	LastProcessedBlock uint64 `json:"last_processed_block"`
	// PendingRetries counts deposits waiting for another hand-off attempt
	PendingRetries int `json:"pending_retries,omitempty"`
}

// EventSink receives deposits detected by a source watcher.
// Returning an error tells the watcher to queue the deposit for another attempt.
type EventSink interface {
	HandleDeposit(ctx context.Context, event *SourceDepositEvent) error
}

// ConfirmationKind distinguishes the destination events that confirm a message
type ConfirmationKind string

const (
	ConfirmationMessageProcessed ConfirmationKind = "message_processed"
	ConfirmationDepositReceived  ConfirmationKind = "deposit_received"
)

// Confirmation is a destination-chain event correlated back to a message
type Confirmation struct {
	Kind              ConfirmationKind
	MessageID         [32]byte
	MessageType       MessageType
	SourceTxHash      [32]byte
	User              common.Address
	SourceAmount      *big.Int
	DestinationAmount *big.Int
	TxHash            common.Hash
	BlockNumber       uint64
}

// ConfirmationHandler is invoked for every observed confirmation
type ConfirmationHandler func(c *Confirmation)
