package bridge

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// ProofBuilder produces the proof bytes attached to a cross-chain message
type ProofBuilder interface {
	BuildProof(messageID [32]byte, event *SourceDepositEvent) ([]byte, error)
}

// PlaceholderProof hashes the message id with the source tx hash and height.
// It carries no binding to source-chain state.
type PlaceholderProof struct{}

// BuildProof implements ProofBuilder
func (PlaceholderProof) BuildProof(messageID [32]byte, event *SourceDepositEvent) ([]byte, error) {
	height := make([]byte, 8)
	binary.BigEndian.PutUint64(height, event.BlockHeight)
	txHash := SourceTxHashBytes(event.SourceTxHash)
	return crypto.Keccak256(messageID[:], txHash[:], height), nil
}

// MessageID derives the deterministic message identifier of a deposit from
// its source tx hash, sender and amount.
func MessageID(sourceTxHash, sourceAddress string, amount *big.Int) [32]byte {
	if amount == nil {
		amount = new(big.Int)
	}
	return crypto.Keccak256Hash(
		[]byte(normalizeTxHash(sourceTxHash)),
		[]byte(sourceAddress),
		math.U256Bytes(new(big.Int).Set(amount)),
	)
}

// EventMessageID is MessageID applied to a detected deposit
func EventMessageID(event *SourceDepositEvent) [32]byte {
	return MessageID(event.SourceTxHash, event.SourceAddress, event.Amount)
}

// NewDepositMessage builds the destination message for a resolved deposit
func NewDepositMessage(event *SourceDepositEvent, proofs ProofBuilder) (*CrossChainMessage, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrValidation)
	}
	if event.DestinationCustodian == nil {
		return nil, fmt.Errorf("%w: deposit %s has no destination custodian", ErrValidation, event.SourceTxHash)
	}
	if event.Amount == nil || event.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: deposit %s has non-positive amount", ErrValidation, event.SourceTxHash)
	}
	if proofs == nil {
		proofs = PlaceholderProof{}
	}

	id := EventMessageID(event)
	proof, err := proofs.BuildProof(id, event)
	if err != nil {
		return nil, fmt.Errorf("build proof: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &CrossChainMessage{
		MessageID:            id,
		MessageType:          MessageTypeDeposit,
		DestinationCustodian: *event.DestinationCustodian,
		SourceAddress:        event.SourceAddress,
		Amount:               new(big.Int).Set(event.Amount),
		SourceTxHash:         SourceTxHashBytes(event.SourceTxHash),
		Proof:                proof,
		Timestamp:            ts,
	}, nil
}

// SourceTxHashBytes converts a hex tx id (with or without 0x) to 32 bytes, left padded
func SourceTxHashBytes(txHash string) [32]byte {
	return common.HexToHash(normalizeTxHash(txHash))
}

func normalizeTxHash(txHash string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(txHash, "0x"), "0X"))
}
