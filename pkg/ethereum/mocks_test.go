package ethereum

import (
	"context"
	"math/big"
	"sync"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// MockContract is a mock implementation of Contract. The zero value passes every preflight check.
type MockContract struct {
	EmergencyPausedFunc    func(ctx context.Context) (bool, error)
	PriceAndValidityFunc   func(ctx context.Context) (*big.Int, bool, error)
	ExpectedPayoutFunc     func(ctx context.Context, amount *big.Int) (*big.Int, error)
	PoolBalanceFunc        func(ctx context.Context) (*big.Int, error)
	IsMessageProcessedFunc func(ctx context.Context, messageID [32]byte) (bool, error)
	IsSourceTxHashUsedFunc func(ctx context.Context, txHash [32]byte) (bool, error)
	EstimateProcessGasFunc func(ctx context.Context, msg *bridge.CrossChainMessage) (uint64, error)
	SendProcessMessageFunc func(ctx context.Context, msg *bridge.CrossChainMessage, fees Fees) (*types.Transaction, error)

	mu    sync.Mutex
	calls []string
	sent  []Fees
}

func (m *MockContract) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Calls returns the contract methods invoked so far, in order
func (m *MockContract) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Sent returns the fees of every transaction sent
func (m *MockContract) Sent() []Fees {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Fees(nil), m.sent...)
}

func (m *MockContract) EmergencyPaused(ctx context.Context) (bool, error) {
	m.record("emergencyPaused")
	if m.EmergencyPausedFunc != nil {
		return m.EmergencyPausedFunc(ctx)
	}
	return false, nil
}

func (m *MockContract) PriceAndValidity(ctx context.Context) (*big.Int, bool, error) {
	m.record("getPriceAndValidity")
	if m.PriceAndValidityFunc != nil {
		return m.PriceAndValidityFunc(ctx)
	}
	return big.NewInt(1), true, nil
}

func (m *MockContract) ExpectedPayout(ctx context.Context, amount *big.Int) (*big.Int, error) {
	m.record("calculateExpectedPayout")
	if m.ExpectedPayoutFunc != nil {
		return m.ExpectedPayoutFunc(ctx, amount)
	}
	return new(big.Int).Set(amount), nil
}

func (m *MockContract) PoolBalance(ctx context.Context) (*big.Int, error) {
	m.record("getPoolBalance")
	if m.PoolBalanceFunc != nil {
		return m.PoolBalanceFunc(ctx)
	}
	return new(big.Int).Lsh(big.NewInt(1), 100), nil
}

func (m *MockContract) IsMessageProcessed(ctx context.Context, messageID [32]byte) (bool, error) {
	m.record("isMessageProcessed")
	if m.IsMessageProcessedFunc != nil {
		return m.IsMessageProcessedFunc(ctx, messageID)
	}
	return false, nil
}

func (m *MockContract) IsSourceTxHashUsed(ctx context.Context, txHash [32]byte) (bool, error) {
	m.record("isStacksTxHashUsed")
	if m.IsSourceTxHashUsedFunc != nil {
		return m.IsSourceTxHashUsedFunc(ctx, txHash)
	}
	return false, nil
}

func (m *MockContract) EstimateProcessGas(ctx context.Context, msg *bridge.CrossChainMessage) (uint64, error) {
	m.record("estimateGas")
	if m.EstimateProcessGasFunc != nil {
		return m.EstimateProcessGasFunc(ctx, msg)
	}
	return 100_000, nil
}

func (m *MockContract) SendProcessMessage(ctx context.Context, msg *bridge.CrossChainMessage, fees Fees) (*types.Transaction, error) {
	m.record("processCrossChainMessage")
	m.mu.Lock()
	m.sent = append(m.sent, fees)
	m.mu.Unlock()
	if m.SendProcessMessageFunc != nil {
		return m.SendProcessMessageFunc(ctx, msg, fees)
	}
	return testTx(), nil
}

// MockBackend is a mock implementation of Backend and ConfirmationSource
type MockBackend struct {
	SuggestGasPriceFunc        func(ctx context.Context) (*big.Int, error)
	TransactionReceiptFunc     func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumberFunc            func(ctx context.Context) (uint64, error)
	FilterConfirmationsFunc    func(ctx context.Context, from, to uint64) ([]*bridge.Confirmation, error)
	SubscribeConfirmationsFunc func(ctx context.Context, sink chan<- *bridge.Confirmation) (event.Subscription, error)
}

func (m *MockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasPriceFunc != nil {
		return m.SuggestGasPriceFunc(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (m *MockBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if m.TransactionReceiptFunc != nil {
		return m.TransactionReceiptFunc(ctx, hash)
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(42),
		GasUsed:     90_000,
	}, nil
}

func (m *MockBackend) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberFunc != nil {
		return m.BlockNumberFunc(ctx)
	}
	return 0, nil
}

func (m *MockBackend) FilterConfirmations(ctx context.Context, from, to uint64) ([]*bridge.Confirmation, error) {
	if m.FilterConfirmationsFunc != nil {
		return m.FilterConfirmationsFunc(ctx, from, to)
	}
	return nil, nil
}

func (m *MockBackend) SubscribeConfirmations(ctx context.Context, sink chan<- *bridge.Confirmation) (event.Subscription, error) {
	if m.SubscribeConfirmationsFunc != nil {
		return m.SubscribeConfirmationsFunc(ctx, sink)
	}
	return nil, ErrNoSubscription
}

func testTx() *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    7,
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      120_000,
		To:       &common.Address{0x01},
		Value:    big.NewInt(0),
	})
}

func testMessage() *bridge.CrossChainMessage {
	custodian := common.HexToAddress("0x00000000000000000000000000000000000000c5")
	ev := &bridge.SourceDepositEvent{
		ID:                   "0xAA",
		EventType:            bridge.EventTypeDeposit,
		SourceAddress:        "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
		Amount:               big.NewInt(100_000_000),
		SourceTxHash:         "0xAA",
		BlockHeight:          10,
		DestinationCustodian: &custodian,
	}
	msg, err := bridge.NewDepositMessage(ev, nil)
	if err != nil {
		panic(err)
	}
	return msg
}
