package stacks

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/ethereum/go-ethereum/common"
)

// MockAPI is a mock implementation of API
type MockAPI struct {
	TipHeightFunc         func(ctx context.Context) (uint64, error)
	BlockTransactionsFunc func(ctx context.Context, height uint64) ([]Transaction, error)
	TransactionFunc       func(ctx context.Context, txID string) (*Transaction, error)
	CallReadOnlyFunc      func(ctx context.Context, contractID, function string, args []string) (string, error)
}

func (m *MockAPI) TipHeight(ctx context.Context) (uint64, error) {
	if m.TipHeightFunc != nil {
		return m.TipHeightFunc(ctx)
	}
	return 0, nil
}

func (m *MockAPI) BlockTransactions(ctx context.Context, height uint64) ([]Transaction, error) {
	if m.BlockTransactionsFunc != nil {
		return m.BlockTransactionsFunc(ctx, height)
	}
	return nil, nil
}

func (m *MockAPI) Transaction(ctx context.Context, txID string) (*Transaction, error) {
	if m.TransactionFunc != nil {
		return m.TransactionFunc(ctx, txID)
	}
	return &Transaction{TxID: txID}, nil
}

func (m *MockAPI) CallReadOnly(ctx context.Context, contractID, function string, args []string) (string, error) {
	if m.CallReadOnlyFunc != nil {
		return m.CallReadOnlyFunc(ctx, contractID, function, args)
	}
	return "0x09", nil
}

// MockSink records deposits and optionally fails them
type MockSink struct {
	HandleDepositFunc func(ctx context.Context, event *bridge.SourceDepositEvent) error

	mu     sync.Mutex
	events []*bridge.SourceDepositEvent
}

func (m *MockSink) HandleDeposit(ctx context.Context, event *bridge.SourceDepositEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.HandleDepositFunc != nil {
		return m.HandleDepositFunc(ctx, event)
	}
	return nil
}

func (m *MockSink) Events() []*bridge.SourceDepositEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*bridge.SourceDepositEvent, len(m.events))
	copy(out, m.events)
	return out
}

const (
	testAsset     = "SP3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR.token::sbtc"
	testGateway   = "SP3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR.gateway"
	testRegistry  = "SP3DX3H4FEYZJZ586MFBS25ZW3HZDMEW92260R2PR.registry"
	testCustodian = "0x00000000000000000000000000000000000000c5"
)

func testScanConfig() ScanConfig {
	return ScanConfig{
		Chain:             "stacks",
		AssetIdentifier:   testAsset,
		GatewayAddress:    testGateway,
		CustodianContract: testRegistry,
		CustodianFunction: "get-custodian",
	}
}

// someCustodian is the read-only result (some 0x..c5)
func someCustodian() string {
	return "0x0a0200000014" + hex.EncodeToString(common.HexToAddress(testCustodian).Bytes())
}

func depositTx(id string, height uint64, amount string) Transaction {
	return Transaction{
		TxID:          id,
		TxType:        "contract_call",
		TxStatus:      TxStatusSuccess,
		SenderAddress: testSender,
		BlockHeight:   height,
		BurnBlockTime: 1700000000,
		Events: []Event{{
			EventType: EventTypeFungible,
			Asset: &Asset{
				AssetEventType: AssetEventTransfer,
				AssetID:        testAsset,
				Sender:         testSender,
				Recipient:      testGateway,
				Amount:         amount,
			},
		}},
	}
}
