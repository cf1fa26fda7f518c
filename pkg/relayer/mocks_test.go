package relayer

import (
	"context"
	"sync"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// MockSubmitter is a mock implementation of Submitter
type MockSubmitter struct {
	SubmitFunc func(ctx context.Context, msg *bridge.CrossChainMessage) (*ethereum.Receipt, error)

	mu       sync.Mutex
	messages []*bridge.CrossChainMessage
}

func (m *MockSubmitter) Submit(ctx context.Context, msg *bridge.CrossChainMessage) (*ethereum.Receipt, error) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, msg)
	}
	return &ethereum.Receipt{
		TxHash:      common.HexToHash("0xd00d"),
		BlockNumber: 42,
		GasUsed:     90000,
	}, nil
}

func (m *MockSubmitter) Messages() []*bridge.CrossChainMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*bridge.CrossChainMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// MockSourceWatcher is a mock implementation of SourceWatcher
type MockSourceWatcher struct {
	StartFunc func(ctx context.Context, sink bridge.EventSink) error

	mu         sync.Mutex
	monitoring bool
	sink       bridge.EventSink
}

func (m *MockSourceWatcher) Start(ctx context.Context, sink bridge.EventSink) error {
	if m.StartFunc != nil {
		if err := m.StartFunc(ctx, sink); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitoring = true
	m.sink = sink
	return nil
}

func (m *MockSourceWatcher) Stop() {
	m.SetMonitoring(false)
}

func (m *MockSourceWatcher) Status() bridge.MonitoringState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bridge.MonitoringState{Chain: "stacks", Mode: "polling", IsMonitoring: m.monitoring}
}

func (m *MockSourceWatcher) SetMonitoring(v bool) {
	m.mu.Lock()
	m.monitoring = v
	m.mu.Unlock()
}

func (m *MockSourceWatcher) Sink() bridge.EventSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sink
}

// MockConfirmationWatcher is a mock implementation of ConfirmationWatcher
type MockConfirmationWatcher struct {
	StartFunc func(ctx context.Context) error

	mu         sync.Mutex
	monitoring bool
	handler    bridge.ConfirmationHandler
}

func (m *MockConfirmationWatcher) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		if err := m.StartFunc(ctx); err != nil {
			return err
		}
	}
	m.SetMonitoring(true)
	return nil
}

func (m *MockConfirmationWatcher) Stop() {
	m.SetMonitoring(false)
}

func (m *MockConfirmationWatcher) Status() bridge.MonitoringState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bridge.MonitoringState{Chain: "ethereum", Mode: "polling", IsMonitoring: m.monitoring}
}

func (m *MockConfirmationWatcher) OnConfirmation(h bridge.ConfirmationHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

func (m *MockConfirmationWatcher) SetMonitoring(v bool) {
	m.mu.Lock()
	m.monitoring = v
	m.mu.Unlock()
}

func (m *MockConfirmationWatcher) Emit(c *bridge.Confirmation) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(c)
	}
}

// MockSourceProbe is a mock implementation of SourceProbe
type MockSourceProbe struct {
	TipHeightFunc func(ctx context.Context) (uint64, error)
}

func (m *MockSourceProbe) TipHeight(ctx context.Context) (uint64, error) {
	if m.TipHeightFunc != nil {
		return m.TipHeightFunc(ctx)
	}
	return 1000, nil
}

// MockDestinationProbe is a mock implementation of DestinationProbe
type MockDestinationProbe struct {
	BlockNumberFunc func(ctx context.Context) (uint64, error)
}

func (m *MockDestinationProbe) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberFunc != nil {
		return m.BlockNumberFunc(ctx)
	}
	return 500, nil
}
