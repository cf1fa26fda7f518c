package relayer

import (
	"context"

	"github.com/chainsafe/stacks-relayer/pkg/auditlog"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/relayer"
)

// MockRelayer is a mock implementation of Relayer
type MockRelayer struct {
	StartFunc       func(ctx context.Context) error
	StopFunc        func()
	RestartFunc     func(ctx context.Context) error
	StateFunc       func() relayer.State
	HealthFunc      func() relayer.Health
	StatusFunc      func() relayer.Status
	ConfigFunc      func() config.RedactedConfig
	LogsFunc        func(filter auditlog.Filter) []auditlog.Entry
	LogStatsFunc    func() auditlog.Stats
	ClearLogsFunc   func()
	MessagesFunc    func(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error)
	SubmitEventFunc func(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error)
}

func (m *MockRelayer) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	return nil
}

func (m *MockRelayer) Stop() {
	if m.StopFunc != nil {
		m.StopFunc()
	}
}

func (m *MockRelayer) Restart(ctx context.Context) error {
	if m.RestartFunc != nil {
		return m.RestartFunc(ctx)
	}
	return nil
}

func (m *MockRelayer) State() relayer.State {
	if m.StateFunc != nil {
		return m.StateFunc()
	}
	return relayer.StateStopped
}

func (m *MockRelayer) Health() relayer.Health {
	if m.HealthFunc != nil {
		return m.HealthFunc()
	}
	return relayer.HealthUnhealthy
}

func (m *MockRelayer) Status() relayer.Status {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return relayer.Status{State: m.State(), Health: m.Health(), Uptime: "0s"}
}

func (m *MockRelayer) Config() config.RedactedConfig {
	if m.ConfigFunc != nil {
		return m.ConfigFunc()
	}
	return config.RedactedConfig{}
}

func (m *MockRelayer) Logs(filter auditlog.Filter) []auditlog.Entry {
	if m.LogsFunc != nil {
		return m.LogsFunc(filter)
	}
	return nil
}

func (m *MockRelayer) LogStats() auditlog.Stats {
	if m.LogStatsFunc != nil {
		return m.LogStatsFunc()
	}
	return auditlog.Stats{}
}

func (m *MockRelayer) ClearLogs() {
	if m.ClearLogsFunc != nil {
		m.ClearLogsFunc()
	}
}

func (m *MockRelayer) Messages(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	if m.MessagesFunc != nil {
		return m.MessagesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockRelayer) SubmitEvent(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
	if m.SubmitEventFunc != nil {
		return m.SubmitEventFunc(ctx, event)
	}
	return nil, nil
}
