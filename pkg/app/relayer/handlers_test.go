package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/auditlog"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum"
	"github.com/chainsafe/stacks-relayer/pkg/relayer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Source.Decimals = 8
	cfg.Monitoring.MetricsEnabled = true
	return cfg
}

func serve(t *testing.T, r Relayer, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewRouter(r, testConfig(), zap.NewNop())

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	health := relayer.HealthUnhealthy
	m := &MockRelayer{
		HealthFunc: func() relayer.Health { return health },
		StateFunc:  func() relayer.State { return relayer.StateRunning },
	}

	rec := serve(t, m, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "unhealthy", "state": "running"}, decode[map[string]string](t, rec))

	rec = serve(t, m, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	health = relayer.HealthHealthy
	rec = serve(t, m, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &MockRelayer{}, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bridge_relayer_running")
}

func TestLifecycleEndpoints(t *testing.T) {
	var calls []string
	m := &MockRelayer{
		StartFunc: func(ctx context.Context) error {
			calls = append(calls, "start")
			return nil
		},
		StopFunc: func() { calls = append(calls, "stop") },
		RestartFunc: func(ctx context.Context) error {
			calls = append(calls, "restart")
			return nil
		},
	}

	for _, path := range []string{"start", "stop", "restart"} {
		rec := serve(t, m, http.MethodPost, "/api/v1/relayer/"+path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		status := decode[relayer.Status](t, rec)
		assert.Equal(t, relayer.StateStopped, status.State)
	}
	assert.Equal(t, []string{"start", "stop", "restart"}, calls)

	rec := serve(t, m, http.MethodGet, "/api/v1/relayer/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStart_FatalStartupMapsToBadGateway(t *testing.T) {
	m := &MockRelayer{
		StartFunc: func(ctx context.Context) error {
			return fmt.Errorf("%w: source chain probe: connection refused", bridge.ErrFatalStartup)
		},
	}

	rec := serve(t, m, http.MethodPost, "/api/v1/relayer/start", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, http.StatusBadGateway, body.Code)
	assert.Contains(t, body.Error, "connection refused")
}

func TestConfigEndpoint(t *testing.T) {
	m := &MockRelayer{
		ConfigFunc: func() config.RedactedConfig {
			var c config.RedactedConfig
			c.Source.Network = "testnet"
			return c
		},
	}

	rec := serve(t, m, http.MethodGet, "/api/v1/relayer/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"network":"testnet"`)
	assert.NotContains(t, rec.Body.String(), "private_key")
}

func TestLogsEndpoint(t *testing.T) {
	var got auditlog.Filter
	m := &MockRelayer{
		LogsFunc: func(filter auditlog.Filter) []auditlog.Entry {
			got = filter
			return []auditlog.Entry{{ID: "1", Level: auditlog.LevelError, Message: "boom"}}
		},
	}

	rec := serve(t, m, http.MethodGet, "/api/v1/relayer/logs?level=error&category=coordinator&limit=5&since=2025-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auditlog.LevelError, got.Level)
	assert.Equal(t, "coordinator", got.Category)
	assert.Equal(t, 5, got.Limit)
	assert.True(t, got.Since.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	body := decode[struct {
		Logs  []auditlog.Entry `json:"logs"`
		Count int              `json:"count"`
	}](t, rec)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "boom", body.Logs[0].Message)
}

func TestLogsEndpoint_DefaultsAndClamps(t *testing.T) {
	var got auditlog.Filter
	m := &MockRelayer{
		LogsFunc: func(filter auditlog.Filter) []auditlog.Entry {
			got = filter
			return nil
		},
	}

	serve(t, m, http.MethodGet, "/api/v1/relayer/logs", "")
	assert.Equal(t, defaultListLimit, got.Limit)

	serve(t, m, http.MethodGet, "/api/v1/relayer/logs?limit=50000", "")
	assert.Equal(t, maxListLimit, got.Limit)
}

func TestLogsEndpoint_InvalidQuery(t *testing.T) {
	tests := []string{
		"level=verbose",
		"since=yesterday",
		"limit=-1",
		"offset=abc",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			rec := serve(t, &MockRelayer{}, http.MethodGet, "/api/v1/relayer/logs?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogStatsAndClear(t *testing.T) {
	cleared := false
	m := &MockRelayer{
		LogStatsFunc: func() auditlog.Stats {
			return auditlog.Stats{Total: 3, Capacity: 10, ByLevel: map[auditlog.Level]int{auditlog.LevelInfo: 3}}
		},
		ClearLogsFunc: func() { cleared = true },
	}

	rec := serve(t, m, http.MethodGet, "/api/v1/relayer/logs/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[auditlog.Stats](t, rec)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 10, stats.Capacity)

	rec = serve(t, m, http.MethodDelete, "/api/v1/relayer/logs", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, cleared)
}

func TestMessagesEndpoint(t *testing.T) {
	var gotLimit int
	m := &MockRelayer{
		MessagesFunc: func(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
			gotLimit = limit
			return []*bridge.ProcessedMessageRecord{{MessageID: "0x01", Success: true}}, nil
		},
	}

	rec := serve(t, m, http.MethodGet, "/api/v1/relayer/messages?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gotLimit)
	assert.Contains(t, rec.Body.String(), `"message_id":"0x01"`)

	m.MessagesFunc = func(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
		return nil, errors.New("redis down")
	}
	rec = serve(t, m, http.MethodGet, "/api/v1/relayer/messages", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSubmitEvent(t *testing.T) {
	custodian := "0x00000000000000000000000000000000000000AA"
	var got *bridge.SourceDepositEvent
	m := &MockRelayer{
		SubmitEventFunc: func(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
			got = event
			return &bridge.ProcessedMessageRecord{MessageID: "0x01", Success: true}, nil
		},
	}

	body := fmt.Sprintf(`{"source_tx_hash":"0x5151","source_address":"S1","amount":"100000000","custodian":%q,"block_height":7}`, custodian)
	rec := serve(t, m, http.MethodPost, "/api/v1/relayer/events", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NotNil(t, got)
	assert.Equal(t, "S1", got.SourceAddress)
	assert.Equal(t, 0, got.Amount.Cmp(big.NewInt(100000000)))
	assert.Equal(t, common.HexToAddress(custodian), *got.DestinationCustodian)
	assert.Equal(t, uint64(7), got.BlockHeight)

	resp := decode[submitEventResponse](t, rec)
	assert.Equal(t, "relayed", resp.Status)
	assert.Equal(t, "1", resp.Amount)
	require.NotNil(t, resp.Record)
	assert.True(t, resp.Record.Success)
}

func TestSubmitEvent_DecimalAmount(t *testing.T) {
	var got *bridge.SourceDepositEvent
	m := &MockRelayer{
		SubmitEventFunc: func(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
			got = event
			return &bridge.ProcessedMessageRecord{MessageID: "0x01", Success: true}, nil
		},
	}

	body := `{"source_tx_hash":"0x5151","source_address":"S1","amount":"decimal:1.5","custodian":"0x00000000000000000000000000000000000000AA"}`
	rec := serve(t, m, http.MethodPost, "/api/v1/relayer/events", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Amount.Cmp(big.NewInt(150000000)))
	assert.Equal(t, "1.5", decode[submitEventResponse](t, rec).Amount)
}

func TestSubmitEvent_Skipped(t *testing.T) {
	body := `{"source_tx_hash":"0x5151","source_address":"S1","amount":"raw:100000000","custodian":"0x00000000000000000000000000000000000000AA"}`
	rec := serve(t, &MockRelayer{}, http.MethodPost, "/api/v1/relayer/events", body)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[submitEventResponse](t, rec)
	assert.Equal(t, "skipped", resp.Status)
	assert.Nil(t, resp.Record)
}

func TestSubmitEvent_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{
			name:   "invalid json",
			body:   `{invalid`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			body:   `{"source_tx_hash":"0x1","extra":true}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "missing tx hash",
			body:   `{"source_address":"S1","amount":"1","custodian":"0x00000000000000000000000000000000000000AA"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad custodian",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"1","custodian":"SP123"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "too many decimals",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"decimal:0.000000001","custodian":"0x00000000000000000000000000000000000000AA"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "fraction without decimal prefix",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"1.5","custodian":"0x00000000000000000000000000000000000000AA"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "already processed",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"1","custodian":"0x00000000000000000000000000000000000000AA"}`,
			err:    &ethereum.PreflightError{Check: ethereum.CheckIdempotency, Err: ethereum.ErrAlreadyProcessed},
			status: http.StatusConflict,
		},
		{
			name:   "paused",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"1","custodian":"0x00000000000000000000000000000000000000AA"}`,
			err:    &ethereum.PreflightError{Check: ethereum.CheckEmergencyPause, Err: ethereum.ErrEmergencyPaused},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "reverted",
			body:   `{"source_tx_hash":"0x1","source_address":"S1","amount":"1","custodian":"0x00000000000000000000000000000000000000AA"}`,
			err:    &ethereum.SubmissionError{Err: errors.New("transaction reverted")},
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockRelayer{
				SubmitEventFunc: func(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
					return nil, tt.err
				},
			}
			rec := serve(t, m, http.MethodPost, "/api/v1/relayer/events", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.status, decode[errorBody](t, rec).Code)
		})
	}
}
