package relayer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chainsafe/stacks-relayer/internal/metrics"
	"github.com/chainsafe/stacks-relayer/pkg/auditlog"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"go.uber.org/zap"
)

// State is the orchestrator lifecycle state
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// Health is the aggregate relayer health
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
)

// SourceProbe checks that the source chain API answers
type SourceProbe interface {
	TipHeight(ctx context.Context) (uint64, error)
}

// DestinationProbe checks that the destination RPC answers
type DestinationProbe interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Status is the aggregate view returned by the admin API
type Status struct {
	State      State            `json:"state"`
	Health     Health           `json:"health"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	Uptime     string           `json:"uptime"`
	UptimeSecs float64          `json:"uptime_seconds"`
	Monitoring MonitoringStatus `json:"monitoring"`
	Stats      Stats            `json:"stats"`
}

// Orchestrator owns the relayer lifecycle
type Orchestrator struct {
	coordinator *Coordinator
	source      SourceProbe
	destination DestinationProbe
	audit       *auditlog.Log
	cfg         config.RedactedConfig
	logger      *zap.Logger
	now         func() time.Time

	// lifecycle serializes Start and Stop; mu guards the fields below and is never
	// held across a chain probe
	lifecycle sync.Mutex

	mu        sync.Mutex
	state     State
	startTime time.Time
	cancel    context.CancelFunc
}

// NewOrchestrator creates a stopped orchestrator
func NewOrchestrator(
	coordinator *Coordinator,
	source SourceProbe,
	destination DestinationProbe,
	audit *auditlog.Log,
	cfg config.RedactedConfig,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if audit == nil {
		audit = auditlog.New(0, auditlog.WithMirror(nil))
	}
	return &Orchestrator{
		coordinator: coordinator,
		source:      source,
		destination: destination,
		audit:       audit,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		state:       StateStopped,
	}
}

// Start probes both chains and launches monitoring. Starting a running relayer is a no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.State() == StateRunning {
		o.logger.Warn("Relayer already running")
		return nil
	}

	o.logger.Info("Starting relayer")

	tip, err := o.source.TipHeight(ctx)
	if err != nil {
		o.logger.Error("Source chain unreachable", zap.Error(err))
		return fmt.Errorf("%w: source chain probe: %v", bridge.ErrFatalStartup, err)
	}
	block, err := o.destination.BlockNumber(ctx)
	if err != nil {
		o.logger.Error("Destination chain unreachable", zap.Error(err))
		return fmt.Errorf("%w: destination chain probe: %v", bridge.ErrFatalStartup, err)
	}

	// monitoring outlives the caller's context; Stop cancels it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := o.coordinator.Start(runCtx); err != nil {
		cancel()
		o.logger.Error("Failed to start monitoring", zap.Error(err))
		return fmt.Errorf("%w: %v", bridge.ErrFatalStartup, err)
	}

	o.mu.Lock()
	o.cancel = cancel
	o.state = StateRunning
	o.startTime = o.now()
	o.mu.Unlock()
	metrics.RelayerRunning.Set(1)

	o.logger.Info("Relayer started",
		zap.Uint64("source_tip_height", tip),
		zap.Uint64("destination_block", block))
	return nil
}

// Stop halts monitoring. Stopping a stopped relayer is a no-op.
func (o *Orchestrator) Stop() {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	if o.State() == StateStopped {
		o.logger.Warn("Relayer is not running")
		return
	}

	o.coordinator.Stop()

	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	uptime := o.now().Sub(o.startTime)
	o.state = StateStopped
	o.startTime = time.Time{}
	o.mu.Unlock()
	metrics.RelayerRunning.Set(0)

	o.logger.Info("Relayer stopped", zap.Duration("uptime", uptime))
}

// Restart stops and starts the relayer
func (o *Orchestrator) Restart(ctx context.Context) error {
	o.logger.Info("Restarting relayer")
	o.Stop()
	return o.Start(ctx)
}

// State returns the lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Health is healthy only while running with both chain loops monitoring
func (o *Orchestrator) Health() Health {
	if o.State() != StateRunning {
		return HealthUnhealthy
	}
	m := o.coordinator.MonitoringStatus()
	if !m.Source.IsMonitoring || !m.Destination.IsMonitoring {
		return HealthUnhealthy
	}
	return HealthHealthy
}

// Uptime is the time since Start while running, else zero
func (o *Orchestrator) Uptime() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return 0
	}
	return o.now().Sub(o.startTime)
}

// Status aggregates lifecycle, health, monitoring and stats
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	state := o.state
	started := o.startTime
	o.mu.Unlock()

	s := Status{
		State:      state,
		Health:     o.Health(),
		Monitoring: o.coordinator.MonitoringStatus(),
		Stats:      o.coordinator.Stats(),
	}
	if state == StateRunning {
		uptime := o.now().Sub(started)
		s.StartedAt = &started
		s.Uptime = uptime.Truncate(time.Second).String()
		s.UptimeSecs = uptime.Seconds()
	} else {
		s.Uptime = time.Duration(0).String()
	}
	return s
}

// Stats returns the coordinator counters
func (o *Orchestrator) Stats() Stats {
	return o.coordinator.Stats()
}

// Config returns the configuration view without secrets
func (o *Orchestrator) Config() config.RedactedConfig {
	return o.cfg
}

// Logs queries the audit log
func (o *Orchestrator) Logs(filter auditlog.Filter) []auditlog.Entry {
	return o.audit.Query(filter)
}

// LogStats summarizes the audit log
func (o *Orchestrator) LogStats() auditlog.Stats {
	return o.audit.Stats()
}

// ClearLogs empties the audit log
func (o *Orchestrator) ClearLogs() {
	o.audit.Clear()
	o.logger.Info("Audit log cleared")
}

// Messages lists recent processed-message records
func (o *Orchestrator) Messages(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error) {
	return o.coordinator.Records(ctx, limit)
}

// SubmitEvent relays a manually supplied deposit.
// A nil record with a nil error means the message was already relayed or is in flight.
func (o *Orchestrator) SubmitEvent(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", bridge.ErrValidation)
	}
	o.logger.Info("Manual deposit submitted",
		zap.String("source_tx_hash", event.SourceTxHash),
		zap.String("source_address", event.SourceAddress))
	return o.coordinator.Process(ctx, event)
}
