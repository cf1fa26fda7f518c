package relayer

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/chainsafe/stacks-relayer/pkg/app/errors"
	apphttp "github.com/chainsafe/stacks-relayer/pkg/app/http"
	"github.com/chainsafe/stacks-relayer/pkg/auditlog"
	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/relayer"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Relayer is the orchestrator surface exposed over HTTP
type Relayer interface {
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
	State() relayer.State
	Health() relayer.Health
	Status() relayer.Status
	Config() config.RedactedConfig
	Logs(filter auditlog.Filter) []auditlog.Entry
	LogStats() auditlog.Stats
	ClearLogs()
	Messages(ctx context.Context, limit int) ([]*bridge.ProcessedMessageRecord, error)
	SubmitEvent(ctx context.Context, event *bridge.SourceDepositEvent) (*bridge.ProcessedMessageRecord, error)
}

// submitEventRequest is the body of POST /api/v1/relayer/events.
// Amount is an integer in the smallest source unit, or "decimal:<whole units>".
type submitEventRequest struct {
	SourceTxHash  string `json:"source_tx_hash"`
	SourceAddress string `json:"source_address"`
	Amount        string `json:"amount"`
	Custodian     string `json:"custodian"`
	BlockHeight   uint64 `json:"block_height"`
}

type submitEventResponse struct {
	Status string                         `json:"status"`
	Amount string                         `json:"amount"`
	Record *bridge.ProcessedMessageRecord `json:"record,omitempty"`
}

type handler struct {
	relayer  Relayer
	decimals int32
	logger   *zap.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) error {
	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"status": string(h.relayer.Health()),
		"state":  string(h.relayer.State()),
	})
}

func (h *handler) ready(w http.ResponseWriter, _ *http.Request) error {
	if h.relayer.Health() != relayer.HealthHealthy {
		return apphttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "NOT_READY"})
	}
	return apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "READY"})
}

func (h *handler) start(w http.ResponseWriter, r *http.Request) error {
	if err := h.relayer.Start(r.Context()); err != nil {
		return apperrors.FromRelayer(err)
	}
	return h.status(w, r)
}

func (h *handler) stop(w http.ResponseWriter, r *http.Request) error {
	h.relayer.Stop()
	return h.status(w, r)
}

func (h *handler) restart(w http.ResponseWriter, r *http.Request) error {
	if err := h.relayer.Restart(r.Context()); err != nil {
		return apperrors.FromRelayer(err)
	}
	return h.status(w, r)
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) error {
	return apphttp.WriteJSON(w, http.StatusOK, h.relayer.Status())
}

func (h *handler) config(w http.ResponseWriter, _ *http.Request) error {
	return apphttp.WriteJSON(w, http.StatusOK, h.relayer.Config())
}

func (h *handler) logs(w http.ResponseWriter, r *http.Request) error {
	filter, err := parseLogFilter(r)
	if err != nil {
		return err
	}
	entries := h.relayer.Logs(filter)
	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}

func (h *handler) logStats(w http.ResponseWriter, _ *http.Request) error {
	return apphttp.WriteJSON(w, http.StatusOK, h.relayer.LogStats())
}

func (h *handler) clearLogs(w http.ResponseWriter, _ *http.Request) error {
	h.relayer.ClearLogs()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handler) messages(w http.ResponseWriter, r *http.Request) error {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		return err
	}
	recs, err := h.relayer.Messages(r.Context(), clampLimit(limit))
	if err != nil {
		return apperrors.DependencyError(err, "failed to list messages")
	}
	return apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"messages": recs,
		"count":    len(recs),
	})
}

func (h *handler) submitEvent(w http.ResponseWriter, r *http.Request) error {
	var req submitEventRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		return err
	}
	event, err := h.toEvent(&req)
	if err != nil {
		return err
	}

	rec, err := h.relayer.SubmitEvent(r.Context(), event)
	if err != nil {
		return apperrors.FromRelayer(err)
	}

	resp := submitEventResponse{
		Status: "relayed",
		Amount: bridge.FormatAmount(event.Amount, h.decimals),
		Record: rec,
	}
	if rec == nil {
		resp.Status = "skipped"
	}
	return apphttp.WriteJSON(w, http.StatusOK, &resp)
}

func (h *handler) toEvent(req *submitEventRequest) (*bridge.SourceDepositEvent, error) {
	if strings.TrimSpace(req.SourceTxHash) == "" {
		return nil, apperrors.BadRequestError(nil, "source_tx_hash is required")
	}
	if strings.TrimSpace(req.SourceAddress) == "" {
		return nil, apperrors.BadRequestError(nil, "source_address is required")
	}
	if !common.IsHexAddress(req.Custodian) {
		return nil, apperrors.BadRequestError(nil, "custodian must be a hex address")
	}
	amount, err := bridge.ParseAmount(req.Amount, h.decimals)
	if err != nil {
		return nil, apperrors.BadRequestError(err, err.Error())
	}

	custodian := common.HexToAddress(req.Custodian)
	return &bridge.SourceDepositEvent{
		ID:                   req.SourceTxHash + "-manual",
		EventType:            bridge.EventTypeDeposit,
		SourceAddress:        req.SourceAddress,
		Amount:               amount,
		SourceTxHash:         req.SourceTxHash,
		BlockHeight:          req.BlockHeight,
		Timestamp:            time.Now().UTC(),
		DestinationCustodian: &custodian,
	}, nil
}

func parseLogFilter(r *http.Request) (auditlog.Filter, error) {
	q := r.URL.Query()
	var f auditlog.Filter

	if v := q.Get("level"); v != "" {
		level, ok := auditlog.ParseLevel(v)
		if !ok {
			return f, apperrors.BadRequestError(nil, fmt.Sprintf("invalid level %q", v))
		}
		f.Level = level
	}
	f.Category = q.Get("category")

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, apperrors.BadRequestError(err, "since must be RFC3339")
		}
		f.Since = since
	}

	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		return f, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return f, err
	}
	f.Limit = clampLimit(limit)
	f.Offset = offset
	return f, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.BadRequestError(err, fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return n, nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
