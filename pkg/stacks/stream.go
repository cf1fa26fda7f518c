package stacks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsHandshakeTimeout = 10 * time.Second

// rpcMessage covers both JSON-RPC responses and notifications on the socket
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int            `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// StreamingWatcher subscribes to new-block notifications and scans each notified
// block as it arrives, back-filling heights missed while disconnected.
type StreamingWatcher struct {
	*base
}

// Start connects in the background. Starting a running watcher is a no-op.
func (w *StreamingWatcher) Start(ctx context.Context, sink bridge.EventSink) error {
	if !w.launch(ctx, func(ctx context.Context) { w.run(ctx, sink) }) {
		w.logger.Warn("Source watcher already running")
		return nil
	}
	w.logger.Info("Source watcher started",
		zap.String("mode", ModeStreaming),
		zap.String("ws_url", w.cfg.WSURL))
	return nil
}

func (w *StreamingWatcher) run(ctx context.Context, sink bridge.EventSink) {
	for {
		err := w.stream(ctx, sink)
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("Block stream interrupted; reconnecting",
			zap.Error(err),
			zap.Duration("retry_delay", w.cfg.RetryDelay))
		if !sleep(ctx, w.cfg.RetryDelay) {
			return
		}
	}
}

// stream holds one websocket session; it returns when the socket fails or ctx ends
func (w *StreamingWatcher) stream(ctx context.Context, sink bridge.EventSink) error {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.cfg.WSURL, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket dial: %v", bridge.ErrTransientNetwork, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sub := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "subscribe",
		Params:  map[string]any{"event": "block"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("%w: send subscribe: %v", bridge.ErrTransientNetwork, err)
	}

	// pick up anything produced while we were away
	tip, err := w.api.TipHeight(ctx)
	if err != nil {
		return err
	}
	if err := w.catchUp(ctx, sink, tip); err != nil {
		return err
	}

	for {
		var msg rpcMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: read: %v", bridge.ErrTransientNetwork, err)
		}
		if msg.Error != nil {
			return fmt.Errorf("subscription error %d: %s", msg.Error.Code, msg.Error.Message)
		}
		if msg.Method != "block" {
			continue
		}

		var block BlockNotification
		if err := json.Unmarshal(msg.Params, &block); err != nil {
			w.logger.Warn("Ignoring malformed block notification", zap.Error(err))
			continue
		}
		w.logger.Debug("Block notification", zap.Uint64("height", block.Height), zap.String("hash", block.Hash))

		if err := w.catchUp(ctx, sink, block.Height); err != nil {
			return err
		}
	}
}
