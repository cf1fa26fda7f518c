// Package http provides chi-compatible helpers for error-returning handlers
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/chainsafe/stacks-relayer/pkg/app/errors"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies read by DecodeJSON
const maxBodyBytes = 1 << 20

// HandlerFunc is an http handler that reports failure through its return value
type HandlerFunc func(http.ResponseWriter, *http.Request) error

// ErrorResponse is the JSON body written for failed requests
type ErrorResponse struct {
	ErrMsg     string `json:"error"`
	ErrMsgCode int    `json:"code"`
}

// HandleError adapts h to http.HandlerFunc, rendering returned errors as JSON.
//
//	r.Post("/api/v1/relayer/start", http.HandleError(logger, h.start))
func HandleError(logger *zap.Logger, h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			DefaultErrorHandler(logger, w, r, err)
		}
	}
}

// DefaultErrorHandler writes err as an ErrorResponse; non-service errors become 500s
func DefaultErrorHandler(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		ErrMsg:     "Unexpected Service Error",
		ErrMsgCode: http.StatusInternalServerError,
	}

	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		resp.ErrMsg = svcErr.Message
		resp.ErrMsgCode = svcErr.StatusCode()
	}

	if logger != nil {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", resp.ErrMsgCode),
		}
		if resp.ErrMsgCode >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
		} else {
			logger.Warn("Request rejected", fields...)
		}
	}

	writeJSON(w, resp.ErrMsgCode, &resp)
}

// WriteJSON encodes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return writeJSON(w, status, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// DecodeJSON strictly decodes the request body into v
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.BadRequestError(err, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
