// Package stacks watches a Stacks chain for deposits into the bridge gateway.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chainsafe/stacks-relayer/pkg/bridge"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 15 * time.Second

	// Limit error-body reads so we don't slurp huge responses.
	maxErrBodyBytes = 4096
)

// API is the subset of the Stacks Blockchain API used by the watchers
type API interface {
	TipHeight(ctx context.Context) (uint64, error)
	BlockTransactions(ctx context.Context, height uint64) ([]Transaction, error)
	Transaction(ctx context.Context, txID string) (*Transaction, error)
	CallReadOnly(ctx context.Context, contractID, function string, args []string) (string, error)
}

// Option configures a Client
type Option func(*settings)

type settings struct {
	logger     *zap.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	pageLimit  int
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithRateLimit bounds outgoing requests per second; rps <= 0 disables the limiter
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPageLimit sets the page size used when listing block transactions
func WithPageLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageLimit = n
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{
		logger:     zap.NewNop(),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestLimit), defaultRequestLimit),
		pageLimit:  defaultPageLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// Client talks to a Stacks Blockchain API node
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageLimit  int
	logger     *zap.Logger
}

// NewClient creates a client for the API at apiURL
func NewClient(apiURL string, opts ...Option) *Client {
	s := applyOptions(opts)
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/"),
		httpClient: s.httpClient,
		limiter:    s.limiter,
		pageLimit:  s.pageLimit,
		logger:     s.logger,
	}
}

// TipHeight returns the current Stacks chain tip height
func (c *Client) TipHeight(ctx context.Context) (uint64, error) {
	var info NodeInfo
	if err := c.do(ctx, http.MethodGet, "/v2/info", nil, &info); err != nil {
		return 0, fmt.Errorf("get node info: %w", err)
	}
	return info.StacksTipHeight, nil
}

// BlockTransactions returns every transaction confirmed at height, following pagination
func (c *Client) BlockTransactions(ctx context.Context, height uint64) ([]Transaction, error) {
	var all []Transaction
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(c.pageLimit))
		q.Set("offset", fmt.Sprint(offset))
		path := fmt.Sprintf("/extended/v1/tx/block_height/%d?%s", height, q.Encode())

		var page TransactionList
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list transactions at height %d: %w", height, err)
		}
		all = append(all, page.Results...)
		offset += len(page.Results)

		if len(page.Results) == 0 || len(page.Results) < c.pageLimit || offset >= page.Total {
			break
		}
	}
	c.logger.Debug("Fetched block transactions",
		zap.Uint64("height", height),
		zap.Int("count", len(all)))
	return all, nil
}

// Transaction fetches a single transaction by id with its complete event list
func (c *Client) Transaction(ctx context.Context, txID string) (*Transaction, error) {
	var tx Transaction
	for offset := 0; ; {
		q := url.Values{}
		q.Set("event_limit", fmt.Sprint(maxEventPage))
		q.Set("event_offset", fmt.Sprint(offset))
		path := fmt.Sprintf("/extended/v1/tx/%s?%s", url.PathEscape(txID), q.Encode())

		var page Transaction
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("get transaction %s: %w", txID, err)
		}
		if offset == 0 {
			tx = page
			tx.Events = nil
		}
		tx.Events = append(tx.Events, page.Events...)
		offset += len(page.Events)

		if len(page.Events) == 0 || offset >= page.EventCount {
			break
		}
	}
	return &tx, nil
}

// CallReadOnly invokes a read-only function on contractID ("<address>.<name>") with
// hex-encoded Clarity arguments and returns the hex-encoded result.
func (c *Client) CallReadOnly(ctx context.Context, contractID, function string, args []string) (string, error) {
	addr, name, ok := strings.Cut(contractID, ".")
	if !ok || addr == "" || name == "" {
		return "", fmt.Errorf("%w: invalid contract identifier %q", bridge.ErrValidation, contractID)
	}
	if args == nil {
		args = []string{}
	}

	path := fmt.Sprintf("/v2/contracts/call-read/%s/%s/%s",
		url.PathEscape(addr), url.PathEscape(name), url.PathEscape(function))

	var out ReadOnlyResponse
	if err := c.do(ctx, http.MethodPost, path, ReadOnlyRequest{Sender: addr, Arguments: args}, &out); err != nil {
		return "", fmt.Errorf("call %s.%s: %w", contractID, function, err)
	}
	if !out.Okay {
		return "", fmt.Errorf("call %s.%s rejected: %s", contractID, function, out.Cause)
	}
	return out.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", bridge.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return readHTTPError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: status %d and body read failed: %v", bridge.ErrTransientNetwork, resp.StatusCode, err)
	}
	return fmt.Errorf("%w: status %d: %s", bridge.ErrTransientNetwork, resp.StatusCode, strings.TrimSpace(string(b)))
}
