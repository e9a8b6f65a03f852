package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/livinlefevreloca/wosync/internal/workorder"
)

// maxBodyBytes caps how much of a response is buffered.
const maxBodyBytes = 4 << 20

// WriteResult is the upstream answer to a successful write.
type WriteResult struct {
	StatusCode int
	Body       []byte // empty when the upstream acknowledged with no body
}

// Client issues single-record reads and writes against the upstream
// work-order service. It keeps no state between calls.
type Client struct {
	config  Config
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. A nil httpClient gets a default client using
// config.Timeout.
func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:  config,
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

// FetchWorkOrder reads one work order. An empty answer is ErrNotFound; an
// answer for a different id is ErrIntegrityViolation.
func (c *Client) FetchWorkOrder(ctx context.Context, id int) (*workorder.WorkOrder, error) {
	status, body, err := c.do(ctx, "fetch", http.MethodGet, "/WorkOrder/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		c.logger.Debug("upstream returned empty work order", "work_order_id", id, "status", status)
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	wo, err := workorder.Decode(trimmed)
	if err != nil {
		return nil, &Error{Op: "fetch", StatusCode: status, Body: string(body), Err: err}
	}

	if wo.ID != id {
		c.logger.Error("upstream returned mismatched work order",
			"work_order_id", id,
			"returned_id", wo.ID)
		return nil, fmt.Errorf("%w: requested %d, got %d", ErrIntegrityViolation, id, wo.ID)
	}

	return wo, nil
}

// WriteWorkOrder sends the full envelope. The upstream overwrites the whole
// record.
func (c *Client) WriteWorkOrder(ctx context.Context, envelope *workorder.Envelope) (*WriteResult, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, &Error{Op: "write", Err: fmt.Errorf("encode envelope: %w", err)}
	}

	c.logger.Debug("writing work order",
		"work_order_id", envelope.ID(),
		"status_id", envelope.StatusID(),
		"field_count", len(envelope.Fields()))

	status, body, err := c.do(ctx, "write", http.MethodPut, "/WorkOrder", payload)
	if err != nil {
		return nil, err
	}

	return &WriteResult{StatusCode: status, Body: bytes.TrimSpace(body)}, nil
}

// Ping checks connectivity and credentials against a cheap settings endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, "ping", http.MethodGet, "/Settings/CompanyInfo", nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, &Error{Op: op, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Token", c.config.Token)
	if c.config.ServerName != "" {
		req.Header.Set("ServerName", c.config.ServerName)
	}
	if c.config.Host != "" {
		req.Host = c.config.Host
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("upstream call failed",
			"op", op,
			"path", path,
			"status", resp.StatusCode)
		return resp.StatusCode, body, &Error{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp.StatusCode, body, nil
}
