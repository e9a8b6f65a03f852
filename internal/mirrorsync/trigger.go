package mirrorsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Result reports the outcome of one trigger call. A failed trigger is never
// an error for the caller; mirror freshness is best-effort.
type Result struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message"`
	At         time.Time `json:"timestamp"`
}

// Stats provides trigger counters since process start
type Stats struct {
	Attempts  int
	Successes int
	Failures  int
	Last      *Result
}

// Trigger fires one-shot notifications at the reconciliation pipeline
type Trigger struct {
	config Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	stats Stats
}

// NewTrigger creates a trigger. A nil httpClient gets a default client using
// config.Timeout.
func NewTrigger(config Config, httpClient *http.Client, logger *slog.Logger) (*Trigger, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Trigger{
		config: config,
		http:   httpClient,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Enabled reports whether an endpoint is configured
func (t *Trigger) Enabled() bool {
	return t.config.Endpoint != ""
}

// TriggerSync notifies the pipeline once. Failures are logged and reported in
// the result, never returned.
func (t *Trigger) TriggerSync(ctx context.Context) Result {
	if !t.Enabled() {
		t.logger.Debug("mirror sync disabled, no endpoint configured")
		return Result{Success: false, Message: "disabled", At: t.now()}
	}

	result := t.fire(ctx)
	t.record(result)
	return result
}

func (t *Trigger) fire(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, t.config.Method, t.config.Endpoint, nil)
	if err != nil {
		t.logger.Error("failed to build mirror sync request", "error", err)
		return Result{Message: fmt.Sprintf("build request: %v", err), At: t.now()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		t.logger.Error("failed to trigger mirror sync", "error", err)
		return Result{Message: fmt.Sprintf("trigger failed: %v", err), At: t.now()}
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the body has no contract.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Warn("mirror sync webhook returned non-success status",
			"status", resp.StatusCode)
		return Result{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook returned status %d", resp.StatusCode),
			At:         t.now(),
		}
	}

	t.logger.Info("mirror sync triggered", "status", resp.StatusCode)
	return Result{
		Success:    true,
		StatusCode: resp.StatusCode,
		Message:    "mirror sync triggered",
		At:         t.now(),
	}
}

func (t *Trigger) record(result Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.Attempts++
	if result.Success {
		t.stats.Successes++
	} else {
		t.stats.Failures++
	}
	last := result
	t.stats.Last = &last
}

// GetStats returns current trigger statistics
func (t *Trigger) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// GetConfig returns the trigger configuration
func (t *Trigger) GetConfig() Config {
	return t.config
}
