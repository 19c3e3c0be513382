// Package webhook implements the optional outgoing notification C2 fires on
// every final transcription result: a single best-effort HTTP POST to the
// backend, whose failures are logged and never surfaced back to the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slidestream/sessioncore/internal/resilience"
	"github.com/slidestream/sessioncore/internal/session"
)

// defaultTimeout bounds a single delivery attempt when no timeout was
// configured.
const defaultTimeout = 5 * time.Second

// Notifier implements [session.WebhookNotifier] over net/http. It is safe
// for concurrent use; each Notify call gets its own request.
type Notifier struct {
	url     string
	token   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
	breaker *resilience.CircuitBreaker
}

// Option configures a [Notifier].
type Option func(*Notifier)

// WithHTTPClient overrides the default http.Client, e.g. to inject a
// transport with custom connection pooling in tests.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) {
		if c != nil {
			n.client = c
		}
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithCircuitBreaker overrides the breaker guarding delivery attempts. By
// default a Notifier gets its own breaker with [resilience]'s standard
// defaults.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(n *Notifier) {
		if cb != nil {
			n.breaker = cb
		}
	}
}

// New returns a Notifier that POSTs to baseURL + "/callbacks/transcript"
// with the given bearer token. timeout <= 0 falls back to [defaultTimeout].
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	n := &Notifier{
		url:     baseURL + "/callbacks/transcript",
		token:   token,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name: "webhook-delivery",
		}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify POSTs payload as JSON. Any failure — marshal error, dial error,
// non-2xx response — is logged and swallowed; the caller (C2's dispatch
// loop) must never block or retry on a flaky backend. Delivery attempts run
// through a circuit breaker so a backend that's already down doesn't pay a
// full dial timeout on every final result across every active session.
func (n *Notifier) Notify(ctx context.Context, payload session.WebhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Warn("webhook: failed to marshal payload", "session_id", payload.SessionID, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err = n.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if n.token != "" {
			req.Header.Set("Authorization", "Bearer "+n.token)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("delivery: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		n.logger.Warn("webhook: callback failed", "session_id", payload.SessionID, "err", err)
	}
}
