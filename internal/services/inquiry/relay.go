package inquiry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ounjeeh/staples/internal/platform/otel"
	"github.com/ounjeeh/staples/internal/platform/timeouts"
)

// DefaultRelayTries bounds webhook delivery attempts.
const DefaultRelayTries = 4

// RelayConfig configures webhook delivery.
type RelayConfig struct {
	// URL is the CRM webhook. Empty disables relaying.
	URL    string
	Client *http.Client
	Logger *zap.Logger
	// MaxTries bounds attempts per submission; zero means DefaultRelayTries.
	MaxTries uint
	// Budget bounds the total time spent on one submission.
	Budget time.Duration
	// InitialInterval is the first retry delay; zero uses the backoff default.
	InitialInterval time.Duration
}

// Relay posts submissions to the CRM webhook with retries.
type Relay struct {
	url      string
	client   *http.Client
	logger   *zap.Logger
	tracer   trace.Tracer
	maxTries uint
	budget   time.Duration
	initial  time.Duration

	wg sync.WaitGroup
}

// NewRelay builds a Relay from cfg.
func NewRelay(cfg RelayConfig) *Relay {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeouts.Webhook}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tries := cfg.MaxTries
	if tries == 0 {
		tries = DefaultRelayTries
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = timeouts.WebhookBudget
	}
	return &Relay{
		url:      strings.TrimSpace(cfg.URL),
		client:   client,
		logger:   logger,
		tracer:   otel.Tracer("inquiry"),
		maxTries: tries,
		budget:   budget,
		initial:  cfg.InitialInterval,
	}
}

// Enabled reports whether a webhook is configured.
func (r *Relay) Enabled() bool {
	return r != nil && r.url != ""
}

// Dispatch delivers p in the background. The visitor is never blocked and
// failures are only logged. Cancelling ctx does not abort delivery.
func (r *Relay) Dispatch(ctx context.Context, p Payload) {
	if !r.Enabled() {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.budget)
		defer cancel()
		if err := r.Deliver(ctx, p); err != nil {
			r.logger.Error("inquiry webhook delivery failed",
				zap.String("mode", string(p.Mode)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until background deliveries finish or ctx ends.
func (r *Relay) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver posts p, retrying transient failures with exponential backoff.
func (r *Relay) Deliver(ctx context.Context, p Payload) (err error) {
	if !r.Enabled() {
		return nil
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, span := r.tracer.Start(ctx, "inquiry.webhook", trace.WithAttributes(attribute.String("inquiry.mode", string(p.Mode))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	policy := backoff.NewExponentialBackOff()
	if r.initial > 0 {
		policy.InitialInterval = r.initial
	}
	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, r.post(ctx, body)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(r.budget),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn("inquiry webhook failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)
	span.SetAttributes(attribute.Int("inquiry.webhook.attempts", attempt))
	return err
}

func (r *Relay) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
			return backoff.RetryAfter(secs)
		}
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode >= 500:
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("webhook rejected submission: status %d", resp.StatusCode))
	}
}
