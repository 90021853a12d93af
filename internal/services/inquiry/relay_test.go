package inquiry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type webhook struct {
	srv      *httptest.Server
	calls    atomic.Int32
	mu       sync.Mutex
	payloads []Payload
}

// newWebhook answers the i-th call with statuses[i], then 200.
func newWebhook(t *testing.T, statuses ...int) *webhook {
	t.Helper()
	w := &webhook{}
	w.srv = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		n := int(w.calls.Add(1))
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil {
			w.mu.Lock()
			w.payloads = append(w.payloads, p)
			w.mu.Unlock()
		}
		if n <= len(statuses) {
			rw.WriteHeader(statuses[n-1])
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(w.srv.Close)
	return w
}

func newTestRelay(w *webhook, logger *zap.Logger) *Relay {
	return NewRelay(RelayConfig{
		URL:             w.srv.URL,
		Client:          w.srv.Client(),
		Logger:          logger,
		MaxTries:        3,
		Budget:          5 * time.Second,
		InitialInterval: time.Millisecond,
	})
}

func TestRelayRetriesTransientFailures(t *testing.T) {
	w := newWebhook(t, http.StatusBadGateway, http.StatusServiceUnavailable)
	core, logs := observer.New(zapcore.WarnLevel)
	relay := newTestRelay(w, zap.New(core))

	if err := relay.Deliver(context.Background(), NewPayload(validSubmission(), time.Now())); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := w.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
	if got := logs.FilterMessage("inquiry webhook failed, retrying").Len(); got != 2 {
		t.Fatalf("retry warnings = %d, want 2", got)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.payloads[0].Email != "ada@example.com" || w.payloads[0].ProductName != "N/A" {
		t.Fatalf("payload = %+v", w.payloads[0])
	}
}

func TestRelayGivesUpAfterMaxTries(t *testing.T) {
	w := newWebhook(t, 500, 500, 500, 500)
	err := newTestRelay(w, nil).Deliver(context.Background(), Payload{})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("deliver = %v", err)
	}
	if got := w.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestRelayDoesNotRetryRejectedSubmission(t *testing.T) {
	w := newWebhook(t, http.StatusBadRequest)
	err := newTestRelay(w, nil).Deliver(context.Background(), Payload{})
	if err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Fatalf("deliver = %v", err)
	}
	if got := w.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestRelayDisabledWithoutURL(t *testing.T) {
	relay := NewRelay(RelayConfig{})
	if relay.Enabled() {
		t.Fatal("relay without url should be disabled")
	}
	if err := relay.Deliver(context.Background(), Payload{}); err != nil {
		t.Fatalf("disabled deliver = %v", err)
	}
	relay.Dispatch(context.Background(), Payload{})
	var nilRelay *Relay
	nilRelay.Dispatch(context.Background(), Payload{})
	if err := nilRelay.Wait(context.Background()); err != nil {
		t.Fatalf("nil wait = %v", err)
	}
}

func TestServiceSubmitDispatchesWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	relay := NewRelay(RelayConfig{URL: srv.URL, Client: srv.Client(), MaxTries: 1, Budget: 5 * time.Second})
	svc := NewService(relay, nil)

	ctx, cancel := context.WithCancel(context.Background())
	res, err := svc.Submit(ctx, validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel()
	if !strings.HasPrefix(res.WhatsAppLink, WhatsAppBase) {
		t.Fatalf("link = %q", res.WhatsAppLink)
	}

	close(release)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := relay.Wait(waitCtx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("webhook calls = %d, want 1", calls.Load())
	}
}

func TestServiceSubmitRejectsInvalid(t *testing.T) {
	w := newWebhook(t)
	relay := newTestRelay(w, nil)
	_, err := NewService(relay, nil).Submit(context.Background(), Submission{Name: "x"})
	if _, ok := AsFieldErrors(err); !ok {
		t.Fatalf("submit = %v, want FieldErrors", err)
	}
	if err := relay.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if w.calls.Load() != 0 {
		t.Fatal("invalid submission reached the webhook")
	}
}
