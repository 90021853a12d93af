// Package timeouts defines shared timeout constants used across services.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// ImageFetch caps a single image fetch attempt.
const ImageFetch = 10 * time.Second

// Webhook caps one delivery attempt to the inquiry webhook.
const Webhook = 5 * time.Second

// WebhookBudget caps all delivery attempts for one inquiry.
const WebhookBudget = 30 * time.Second

// OTelShutdown limits how long telemetry flushes on exit.
const OTelShutdown = 5 * time.Second
