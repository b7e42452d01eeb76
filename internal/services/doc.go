// Package services implements the HTTP client for the Sunnify scrape service.
//
// # Scrape Endpoint
//
// [APIService.Scrape] posts a [ScrapeRequest] to the configured endpoint and hands back the
// response with its body still open, so the caller can choose how to consume it.
//
// # Transports
//
// The service answers in one of two shapes, reported as a [TransportKind]:
//   - [TransportBuffered] : a single JSON document once all work is done (hosted, metadata-only)
//   - [TransportStreamed] : a text/event-stream body of "data: {...}" frames (self-hosted variants)
//
// Detection uses the declared Content-Type only, see [DetectTransport].
//
// # Health
//
// [APIService.Health] calls GET /api/health and decodes a [HealthStatus].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : the HTTP round trip failed
//   - [shared.ErrServiceUnavailable] : health check returned a non-ok status
package services
