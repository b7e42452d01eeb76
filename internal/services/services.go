// package services defines the client types for the remote scrape service
package services

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
)

// ScrapeClient issues processing requests against the remote service.
type ScrapeClient interface {
	// Scrape posts the request and returns the response with an open body.
	// The caller must close [ScrapeResponse.Body].
	Scrape(ctx context.Context, req ScrapeRequest) (*ScrapeResponse, error)
}

// HealthChecker reports the remote service's health.
type HealthChecker interface {
	Health(ctx context.Context) (*HealthStatus, error)
}

// ScrapeRequest is the outbound JSON body.
type ScrapeRequest struct {
	PlaylistURL  string `json:"playlistUrl"`
	DownloadPath string `json:"downloadPath,omitempty"` // ignored by hosted deployments
}

// ScrapeResponse is an unread response from the scrape endpoint.
type ScrapeResponse struct {
	StatusCode int
	Header     http.Header
	Transport  TransportKind
	Body       io.ReadCloser
}

// OK reports whether the status code is 2xx.
func (r *ScrapeResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// TransportKind is the declared shape of a scrape response body.
type TransportKind int

const (
	TransportBuffered TransportKind = iota
	TransportStreamed
)

func (k TransportKind) String() string {
	switch k {
	case TransportBuffered:
		return "buffered"
	case TransportStreamed:
		return "streamed"
	default:
		return ""
	}
}

// DetectTransport picks the decoding strategy from the response headers.
//
// Only "text/event-stream" selects [TransportStreamed]; everything else is decoded as one JSON document.
func DetectTransport(h http.Header) TransportKind {
	ct := h.Get("Content-Type")
	if ct == "" {
		return TransportBuffered
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = strings.TrimSpace(strings.Split(ct, ";")[0])
	}
	if strings.EqualFold(mt, "text/event-stream") {
		return TransportStreamed
	}
	return TransportBuffered
}
