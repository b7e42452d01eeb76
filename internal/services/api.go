// API service for making HTTP requests to the scrape service
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/sunnify/internal/shared"
)

const (
	defaultBaseURL    = "http://localhost:5000"
	defaultScrapePath = "/api/scrape-playlist"
	defaultHealthPath = "/api/health"
)

var (
	_ ScrapeClient  = (*APIService)(nil)
	_ HealthChecker = (*APIService)(nil)
)

// APIService provides methods for making HTTP requests to the scrape service.
type APIService struct {
	baseURL    string
	scrapePath string
	healthPath string
	httpClient *http.Client
}

// NewAPIService creates a new API service instance for the scrape service.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		scrapePath: defaultScrapePath,
		healthPath: defaultHealthPath,
		httpClient: client,
	}
}

// NewAPIServiceFromConfig creates an [APIService] using the endpoint paths in [shared.RemoteConfig].
func NewAPIServiceFromConfig(cfg shared.RemoteConfig, client *http.Client) *APIService {
	srv := NewAPIService(cfg.BaseURL, client)
	srv.SetPaths(cfg.ScrapePath, cfg.HealthPath)
	return srv
}

// SetPaths overrides the scrape and health endpoint paths. Empty values keep the current path.
func (a *APIService) SetPaths(scrape, health string) {
	if scrape != "" {
		a.scrapePath = scrape
	}
	if health != "" {
		a.healthPath = health
	}
}

// BaseURL returns the service base URL.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Scrape posts a processing request and returns the response without reading its body.
func (a *APIService) Scrape(ctx context.Context, sr ScrapeRequest) (*ScrapeResponse, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+a.scrapePath, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	return &ScrapeResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Transport:  DetectTransport(resp.Header),
		Body:       resp.Body,
	}, nil
}

// Health calls the health endpoint and decodes its status.
func (a *APIService) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := a.Get(ctx, a.healthPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	if status.Status != "ok" {
		return &status, fmt.Errorf("%w: status %q", shared.ErrServiceUnavailable, status.Status)
	}

	return &status, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	fullURL := a.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
