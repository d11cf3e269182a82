package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"
)

const maxRegistryBody = 32 << 20

// HTTPRegistry reads the API list from an HTTP endpoint returning a JSON array.
type HTTPRegistry struct {
	cfg    config.HTTPRegistryConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPRegistry creates HTTP registry client.
// Params: endpoint URL, timeout, static headers, and logger.
// Returns: initialized registry.
func NewHTTPRegistry(cfg config.HTTPRegistryConfig, logger *slog.Logger) *HTTPRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRegistry{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		logger: logger,
	}
}

// FetchAll requests and decodes the full API list.
// Params: context bounding the request.
// Returns: valid snapshots; entries that fail to decode or lack an id are logged and skipped.
func (r *HTTPRegistry) FetchAll(ctx context.Context) ([]domain.APISnapshot, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	for key, value := range r.cfg.Headers {
		request.Header.Set(key, value)
	}

	response, err := r.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("registry request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxRegistryBody))
	if err != nil {
		return nil, fmt.Errorf("read registry response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		trimmed := strings.TrimSpace(string(body))
		if trimmed == "" {
			return nil, fmt.Errorf("registry status=%d", response.StatusCode)
		}
		return nil, fmt.Errorf("registry status=%d body=%s", response.StatusCode, trimmed)
	}
	return r.decodeListing(body)
}

// decodeListing decodes the JSON array entry by entry.
// Params: response body.
// Returns: valid snapshots or error when the body is not a JSON array.
func (r *HTTPRegistry) decodeListing(body []byte) ([]domain.APISnapshot, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode registry listing: %w", err)
	}
	out := make([]domain.APISnapshot, 0, len(entries))
	for i, entry := range entries {
		var snapshot domain.APISnapshot
		if err := json.Unmarshal(entry, &snapshot); err != nil {
			r.logger.Warn("registry entry skipped", "index", i, "error", err.Error())
			continue
		}
		if err := snapshot.Validate(); err != nil {
			r.logger.Warn("registry entry skipped", "index", i, "error", err.Error())
			continue
		}
		out = append(out, snapshot)
	}
	return out, nil
}

// Close releases idle client connections.
func (r *HTTPRegistry) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
