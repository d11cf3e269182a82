package sink

import (
	"bytes"
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

	"github.com/google/uuid"
)

const headerRequestID = "X-Request-Id"

// HTTPSink posts trigger messages to the alert backend HTTP endpoint.
// Params: endpoint URL, timeout, static headers, and retry policy.
// Returns: HTTP sink implementation.
type HTTPSink struct {
	cfg    config.HTTPSinkConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPSink creates HTTP sink.
// Params: HTTP sink config and logger.
// Returns: initialized sink.
func NewHTTPSink(cfg config.HTTPSinkConfig, logger *slog.Logger) *HTTPSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		logger: logger,
	}
}

// DispatchTrigger posts trigger definition.
func (s *HTTPSink) DispatchTrigger(ctx context.Context, definition domain.TriggerDefinition) error {
	return s.sendWithRetry(ctx, ActionTrigger, definition.ID, definition)
}

// DispatchCancel posts cancel directive.
func (s *HTTPSink) DispatchCancel(ctx context.Context, directive domain.CancelDirective) error {
	return s.sendWithRetry(ctx, ActionCancel, directive.ID, directive)
}

// Close releases idle client connections.
func (s *HTTPSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// sendWithRetry posts one message following the configured retry policy.
// Params: context, action label, trigger id, and JSON payload.
// Returns: final error after retries; permanent errors stop immediately.
func (s *HTTPSink) sendWithRetry(ctx context.Context, action, triggerID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return MarkPermanent(fmt.Errorf("marshal %s payload: %w", action, err))
	}
	// All attempts of one message share a request id.
	requestID := uuid.NewString()

	retry := s.cfg.Retry
	if !retry.Enabled {
		return s.send(ctx, action, requestID, body)
	}

	backoff := time.Duration(retry.InitialMS) * time.Millisecond
	maxBackoff := time.Duration(retry.MaxMS) * time.Millisecond
	timer := time.NewTimer(0)
	stopTimer(timer)
	defer stopTimer(timer)

	for attempt := 1; ; attempt++ {
		err := s.send(ctx, action, requestID, body)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("sink send recovered after retries", "trigger_id", triggerID, "action", action, "attempt", attempt)
			}
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		s.logger.Warn("sink send attempt failed", "trigger_id", triggerID, "action", action, "attempt", attempt, "error", err.Error())
		if retry.MaxAttempts > 0 && attempt >= retry.MaxAttempts {
			return fmt.Errorf("%s %s failed after %d attempts: %w", action, triggerID, attempt, err)
		}

		timer.Reset(backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if strings.EqualFold(retry.Backoff, "exponential") {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}

// send performs one HTTP POST.
// Params: context, action label, request id, and encoded body.
// Returns: transport error, or status error (4xx marked permanent except 408/429).
func (s *HTTPSink) send(ctx context.Context, action, requestID string, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return MarkPermanent(fmt.Errorf("build %s request: %w", action, err))
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(headerAction, action)
	request.Header.Set(headerRequestID, requestID)
	for key, value := range s.cfg.Headers {
		request.Header.Set(key, value)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("%s send: %w", action, err)
	}
	defer response.Body.Close()
	if response.StatusCode >= 200 && response.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	statusErr := unexpectedHTTPStatusError(action, response)
	if isPermanentStatus(response.StatusCode) {
		return MarkPermanent(statusErr)
	}
	return statusErr
}

func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

// unexpectedHTTPStatusError formats non-2xx HTTP response with optional body.
// Params: prefix label and HTTP response.
// Returns: status-only or status+body error.
func unexpectedHTTPStatusError(prefix string, response *http.Response) error {
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%s status=%d (read body error: %w)", prefix, response.StatusCode, readErr)
	}
	trimmedBody := strings.TrimSpace(string(rawBody))
	if trimmedBody == "" {
		return fmt.Errorf("%s status=%d", prefix, response.StatusCode)
	}
	return fmt.Errorf("%s status=%d body=%s", prefix, response.StatusCode, trimmedBody)
}

func stopTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
