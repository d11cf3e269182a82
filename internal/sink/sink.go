package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"
)

// Action header values attached to published trigger messages.
const (
	ActionTrigger = "trigger"
	ActionCancel  = "cancel"
)

// Sink delivers trigger definitions and cancel directives to the alert backend.
// Params: context and one outbound message.
// Returns: delivery error; permanent failures are marked via MarkPermanent.
type Sink interface {
	DispatchTrigger(ctx context.Context, definition domain.TriggerDefinition) error
	DispatchCancel(ctx context.Context, directive domain.CancelDirective) error
	Close() error
}

// New builds the configured sink implementation.
// Params: sink config and logger.
// Returns: ready sink or setup error.
func New(cfg config.SinkConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Kind {
	case config.SinkKindNATS:
		return NewNATSSink(cfg.NATS)
	case config.SinkKindHTTP:
		return NewHTTPSink(cfg.HTTP, logger), nil
	case config.SinkKindLog:
		return NewLogSink(logger), nil
	default:
		return nil, fmt.Errorf("unsupported sink kind %q", cfg.Kind)
	}
}

// PermanentError marks delivery failures that must not be retried.
type PermanentError struct {
	Err error
}

// Error returns wrapped error message.
func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent delivery error"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
func (e PermanentError) Unwrap() error {
	return e.Err
}

// MarkPermanent wraps error as non-retryable delivery failure.
// Params: source error.
// Returns: wrapped error or nil.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return PermanentError{Err: err}
}

// IsPermanent reports whether error chain carries the permanent marker.
// Params: candidate error.
// Returns: true when retrying cannot succeed.
func IsPermanent(err error) bool {
	var target PermanentError
	return errors.As(err, &target)
}

// LogSink only logs outbound messages. Used for dry runs and single mode.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates logging-only sink.
// Params: logger receiving one record per message.
// Returns: sink that never fails.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// DispatchTrigger logs trigger definition.
func (s *LogSink) DispatchTrigger(_ context.Context, definition domain.TriggerDefinition) error {
	s.logger.Info("trigger dispatched",
		"sink", config.SinkKindLog,
		"trigger_id", definition.ID,
		"condition", definition.Condition,
		"details_url", definition.ViewDetailsURL,
		"notifications", len(definition.Notifications),
	)
	return nil
}

// DispatchCancel logs cancel directive.
func (s *LogSink) DispatchCancel(_ context.Context, directive domain.CancelDirective) error {
	s.logger.Info("trigger cancel dispatched", "sink", config.SinkKindLog, "trigger_id", directive.ID)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error { return nil }
