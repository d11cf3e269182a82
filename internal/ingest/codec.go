package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"alerttrigger/internal/domain"
	"alerttrigger/internal/sink"
)

// EventSink evaluates decoded lifecycle events.
// Params: context and validated event.
// Returns: evaluation error.
type EventSink interface {
	OnEvent(ctx context.Context, event domain.LifecycleEvent) error
}

// Resyncer runs a full resynchronization.
type Resyncer interface {
	ResyncAll(ctx context.Context) error
}

// EventCounter counts received events per ingest source.
type EventCounter interface {
	ObserveEvent(source string)
}

// Ingest source labels.
const (
	SourceHTTP = "http"
	SourceNATS = "nats"
)

// decodeEventPayload auto-detects batch vs single payload.
// Params: raw JSON bytes with one object or array.
// Returns: validated events slice.
func decodeEventPayload(raw []byte) ([]domain.LifecycleEvent, error) {
	payload := bytes.TrimSpace(raw)
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	if payload[0] == '[' {
		events, err := domain.DecodeEventsReader(decoder)
		if err != nil {
			return nil, err
		}
		if err := ensureJSONEOF(decoder); err != nil {
			return nil, err
		}
		return events, nil
	}
	event, err := domain.DecodeEventReader(decoder)
	if err != nil {
		return nil, err
	}
	if err := ensureJSONEOF(decoder); err != nil {
		return nil, err
	}
	return []domain.LifecycleEvent{event}, nil
}

// ensureJSONEOF rejects trailing tokens after a decoded JSON payload.
// Params: decoder positioned after primary decode.
// Returns: nil on EOF or error on trailing tokens.
func ensureJSONEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode trailing json: %w", err)
	}
	return errors.New("unexpected trailing json tokens")
}

// dispatchEvents evaluates every event in order.
// Params: context, sink, optional counter, source label, and events.
// Returns: joined evaluation errors; one failing API does not block the rest.
func dispatchEvents(ctx context.Context, sink EventSink, counter EventCounter, source string, events []domain.LifecycleEvent) error {
	var errs []error
	for _, event := range events {
		if counter != nil {
			counter.ObserveEvent(source)
		}
		if err := sink.OnEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("api %s: %w", event.API.ID, err))
		}
	}
	return errors.Join(errs...)
}

// retryable reports whether any error in a joined chain is worth redelivering.
// Params: evaluation error, possibly joined from several events.
// Returns: false when every failure is permanent.
func retryable(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if retryable(inner) {
				return true
			}
		}
		return false
	}
	return !sink.IsPermanent(err)
}
