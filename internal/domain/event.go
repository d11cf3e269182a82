package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// EventKind identifies API lifecycle event kind.
// Params: registry event names (DEPLOY, UNDEPLOY, UPDATE, ...).
// Returns: informational marker; evaluation never branches on it.
type EventKind string

const (
	// EventKindDeploy marks API deployment.
	EventKindDeploy EventKind = "DEPLOY"
	// EventKindUndeploy marks API removal from gateways.
	EventKindUndeploy EventKind = "UNDEPLOY"
	// EventKindUpdate marks API definition update.
	EventKindUpdate EventKind = "UPDATE"
	// EventKindStart marks API start.
	EventKindStart EventKind = "START"
	// EventKindStop marks API stop.
	EventKindStop EventKind = "STOP"
)

// LifecycleEvent is one inbound API lifecycle notification.
// Params: event kind and full current API snapshot (not a diff).
// Returns: validated payload for coordinator evaluation.
type LifecycleEvent struct {
	Kind EventKind   `json:"kind"`
	API  APISnapshot `json:"api"`
}

// DecodeEvent decodes and validates one lifecycle event payload.
// Params: JSON document bytes.
// Returns: validated event or decode/validation error.
func DecodeEvent(raw []byte) (LifecycleEvent, error) {
	var event LifecycleEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return LifecycleEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return LifecycleEvent{}, err
	}
	return event, nil
}

// DecodeEventReader decodes and validates one event payload from stream.
// Params: decoder positioned at one JSON object.
// Returns: validated event or decode/validation error.
func DecodeEventReader(reader *json.Decoder) (LifecycleEvent, error) {
	var event LifecycleEvent
	if err := reader.Decode(&event); err != nil {
		return LifecycleEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return LifecycleEvent{}, err
	}
	return event, nil
}

// DecodeEventsReader decodes and validates one batch of events from stream.
// Params: decoder positioned at one JSON array of events.
// Returns: validated events or decode/validation error.
func DecodeEventsReader(reader *json.Decoder) ([]LifecycleEvent, error) {
	var events []LifecycleEvent
	if err := reader.Decode(&events); err != nil {
		return nil, fmt.Errorf("decode event batch: %w", err)
	}
	if len(events) == 0 {
		return nil, errors.New("event batch must contain at least one event")
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
	}
	return events, nil
}

// DecodeSnapshots decodes registry listing payload.
// Params: JSON array of API snapshots.
// Returns: validated snapshots or decode/validation error.
func DecodeSnapshots(raw []byte) ([]APISnapshot, error) {
	var snapshots []APISnapshot
	if err := json.Unmarshal(raw, &snapshots); err != nil {
		return nil, fmt.Errorf("decode api snapshots: %w", err)
	}
	for i := range snapshots {
		if err := snapshots[i].Validate(); err != nil {
			return nil, fmt.Errorf("api[%d]: %w", i, err)
		}
	}
	return snapshots, nil
}

// Validate validates one lifecycle event.
// Params: event fields parsed from transport.
// Returns: validation error when schema is violated.
func (e LifecycleEvent) Validate() error {
	if strings.TrimSpace(string(e.Kind)) == "" {
		return errors.New("kind is required")
	}
	if err := e.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
