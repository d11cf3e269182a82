package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	triggerStreamMaxAge = 24 * time.Hour

	headerMsgID     = "Nats-Msg-Id"
	headerAction    = "Alert-Action"
	headerTriggerID = "Alert-Trigger-Id"
)

// NATSSink publishes trigger messages into a JetStream stream.
// Params: NATS connection and publish subject.
// Returns: sink implementation backed by JetStream.
type NATSSink struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewNATSSink connects to NATS and ensures the trigger stream exists.
// Params: sink NATS config (URL list, subject, stream).
// Returns: initialized sink or setup error.
func NewNATSSink(cfg config.NATSSinkConfig) (*NATSSink, error) {
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect sink nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init for sink: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, err
	}
	return &NATSSink{nc: nc, js: js, subject: cfg.Subject}, nil
}

// DispatchTrigger publishes full trigger definition.
// Params: context and trigger definition.
// Returns: publish error.
func (s *NATSSink) DispatchTrigger(ctx context.Context, definition domain.TriggerDefinition) error {
	return s.publish(ctx, ActionTrigger, definition.ID, definition)
}

// DispatchCancel publishes cancel directive.
// Params: context and cancel directive.
// Returns: publish error.
func (s *NATSSink) DispatchCancel(ctx context.Context, directive domain.CancelDirective) error {
	return s.publish(ctx, ActionCancel, directive.ID, directive)
}

func (s *NATSSink) publish(ctx context.Context, action, triggerID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return MarkPermanent(fmt.Errorf("marshal %s message: %w", action, err))
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = body
	msg.Header.Set(headerMsgID, uuid.NewString())
	msg.Header.Set(headerAction, action)
	msg.Header.Set(headerTriggerID, triggerID)
	if _, err := s.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s message for %s: %w", action, triggerID, err)
	}
	return nil
}

// Close closes sink NATS connection.
// Params: none.
// Returns: nil after connection close.
func (s *NATSSink) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	s.nc.Close()
	return nil
}

// ensureStream creates the trigger stream unless it already exists.
// Params: JetStream context, stream name, and bound subject.
// Returns: stream lookup/create error.
func ensureStream(js nats.JetStreamContext, streamName, subject string) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) && !strings.Contains(strings.ToLower(err.Error()), "stream not found") {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    triggerStreamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %q: %w", streamName, err)
	}
	return nil
}
