package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"

	"github.com/nats-io/nats.go"
)

const (
	eventsStreamMaxAge = 7 * 24 * time.Hour

	// ResyncReplyOK is the reply body sent for a successful resync request.
	ResyncReplyOK = "ok"
)

// NATSSubscriber consumes lifecycle events through a JetStream queue consumer
// and resync commands through a core NATS subscription.
// Params: NATS connection and both subscriptions.
// Returns: NATS ingest lifecycle handle.
type NATSSubscriber struct {
	nc        *nats.Conn
	eventsSub *nats.Subscription
	resyncSub *nats.Subscription
	sequences *sequenceGuard
	logger    *slog.Logger
}

// NewNATSSubscriber connects, ensures the events stream, and starts both subscriptions.
// Params: ingest NATS config, event sink, resyncer, optional event counter, and logger.
// Returns: started subscriber or initialization error.
func NewNATSSubscriber(cfg config.NATSIngestConfig, eventSink EventSink, resyncer Resyncer, counter EventCounter, logger *slog.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init for ingest: %w", err)
	}
	if err := ensureEventsStream(js, cfg.Stream, cfg.EventsSubject); err != nil {
		nc.Close()
		return nil, err
	}

	subscriber := &NATSSubscriber{nc: nc, sequences: newSequenceGuard(), logger: logger}
	ackWait := time.Duration(cfg.AckWaitSec) * time.Second
	nackDelay := time.Duration(cfg.NackDelayMS) * time.Millisecond
	subOpts := []nats.SubOpt{
		nats.BindStream(cfg.Stream),
		nats.Durable(cfg.ConsumerName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(ackWait),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.MaxAckPending(cfg.MaxAckPending),
		nats.DeliverAll(),
	}
	eventsSub, err := js.QueueSubscribe(cfg.EventsSubject, cfg.DeliverGroup, func(message *nats.Msg) {
		events, decodeErr := decodeEventPayload(message.Data)
		if decodeErr != nil {
			logger.Warn("nats ingest decode failed", "subject", message.Subject, "error", decodeErr.Error())
			subscriber.ackMessage(message, "decode")
			return
		}
		// Evaluation must finish before the server considers the message lost.
		ctx, cancel := context.WithTimeout(context.Background(), ackWait)
		defer cancel()
		if evalErr := subscriber.dispatchInOrder(ctx, eventSink, counter, streamSequence(message), events); evalErr != nil {
			if !retryable(evalErr) {
				logger.Error("nats ingest evaluation rejected", "subject", message.Subject, "error", evalErr.Error())
				subscriber.ackMessage(message, "permanent")
				return
			}
			logger.Error("nats ingest evaluation failed", "subject", message.Subject, "error", evalErr.Error())
			subscriber.nackMessage(message, nackDelay)
			return
		}
		subscriber.ackMessage(message, "processed")
	}, subOpts...)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", cfg.EventsSubject, cfg.DeliverGroup, err)
	}
	subscriber.eventsSub = eventsSub

	// Every replica owns its own trigger state, so resync commands fan out to all of them.
	resyncSub, err := nc.Subscribe(cfg.ResyncSubject, func(message *nats.Msg) {
		logger.Info("resync requested", "source", SourceNATS, "subject", message.Subject)
		reply := ResyncReplyOK
		if err := resyncer.ResyncAll(context.Background()); err != nil {
			reply = "error: " + err.Error()
		}
		if message.Reply != "" {
			if err := message.Respond([]byte(reply)); err != nil {
				logger.Warn("resync reply failed", "subject", message.Subject, "error", err.Error())
			}
		}
	})
	if err != nil {
		_ = eventsSub.Drain()
		nc.Close()
		return nil, fmt.Errorf("subscribe resync %q: %w", cfg.ResyncSubject, err)
	}
	subscriber.resyncSub = resyncSub
	return subscriber, nil
}

// dispatchInOrder evaluates events unless a newer message for the same API was already applied.
// Params: context, sink, optional counter, stream sequence of the message, and its events.
// Returns: joined evaluation errors.
//
// A NAK'd message is redelivered after later messages; skipping it keeps an older
// snapshot from overriding state derived from a newer one.
func (s *NATSSubscriber) dispatchInOrder(ctx context.Context, eventSink EventSink, counter EventCounter, seq uint64, events []domain.LifecycleEvent) error {
	var errs []error
	for _, event := range events {
		if counter != nil {
			counter.ObserveEvent(SourceNATS)
		}
		if s.sequences.stale(event.API.ID, seq) {
			s.logger.Info("stale lifecycle event skipped", "api_id", event.API.ID, "stream_seq", seq)
			continue
		}
		if err := eventSink.OnEvent(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("api %s: %w", event.API.ID, err))
			continue
		}
		s.sequences.advance(event.API.ID, seq)
	}
	return errors.Join(errs...)
}

// streamSequence extracts JetStream stream sequence.
// Params: delivered message.
// Returns: sequence or 0 for messages without JetStream metadata.
func streamSequence(message *nats.Msg) uint64 {
	meta, err := message.Metadata()
	if err != nil {
		return 0
	}
	return meta.Sequence.Stream
}

// ackMessage acknowledges processed/invalid message and logs ack failures.
// Params: JetStream message and short reason.
// Returns: none.
func (s *NATSSubscriber) ackMessage(message *nats.Msg, reason string) {
	if err := message.Ack(); err != nil {
		s.logger.Warn("nats ingest ack failed", "subject", message.Subject, "reason", reason, "error", err.Error())
	}
}

// nackMessage asks JetStream to redeliver message and logs nack failures.
// Params: JetStream message and optional delay.
// Returns: none.
func (s *NATSSubscriber) nackMessage(message *nats.Msg, delay time.Duration) {
	var err error
	if delay > 0 {
		err = message.NakWithDelay(delay)
	} else {
		err = message.Nak()
	}
	if err != nil {
		s.logger.Warn("nats ingest nack failed", "subject", message.Subject, "error", err.Error())
	}
}

// Close drains both subscriptions and closes connection.
// Params: none.
// Returns: joined drain errors.
func (s *NATSSubscriber) Close() error {
	var errs []error
	for _, sub := range []*nats.Subscription{s.resyncSub, s.eventsSub} {
		if sub == nil {
			continue
		}
		if err := sub.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	s.nc.Close()
	return errors.Join(errs...)
}

// ensureEventsStream creates lifecycle events stream unless it already exists.
// Params: JetStream context, stream name, and subject.
// Returns: stream lookup/create error.
func ensureEventsStream(js nats.JetStreamContext, streamName, subject string) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %q: %w", streamName, err)
	}
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    eventsStreamMaxAge,
	}); err != nil {
		return fmt.Errorf("create stream %q: %w", streamName, err)
	}
	return nil
}
