// Package coordinator evaluates API snapshots against trigger state and drives the alert sink.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"alerttrigger/internal/domain"
	"alerttrigger/internal/registry"
	"alerttrigger/internal/sink"
	"alerttrigger/internal/state"
	"alerttrigger/internal/trigger"
)

// Recorder receives evaluation outcomes for metrics.
type Recorder interface {
	ObserveDispatch(action string, err error)
	ObserveSkip()
	ObserveResync(err error)
	SetActiveTriggers(count int)
}

// Options carries coordinator collaborators.
// Params: tracker, sink, registry, static transport, initial portal URL, logger, and optional recorder.
type Options struct {
	Tracker   state.Tracker
	Sink      sink.Sink
	Registry  registry.Registry
	Transport domain.TransportConfig
	PortalURL string
	Logger    *slog.Logger
	Recorder  Recorder
}

// Coordinator serializes evaluation per API id and runs full resyncs.
//
// Per-id evaluations hold the resync lock shared; ResyncAll holds it exclusively,
// so a resync never overlaps any evaluation.
type Coordinator struct {
	tracker   state.Tracker
	sink      sink.Sink
	registry  registry.Registry
	transport domain.TransportConfig
	portalURL atomic.Pointer[string]
	logger    *slog.Logger
	recorder  Recorder

	resyncMu sync.RWMutex
	locks    keyedMutex
}

// New builds coordinator from options.
// Params: collaborators; tracker, sink, and registry are required.
// Returns: coordinator or error for missing collaborator.
func New(opts Options) (*Coordinator, error) {
	if opts.Tracker == nil {
		return nil, errors.New("coordinator: tracker is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("coordinator: sink is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("coordinator: registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	c := &Coordinator{
		tracker:   opts.Tracker,
		sink:      opts.Sink,
		registry:  opts.Registry,
		transport: opts.Transport,
		logger:    logger,
		recorder:  recorder,
	}
	c.SetPortalURL(opts.PortalURL)
	return c, nil
}

// SetPortalURL replaces the portal base URL used by later evaluations.
func (c *Coordinator) SetPortalURL(url string) {
	c.portalURL.Store(&url)
}

// PortalURL returns the current portal base URL.
func (c *Coordinator) PortalURL() string {
	return *c.portalURL.Load()
}

// OnEvent evaluates the snapshot carried by a lifecycle event.
// Params: context and decoded event; the event kind is logged but does not affect evaluation.
// Returns: validation or dispatch error.
func (c *Coordinator) OnEvent(ctx context.Context, event domain.LifecycleEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	c.logger.Debug("lifecycle event received", "api_id", event.API.ID, "kind", string(event.Kind))
	return c.Evaluate(ctx, event.API)
}

// Evaluate runs one evaluation for a snapshot under its per-id lock.
// Params: context and full current API snapshot.
// Returns: dispatch error; tracker state is unchanged when dispatch fails.
func (c *Coordinator) Evaluate(ctx context.Context, api domain.APISnapshot) error {
	if err := api.Validate(); err != nil {
		return err
	}
	c.resyncMu.RLock()
	defer c.resyncMu.RUnlock()

	unlock := c.locks.lock(api.ID)
	defer unlock()
	return c.evaluateLocked(ctx, api)
}

// ResyncAll clears trigger state and re-evaluates every API returned by the registry.
// Params: context bounding registry fetch and dispatches.
// Returns: registry error (tracker stays empty) or joined per-API dispatch errors.
//
// APIs that vanished from the registry get no cancel: their state was cleared
// before the fetch and the alert backend owns orphan cleanup.
func (c *Coordinator) ResyncAll(ctx context.Context) (err error) {
	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()
	defer func() { c.recorder.ObserveResync(err) }()

	c.tracker.ClearAll()
	c.recorder.SetActiveTriggers(0)

	apis, err := c.registry.FetchAll(ctx)
	if err != nil {
		c.logger.Error("resync aborted, trigger state left empty", "error", err.Error())
		return fmt.Errorf("fetch registry: %w", err)
	}

	var errs []error
	for _, api := range apis {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
		if err := api.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := c.evaluateLocked(ctx, api); err != nil {
			errs = append(errs, err)
		}
	}
	err = errors.Join(errs...)

	logArgs := []any{"apis", len(apis), "active", c.tracker.Len(), "failures", len(errs)}
	if err != nil {
		c.logger.Warn("resync completed with errors", append(logArgs, "error", err.Error())...)
		return err
	}
	c.logger.Info("resync completed", logArgs...)
	return nil
}

// ActiveTriggers lists API ids with an active trigger.
func (c *Coordinator) ActiveTriggers() []string {
	return c.tracker.ActiveIDs()
}

// evaluateLocked applies one builder decision. Caller holds the API lock or the resync lock.
func (c *Coordinator) evaluateLocked(ctx context.Context, api domain.APISnapshot) error {
	decision := trigger.Build(api, c.transport, c.PortalURL())

	switch decision.Action {
	case trigger.ActionActivate:
		if c.tracker.IsActive(api.ID) {
			c.logger.Debug("trigger already active", "api_id", api.ID, "trigger_id", decision.TriggerID)
			return nil
		}
		err := c.sink.DispatchTrigger(ctx, decision.Definition)
		c.recorder.ObserveDispatch(decision.Action.String(), err)
		if err != nil {
			c.logger.Error("trigger dispatch failed", "api_id", api.ID, "trigger_id", decision.TriggerID, "error", err.Error())
			return fmt.Errorf("dispatch trigger %s: %w", decision.TriggerID, err)
		}
		c.tracker.MarkActive(api.ID)
		c.recorder.SetActiveTriggers(c.tracker.Len())
		c.logger.Info("trigger sent", "api_id", api.ID, "trigger_id", decision.TriggerID)
		return nil

	case trigger.ActionSkip:
		c.recorder.ObserveSkip()
		c.logger.Warn("alert cannot be sent: api owner has no email",
			"api_id", api.ID,
			"owner", api.Owner.DisplayName,
		)
		return nil

	default:
		if !c.tracker.IsActive(api.ID) {
			return nil
		}
		c.logger.Info("sending trigger cancel", "api_id", api.ID, "trigger_id", decision.TriggerID, "reason", decision.Reason)
		err := c.sink.DispatchCancel(ctx, domain.NewCancelDirective(decision.TriggerID))
		c.recorder.ObserveDispatch(trigger.ActionDeactivate.String(), err)
		if err != nil {
			c.logger.Error("trigger cancel failed", "api_id", api.ID, "trigger_id", decision.TriggerID, "error", err.Error())
			return fmt.Errorf("dispatch cancel %s: %w", decision.TriggerID, err)
		}
		c.tracker.MarkInactive(api.ID)
		c.recorder.SetActiveTriggers(c.tracker.Len())
		c.logger.Info("trigger cancel sent", "api_id", api.ID, "trigger_id", decision.TriggerID)
		return nil
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveDispatch(string, error) {}
func (nopRecorder) ObserveSkip()                  {}
func (nopRecorder) ObserveResync(error)           {}
func (nopRecorder) SetActiveTriggers(int)         {}
