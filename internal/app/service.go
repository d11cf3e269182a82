package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/coordinator"
	"alerttrigger/internal/ingest"
	"alerttrigger/internal/logging"
	"alerttrigger/internal/metrics"
	"alerttrigger/internal/registry"
	"alerttrigger/internal/sink"
	"alerttrigger/internal/state"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Service composes runtime dependencies and process lifecycle.
// Params: config source and shared runtime components.
// Returns: runnable alert trigger service.
type Service struct {
	source      config.ConfigSource
	cfgMu       sync.Mutex
	cfg         config.Config
	logger      *slog.Logger
	closeLog    func()
	sink        sink.Sink
	registry    registry.Registry
	tracker     *state.MemoryTracker
	metrics     *metrics.Metrics
	coordinator *coordinator.Coordinator
	httpSrv     *http.Server
	natsSub     interface{ Close() error }
	readyFlag   atomic.Bool
}

// NewService builds service instance from config source.
// Params: config source selecting file or directory mode.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger = logger.With("service", cfg.Service.Name)

	service := &Service{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		tracker:  state.NewMemoryTracker(),
		metrics:  metrics.New(),
	}

	if err := service.buildCoordinator(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	service.buildHTTPServer()
	if err := service.buildNATSSubscriber(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}

	return service, nil
}

// Coordinator exposes the evaluation facade.
func (s *Service) Coordinator() *coordinator.Coordinator {
	return s.coordinator
}

// Handler returns the HTTP router serving health, metrics, status, and ingest endpoints.
func (s *Service) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run starts service lifecycle and blocks until shutdown signal.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.Ingest.HTTP.Listen)
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var workers sync.WaitGroup
	defer workers.Wait()

	if s.cfg.Service.ResyncOnStartEnabled() {
		s.runResync(runCtx, "startup")
	}
	s.readyFlag.Store(true)

	if s.cfg.Service.ResyncIntervalSec > 0 {
		interval := time.Duration(s.cfg.Service.ResyncIntervalSec) * time.Second
		workers.Add(1)
		go func() {
			defer workers.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					s.runResync(runCtx, "periodic")
				}
			}
		}()
	}

	if s.cfg.Service.ReloadEnabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := config.Watch(runCtx, s.source, s.logger, s.applyConfig); err != nil {
				s.logger.Error("config watch failed", "path", s.source.Path(), "error", err.Error())
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		runCancel()
		return s.shutdown()
	case err := <-errChan:
		runCancel()
		_ = s.shutdown()
		return fmt.Errorf("http server failed: %w", err)
	case <-sigChan:
		runCancel()
		return s.shutdown()
	}
}

// runResync performs one full resync and logs the outcome.
// Params: context and trigger label for logs.
// Returns: none; failures are logged.
func (s *Service) runResync(ctx context.Context, reason string) {
	if err := s.coordinator.ResyncAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("resync failed", "reason", reason, "error", err.Error())
	}
}

// applyConfig applies runtime-mutable settings from a reloaded snapshot.
// Params: validated config snapshot.
// Returns: none; settings that require restart are logged and ignored.
func (s *Service) applyConfig(next config.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if next.Service.Mode != s.cfg.Service.Mode {
		s.logger.Warn("service.mode change requires restart", "current", s.cfg.Service.Mode, "next", next.Service.Mode)
	}
	if next.Notifiers.Email.Transport() != s.cfg.Notifiers.Email.Transport() {
		s.logger.Warn("notifiers.email change requires restart")
	}
	if next.Portal.URL != s.cfg.Portal.URL {
		s.coordinator.SetPortalURL(next.Portal.URL)
		s.logger.Info("portal url updated", "portal_url", next.Portal.URL)
	}
	s.cfg.Portal = next.Portal
}

// shutdown closes runtime resources in dependency order.
// Params: none.
// Returns: first close error.
func (s *Service) shutdown() error {
	s.readyFlag.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err.Error())
		markErr(fmt.Errorf("http shutdown: %w", err))
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats subscriber close failed", "error", err.Error())
			markErr(fmt.Errorf("nats subscriber close: %w", err))
		}
	}
	if err := s.registry.Close(); err != nil {
		s.logger.Error("registry close failed", "error", err.Error())
		markErr(fmt.Errorf("registry close: %w", err))
	}
	if err := s.sink.Close(); err != nil {
		s.logger.Error("sink close failed", "error", err.Error())
		markErr(fmt.Errorf("sink close: %w", err))
	}
	s.logger.Info("service stopped", "active_triggers", s.tracker.Len())
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources on startup failures.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.registry != nil {
		_ = s.registry.Close()
		s.registry = nil
	}
	if s.sink != nil {
		_ = s.sink.Close()
		s.sink = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}

// buildCoordinator wires sink, registry, and tracker into the coordinator.
// Params: none.
// Returns: sink/registry setup error.
func (s *Service) buildCoordinator() error {
	alertSink, err := sink.New(s.cfg.Sink, logging.Component(s.logger, "sink"))
	if err != nil {
		return err
	}
	s.sink = alertSink

	source, err := registry.New(s.cfg.Registry, logging.Component(s.logger, "registry"))
	if err != nil {
		return err
	}
	s.registry = source

	coord, err := coordinator.New(coordinator.Options{
		Tracker:   s.tracker,
		Sink:      s.sink,
		Registry:  s.registry,
		Transport: s.cfg.Notifiers.Email.Transport(),
		PortalURL: s.cfg.Portal.URL,
		Logger:    logging.Component(s.logger, "coordinator"),
		Recorder:  s.metrics,
	})
	if err != nil {
		return err
	}
	s.coordinator = coord
	return nil
}

// buildHTTPServer wires router with ingest, resync, and health endpoints.
// Params: none.
// Returns: none.
func (s *Service) buildHTTPServer() {
	httpCfg := s.cfg.Ingest.HTTP
	mux := http.NewServeMux()
	mux.HandleFunc(httpCfg.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ok"))
	})
	mux.HandleFunc(httpCfg.ReadyPath, func(writer http.ResponseWriter, _ *http.Request) {
		if !s.readyFlag.Load() {
			writer.WriteHeader(http.StatusServiceUnavailable)
			_, _ = writer.Write([]byte("not-ready"))
			return
		}
		writer.WriteHeader(http.StatusOK)
		_, _ = writer.Write([]byte("ready"))
	})
	mux.Handle(httpCfg.MetricsPath, s.metrics.Handler())
	mux.HandleFunc(httpCfg.StatusPath, s.serveStatus)

	if httpCfg.Enabled {
		ingestLogger := logging.Component(s.logger, "ingest")
		mux.Handle(httpCfg.EventsPath, ingest.NewHTTPHandler(s.coordinator, s.metrics, httpCfg.MaxBodyBytes, ingestLogger))
		mux.Handle(httpCfg.ResyncPath, ingest.NewResyncHandler(s.coordinator, s.resyncTimeout(), ingestLogger))
	}

	s.httpSrv = &http.Server{
		Addr:              httpCfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// serveStatus reports active trigger ids.
// Params: HTTP response writer and request.
// Returns: JSON body with service name, count, and ids.
func (s *Service) serveStatus(writer http.ResponseWriter, _ *http.Request) {
	active := s.coordinator.ActiveTriggers()
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(statusResponse{
		Service:   s.cfg.Service.Name,
		Ready:     s.readyFlag.Load(),
		PortalURL: s.coordinator.PortalURL(),
		Active:    len(active),
		APIs:      active,
	})
}

type statusResponse struct {
	Service   string   `json:"service"`
	Ready     bool     `json:"ready"`
	PortalURL string   `json:"portalUrl"`
	Active    int      `json:"active"`
	APIs      []string `json:"apis"`
}

// buildNATSSubscriber starts NATS ingest when enabled.
// Params: none.
// Returns: initialization error.
func (s *Service) buildNATSSubscriber() error {
	if isSingleMode(s.cfg) || !s.cfg.Ingest.NATS.Enabled {
		return nil
	}
	subscriber, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.coordinator, s.coordinator, s.metrics, logging.Component(s.logger, "ingest"))
	if err != nil {
		return err
	}
	s.natsSub = subscriber
	return nil
}

// resyncTimeout bounds a resync triggered over HTTP.
// Params: none.
// Returns: periodic interval when set, otherwise zero (no bound).
func (s *Service) resyncTimeout() time.Duration {
	return time.Duration(s.cfg.Service.ResyncIntervalSec) * time.Second
}

func isSingleMode(cfg config.Config) bool {
	return config.NormalizeServiceMode(cfg.Service.Mode) == config.ServiceModeSingle
}
