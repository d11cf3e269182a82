package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"alerttrigger/internal/domain"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServiceName        = "alerttrigger"
	defaultHTTPListen         = ":8080"
	defaultHealthPath         = "/healthz"
	defaultReadyPath          = "/readyz"
	defaultMetricsPath        = "/metrics"
	defaultStatusPath         = "/status"
	defaultEventsPath         = "/events"
	defaultResyncPath         = "/resync"
	defaultMaxBodyBytes       = 2 << 20
	defaultNATSURL            = "nats://127.0.0.1:4222"
	defaultEventsSubject      = "apis.lifecycle"
	defaultEventsStream       = "API_LIFECYCLE"
	defaultEventsConsumer     = "alerttrigger-events"
	defaultEventsGroup        = "alerttrigger-workers"
	defaultResyncSubject      = "alerttrigger.resync"
	defaultNATSAckWaitSec     = 30
	defaultNATSNackDelayMS    = 1000
	defaultNATSMaxDeliver     = -1
	defaultNATSMaxAckPending  = 1024
	defaultSinkSubject        = "alerts.triggers"
	defaultSinkStream         = "ALERT_TRIGGERS"
	defaultRegistryBucket     = "apis"
	defaultHTTPTimeoutSec     = 10
	defaultRetryInitialMS     = 500
	defaultRetryMaxMS         = 10000
	defaultRetryMaxAttempts   = 5
	defaultNotifierPort       = "25"
	defaultResyncIntervalSec  = 0
	defaultLogLevel           = "info"
	defaultConsoleLogFormat   = "line"
	defaultFileLogFormat      = "json"
	defaultSinkKind           = SinkKindNATS
	defaultRegistryKind       = RegistryKindNATS
	defaultRetryBackoffPolicy = "exponential"

	// ServiceModeNATS runs with NATS-backed ingest, sink, and registry.
	ServiceModeNATS = "nats"
	// ServiceModeSingle runs without NATS dependencies (HTTP only).
	ServiceModeSingle = "single"

	// SinkKindNATS publishes triggers into JetStream.
	SinkKindNATS = "nats"
	// SinkKindHTTP posts triggers to alert backend HTTP endpoint.
	SinkKindHTTP = "http"
	// SinkKindLog only logs triggers (dry run).
	SinkKindLog = "log"

	// RegistryKindNATS lists API snapshots from JetStream KV bucket.
	RegistryKindNATS = "nats"
	// RegistryKindHTTP lists API snapshots from HTTP endpoint.
	RegistryKindHTTP = "http"
	// RegistryKindStatic uses an empty in-memory registry.
	RegistryKindStatic = "static"
)

// Config holds service runtime settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service   ServiceConfig   `toml:"service"`
	Log       LogConfig       `toml:"log"`
	Portal    PortalConfig    `toml:"portal"`
	Notifiers NotifiersConfig `toml:"notifiers"`
	Ingest    IngestConfig    `toml:"ingest"`
	Sink      SinkConfig      `toml:"sink"`
	Registry  RegistryConfig  `toml:"registry"`
}

// ServiceConfig contains process-level settings.
// Params: name, mode, resync schedule, and reload toggle.
// Returns: service behavior defaults.
type ServiceConfig struct {
	Name              string `toml:"name"`
	Mode              string `toml:"mode"`
	ResyncOnStart     *bool  `toml:"resync_on_start"`
	ResyncIntervalSec int    `toml:"resync_interval_sec"`
	ReloadEnabled     bool   `toml:"reload_enabled"`
}

// ResyncOnStartEnabled reports effective startup-resync toggle.
// Params: none.
// Returns: configured value, true when unset.
func (s ServiceConfig) ResyncOnStartEnabled() bool {
	return s.ResyncOnStart == nil || *s.ResyncOnStart
}

// PortalConfig holds management portal settings.
// Params: portal base URL used in trigger details links.
type PortalConfig struct {
	URL string `toml:"url"`
}

// NotifiersConfig groups notifier transport settings handed to the alert backend.
type NotifiersConfig struct {
	Email EmailNotifier `toml:"email"`
}

// EmailNotifier holds SMTP settings serialized into every trigger notification.
// Params: endpoint, credentials, sender, and TLS options.
// Returns: static transport configuration.
type EmailNotifier struct {
	Host                string `toml:"host"`
	Port                string `toml:"port"`
	Username            string `toml:"username"`
	Password            string `toml:"password"`
	From                string `toml:"from"`
	StartTLSEnabled     bool   `toml:"starttls_enabled"`
	SSLTrustAll         bool   `toml:"ssl_trust_all"`
	SSLKeyStore         string `toml:"ssl_key_store"`
	SSLKeyStorePassword string `toml:"ssl_key_store_password"`
}

// Transport converts notifier settings into domain transport config.
// Params: none.
// Returns: immutable transport settings.
func (e EmailNotifier) Transport() domain.TransportConfig {
	return domain.TransportConfig{
		Host:                e.Host,
		Port:                e.Port,
		Username:            e.Username,
		Password:            e.Password,
		From:                e.From,
		StartTLSEnabled:     e.StartTLSEnabled,
		SSLTrustAll:         e.SSLTrustAll,
		SSLKeyStore:         e.SSLKeyStore,
		SSLKeyStorePassword: e.SSLKeyStorePassword,
	}
}

// IngestConfig defines inbound event interfaces.
// Params: HTTP endpoints and NATS subscription controls.
// Returns: ingestion runtime options.
type IngestConfig struct {
	HTTP HTTPIngestConfig `toml:"http"`
	NATS NATSIngestConfig `toml:"nats"`
}

// HTTPIngestConfig configures HTTP server endpoints.
// Params: enable flag for event/resync endpoints, listen address, paths, and body limit.
// Returns: HTTP ingest behavior.
type HTTPIngestConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	MetricsPath  string `toml:"metrics_path"`
	StatusPath   string `toml:"status_path"`
	EventsPath   string `toml:"events_path"`
	ResyncPath   string `toml:"resync_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// NATSIngestConfig configures JetStream lifecycle consumer and resync subscription.
// Params: connection, routing keys, and ack/redelivery policy.
// Returns: NATS ingest behavior.
type NATSIngestConfig struct {
	Enabled       bool     `toml:"enabled"`
	URL           []string `toml:"url"`
	EventsSubject string   `toml:"events_subject"`
	Stream        string   `toml:"stream"`
	ConsumerName  string   `toml:"consumer_name"`
	DeliverGroup  string   `toml:"deliver_group"`
	ResyncSubject string   `toml:"resync_subject"`
	AckWaitSec    int      `toml:"ack_wait_sec"`
	NackDelayMS   int      `toml:"nack_delay_ms"`
	MaxDeliver    int      `toml:"max_deliver"`
	MaxAckPending int      `toml:"max_ack_pending"`
}

// SinkConfig selects alert backend transport.
type SinkConfig struct {
	Kind string         `toml:"kind"`
	NATS NATSSinkConfig `toml:"nats"`
	HTTP HTTPSinkConfig `toml:"http"`
}

// NATSSinkConfig defines JetStream publish target for triggers.
// Params: URL list (defaults to ingest.nats.url), subject, and stream.
type NATSSinkConfig struct {
	URL     []string `toml:"url"`
	Subject string   `toml:"subject"`
	Stream  string   `toml:"stream"`
}

// HTTPSinkConfig defines alert backend HTTP endpoint.
// Params: URL, timeout, static headers, and retry policy.
type HTTPSinkConfig struct {
	URL        string            `toml:"url"`
	TimeoutSec int               `toml:"timeout_sec"`
	Headers    map[string]string `toml:"headers"`
	Retry      RetryConfig       `toml:"retry"`
}

// RetryConfig configures outbound delivery retries.
// Params: retry toggle, backoff, and attempt limits.
// Returns: retry policy for sink dispatch.
type RetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Backoff     string `toml:"backoff"`
	InitialMS   int    `toml:"initial_ms"`
	MaxMS       int    `toml:"max_ms"`
	MaxAttempts int    `toml:"max_attempts"`
}

// RegistryConfig selects API registry source used by resync.
type RegistryConfig struct {
	Kind string             `toml:"kind"`
	NATS NATSRegistryConfig `toml:"nats"`
	HTTP HTTPRegistryConfig `toml:"http"`
}

// NATSRegistryConfig points at JetStream KV bucket holding API snapshots.
type NATSRegistryConfig struct {
	URL    []string `toml:"url"`
	Bucket string   `toml:"bucket"`
}

// HTTPRegistryConfig points at HTTP endpoint returning JSON array of API snapshots.
type HTTPRegistryConfig struct {
	URL        string            `toml:"url"`
	TimeoutSec int               `toml:"timeout_sec"`
	Headers    map[string]string `toml:"headers"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// Path returns watched filesystem path of the source.
// Params: none.
// Returns: file path or directory path.
func (s ConfigSource) Path() string {
	if s.File != "" {
		return s.File
	}
	return s.Dir
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads and validates configuration from one source.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	var cfg Config
	var err error
	if src.File != "" {
		cfg, err = loadFile(src.File)
	} else {
		cfg, err = loadDir(src.Dir)
	}
	if err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile reads one TOML configuration file.
// Params: file path to config snapshot.
// Returns: decoded config or read/decode error.
func loadFile(path string) (Config, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	var cfg Config
	decoder := toml.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file %q: %w", path, err)
	}
	return cfg, nil
}

// loadDir reads and merges TOML files from one directory.
// Params: directory containing config fragments.
// Returns: merged config snapshot or load/decode error.
func loadDir(dir string) (Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Config{}, fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return Config{}, fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	var merged Config
	for _, file := range files {
		fragment, err := loadFile(file)
		if err != nil {
			return Config{}, err
		}
		mergeConfig(&merged, fragment)
	}
	return merged, nil
}

// mergeConfig overlays non-empty sections of source onto destination.
// Params: destination config and next fragment.
// Returns: merged configuration side-effect in dst.
func mergeConfig(dst *Config, src Config) {
	if src.Service != (ServiceConfig{}) {
		dst.Service = src.Service
	}
	if src.Log != (LogConfig{}) {
		dst.Log = src.Log
	}
	if src.Portal != (PortalConfig{}) {
		dst.Portal = src.Portal
	}
	if src.Notifiers != (NotifiersConfig{}) {
		dst.Notifiers = src.Notifiers
	}
	if hasIngestConfig(src.Ingest) {
		dst.Ingest = src.Ingest
	}
	if hasSinkConfig(src.Sink) {
		dst.Sink = src.Sink
	}
	if hasRegistryConfig(src.Registry) {
		dst.Registry = src.Registry
	}
}

// applyDefaults fills omitted values.
// Params: cfg pointer to decoded snapshot.
// Returns: defaults applied in place.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}
	cfg.Service.Mode = NormalizeServiceMode(cfg.Service.Mode)
	if cfg.Service.ResyncIntervalSec < 0 {
		cfg.Service.ResyncIntervalSec = defaultResyncIntervalSec
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = defaultLogLevel
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = defaultConsoleLogFormat
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = defaultLogLevel
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = defaultFileLogFormat
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.Notifiers.Email.Port) == "" {
		cfg.Notifiers.Email.Port = defaultNotifierPort
	}

	applyHTTPIngestDefaults(&cfg.Ingest.HTTP)
	if cfg.Service.Mode == ServiceModeSingle {
		cfg.Ingest.HTTP.Enabled = true
		cfg.Ingest.NATS.Enabled = false
	}
	applyNATSIngestDefaults(&cfg.Ingest.NATS)

	cfg.Sink.Kind = normalizeKind(cfg.Sink.Kind)
	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = defaultSinkKind
		if cfg.Service.Mode == ServiceModeSingle {
			cfg.Sink.Kind = SinkKindLog
		}
	}
	if len(cfg.Sink.NATS.URL) == 0 {
		cfg.Sink.NATS.URL = cfg.Ingest.NATS.URL
	}
	cfg.Sink.NATS.URL = normalizeNATSURLs(cfg.Sink.NATS.URL)
	if strings.TrimSpace(cfg.Sink.NATS.Subject) == "" {
		cfg.Sink.NATS.Subject = defaultSinkSubject
	}
	if strings.TrimSpace(cfg.Sink.NATS.Stream) == "" {
		cfg.Sink.NATS.Stream = defaultSinkStream
	}
	if cfg.Sink.HTTP.TimeoutSec <= 0 {
		cfg.Sink.HTTP.TimeoutSec = defaultHTTPTimeoutSec
	}
	fillRetryDefaults(&cfg.Sink.HTTP.Retry)

	cfg.Registry.Kind = normalizeKind(cfg.Registry.Kind)
	if cfg.Registry.Kind == "" {
		cfg.Registry.Kind = defaultRegistryKind
		if cfg.Service.Mode == ServiceModeSingle {
			cfg.Registry.Kind = RegistryKindStatic
		}
	}
	if len(cfg.Registry.NATS.URL) == 0 {
		cfg.Registry.NATS.URL = cfg.Ingest.NATS.URL
	}
	cfg.Registry.NATS.URL = normalizeNATSURLs(cfg.Registry.NATS.URL)
	if strings.TrimSpace(cfg.Registry.NATS.Bucket) == "" {
		cfg.Registry.NATS.Bucket = defaultRegistryBucket
	}
	if cfg.Registry.HTTP.TimeoutSec <= 0 {
		cfg.Registry.HTTP.TimeoutSec = defaultHTTPTimeoutSec
	}
}

func applyHTTPIngestDefaults(cfg *HTTPIngestConfig) {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.HealthPath) == "" {
		cfg.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.ReadyPath) == "" {
		cfg.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(cfg.MetricsPath) == "" {
		cfg.MetricsPath = defaultMetricsPath
	}
	if strings.TrimSpace(cfg.StatusPath) == "" {
		cfg.StatusPath = defaultStatusPath
	}
	if strings.TrimSpace(cfg.EventsPath) == "" {
		cfg.EventsPath = defaultEventsPath
	}
	if strings.TrimSpace(cfg.ResyncPath) == "" {
		cfg.ResyncPath = defaultResyncPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func applyNATSIngestDefaults(cfg *NATSIngestConfig) {
	cfg.URL = normalizeNATSURLs(cfg.URL)
	if len(cfg.URL) == 0 {
		cfg.URL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.EventsSubject) == "" {
		cfg.EventsSubject = defaultEventsSubject
	}
	if strings.TrimSpace(cfg.Stream) == "" {
		cfg.Stream = defaultEventsStream
	}
	if strings.TrimSpace(cfg.ConsumerName) == "" {
		cfg.ConsumerName = defaultEventsConsumer
	}
	if strings.TrimSpace(cfg.DeliverGroup) == "" {
		cfg.DeliverGroup = defaultEventsGroup
	}
	if strings.TrimSpace(cfg.ResyncSubject) == "" {
		cfg.ResyncSubject = defaultResyncSubject
	}
	if cfg.AckWaitSec <= 0 {
		cfg.AckWaitSec = defaultNATSAckWaitSec
	}
	if cfg.NackDelayMS == 0 {
		cfg.NackDelayMS = defaultNATSNackDelayMS
	}
	if cfg.MaxDeliver == 0 {
		cfg.MaxDeliver = defaultNATSMaxDeliver
	}
	if cfg.MaxAckPending <= 0 {
		cfg.MaxAckPending = defaultNATSMaxAckPending
	}
}

// fillRetryDefaults fills retry policy values when retries are enabled.
// Params: retry config pointer.
// Returns: defaults applied in place.
func fillRetryDefaults(retry *RetryConfig) {
	if strings.TrimSpace(retry.Backoff) == "" {
		retry.Backoff = defaultRetryBackoffPolicy
	}
	if retry.InitialMS <= 0 {
		retry.InitialMS = defaultRetryInitialMS
	}
	if retry.MaxMS <= 0 {
		retry.MaxMS = defaultRetryMaxMS
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = defaultRetryMaxAttempts
	}
}

// validateConfig validates full runtime configuration.
// Params: cfg snapshot to validate.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	mode := NormalizeServiceMode(cfg.Service.Mode)
	if !IsSupportedServiceMode(mode) {
		return fmt.Errorf("service.mode has unsupported value %q", cfg.Service.Mode)
	}
	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Notifiers.Email.Host) == "" {
		return errors.New("notifiers.email.host is required")
	}
	if strings.TrimSpace(cfg.Notifiers.Email.From) == "" {
		return errors.New("notifiers.email.from is required")
	}

	for name, path := range map[string]string{
		"health_path":  cfg.Ingest.HTTP.HealthPath,
		"ready_path":   cfg.Ingest.HTTP.ReadyPath,
		"metrics_path": cfg.Ingest.HTTP.MetricsPath,
		"status_path":  cfg.Ingest.HTTP.StatusPath,
		"events_path":  cfg.Ingest.HTTP.EventsPath,
		"resync_path":  cfg.Ingest.HTTP.ResyncPath,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("ingest.http.%s must start with '/'", name)
		}
	}

	if mode == ServiceModeSingle {
		if cfg.Sink.Kind == SinkKindNATS {
			return errors.New("sink.kind=nats is not supported when service.mode=single")
		}
		if cfg.Registry.Kind == RegistryKindNATS {
			return errors.New("registry.kind=nats is not supported when service.mode=single")
		}
	}
	if cfg.Ingest.NATS.Enabled {
		if len(cfg.Ingest.NATS.URL) == 0 {
			return errors.New("ingest.nats.url is required when ingest.nats.enabled=true")
		}
		if cfg.Ingest.NATS.NackDelayMS < 0 {
			return errors.New("ingest.nats.nack_delay_ms must be >=0")
		}
		if cfg.Ingest.NATS.MaxDeliver < -1 {
			return errors.New("ingest.nats.max_deliver must be -1 or >0")
		}
	}

	switch cfg.Sink.Kind {
	case SinkKindNATS:
		if len(cfg.Sink.NATS.URL) == 0 {
			return errors.New("sink.nats.url is required")
		}
	case SinkKindHTTP:
		if strings.TrimSpace(cfg.Sink.HTTP.URL) == "" {
			return errors.New("sink.http.url is required when sink.kind=http")
		}
		switch strings.ToLower(cfg.Sink.HTTP.Retry.Backoff) {
		case "fixed", "exponential":
		default:
			return fmt.Errorf("sink.http.retry.backoff has unsupported value %q", cfg.Sink.HTTP.Retry.Backoff)
		}
	case SinkKindLog:
	default:
		return fmt.Errorf("sink.kind has unsupported value %q", cfg.Sink.Kind)
	}

	switch cfg.Registry.Kind {
	case RegistryKindNATS:
		if len(cfg.Registry.NATS.URL) == 0 {
			return errors.New("registry.nats.url is required")
		}
	case RegistryKindHTTP:
		if strings.TrimSpace(cfg.Registry.HTTP.URL) == "" {
			return errors.New("registry.http.url is required when registry.kind=http")
		}
	case RegistryKindStatic:
	default:
		return fmt.Errorf("registry.kind has unsupported value %q", cfg.Registry.Kind)
	}
	return nil
}

func hasIngestConfig(cfg IngestConfig) bool {
	return cfg.HTTP != (HTTPIngestConfig{}) || cfg.NATS.Enabled || len(cfg.NATS.URL) > 0 ||
		cfg.NATS.EventsSubject != "" || cfg.NATS.ResyncSubject != ""
}

func hasSinkConfig(cfg SinkConfig) bool {
	return cfg.Kind != "" || cfg.HTTP.URL != "" || cfg.NATS.Subject != "" || len(cfg.NATS.URL) > 0
}

func hasRegistryConfig(cfg RegistryConfig) bool {
	return cfg.Kind != "" || cfg.HTTP.URL != "" || cfg.NATS.Bucket != "" || len(cfg.NATS.URL) > 0
}

// normalizeNATSURLs trims configured NATS URLs and drops blanks.
// Params: raw URL list from config.
// Returns: normalized URL list.
func normalizeNATSURLs(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if trimmed := strings.TrimSpace(url); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeKind(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeServiceMode canonicalizes service mode and applies default.
// Params: raw mode value from config.
// Returns: normalized mode (`nats` by default).
func NormalizeServiceMode(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return ServiceModeNATS
	}
	return normalized
}

// IsSupportedServiceMode reports whether mode value is supported.
// Params: normalized mode value.
// Returns: true for known modes.
func IsSupportedServiceMode(mode string) bool {
	switch NormalizeServiceMode(mode) {
	case ServiceModeNATS, ServiceModeSingle:
		return true
	default:
		return false
	}
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}
