package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const (
	emailSection = `[notifiers.email]
host = "smtp.example"
port = "587"
username = "user"
password = "secret"
from = "alerts@example"
starttls_enabled = true`
	portalSection = `[portal]
url = "https://portal.example/"`
	singleService = `[service]
mode = "single"`
)

func TestLoadSnapshotSingleModeDefaults(t *testing.T) {
	t.Parallel()

	cfg := mustLoadSnapshot(t, joinSections(singleService, emailSection, portalSection))

	if cfg.Service.Name != "alerttrigger" {
		t.Fatalf("unexpected service name %q", cfg.Service.Name)
	}
	if !cfg.Service.ResyncOnStartEnabled() {
		t.Fatalf("expected resync_on_start default true")
	}
	if !cfg.Ingest.HTTP.Enabled || cfg.Ingest.NATS.Enabled {
		t.Fatalf("single mode must force http ingest only: %+v", cfg.Ingest)
	}
	if cfg.Sink.Kind != SinkKindLog {
		t.Fatalf("expected log sink in single mode, got %q", cfg.Sink.Kind)
	}
	if cfg.Registry.Kind != RegistryKindStatic {
		t.Fatalf("expected static registry in single mode, got %q", cfg.Registry.Kind)
	}
	if cfg.Ingest.HTTP.EventsPath != "/events" || cfg.Ingest.HTTP.ResyncPath != "/resync" {
		t.Fatalf("unexpected ingest paths: %+v", cfg.Ingest.HTTP)
	}
	if cfg.Portal.URL != "https://portal.example/" {
		t.Fatalf("unexpected portal url %q", cfg.Portal.URL)
	}
}

func TestLoadSnapshotNATSModeDerivesURLs(t *testing.T) {
	t.Parallel()

	cfg := mustLoadSnapshot(t, joinSections(emailSection, `[ingest.nats]
enabled = true
url = [" nats://n1:4222 ", "nats://n2:4222"]`))

	if cfg.Service.Mode != ServiceModeNATS {
		t.Fatalf("unexpected mode %q", cfg.Service.Mode)
	}
	if got := strings.Join(cfg.Sink.NATS.URL, ","); got != "nats://n1:4222,nats://n2:4222" {
		t.Fatalf("sink url not derived from ingest: %q", got)
	}
	if got := strings.Join(cfg.Registry.NATS.URL, ","); got != "nats://n1:4222,nats://n2:4222" {
		t.Fatalf("registry url not derived from ingest: %q", got)
	}
	if cfg.Sink.NATS.Subject != "alerts.triggers" || cfg.Registry.NATS.Bucket != "apis" {
		t.Fatalf("unexpected nats defaults: sink=%+v registry=%+v", cfg.Sink.NATS, cfg.Registry.NATS)
	}
	if cfg.Ingest.NATS.EventsSubject != "apis.lifecycle" || cfg.Ingest.NATS.ResyncSubject != "alerttrigger.resync" {
		t.Fatalf("unexpected ingest subjects: %+v", cfg.Ingest.NATS)
	}
}

func TestEmailNotifierTransport(t *testing.T) {
	t.Parallel()

	cfg := mustLoadSnapshot(t, joinSections(singleService, emailSection))
	transport := cfg.Notifiers.Email.Transport()
	if transport.Host != "smtp.example" || transport.Port != "587" || !transport.StartTLSEnabled {
		t.Fatalf("unexpected transport: %+v", transport)
	}
	if transport.From != "alerts@example" {
		t.Fatalf("unexpected from %q", transport.From)
	}
}

func TestLoadSnapshotRequiresEmailHost(t *testing.T) {
	t.Parallel()

	err := loadSnapshotErr(t, joinSections(singleService, `[notifiers.email]
from = "alerts@example"`))
	if !strings.Contains(err.Error(), "notifiers.email.host is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSnapshotSingleModeRejectsNATSSink(t *testing.T) {
	t.Parallel()

	err := loadSnapshotErr(t, joinSections(singleService, emailSection, `[sink]
kind = "nats"`))
	if !strings.Contains(err.Error(), "sink.kind=nats") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSnapshotHTTPSinkValidation(t *testing.T) {
	t.Parallel()

	err := loadSnapshotErr(t, joinSections(singleService, emailSection, `[sink]
kind = "http"`))
	if !strings.Contains(err.Error(), "sink.http.url is required") {
		t.Fatalf("unexpected error: %v", err)
	}

	err = loadSnapshotErr(t, joinSections(singleService, emailSection, `[sink]
kind = "http"

[sink.http]
url = "http://backend/triggers"

[sink.http.retry]
enabled = true
backoff = "linear"`))
	if !strings.Contains(err.Error(), "backoff") {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := mustLoadSnapshot(t, joinSections(singleService, emailSection, `[sink]
kind = "http"

[sink.http]
url = "http://backend/triggers"

[sink.http.retry]
enabled = true`))
	if cfg.Sink.HTTP.Retry.MaxAttempts != 5 || cfg.Sink.HTTP.Retry.Backoff != "exponential" {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Sink.HTTP.Retry)
	}
}

func TestLoadSnapshotRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	loadSnapshotErr(t, joinSections(singleService, emailSection, `[portal]
base = "https://portal.example"`))
}

func TestLoadSnapshotRejectsUnsupportedLogLevel(t *testing.T) {
	t.Parallel()

	err := loadSnapshotErr(t, joinSections(singleService, emailSection, `[log.console]
enabled = true
level = "trace"`))
	if !strings.Contains(err.Error(), "log.console.level") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadSnapshotFromDirOverlaysSections(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeConfigFile(t, filepath.Join(tmpDir, "10-base.toml"), joinSections(singleService, emailSection, portalSection))
	writeConfigFile(t, filepath.Join(tmpDir, "20-portal.toml"), `[portal]
url = "https://other.example"`)
	writeConfigFile(t, filepath.Join(tmpDir, "notes.txt"), "ignored")

	cfg, err := LoadSnapshot(ConfigSource{Dir: tmpDir})
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if cfg.Portal.URL != "https://other.example" {
		t.Fatalf("expected later fragment to win, got %q", cfg.Portal.URL)
	}
	if cfg.Notifiers.Email.Host != "smtp.example" {
		t.Fatalf("expected earlier fragment sections to stay, got %+v", cfg.Notifiers.Email)
	}
}

func TestLoadSnapshotFromEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := LoadSnapshot(ConfigSource{Dir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for dir without toml files")
	}
}

func TestFromCLI(t *testing.T) {
	t.Parallel()

	if _, err := FromCLI("", ""); err == nil {
		t.Fatalf("expected error without sources")
	}
	if _, err := FromCLI("a.toml", "dir"); err == nil {
		t.Fatalf("expected error with both sources")
	}
	src, err := FromCLI(" a.toml ", "")
	if err != nil || src.File != "a.toml" || src.Path() != "a.toml" {
		t.Fatalf("unexpected source %+v err=%v", src, err)
	}
}

func TestWatchReloadsPortalURL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfigFile(t, path, joinSections(singleService, emailSection, portalSection))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, ConfigSource{File: path}, logger, func(cfg Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	deadline := time.After(5 * time.Second)
	for {
		writeConfigFile(t, path, joinSections(singleService, emailSection, `[portal]
url = "https://new.example"`))
		select {
		case cfg := <-reloaded:
			if cfg.Portal.URL != "https://new.example" {
				t.Fatalf("unexpected portal url %q", cfg.Portal.URL)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("watch returned error: %v", err)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatalf("config reload not observed")
		}
	}
}

func mustLoadSnapshot(t *testing.T, content string) Config {
	t.Helper()
	cfg, err := loadSnapshotFromContent(t, content)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return cfg
}

func loadSnapshotErr(t *testing.T, content string) error {
	t.Helper()
	_, err := loadSnapshotFromContent(t, content)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	return err
}

func loadSnapshotFromContent(t *testing.T, content string) (Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfigFile(t, path, content)
	return LoadSnapshot(ConfigSource{File: path})
}

func joinSections(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		nonEmpty = append(nonEmpty, trimmed)
	}
	return strings.Join(nonEmpty, "\n\n") + "\n"
}

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}
