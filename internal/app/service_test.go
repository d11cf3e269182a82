package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/test/testutil"
)

const singleModeConfig = `
[service]
name = "alerttrigger-test"
mode = "single"
resync_on_start = false

[log.console]
enabled = true
level = "error"

[portal]
url = "https://portal.example/"

[notifiers.email]
host = "smtp.example.com"
port = "587"
from = "alerts@example.com"

[ingest.http]
listen = "%s"
`

func newTestService(t *testing.T, listen string) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(singleModeConfig, listen)), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	source, err := config.FromCLI(path, "")
	if err != nil {
		t.Fatalf("config source: %v", err)
	}
	service, err := NewService(source)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, path
}

func serve(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	response := httptest.NewRecorder()
	handler.ServeHTTP(response, httptest.NewRequest(method, path, reader))
	return response
}

func decodeStatus(t *testing.T, response *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var status statusResponse
	if err := json.Unmarshal(response.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status %q: %v", response.Body.String(), err)
	}
	return status
}

func eventJSON(id string) string {
	return fmt.Sprintf(`{"kind":"START","api":{"id":"%s","state":"STARTED","services":[{"kind":"health-check","enabled":true}],"owner":{"email":"owner@example.com","displayName":"Owner"}}}`, id)
}

func TestServiceHTTPEndpoints(t *testing.T) {
	service, _ := newTestService(t, "127.0.0.1:0")
	defer func() { _ = service.shutdown() }()
	handler := service.Handler()

	if response := serve(t, handler, http.MethodGet, "/healthz", ""); response.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", response.Code)
	}
	if response := serve(t, handler, http.MethodGet, "/readyz", ""); response.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected not-ready before run, got %d", response.Code)
	}

	if response := serve(t, handler, http.MethodPost, "/events", eventJSON("api-1")); response.Code != http.StatusAccepted {
		t.Fatalf("expected event 202, got %d: %s", response.Code, response.Body.String())
	}
	status := decodeStatus(t, serve(t, handler, http.MethodGet, "/status", ""))
	if status.Service != "alerttrigger-test" || status.Active != 1 || len(status.APIs) != 1 || status.APIs[0] != "api-1" {
		t.Fatalf("unexpected status: %+v", status)
	}

	metricsBody := serve(t, handler, http.MethodGet, "/metrics", "").Body.String()
	for _, expected := range []string{
		`alerttrigger_dispatch_total{action="activate"} 1`,
		`alerttrigger_events_total{source="http"} 1`,
		`alerttrigger_active_triggers 1`,
	} {
		if !strings.Contains(metricsBody, expected) {
			t.Fatalf("metrics missing %q", expected)
		}
	}

	// The static registry is empty, so a resync drops every tracked trigger.
	if response := serve(t, handler, http.MethodPost, "/resync", ""); response.Code != http.StatusOK {
		t.Fatalf("expected resync 200, got %d: %s", response.Code, response.Body.String())
	}
	status = decodeStatus(t, serve(t, handler, http.MethodGet, "/status", ""))
	if status.Active != 0 {
		t.Fatalf("expected empty state after resync, got %+v", status)
	}
}

func TestServiceApplyConfigUpdatesPortalURL(t *testing.T) {
	service, _ := newTestService(t, "127.0.0.1:0")
	defer func() { _ = service.shutdown() }()

	next := service.cfg
	next.Portal.URL = "https://portal-2.example"
	next.Notifiers.Email.Host = "smtp-2.example.com"
	service.applyConfig(next)

	if got := service.Coordinator().PortalURL(); got != "https://portal-2.example" {
		t.Fatalf("expected reloaded portal url, got %q", got)
	}
	if service.cfg.Notifiers.Email.Host != "smtp.example.com" {
		t.Fatalf("transport settings must stay unchanged until restart")
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[service]\nmode = \"single\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	source, err := config.FromCLI(path, "")
	if err != nil {
		t.Fatalf("config source: %v", err)
	}
	if _, err := NewService(source); err == nil {
		t.Fatalf("expected error for config without notifier host")
	}
}

func TestServiceRunBecomesReadyAndStops(t *testing.T) {
	port, err := testutil.FreePort()
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	service, _ := newTestService(t, fmt.Sprintf("127.0.0.1:%d", port))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	readyURL := fmt.Sprintf("http://127.0.0.1:%d/readyz", port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		response, err := http.Get(readyURL)
		if err == nil {
			_ = response.Body.Close()
			if response.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("service did not become ready")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("service run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("service did not stop after cancel")
	}
}
