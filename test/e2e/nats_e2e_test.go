package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"
	"alerttrigger/internal/ingest"
	"alerttrigger/internal/registry"
	"alerttrigger/test/testutil"

	"github.com/nats-io/nats.go"
)

func natsModeConfig(port int, natsURL string) string {
	return fmt.Sprintf(`
[service]
name = "alerttrigger"
mode = "nats"

[log.console]
enabled = true
level = "error"

[portal]
url = "https://portal.example"

[notifiers.email]
host = "smtp.example.com"
port = "25"
from = "alerts@example.com"

[ingest.http]
enabled = false
listen = "127.0.0.1:%d"

[ingest.nats]
enabled = true
url = ["%s"]
events_subject = "apis.lifecycle.e2e"
stream = "API_LIFECYCLE_E2E"
resync_subject = "alerttrigger.resync.e2e"
ack_wait_sec = 5
nack_delay_ms = 50

[sink]
kind = "nats"

[sink.nats]
subject = "alerts.triggers.e2e"
stream = "ALERT_TRIGGERS_E2E"

[registry]
kind = "nats"

[registry.nats]
bucket = "apis_e2e"
`, port, natsURL)
}

func healthCheckedAPI(id, state, email string) domain.APISnapshot {
	return domain.APISnapshot{
		ID:       id,
		State:    domain.LifecycleState(state),
		Services: []domain.SubService{{Kind: domain.SubServiceHealthCheck, Enabled: true}},
		Owner:    domain.Owner{Email: email, DisplayName: "Owner " + id},
	}
}

func nextTriggerMessage(t *testing.T, sub *nats.Subscription) *nats.Msg {
	t.Helper()
	message, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("next trigger message: %v", err)
	}
	return message
}

func TestNATSServiceResyncAndLifecycleE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skip e2e test in short mode")
	}

	natsURL, stopNATS := testutil.StartLocalNATSServer(t)
	defer stopNATS()
	port, err := testutil.FreePort()
	if err != nil {
		t.Fatalf("free port: %v", err)
	}

	seed, err := registry.NewNATSRegistry(config.NATSRegistryConfig{URL: []string{natsURL}, Bucket: "apis_e2e"}, nil)
	if err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	defer seed.Close()
	ctx := context.Background()
	for _, api := range []domain.APISnapshot{
		healthCheckedAPI("api-a", "STARTED", "a@example.com"),
		healthCheckedAPI("api-b", "STARTED", ""),
		healthCheckedAPI("api-c", "STOPPED", "c@example.com"),
	} {
		if err := seed.Put(ctx, api); err != nil {
			t.Fatalf("seed %s: %v", api.ID, err)
		}
	}

	service := newServiceFromConfig(t, writeConfig(t, natsModeConfig(port, natsURL)))

	nc, js := testutil.ConnectJetStream(t, natsURL)
	triggers, err := js.SubscribeSync("alerts.triggers.e2e", nats.DeliverAll())
	if err != nil {
		t.Fatalf("subscribe triggers: %v", err)
	}
	defer triggers.Unsubscribe()

	cancel, done := runService(t, service)
	defer cancel()
	waitReady(t, port)

	// Startup resync activates only the eligible API with an owner email.
	first := nextTriggerMessage(t, triggers)
	if first.Header.Get("Alert-Action") != "trigger" || first.Header.Get("Alert-Trigger-Id") != "HC-api-a" {
		t.Fatalf("unexpected startup message headers: %v", first.Header)
	}
	var definition domain.TriggerDefinition
	if err := json.Unmarshal(first.Data, &definition); err != nil {
		t.Fatalf("decode definition: %v", err)
	}
	if definition.ViewDetailsURL != "https://portal.example/#!/management/apis/api-a/healthcheck/" {
		t.Fatalf("unexpected details url %q", definition.ViewDetailsURL)
	}
	if len(definition.Notifications) != 1 || definition.Notifications[0].Destination != "a@example.com" {
		t.Fatalf("unexpected notifications: %+v", definition.Notifications)
	}

	stop := domain.LifecycleEvent{Kind: domain.EventKindStop, API: healthCheckedAPI("api-a", "STOPPED", "a@example.com")}
	payload, err := json.Marshal(stop)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	if _, err := js.Publish("apis.lifecycle.e2e", payload); err != nil {
		t.Fatalf("publish event: %v", err)
	}

	cancelMsg := nextTriggerMessage(t, triggers)
	if cancelMsg.Header.Get("Alert-Action") != "cancel" {
		t.Fatalf("expected cancel message, got headers %v", cancelMsg.Header)
	}
	var directive domain.CancelDirective
	if err := json.Unmarshal(cancelMsg.Data, &directive); err != nil || directive != domain.NewCancelDirective("HC-api-a") {
		t.Fatalf("unexpected cancel directive %s (%v)", string(cancelMsg.Data), err)
	}

	// A resync rebuilds state from the registry, which still lists api-a as started.
	reply, err := nc.Request("alerttrigger.resync.e2e", nil, 5*time.Second)
	if err != nil {
		t.Fatalf("resync request: %v", err)
	}
	if string(reply.Data) != ingest.ResyncReplyOK {
		t.Fatalf("unexpected resync reply %q", string(reply.Data))
	}
	again := nextTriggerMessage(t, triggers)
	if again.Header.Get("Alert-Trigger-Id") != "HC-api-a" || again.Header.Get("Alert-Action") != "trigger" {
		t.Fatalf("expected re-activation after resync, got headers %v", again.Header)
	}
	if extra, err := triggers.NextMsg(200 * time.Millisecond); err == nil {
		t.Fatalf("unexpected extra trigger message: %s", string(extra.Data))
	}

	cancel()
	waitServiceStop(t, done)
}
