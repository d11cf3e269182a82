package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"

	"github.com/nats-io/nats.go"
)

// NATSRegistry reads API snapshots from a JetStream KV bucket keyed by API id.
// Params: NATS connection and bucket handle.
// Returns: KV-backed registry implementation.
type NATSRegistry struct {
	nc     *nats.Conn
	kv     nats.KeyValue
	logger *slog.Logger
}

// NewNATSRegistry connects to NATS and opens (or creates) the API bucket.
// Params: registry NATS config and logger.
// Returns: initialized registry or setup error.
func NewNATSRegistry(cfg config.NATSRegistryConfig, logger *slog.Logger) (*NATSRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(strings.Join(cfg.URL, ","))
	if err != nil {
		return nil, fmt.Errorf("connect registry nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init for registry: %w", err)
	}
	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket})
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open registry bucket %q: %w", cfg.Bucket, err)
	}
	return &NATSRegistry{nc: nc, kv: kv, logger: logger}, nil
}

// FetchAll lists every key and decodes its snapshot.
// Params: context bounding KV calls.
// Returns: snapshots sorted by id; undecodable entries are logged and skipped.
func (r *NATSRegistry) FetchAll(ctx context.Context) ([]domain.APISnapshot, error) {
	keys, err := r.kv.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []domain.APISnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list registry keys: %w", err)
	}
	sort.Strings(keys)

	out := make([]domain.APISnapshot, 0, len(keys))
	for _, key := range keys {
		entry, err := r.kv.Get(key)
		if errors.Is(err, nats.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get registry key %q: %w", key, err)
		}
		var snapshot domain.APISnapshot
		if err := json.Unmarshal(entry.Value(), &snapshot); err != nil {
			r.logger.Warn("registry entry skipped", "key", key, "error", err.Error())
			continue
		}
		if snapshot.ID == "" {
			snapshot.ID = key
		}
		out = append(out, snapshot)
	}
	return out, nil
}

// Put stores one snapshot under its id.
// Params: context and snapshot.
// Returns: validation or KV write error.
func (r *NATSRegistry) Put(_ context.Context, snapshot domain.APISnapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", snapshot.ID, err)
	}
	if _, err := r.kv.Put(snapshot.ID, body); err != nil {
		return fmt.Errorf("put registry key %q: %w", snapshot.ID, err)
	}
	return nil
}

// Close closes registry NATS connection.
func (r *NATSRegistry) Close() error {
	if r == nil || r.nc == nil {
		return nil
	}
	r.nc.Close()
	return nil
}
