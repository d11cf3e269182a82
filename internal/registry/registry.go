// Package registry lists API snapshots for full resynchronization.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"alerttrigger/internal/config"
	"alerttrigger/internal/domain"
)

// Registry returns every known API snapshot.
type Registry interface {
	FetchAll(ctx context.Context) ([]domain.APISnapshot, error)
	Close() error
}

// New builds the configured registry implementation.
// Params: registry config and logger.
// Returns: ready registry or setup error.
func New(cfg config.RegistryConfig, logger *slog.Logger) (Registry, error) {
	switch cfg.Kind {
	case config.RegistryKindNATS:
		return NewNATSRegistry(cfg.NATS, logger)
	case config.RegistryKindHTTP:
		return NewHTTPRegistry(cfg.HTTP, logger), nil
	case config.RegistryKindStatic:
		return NewStaticRegistry(), nil
	default:
		return nil, fmt.Errorf("unsupported registry kind %q", cfg.Kind)
	}
}

// StaticRegistry serves a fixed in-memory snapshot list.
type StaticRegistry struct {
	mu   sync.RWMutex
	apis []domain.APISnapshot
}

// NewStaticRegistry creates registry seeded with snapshots.
func NewStaticRegistry(apis ...domain.APISnapshot) *StaticRegistry {
	r := &StaticRegistry{}
	r.Replace(apis)
	return r
}

// FetchAll returns a copy of the stored snapshots.
func (r *StaticRegistry) FetchAll(_ context.Context) ([]domain.APISnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.APISnapshot, len(r.apis))
	copy(out, r.apis)
	return out, nil
}

// Replace swaps the stored snapshot list.
func (r *StaticRegistry) Replace(apis []domain.APISnapshot) {
	next := make([]domain.APISnapshot, len(apis))
	copy(next, apis)
	r.mu.Lock()
	r.apis = next
	r.mu.Unlock()
}

// Close is a no-op.
func (r *StaticRegistry) Close() error { return nil }
