package domain

import (
	"errors"
	"strings"
)

// LifecycleState is API runtime lifecycle state reported by the registry.
// Params: upper-case state names (STARTED, STOPPED, ...).
// Returns: state marker; only STARTED is alert-eligible.
type LifecycleState string

const (
	// LifecycleStarted marks a running API.
	LifecycleStarted LifecycleState = "STARTED"
	// LifecycleStopped marks a stopped API.
	LifecycleStopped LifecycleState = "STOPPED"
)

// SubServiceHealthCheck is the sub-service kind that gates HC alerting.
const SubServiceHealthCheck = "health-check"

// SubService is one configured API service (health-check, discovery, ...).
type SubService struct {
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// Owner is API primary owner contact.
// Params: optional email and display name.
// Returns: notification destination source.
type Owner struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// APISnapshot is full current state of one monitored API.
// Params: id, lifecycle state, configured sub-services, and primary owner.
// Returns: read-only input for trigger evaluation.
type APISnapshot struct {
	ID       string         `json:"id"`
	State    LifecycleState `json:"state"`
	Services []SubService   `json:"services,omitempty"`
	Owner    Owner          `json:"owner"`
}

// Started reports whether API is in alert-eligible lifecycle state.
// Params: none.
// Returns: true only for the exact STARTED value.
func (a APISnapshot) Started() bool {
	return a.State == LifecycleStarted
}

// HealthCheckEnabled reports whether any enabled health-check sub-service exists.
// Params: none.
// Returns: true when at least one enabled health-check service is configured.
func (a APISnapshot) HealthCheckEnabled() bool {
	for _, service := range a.Services {
		if service.Enabled && strings.EqualFold(strings.TrimSpace(service.Kind), SubServiceHealthCheck) {
			return true
		}
	}
	return false
}

// Validate checks snapshot identity.
// Params: decoded snapshot.
// Returns: error when API id is missing.
func (a APISnapshot) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("api id is required")
	}
	return nil
}
