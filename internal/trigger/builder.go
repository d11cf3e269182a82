// Package trigger derives health-check alert triggers from API snapshots.
package trigger

import (
	"fmt"
	"strings"

	"alerttrigger/internal/domain"
)

const (
	// Name is the fixed human-readable trigger name.
	Name = "HC status transition alerts"

	idPrefix         = "HC-"
	conditionFormat  = "$[?(@.type == 'HC' && @.props.API == '%s')]"
	detailsURLFormat = "/#!/management/apis/%s/healthcheck/"
)

// Action is the outcome of one trigger evaluation.
type Action int

const (
	// ActionDeactivate asks to cancel any active trigger for the API.
	ActionDeactivate Action = iota
	// ActionSkip declines to build a trigger and leaves current state untouched.
	ActionSkip
	// ActionActivate asks to register the built trigger.
	ActionActivate
)

// String returns action label used in logs and metrics.
// Params: none.
// Returns: lower-case action name.
func (a Action) String() string {
	switch a {
	case ActionActivate:
		return "activate"
	case ActionSkip:
		return "skip"
	case ActionDeactivate:
		return "deactivate"
	default:
		return "unknown"
	}
}

// Decision is one builder result.
// Params: action, trigger id, and definition (set only for ActionActivate).
// Returns: deterministic evaluation output.
type Decision struct {
	Action     Action
	TriggerID  string
	Definition domain.TriggerDefinition
	// Reason explains skip/deactivate outcomes for logs.
	Reason string
}

// Build decides trigger action for one API snapshot.
// Params: API snapshot, static email transport settings, and current portal base URL.
// Returns: decision; never performs I/O.
func Build(api domain.APISnapshot, transport domain.TransportConfig, portalURL string) Decision {
	triggerID := TriggerID(api.ID)
	if !api.Started() {
		return Decision{Action: ActionDeactivate, TriggerID: triggerID, Reason: "api not started"}
	}
	if !api.HealthCheckEnabled() {
		return Decision{Action: ActionDeactivate, TriggerID: triggerID, Reason: "health-check disabled"}
	}
	if strings.TrimSpace(api.Owner.Email) == "" {
		return Decision{Action: ActionSkip, TriggerID: triggerID, Reason: "owner has no email"}
	}

	return Decision{
		Action:    ActionActivate,
		TriggerID: triggerID,
		Definition: domain.TriggerDefinition{
			ID:             triggerID,
			Name:           Name,
			ViewDetailsURL: DetailsURL(portalURL, api.ID),
			Condition:      Condition(api.ID),
			Notifications: []domain.Notification{{
				Type:          domain.NotificationTypeEmail,
				Destination:   api.Owner.Email,
				Configuration: transport.JSON(),
			}},
		},
	}
}

// TriggerID derives trigger id for API id.
func TriggerID(apiID string) string {
	return idPrefix + apiID
}

// Condition renders backend filter expression selecting HC events of one API.
func Condition(apiID string) string {
	return fmt.Sprintf(conditionFormat, apiID)
}

// DetailsURL joins portal base URL with API health-check page path.
// Params: portal base URL (one trailing slash stripped) and API id.
// Returns: details URL; empty base yields a path-only URL.
func DetailsURL(portalURL, apiID string) string {
	return strings.TrimSuffix(portalURL, "/") + fmt.Sprintf(detailsURLFormat, apiID)
}
