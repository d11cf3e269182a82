package state

// Tracker records which APIs currently have an active trigger in the alert backend.
// Params: trigger-active flag operations keyed by API id.
// Returns: dedup state for activation/cancellation decisions.
//
// Implementations are called under per-id serialization by the coordinator;
// they must still be safe for concurrent use across different ids.
type Tracker interface {
	IsActive(apiID string) bool
	MarkActive(apiID string)
	MarkInactive(apiID string)
	ClearAll()
	Len() int
	ActiveIDs() []string
}
