package constants

// Card lifecycle states. A single enum replaces the status string plus
// archived/paused booleans so invalid combinations are unrepresentable.
const (
	CardStateActive   = "active"
	CardStateWon      = "won"
	CardStateLost     = "lost"
	CardStatePaused   = "paused"
	CardStateArchived = "archived"
)

// Activity types.
const (
	ActivityTypeCreation    = "CREATION"
	ActivityTypeStageChange = "STAGE_CHANGE"
	ActivityTypeFollowUp    = "FOLLOW_UP"
	ActivityTypeNote        = "NOTE"
)

// Activity statuses.
const (
	ActivityStatusPending   = "pending"
	ActivityStatusCompleted = "completed"
	ActivityStatusPostponed = "postponed"
	ActivityStatusCanceled  = "canceled"
)

// Mapping rule source types.
const (
	MappingSourceLabel     = "label"
	MappingSourceAttribute = "attribute"
)

// Sync log directions.
const (
	SyncDirectionInbound  = "platform_to_crm"
	SyncDirectionOutbound = "crm_to_platform"
)

// Sync log statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusWarning = "warning"
	SyncStatusError   = "error"
)

// Inbound platform event types that the processor acts on. Everything
// else is acknowledged with a no-op success to avoid retry storms.
const (
	EventConversationCreated = "conversation_created"
	EventConversationUpdated = "conversation_updated"
	EventLabelAdded          = "label_added"
	EventLabelRemoved        = "label_removed"
)

// IsProcessableEvent reports whether the inbound event type is one the
// sync engine processes.
func IsProcessableEvent(eventType string) bool {
	switch eventType {
	case EventConversationCreated, EventConversationUpdated, EventLabelAdded, EventLabelRemoved:
		return true
	}
	return false
}
