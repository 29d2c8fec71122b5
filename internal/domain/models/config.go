package models

import "time"

// MappingRule translates a platform label or attribute into a target
// funnel/stage. Lower priority means higher precedence. A nil
// SourceValue is a wildcard matching any value for the key. At least
// one of TargetFunnelName/TargetStageName must be set.
type MappingRule struct {
	ID               string  `json:"id"`
	SourceType       string  `json:"source_type"`
	SourceKey        string  `json:"source_key"`
	SourceValue      *string `json:"source_value,omitempty"`
	TargetFunnelName *string `json:"target_funnel_name,omitempty"`
	TargetStageName  *string `json:"target_stage_name,omitempty"`
	Priority         int     `json:"priority"`
	IsActive         bool    `json:"is_active"`
}

// Valid reports whether the rule has a usable target.
func (r MappingRule) Valid() bool {
	return r.TargetFunnelName != nil || r.TargetStageName != nil
}

// AutomationWebhook is a third-party webhook subscription fired on
// stage transitions. At least one of TriggerStageOrigin and
// TriggerStageDestination must be set for the rule to ever fire. When
// both are set, both must match (AND). ConditionExpr optionally guards
// the dispatch with an expression evaluated against the payload.
type AutomationWebhook struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	IsActive                bool              `json:"is_active"`
	TriggerStageOrigin      *string           `json:"trigger_stage_origin,omitempty"`
	TriggerStageDestination *string           `json:"trigger_stage_destination,omitempty"`
	ExternalURL             string            `json:"external_url"`
	CustomHeaders           map[string]string `json:"custom_headers,omitempty"`
	ConditionExpr           *string           `json:"condition_expr,omitempty"`
}

// Matches applies the trigger semantics to a stage transition.
func (w AutomationWebhook) Matches(oldStageID, newStageID string) bool {
	origin := w.TriggerStageOrigin
	dest := w.TriggerStageDestination
	switch {
	case origin != nil && dest != nil:
		return *origin == oldStageID && *dest == newStageID
	case origin != nil:
		return *origin == oldStageID
	case dest != nil:
		return *dest == newStageID
	}
	return false
}

// SyncLogEntry is one append-only observability record per sync
// attempt, in either direction.
type SyncLogEntry struct {
	ID                     string    `json:"id"`
	Direction              string    `json:"direction"`
	Status                 string    `json:"status"`
	EventType              string    `json:"event_type"`
	ExternalConversationID *int64    `json:"external_conversation_id,omitempty"`
	LatencyMs              int64     `json:"latency_ms"`
	ErrorMessage           string    `json:"error_message,omitempty"`
	CreatedDate            time.Time `json:"created_date"`
}

// User is the minimal local user record used for assignee resolution.
// Authentication and sessions live outside this subsystem.
type User struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	ExternalAgentID *int64  `json:"external_agent_id,omitempty"`
}
