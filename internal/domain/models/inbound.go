package models

import "time"

// InboundEvent is the single normalized representation of a platform
// webhook delivery. The platform emits two wire shapes for the same
// logical event (nested and flat); both are parsed into this struct at
// the ingestion boundary so downstream logic never branches on shape.
type InboundEvent struct {
	Event          string
	ConversationID int64
	Status         string
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
	SenderName     string
	SenderPhone    string
	Channel        string
	AgentID        *int64
	Labels         []string
	// Label is set for label_added / label_removed events.
	Label    string
	Messages []InboundMessage
	// CustomAttributes carries the conversation's custom attribute map,
	// the structured counterpart to labels for mapping resolution.
	CustomAttributes map[string]string
}

// InboundMessage is a message carried inside an inbound event.
type InboundMessage struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Private bool   `json:"private"`
}

// HasLabel reports whether the conversation carries the given label,
// compared case-insensitively by the caller's convention.
func (e *InboundEvent) HasLabel(match func(string) bool) bool {
	for _, l := range e.Labels {
		if match(l) {
			return true
		}
	}
	return false
}
