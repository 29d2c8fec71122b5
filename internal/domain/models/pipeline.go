package models

import "time"

// Funnel is a named sales/process pipeline containing ordered stages.
type Funnel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Position    int       `json:"position"`
	CreatedDate time.Time `json:"created_date"`
	Stages      []Stage   `json:"stages,omitempty"`
}

// Stage is an ordered step within a funnel. Position is a dense integer
// used for display order.
type Stage struct {
	ID       string `json:"id"`
	FunnelID string `json:"funnel_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// Card is the CRM-side record representing an opportunity or
// conversation thread. ExternalConversationID is the idempotency key:
// a unique constraint on it guarantees repeated webhook deliveries for
// the same conversation never create two cards.
type Card struct {
	ID                     string     `json:"id"`
	Title                  string     `json:"title"`
	FunnelID               string     `json:"funnel_id"`
	StageID                string     `json:"stage_id"`
	ExternalConversationID *int64     `json:"external_conversation_id,omitempty"`
	State                  string     `json:"state"`
	AssignedUserID         *string    `json:"assigned_user_id,omitempty"`
	ContactName            string     `json:"contact_name,omitempty"`
	ContactPhone           string     `json:"contact_phone,omitempty"`
	ReturnDate             *time.Time `json:"return_date,omitempty"`
	CreatedDate            time.Time  `json:"created_date"`
	LastModifiedDate       time.Time  `json:"last_modified_date"`
}

// Activity is a logged event or scheduled task attached to (or
// independent of) a card.
type Activity struct {
	ID            string     `json:"id"`
	CardID        *string    `json:"card_id,omitempty"`
	Type          string     `json:"type"`
	Description   string     `json:"description"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Status        string     `json:"status"`
	IsPrivate     bool       `json:"is_private"`
	CreatedDate   time.Time  `json:"created_date"`
}
