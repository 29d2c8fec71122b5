package events

// EventType defines the type of event in the system
type EventType string

const (
	// Card events
	CardCreated      EventType = "card.created"
	CardUpdated      EventType = "card.updated"
	CardStageChanged EventType = "card.stage_changed"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}
