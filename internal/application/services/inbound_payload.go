package services

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/errors"
)

// The platform emits two wire shapes for the same logical event: a
// nested shape with an outer conversation envelope, and a flat shape
// with the envelope fields at the top level. Both are normalized into
// models.InboundEvent here, at the ingestion boundary.

type labelPayload struct {
	Title string `json:"title"`
}

type agentPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type senderPayload struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

type conversationPayload struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	CreatedAt *flexTime `json:"created_at"`
	UpdatedAt *flexTime `json:"updated_at"`
	Meta      struct {
		Sender   senderPayload `json:"sender"`
		Channel  string        `json:"channel"`
		Assignee *agentPayload `json:"assignee"`
	} `json:"meta"`
	Assignee         *agentPayload           `json:"assignee"`
	Labels           []string                `json:"labels"`
	Messages         []models.InboundMessage `json:"messages"`
	CustomAttributes map[string]interface{}  `json:"custom_attributes"`
}

// flexTime accepts both unix-second numbers and RFC3339 strings, since
// the platform is not consistent across event types.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		t.Time = time.Unix(int64(secs), 0).UTC()
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// ParseInboundEvent detects the wire shape of a raw webhook body and
// normalizes it. Unrecognized shapes yield a MalformedPayloadError,
// which the caller rejects with a 4xx so the sender does not retry
// blindly.
func ParseInboundEvent(raw []byte) (*models.InboundEvent, error) {
	var envelope struct {
		Event        string          `json:"event"`
		Conversation json.RawMessage `json:"conversation"`
		Label        *labelPayload   `json:"label"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errors.NewMalformedPayloadError("body is not valid JSON")
	}
	if envelope.Event == "" {
		return nil, errors.NewMalformedPayloadError("missing event type")
	}

	var conv conversationPayload
	if len(envelope.Conversation) > 0 && string(envelope.Conversation) != "null" {
		// Nested shape: envelope fields live inside "conversation".
		if err := json.Unmarshal(envelope.Conversation, &conv); err != nil {
			return nil, errors.NewMalformedPayloadError("invalid conversation envelope")
		}
	} else {
		// Flat shape: envelope fields at the top level.
		if err := json.Unmarshal(raw, &conv); err != nil {
			return nil, errors.NewMalformedPayloadError("invalid flat payload")
		}
	}
	if conv.ID == 0 {
		return nil, errors.NewMalformedPayloadError("missing conversation id")
	}

	event := &models.InboundEvent{
		Event:          envelope.Event,
		ConversationID: conv.ID,
		Status:         conv.Status,
		SenderName:     conv.Meta.Sender.Name,
		SenderPhone:    conv.Meta.Sender.PhoneNumber,
		Channel:        conv.Meta.Channel,
		Labels:         conv.Labels,
		Messages:       conv.Messages,
	}
	if len(conv.CustomAttributes) > 0 {
		event.CustomAttributes = make(map[string]string, len(conv.CustomAttributes))
		for k, v := range conv.CustomAttributes {
			// The platform serializes attribute values as strings or
			// numbers; keep only scalar values, stringified.
			switch val := v.(type) {
			case string:
				event.CustomAttributes[k] = val
			case float64:
				event.CustomAttributes[k] = strconv.FormatFloat(val, 'f', -1, 64)
			case bool:
				event.CustomAttributes[k] = strconv.FormatBool(val)
			}
		}
	}
	if conv.CreatedAt != nil {
		t := conv.CreatedAt.Time
		event.CreatedAt = &t
	}
	if conv.UpdatedAt != nil {
		t := conv.UpdatedAt.Time
		event.UpdatedAt = &t
	}

	assignee := conv.Assignee
	if assignee == nil {
		assignee = conv.Meta.Assignee
	}
	if assignee != nil {
		id := assignee.ID
		event.AgentID = &id
	}

	if envelope.Label != nil {
		event.Label = envelope.Label.Title
	}

	return event, nil
}
