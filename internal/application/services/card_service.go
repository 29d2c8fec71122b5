package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// updatableCardFields whitelists the columns a partial card update may
// touch.
var updatableCardFields = map[string]bool{
	"title":            true,
	"state":            true,
	"assigned_user_id": true,
	"contact_name":     true,
	"contact_phone":    true,
	"return_date":      true,
}

// CardService handles CRM-initiated card writes. Each successful write
// publishes an event on the bus; the outbound dispatcher and automation
// fan-out subscribe to those events, so downstream sync never blocks or
// fails the originating write.
type CardService struct {
	cards      ports.CardStore
	funnels    ports.FunnelStore
	activities ports.ActivityStore
	bus        ports.EventPublisher
}

// NewCardService creates a new CardService
func NewCardService(cards ports.CardStore, funnels ports.FunnelStore,
	activities ports.ActivityStore, bus ports.EventPublisher) *CardService {
	return &CardService{cards: cards, funnels: funnels, activities: activities, bus: bus}
}

// Create inserts a manually created card after validating placement
func (s *CardService) Create(ctx context.Context, card *models.Card) error {
	if card.Title == "" {
		return errors.NewValidationError("title", "title is required")
	}
	stage, err := s.funnels.GetStage(ctx, card.StageID)
	if err != nil {
		return err
	}
	if stage == nil {
		return errors.NewNotFoundError("stage", card.StageID)
	}
	card.FunnelID = stage.FunnelID

	if err := s.cards.CreateCard(ctx, card); err != nil {
		return err
	}

	s.bus.PublishAsync(events.CardCreated, &CardEventPayload{Card: card, NewStageID: card.StageID})
	return nil
}

// CreateFromConversation creates a card linked to a platform
// conversation, reusing an existing card for the same conversation
// instead of duplicating it. With no explicit stage the card lands on
// the default first placement.
func (s *CardService) CreateFromConversation(ctx context.Context, conversationID int64, title, contactName, contactPhone, stageID string) (*models.Card, bool, error) {
	if conversationID <= 0 {
		return nil, false, errors.NewValidationError("conversation_id", "conversation id is required")
	}
	if existing, err := s.cards.FindByConversationID(ctx, conversationID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	var funnelID string
	if stageID != "" {
		stage, err := s.funnels.GetStage(ctx, stageID)
		if err != nil {
			return nil, false, err
		}
		if stage == nil {
			return nil, false, errors.NewNotFoundError("stage", stageID)
		}
		funnelID = stage.FunnelID
	} else {
		funnel, stage, err := s.funnels.FirstPlacement(ctx)
		if err != nil {
			return nil, false, err
		}
		if funnel == nil || stage == nil {
			return nil, false, errors.NewConfigurationError("no funnel is configured to receive new cards")
		}
		funnelID = funnel.ID
		stageID = stage.ID
	}

	if title == "" {
		title = fmt.Sprintf("Conversation %d", conversationID)
	}
	card := &models.Card{
		Title:                  title,
		FunnelID:               funnelID,
		StageID:                stageID,
		ExternalConversationID: &conversationID,
		State:                  constants.CardStateActive,
		ContactName:            contactName,
		ContactPhone:           contactPhone,
	}
	if err := s.cards.CreateCard(ctx, card); err != nil {
		return nil, false, err
	}

	s.bus.PublishAsync(events.CardCreated, &CardEventPayload{Card: card, NewStageID: card.StageID})
	return card, true, nil
}

// Get fetches a card by id
func (s *CardService) Get(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.cards.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", id)
	}
	return card, nil
}

// GetByConversation fetches a card by its external conversation id
func (s *CardService) GetByConversation(ctx context.Context, conversationID int64) (*models.Card, error) {
	card, err := s.cards.FindByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", fmt.Sprintf("conversation %d", conversationID))
	}
	return card, nil
}

// ListByFunnel returns a funnel's cards
func (s *CardService) ListByFunnel(ctx context.Context, funnelID string) ([]models.Card, error) {
	return s.cards.ListByFunnel(ctx, funnelID)
}

// Move transitions a card to another stage. The stage-change activity
// is auxiliary; the stage-changed event drives outbound sync and the
// automation fan-out asynchronously.
func (s *CardService) Move(ctx context.Context, cardID, stageID string) (*models.Card, error) {
	card, err := s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	stage, err := s.funnels.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, errors.NewNotFoundError("stage", stageID)
	}
	if card.StageID == stage.ID {
		return card, nil
	}

	oldStageID := card.StageID
	if err := s.cards.MoveStage(ctx, card.ID, stage.FunnelID, stage.ID); err != nil {
		return nil, err
	}
	card.FunnelID = stage.FunnelID
	card.StageID = stage.ID

	s.recordStageChange(ctx, card, oldStageID, stage)

	s.bus.PublishAsync(events.CardStageChanged, &CardEventPayload{
		Card:       card,
		OldStageID: oldStageID,
		NewStageID: stage.ID,
	})
	return card, nil
}

// Update applies a partial field update (autosave edits, return date,
// state changes) and publishes a card-updated event naming the changed
// fields.
func (s *CardService) Update(ctx context.Context, cardID string, fields map[string]interface{}) (*models.Card, error) {
	card, err := s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(fields))
	filtered := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if !updatableCardFields[k] {
			return nil, errors.NewValidationError(k, "field is not updatable")
		}
		filtered[k] = v
		changed = append(changed, k)
	}
	if len(filtered) == 0 {
		return card, nil
	}

	if state, ok := filtered["state"].(string); ok {
		if !validCardState(state) {
			return nil, errors.NewValidationError("state", "unknown card state "+state)
		}
	}
	if rd, ok := filtered["return_date"].(string); ok && rd != "" {
		parsed, err := time.Parse("2006-01-02", rd)
		if err != nil {
			return nil, errors.NewValidationError("return_date", "expected YYYY-MM-DD")
		}
		filtered["return_date"] = parsed
	}

	if err := s.cards.UpdateFields(ctx, card.ID, filtered); err != nil {
		return nil, err
	}

	card, err = s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}

	s.bus.PublishAsync(events.CardUpdated, &CardEventPayload{Card: card, ChangedFields: changed})
	return card, nil
}

func (s *CardService) recordStageChange(ctx context.Context, card *models.Card, oldStageID string, newStage *models.Stage) {
	activity := &models.Activity{
		CardID:      &card.ID,
		Type:        constants.ActivityTypeStageChange,
		Description: fmt.Sprintf("Moved to stage %q", newStage.Name),
		Status:      constants.ActivityStatusCompleted,
	}
	now := time.Now().UTC()
	activity.CompletedDate = &now

	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		log.Printf("⚠️ Failed to record stage change for card %s (%s -> %s): %v",
			card.ID, oldStageID, newStage.ID, err)
	}
}

func validCardState(state string) bool {
	switch state {
	case constants.CardStateActive, constants.CardStateWon, constants.CardStateLost,
		constants.CardStatePaused, constants.CardStateArchived:
		return true
	}
	return false
}
