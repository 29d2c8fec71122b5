package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// InboundResult is the outcome of one inbound webhook delivery.
type InboundResult struct {
	CardID  string
	Created bool
	// Ignored marks recognized-but-filtered deliveries. They are
	// acknowledged with success so the sender does not retry.
	Ignored bool
	Message string
}

// InboundService is the webhook ingestion pipeline: it validates,
// classifies and normalizes inbound platform events, resolves them
// against the mapping rules, and performs the idempotent card upsert.
type InboundService struct {
	cfg        SyncConfig
	cards      ports.CardStore
	funnels    ports.FunnelStore
	users      ports.UserStore
	activities ports.ActivityStore
	mapping    *MappingService
	syncLog    *SyncLogService
	bus        ports.EventPublisher
}

// NewInboundService creates a new InboundService
func NewInboundService(cfg SyncConfig, cards ports.CardStore, funnels ports.FunnelStore,
	users ports.UserStore, activities ports.ActivityStore,
	mapping *MappingService, syncLog *SyncLogService, bus ports.EventPublisher) *InboundService {
	return &InboundService{
		cfg:        cfg,
		cards:      cards,
		funnels:    funnels,
		users:      users,
		activities: activities,
		mapping:    mapping,
		syncLog:    syncLog,
		bus:        bus,
	}
}

// Handle processes one raw webhook delivery.
//
// Only errors that prevent establishing a consistent card record are
// returned; everything downstream of a successful upsert is best-effort
// and observable through the sync log.
func (s *InboundService) Handle(ctx context.Context, raw []byte) (*InboundResult, error) {
	started := time.Now()

	event, err := ParseInboundEvent(raw)
	if err != nil {
		s.syncLog.RecordInbound(ctx, "malformed", nil, started, err)
		return nil, err
	}

	// Unhandled event types short-circuit with a no-op success to
	// prevent webhook retry storms from the sender.
	if !constants.IsProcessableEvent(event.Event) {
		return &InboundResult{Ignored: true, Message: "event type not handled"}, nil
	}

	// The conversation must carry the integration marker, or the event
	// itself must be the arrival of that marker. The platform hosts
	// conversations unrelated to this CRM.
	if !s.carriesIntegrationMarker(event) {
		return &InboundResult{Ignored: true, Message: "conversation not marked for sync"}, nil
	}

	assignedUserID := s.resolveAssignee(ctx, event)

	resolution, err := s.mapping.ResolveBest(ctx, s.mappingCandidates(event))
	if err != nil {
		err = errors.NewInternalError("mapping resolution failed", err)
		s.syncLog.RecordInbound(ctx, event.Event, &event.ConversationID, started, err)
		return nil, err
	}

	var funnelID, stageID string
	updatePlacement := false
	if resolution != nil {
		funnelID = resolution.Funnel.ID
		stageID = resolution.Stage.ID
		updatePlacement = true
	} else {
		// Default placement: first stage of the first funnel. Absence of
		// any funnel/stage is an operator problem, not a retryable one.
		funnel, stage, err := s.funnels.FirstPlacement(ctx)
		if err != nil {
			err = errors.NewInternalError("default placement lookup failed", err)
			s.syncLog.RecordInbound(ctx, event.Event, &event.ConversationID, started, err)
			return nil, err
		}
		if funnel == nil || stage == nil {
			err := errors.NewConfigurationError("no funnel with stages exists for default placement")
			s.syncLog.RecordInbound(ctx, event.Event, &event.ConversationID, started, err)
			return nil, err
		}
		funnelID = funnel.ID
		stageID = stage.ID
	}

	title := event.SenderName
	if title == "" {
		title = fmt.Sprintf("Conversation %d", event.ConversationID)
	}

	card, inserted, err := s.cards.Upsert(ctx, ports.CardUpsert{
		Title:                  title,
		FunnelID:               funnelID,
		StageID:                stageID,
		ExternalConversationID: event.ConversationID,
		AssignedUserID:         assignedUserID,
		ContactName:            event.SenderName,
		ContactPhone:           event.SenderPhone,
		UpdatePlacement:        updatePlacement,
	})
	if err != nil {
		err = errors.NewInternalError("card upsert failed", err)
		s.syncLog.RecordInbound(ctx, event.Event, &event.ConversationID, started, err)
		return nil, err
	}

	// The card is the source of truth from here on. Activity creation is
	// an auxiliary write: failures are logged and swallowed, never rolled
	// back into the upsert.
	if inserted {
		s.recordCreationActivity(ctx, card, event)
		s.bus.PublishAsync(events.CardCreated, &CardEventPayload{Card: card, NewStageID: stageID})
	}

	s.syncLog.RecordInbound(ctx, event.Event, &event.ConversationID, started, nil)

	return &InboundResult{CardID: card.ID, Created: inserted}, nil
}

// carriesIntegrationMarker applies the tag gate
func (s *InboundService) carriesIntegrationMarker(event *models.InboundEvent) bool {
	marker := s.cfg.IntegrationLabel
	if event.HasLabel(func(l string) bool { return strings.EqualFold(l, marker) }) {
		return true
	}
	return event.Event == constants.EventLabelAdded && strings.EqualFold(event.Label, marker)
}

// resolveAssignee maps the platform agent to a local user. Absence of a
// mapping is expected and never fatal.
func (s *InboundService) resolveAssignee(ctx context.Context, event *models.InboundEvent) *string {
	if event.AgentID == nil {
		return nil
	}
	user, err := s.users.FindByExternalAgentID(ctx, *event.AgentID)
	if err != nil {
		log.Printf("⚠️ Assignee lookup failed for agent %d: %v", *event.AgentID, err)
		return nil
	}
	if user == nil {
		return nil
	}
	return &user.ID
}

// mappingCandidates extracts the attributes and labels to resolve,
// skipping the integration marker itself
func (s *InboundService) mappingCandidates(event *models.InboundEvent) []MappingCandidate {
	candidates := make([]MappingCandidate, 0, len(event.Labels)+len(event.CustomAttributes)+1)
	for k, v := range event.CustomAttributes {
		candidates = append(candidates, MappingCandidate{
			SourceType: constants.MappingSourceAttribute,
			Key:        k,
			Value:      v,
		})
	}
	if event.Label != "" && !strings.EqualFold(event.Label, s.cfg.IntegrationLabel) {
		candidates = append(candidates, MappingCandidate{
			SourceType: constants.MappingSourceLabel,
			Key:        event.Label,
			Value:      event.Label,
		})
	}
	for _, l := range event.Labels {
		if strings.EqualFold(l, s.cfg.IntegrationLabel) || strings.EqualFold(l, event.Label) {
			continue
		}
		candidates = append(candidates, MappingCandidate{
			SourceType: constants.MappingSourceLabel,
			Key:        l,
			Value:      l,
		})
	}
	return candidates
}

func (s *InboundService) recordCreationActivity(ctx context.Context, card *models.Card, event *models.InboundEvent) {
	activity := &models.Activity{
		CardID:      &card.ID,
		Type:        constants.ActivityTypeCreation,
		Description: fmt.Sprintf("Card created from platform conversation %d", event.ConversationID),
		Status:      constants.ActivityStatusCompleted,
	}
	now := time.Now().UTC()
	activity.CompletedDate = &now

	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		log.Printf("⚠️ Failed to record creation activity for card %s: %v", card.ID, err)
	}
}
