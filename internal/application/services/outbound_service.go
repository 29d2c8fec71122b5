package services

import (
	"context"
	"log"
	"time"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// OutboundService mirrors CRM-side card changes back to the messaging
// platform as conversation custom attributes. It runs off the event
// bus: pushes are best-effort, bounded by a timeout, and their failures
// land in the sync log as warnings rather than surfacing to the write
// that triggered them.
type OutboundService struct {
	client  ports.PlatformClient
	funnels ports.FunnelStore
	syncLog *SyncLogService
}

// NewOutboundService creates a new OutboundService
func NewOutboundService(client ports.PlatformClient, funnels ports.FunnelStore, syncLog *SyncLogService) *OutboundService {
	return &OutboundService{client: client, funnels: funnels, syncLog: syncLog}
}

// Register subscribes the dispatcher to card events on the bus
func (s *OutboundService) Register(bus *EventBus) {
	bus.Subscribe(events.CardCreated, s.handleCardEvent(string(events.CardCreated)))
	bus.Subscribe(events.CardStageChanged, s.handleCardEvent(string(events.CardStageChanged)))
	bus.Subscribe(events.CardUpdated, s.handleCardEvent(string(events.CardUpdated)))
}

func (s *OutboundService) handleCardEvent(eventType string) ports.EventHandler {
	return func(ctx context.Context, payload interface{}) error {
		evt, ok := payload.(*CardEventPayload)
		if !ok || evt.Card == nil {
			log.Printf("⚠️ Outbound dispatcher received unexpected payload for %s", eventType)
			return nil
		}
		// Cards created inside the CRM with no platform conversation have
		// nothing to push to.
		if evt.Card.ExternalConversationID == nil {
			return nil
		}
		s.Push(ctx, eventType, evt)
		return nil
	}
}

// Push sends the card's current placement to the platform. All errors
// are absorbed into the sync log.
func (s *OutboundService) Push(ctx context.Context, eventType string, evt *CardEventPayload) {
	started := time.Now()
	conversationID := *evt.Card.ExternalConversationID

	ctx, cancel := context.WithTimeout(ctx, constants.OutboundTimeout)
	defer cancel()

	attrs, err := s.buildAttributes(ctx, evt)
	if err == nil {
		err = s.client.UpdateConversationAttributes(ctx, conversationID, attrs)
	}
	if err == nil && changedState(evt) {
		// Terminal states are mirrored as a conversation label so agents
		// see the outcome without opening the CRM.
		switch evt.Card.State {
		case constants.CardStateWon, constants.CardStateLost:
			err = s.client.AddConversationLabel(ctx, conversationID, evt.Card.State)
		}
	}
	if err != nil {
		err = errors.NewDownstreamSyncError("platform", err)
		log.Printf("⚠️ Outbound push failed for conversation %d (%s): %v", conversationID, eventType, err)
	}
	s.syncLog.RecordOutbound(ctx, eventType, &conversationID, started, err)
}

func (s *OutboundService) buildAttributes(ctx context.Context, evt *CardEventPayload) (map[string]string, error) {
	attrs := map[string]string{}
	stage, err := s.funnels.GetStage(ctx, evt.Card.StageID)
	if err != nil {
		return nil, err
	}
	if stage != nil {
		attrs["funil_etapa"] = stage.Name
	}
	if evt.Card.ReturnDate != nil {
		attrs["data_retorno"] = evt.Card.ReturnDate.Format("2006-01-02")
	}
	return attrs, nil
}

func changedState(evt *CardEventPayload) bool {
	for _, f := range evt.ChangedFields {
		if f == "state" {
			return true
		}
	}
	return false
}
