package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/expr-lang/expr"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// FanoutService notifies third-party automation webhooks when a card
// changes stage. Deliveries are fire-and-forget: each subscription is
// matched against the transition, optionally guarded by its condition
// expression, and posted with a bounded number of in-flight requests.
// A failed delivery is logged and never retried.
type FanoutService struct {
	webhooks ports.WebhookStore
	funnels  ports.FunnelStore
	syncLog  *SyncLogService
	client   *http.Client
	// sem bounds concurrent deliveries across all transitions.
	sem chan struct{}
}

// NewFanoutService creates a new FanoutService
func NewFanoutService(webhooks ports.WebhookStore, funnels ports.FunnelStore, syncLog *SyncLogService) *FanoutService {
	return &FanoutService{
		webhooks: webhooks,
		funnels:  funnels,
		syncLog:  syncLog,
		client:   &http.Client{Timeout: constants.OutboundTimeout},
		sem:      make(chan struct{}, constants.FanoutMaxConcurrency),
	}
}

// Register subscribes the fan-out to stage-change events on the bus
func (s *FanoutService) Register(bus *EventBus) {
	bus.Subscribe(events.CardStageChanged, func(ctx context.Context, payload interface{}) error {
		evt, ok := payload.(*CardEventPayload)
		if !ok || evt.Card == nil {
			return nil
		}
		s.Fanout(ctx, evt)
		return nil
	})
}

// Fanout matches all active subscriptions against the transition and
// dispatches the matching ones.
func (s *FanoutService) Fanout(ctx context.Context, evt *CardEventPayload) {
	subs, err := s.webhooks.ListActiveWebhooks(ctx)
	if err != nil {
		log.Printf("⚠️ Fan-out could not load webhook subscriptions: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload := s.buildPayload(ctx, evt)

	for i := range subs {
		sub := subs[i]
		if !sub.Matches(evt.OldStageID, evt.NewStageID) {
			continue
		}
		if ok, err := evalCondition(sub.ConditionExpr, payload); err != nil {
			log.Printf("⚠️ Webhook %s condition error: %v", sub.Name, err)
			continue
		} else if !ok {
			continue
		}
		s.sem <- struct{}{}
		go func() {
			defer func() { <-s.sem }()
			s.deliver(&sub, payload)
		}()
	}
}

// buildPayload assembles the outbound body. Lookups are best-effort:
// a missing funnel or stage name leaves the field empty rather than
// suppressing the dispatch.
func (s *FanoutService) buildPayload(ctx context.Context, evt *CardEventPayload) map[string]interface{} {
	payload := map[string]interface{}{
		"event":             "card_moved",
		"card_id":           evt.Card.ID,
		"titulo":            evt.Card.Title,
		"etapa_anterior_id": evt.OldStageID,
		"etapa_nova_id":     evt.NewStageID,
		"funil_id":          evt.Card.FunnelID,
		"funil_nome":        "",
		"etapa_nome":        "",
		"telefone_lead":     evt.Card.ContactPhone,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	}
	if evt.Card.ExternalConversationID != nil {
		payload["chatwoot_conversa_id"] = *evt.Card.ExternalConversationID
	}
	if funnel, err := s.funnels.GetFunnel(ctx, evt.Card.FunnelID); err == nil && funnel != nil {
		payload["funil_nome"] = funnel.Name
	}
	if stage, err := s.funnels.GetStage(ctx, evt.NewStageID); err == nil && stage != nil {
		payload["etapa_nome"] = stage.Name
	}
	return payload
}

func (s *FanoutService) deliver(sub *models.AutomationWebhook, payload map[string]interface{}) {
	started := time.Now()
	err := s.post(sub, payload)
	if err != nil {
		err = errors.NewDownstreamSyncError(sub.Name, err)
		log.Printf("⚠️ Webhook delivery failed: %v", err)
	}
	s.syncLog.RecordOutbound(context.Background(), "automation_webhook", nil, started, err)
}

func (s *FanoutService) post(sub *models.AutomationWebhook, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, sub.ExternalURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range sub.CustomHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook %s returned status %d", sub.ExternalURL, resp.StatusCode)
	}
	return nil
}

// evalCondition runs the optional guard expression against the payload.
// A nil or empty expression always passes.
func evalCondition(src *string, payload map[string]interface{}) (bool, error) {
	if src == nil || *src == "" {
		return true, nil
	}
	program, err := expr.Compile(*src, expr.Env(payload), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition: %w", err)
	}
	out, err := expr.Run(program, payload)
	if err != nil {
		return false, fmt.Errorf("run condition: %w", err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return ok, nil
}
