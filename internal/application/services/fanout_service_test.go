package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelsync/backend/internal/domain/models"
)

type capturedDelivery struct {
	payload map[string]interface{}
	headers http.Header
}

func newCaptureServer(t *testing.T) (*httptest.Server, chan capturedDelivery) {
	t.Helper()
	received := make(chan capturedDelivery, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- capturedDelivery{payload: payload, headers: r.Header.Clone()}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func newFanoutFixture(webhooks []models.AutomationWebhook) (*FanoutService, *fakeFunnelStore, *fakeSyncLogStore) {
	funnels := newFakeFunnelStore()
	funnels.addFunnel("f1", "Comercial", "Novo", "Negociacao")
	logs := &fakeSyncLogStore{}
	svc := NewFanoutService(&fakeWebhookStore{webhooks: webhooks}, funnels, NewSyncLogService(logs))
	return svc, funnels, logs
}

func stageChangeEvent(oldStage, newStage string) *CardEventPayload {
	conv := int64(42)
	return &CardEventPayload{
		Card: &models.Card{
			ID: "card-1", Title: "Maria Silva", FunnelID: "f1", StageID: newStage,
			ExternalConversationID: &conv, ContactPhone: "+5511999990000",
		},
		OldStageID: oldStage,
		NewStageID: newStage,
	}
}

func waitDelivery(t *testing.T, received chan capturedDelivery) capturedDelivery {
	t.Helper()
	select {
	case d := <-received:
		return d
	case <-time.After(3 * time.Second):
		t.Fatal("expected a webhook delivery")
		return capturedDelivery{}
	}
}

func assertNoDelivery(t *testing.T, received chan capturedDelivery) {
	t.Helper()
	select {
	case <-received:
		t.Fatal("unexpected webhook delivery")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFanout_DestinationTrigger(t *testing.T) {
	srv, received := newCaptureServer(t)
	dest := "f1-sNegociacao"
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "crm-sync", IsActive: true, TriggerStageDestination: &dest, ExternalURL: srv.URL},
	})

	svc.Fanout(context.Background(), stageChangeEvent("f1-sNovo", "f1-sNegociacao"))

	d := waitDelivery(t, received)
	assert.Equal(t, "card_moved", d.payload["event"])
	assert.Equal(t, "card-1", d.payload["card_id"])
	assert.Equal(t, "Maria Silva", d.payload["titulo"])
	assert.Equal(t, "f1-sNovo", d.payload["etapa_anterior_id"])
	assert.Equal(t, "f1-sNegociacao", d.payload["etapa_nova_id"])
	assert.Equal(t, "Comercial", d.payload["funil_nome"])
	assert.Equal(t, "Negociacao", d.payload["etapa_nome"])
	assert.Equal(t, float64(42), d.payload["chatwoot_conversa_id"])
	assert.Equal(t, "+5511999990000", d.payload["telefone_lead"])
	assert.NotEmpty(t, d.payload["timestamp"])
}

func TestFanout_OriginAndDestinationBothMustMatch(t *testing.T) {
	srv, received := newCaptureServer(t)
	origin := "f1-sNovo"
	dest := "f1-sNegociacao"
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "and-rule", IsActive: true, TriggerStageOrigin: &origin,
			TriggerStageDestination: &dest, ExternalURL: srv.URL},
	})

	// Destination matches but origin does not: no delivery.
	svc.Fanout(context.Background(), stageChangeEvent("other", "f1-sNegociacao"))
	assertNoDelivery(t, received)

	// Both match: one delivery.
	svc.Fanout(context.Background(), stageChangeEvent("f1-sNovo", "f1-sNegociacao"))
	waitDelivery(t, received)
}

func TestFanout_OriginOnlyTrigger(t *testing.T) {
	srv, received := newCaptureServer(t)
	origin := "f1-sNovo"
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "left-novo", IsActive: true, TriggerStageOrigin: &origin, ExternalURL: srv.URL},
	})

	svc.Fanout(context.Background(), stageChangeEvent("f1-sNovo", "anywhere"))
	waitDelivery(t, received)

	svc.Fanout(context.Background(), stageChangeEvent("elsewhere", "anywhere"))
	assertNoDelivery(t, received)
}

func TestFanout_NoTriggersNeverFires(t *testing.T) {
	srv, received := newCaptureServer(t)
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "no-trigger", IsActive: true, ExternalURL: srv.URL},
	})

	svc.Fanout(context.Background(), stageChangeEvent("a", "b"))
	assertNoDelivery(t, received)
}

func TestFanout_InactiveSkipped(t *testing.T) {
	srv, received := newCaptureServer(t)
	dest := "f1-sNegociacao"
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "disabled", IsActive: false, TriggerStageDestination: &dest, ExternalURL: srv.URL},
	})

	svc.Fanout(context.Background(), stageChangeEvent("x", "f1-sNegociacao"))
	assertNoDelivery(t, received)
}

func TestFanout_CustomHeaders(t *testing.T) {
	srv, received := newCaptureServer(t)
	dest := "f1-sNegociacao"
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "with-headers", IsActive: true, TriggerStageDestination: &dest,
			ExternalURL:   srv.URL,
			CustomHeaders: map[string]string{"X-Token": "secret-token"}},
	})

	svc.Fanout(context.Background(), stageChangeEvent("x", "f1-sNegociacao"))

	d := waitDelivery(t, received)
	assert.Equal(t, "secret-token", d.headers.Get("X-Token"))
	assert.Equal(t, "application/json", d.headers.Get("Content-Type"))
}

func TestFanout_ConditionExpr(t *testing.T) {
	srv, received := newCaptureServer(t)
	dest := "f1-sNegociacao"
	pass := `titulo == "Maria Silva"`
	block := `telefone_lead == ""`
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "guarded-pass", IsActive: true, TriggerStageDestination: &dest,
			ExternalURL: srv.URL, ConditionExpr: &pass},
		{ID: "w2", Name: "guarded-block", IsActive: true, TriggerStageDestination: &dest,
			ExternalURL: srv.URL, ConditionExpr: &block},
	})

	svc.Fanout(context.Background(), stageChangeEvent("x", "f1-sNegociacao"))

	// Only the passing guard delivers.
	waitDelivery(t, received)
	assertNoDelivery(t, received)
}

func TestFanout_InvalidConditionSkipsRule(t *testing.T) {
	srv, received := newCaptureServer(t)
	dest := "f1-sNegociacao"
	bad := `this is not an expression (`
	svc, _, _ := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "broken-guard", IsActive: true, TriggerStageDestination: &dest,
			ExternalURL: srv.URL, ConditionExpr: &bad},
	})

	svc.Fanout(context.Background(), stageChangeEvent("x", "f1-sNegociacao"))
	assertNoDelivery(t, received)
}

func TestFanout_FailedDeliveryRecordedAsWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	dest := "f1-sNegociacao"
	svc, _, logs := newFanoutFixture([]models.AutomationWebhook{
		{ID: "w1", Name: "failing", IsActive: true, TriggerStageDestination: &dest, ExternalURL: srv.URL},
	})

	svc.Fanout(context.Background(), stageChangeEvent("x", "f1-sNegociacao"))

	require.Eventually(t, func() bool {
		return len(logs.byEventType("automation_webhook")) == 1
	}, 3*time.Second, 50*time.Millisecond)

	entry := logs.byEventType("automation_webhook")[0]
	assert.Equal(t, "warning", entry.Status)
	assert.Contains(t, entry.ErrorMessage, "downstream sync to failing failed")
}
