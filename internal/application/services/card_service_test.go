package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelsync/backend/internal/domain/events"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
)

type fakePlatformClient struct {
	mu     sync.Mutex
	err    error
	pushes []map[string]string
	labels []string
}

func (f *fakePlatformClient) UpdateConversationAttributes(ctx context.Context, conversationID int64, attrs map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pushes = append(f.pushes, attrs)
	return nil
}

func (f *fakePlatformClient) AddConversationLabel(ctx context.Context, conversationID int64, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.labels = append(f.labels, label)
	return nil
}

func (f *fakePlatformClient) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

type cardFixture struct {
	svc        *CardService
	cards      *fakeCardStore
	funnels    *fakeFunnelStore
	activities *fakeActivityStore
	bus        *EventBus
	logs       *fakeSyncLogStore
	client     *fakePlatformClient
}

func newCardFixture() *cardFixture {
	funnels := newFakeFunnelStore()
	funnels.addFunnel("f1", "Comercial", "Novo", "Negociacao", "Fechado")
	cards := newFakeCardStore()
	activities := newFakeActivityStore()
	bus := NewEventBus()
	logs := &fakeSyncLogStore{}
	client := &fakePlatformClient{}

	outbound := NewOutboundService(client, funnels, NewSyncLogService(logs))
	outbound.Register(bus)

	return &cardFixture{
		svc:        NewCardService(cards, funnels, activities, bus),
		cards:      cards,
		funnels:    funnels,
		activities: activities,
		bus:        bus,
		logs:       logs,
		client:     client,
	}
}

func (fx *cardFixture) seedLinkedCard(t *testing.T) *models.Card {
	t.Helper()
	conv := int64(42)
	card := &models.Card{
		Title: "Maria Silva", FunnelID: "f1", StageID: "f1-sNovo",
		ExternalConversationID: &conv, ContactPhone: "+5511999990000",
	}
	require.NoError(t, fx.cards.CreateCard(context.Background(), card))
	return card
}

func TestCardMove_RecordsStageChangeActivity(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	moved, err := fx.svc.Move(context.Background(), card.ID, "f1-sNegociacao")
	require.NoError(t, err)
	assert.Equal(t, "f1-sNegociacao", moved.StageID)

	activities, err := fx.activities.ListByCard(context.Background(), card.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, constants.ActivityTypeStageChange, activities[0].Type)
	assert.Equal(t, constants.ActivityStatusCompleted, activities[0].Status)
}

func TestCardMove_SameStageIsNoOp(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	moved, err := fx.svc.Move(context.Background(), card.ID, card.StageID)
	require.NoError(t, err)
	assert.Equal(t, card.StageID, moved.StageID)

	activities, err := fx.activities.ListByCard(context.Background(), card.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}

func TestCardMove_UnknownStage(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	_, err := fx.svc.Move(context.Background(), card.ID, "missing-stage")
	assert.Error(t, err)
}

func TestCardMove_PublishesStageChangedEvent(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	got := make(chan *CardEventPayload, 1)
	fx.bus.Subscribe(events.CardStageChanged, func(ctx context.Context, payload interface{}) error {
		got <- payload.(*CardEventPayload)
		return nil
	})

	_, err := fx.svc.Move(context.Background(), card.ID, "f1-sNegociacao")
	require.NoError(t, err)

	select {
	case evt := <-got:
		assert.Equal(t, "f1-sNovo", evt.OldStageID)
		assert.Equal(t, "f1-sNegociacao", evt.NewStageID)
		assert.Equal(t, card.ID, evt.Card.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a stage-changed event")
	}
}

func TestCardMove_OutboundPushHappens(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	_, err := fx.svc.Move(context.Background(), card.ID, "f1-sNegociacao")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fx.client.pushCount() == 1 }, 3*time.Second, 50*time.Millisecond)

	fx.client.mu.Lock()
	defer fx.client.mu.Unlock()
	assert.Equal(t, "Negociacao", fx.client.pushes[0]["funil_etapa"])
}

func TestCardMove_OutboundFailureNeverBlocksWrite(t *testing.T) {
	fx := newCardFixture()
	fx.client.err = errors.New("platform unreachable")
	card := fx.seedLinkedCard(t)

	moved, err := fx.svc.Move(context.Background(), card.ID, "f1-sNegociacao")
	require.NoError(t, err, "CRM write must succeed when the platform is down")
	assert.Equal(t, "f1-sNegociacao", moved.StageID)

	// The failure surfaces as a sync log warning instead.
	require.Eventually(t, func() bool {
		entries := fx.logs.byEventType(string(events.CardStageChanged))
		return len(entries) == 1 && entries[0].Status == constants.SyncStatusWarning
	}, 3*time.Second, 50*time.Millisecond)
	entry := fx.logs.byEventType(string(events.CardStageChanged))[0]
	assert.Contains(t, entry.ErrorMessage, "downstream sync to platform failed")
}

func TestCardUpdate_FieldWhitelist(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	_, err := fx.svc.Update(context.Background(), card.ID, map[string]interface{}{"funnel_id": "f9"})
	assert.Error(t, err, "placement fields only change through Move")

	updated, err := fx.svc.Update(context.Background(), card.ID, map[string]interface{}{
		"title":       "Maria S.",
		"return_date": "2026-09-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "Maria S.", updated.Title)
	require.NotNil(t, updated.ReturnDate)
	assert.Equal(t, 10, updated.ReturnDate.Day())
}

func TestCardUpdate_StateValidation(t *testing.T) {
	fx := newCardFixture()
	card := fx.seedLinkedCard(t)

	_, err := fx.svc.Update(context.Background(), card.ID, map[string]interface{}{"state": "bogus"})
	assert.Error(t, err)

	updated, err := fx.svc.Update(context.Background(), card.ID, map[string]interface{}{"state": constants.CardStatePaused})
	require.NoError(t, err)
	assert.Equal(t, constants.CardStatePaused, updated.State)
}

func TestCardCreateFromConversation(t *testing.T) {
	fx := newCardFixture()

	card, created, err := fx.svc.CreateFromConversation(context.Background(), 99, "", "Ana", "+551188887777", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Conversation 99", card.Title, "missing title falls back to conversation id")
	assert.Equal(t, "f1-sNovo", card.StageID, "default first placement")

	// Second call for the same conversation reuses the card.
	again, created, err := fx.svc.CreateFromConversation(context.Background(), 99, "x", "", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, card.ID, again.ID)
}
