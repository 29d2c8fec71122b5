package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/utils"
)

// In-memory store fakes shared across the service tests.

type fakeFunnelStore struct {
	mu      sync.Mutex
	funnels []models.Funnel
	stages  map[string][]models.Stage
	// cardCounts backs CountCardsInStage, keyed by stage id.
	cardCounts map[string]int
}

func newFakeFunnelStore() *fakeFunnelStore {
	return &fakeFunnelStore{
		stages:     make(map[string][]models.Stage),
		cardCounts: make(map[string]int),
	}
}

func (f *fakeFunnelStore) addFunnel(id, name string, stageNames ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funnels = append(f.funnels, models.Funnel{
		ID: id, Name: name, Position: len(f.funnels),
		CreatedDate: time.Now().UTC().Add(time.Duration(len(f.funnels)) * time.Second),
	})
	for i, sn := range stageNames {
		f.stages[id] = append(f.stages[id], models.Stage{
			ID: id + "-s" + sn, FunnelID: id, Name: sn, Position: i + 1,
		})
	}
}

func (f *fakeFunnelStore) ListFunnels(ctx context.Context) ([]models.Funnel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Funnel, len(f.funnels))
	copy(out, f.funnels)
	return out, nil
}

func (f *fakeFunnelStore) GetFunnel(ctx context.Context, id string) (*models.Funnel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.funnels {
		if f.funnels[i].ID == id {
			fn := f.funnels[i]
			return &fn, nil
		}
	}
	return nil, nil
}

func (f *fakeFunnelStore) FindFunnelByName(ctx context.Context, name string) (*models.Funnel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.funnels {
		if f.funnels[i].Name == name {
			fn := f.funnels[i]
			return &fn, nil
		}
	}
	return nil, nil
}

func (f *fakeFunnelStore) CreateFunnel(ctx context.Context, funnel *models.Funnel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if funnel.ID == "" {
		funnel.ID = utils.GenerateID()
	}
	funnel.CreatedDate = time.Now().UTC()
	f.funnels = append(f.funnels, *funnel)
	return nil
}

func (f *fakeFunnelStore) ListStages(ctx context.Context, funnelID string) ([]models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Stage, len(f.stages[funnelID]))
	copy(out, f.stages[funnelID])
	return out, nil
}

func (f *fakeFunnelStore) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, stages := range f.stages {
		for i := range stages {
			if stages[i].ID == id {
				st := stages[i]
				return &st, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeFunnelStore) FindStageByName(ctx context.Context, funnelID, name string) (*models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for fid, stages := range f.stages {
		if funnelID != "" && fid != funnelID {
			continue
		}
		for i := range stages {
			if stages[i].Name == name {
				st := stages[i]
				return &st, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeFunnelStore) CreateStage(ctx context.Context, stage *models.Stage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stage.ID == "" {
		stage.ID = utils.GenerateID()
	}
	if stage.Position == 0 {
		stage.Position = len(f.stages[stage.FunnelID]) + 1
	}
	f.stages[stage.FunnelID] = append(f.stages[stage.FunnelID], *stage)
	return nil
}

func (f *fakeFunnelStore) FirstPlacement(ctx context.Context) (*models.Funnel, *models.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.funnels) == 0 {
		return nil, nil, nil
	}
	funnel := f.funnels[0]
	stages := f.stages[funnel.ID]
	if len(stages) == 0 {
		return nil, nil, nil
	}
	stage := stages[0]
	return &funnel, &stage, nil
}

func (f *fakeFunnelStore) CountCardsInStage(ctx context.Context, stageID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cardCounts[stageID], nil
}

func (f *fakeFunnelStore) DeleteStage(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for fid, stages := range f.stages {
		for i := range stages {
			if stages[i].ID == id {
				f.stages[fid] = append(stages[:i], stages[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

type fakeCardStore struct {
	mu     sync.Mutex
	cards  map[string]*models.Card
	byConv map[int64]string
}

func newFakeCardStore() *fakeCardStore {
	return &fakeCardStore{cards: make(map[string]*models.Card), byConv: make(map[int64]string)}
}

func (f *fakeCardStore) Upsert(ctx context.Context, up ports.CardUpsert) (*models.Card, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byConv[up.ExternalConversationID]; ok {
		card := f.cards[id]
		card.Title = up.Title
		card.ContactName = up.ContactName
		card.ContactPhone = up.ContactPhone
		if up.AssignedUserID != nil {
			card.AssignedUserID = up.AssignedUserID
		}
		if up.UpdatePlacement {
			card.FunnelID = up.FunnelID
			card.StageID = up.StageID
		}
		card.LastModifiedDate = time.Now().UTC()
		c := *card
		return &c, false, nil
	}
	convID := up.ExternalConversationID
	card := &models.Card{
		ID:                     utils.GenerateID(),
		Title:                  up.Title,
		FunnelID:               up.FunnelID,
		StageID:                up.StageID,
		ExternalConversationID: &convID,
		State:                  constants.CardStateActive,
		AssignedUserID:         up.AssignedUserID,
		ContactName:            up.ContactName,
		ContactPhone:           up.ContactPhone,
		CreatedDate:            time.Now().UTC(),
		LastModifiedDate:       time.Now().UTC(),
	}
	f.cards[card.ID] = card
	f.byConv[convID] = card.ID
	c := *card
	return &c, true, nil
}

func (f *fakeCardStore) GetCard(ctx context.Context, id string) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, nil
	}
	c := *card
	return &c, nil
}

func (f *fakeCardStore) FindByConversationID(ctx context.Context, conversationID int64) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byConv[conversationID]
	if !ok {
		return nil, nil
	}
	c := *f.cards[id]
	return &c, nil
}

func (f *fakeCardStore) ListByFunnel(ctx context.Context, funnelID string) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Card
	for _, card := range f.cards {
		if card.FunnelID == funnelID && card.State != constants.CardStateArchived {
			out = append(out, *card)
		}
	}
	return out, nil
}

func (f *fakeCardStore) CreateCard(ctx context.Context, card *models.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.ID == "" {
		card.ID = utils.GenerateID()
	}
	if card.State == "" {
		card.State = constants.CardStateActive
	}
	card.CreatedDate = time.Now().UTC()
	card.LastModifiedDate = card.CreatedDate
	c := *card
	f.cards[card.ID] = &c
	if card.ExternalConversationID != nil {
		f.byConv[*card.ExternalConversationID] = card.ID
	}
	return nil
}

func (f *fakeCardStore) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card := f.cards[id]
	for k, v := range fields {
		switch k {
		case "title":
			card.Title = v.(string)
		case "state":
			card.State = v.(string)
		case "contact_name":
			card.ContactName = v.(string)
		case "contact_phone":
			card.ContactPhone = v.(string)
		case "return_date":
			t := v.(time.Time)
			card.ReturnDate = &t
		}
	}
	card.LastModifiedDate = time.Now().UTC()
	return nil
}

func (f *fakeCardStore) MoveStage(ctx context.Context, id, funnelID, stageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	card := f.cards[id]
	card.FunnelID = funnelID
	card.StageID = stageID
	card.LastModifiedDate = time.Now().UTC()
	return nil
}

func (f *fakeCardStore) SetState(ctx context.Context, id, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[id].State = state
	return nil
}

type fakeActivityStore struct {
	mu         sync.Mutex
	activities map[string]*models.Activity
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{activities: make(map[string]*models.Activity)}
}

func (f *fakeActivityStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if activity.ID == "" {
		activity.ID = utils.GenerateID()
	}
	activity.CreatedDate = time.Now().UTC()
	a := *activity
	f.activities[activity.ID] = &a
	return nil
}

func (f *fakeActivityStore) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	activity, ok := f.activities[id]
	if !ok {
		return nil, nil
	}
	a := *activity
	return &a, nil
}

func (f *fakeActivityStore) ListByCard(ctx context.Context, cardID string) ([]models.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Activity
	for _, a := range f.activities {
		if a.CardID != nil && *a.CardID == cardID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeActivityStore) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := *activity
	f.activities[activity.ID] = &a
	return nil
}

type fakeMappingRuleStore struct {
	rules []models.MappingRule
}

func (f *fakeMappingRuleStore) ListActiveRules(ctx context.Context) ([]models.MappingRule, error) {
	var active []models.MappingRule
	for _, r := range f.rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	// Mirror the repository ordering contract: priority ascending,
	// value-specific rules before wildcards at equal priority.
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].SourceValue != nil && active[j].SourceValue == nil
	})
	return active, nil
}

func (f *fakeMappingRuleStore) ListRules(ctx context.Context) ([]models.MappingRule, error) {
	return f.rules, nil
}

func (f *fakeMappingRuleStore) CreateRule(ctx context.Context, rule *models.MappingRule) error {
	if rule.ID == "" {
		rule.ID = utils.GenerateID()
	}
	f.rules = append(f.rules, *rule)
	return nil
}

func (f *fakeMappingRuleStore) UpdateRule(ctx context.Context, rule *models.MappingRule) error {
	for i := range f.rules {
		if f.rules[i].ID == rule.ID {
			f.rules[i] = *rule
		}
	}
	return nil
}

type fakeWebhookStore struct {
	webhooks []models.AutomationWebhook
}

func (f *fakeWebhookStore) ListActiveWebhooks(ctx context.Context) ([]models.AutomationWebhook, error) {
	var active []models.AutomationWebhook
	for _, w := range f.webhooks {
		if w.IsActive {
			active = append(active, w)
		}
	}
	return active, nil
}

func (f *fakeWebhookStore) ListWebhooks(ctx context.Context) ([]models.AutomationWebhook, error) {
	return f.webhooks, nil
}

func (f *fakeWebhookStore) CreateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	if webhook.ID == "" {
		webhook.ID = utils.GenerateID()
	}
	f.webhooks = append(f.webhooks, *webhook)
	return nil
}

func (f *fakeWebhookStore) UpdateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	for i := range f.webhooks {
		if f.webhooks[i].ID == webhook.ID {
			f.webhooks[i] = *webhook
		}
	}
	return nil
}

type fakeSyncLogStore struct {
	mu      sync.Mutex
	entries []models.SyncLogEntry
}

func (f *fakeSyncLogStore) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = utils.GenerateID()
	}
	entry.CreatedDate = time.Now().UTC()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeSyncLogStore) List(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	out := make([]models.SyncLogEntry, limit)
	copy(out, f.entries[len(f.entries)-limit:])
	return out, nil
}

func (f *fakeSyncLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.SyncLogEntry
	var deleted int64
	for _, e := range f.entries {
		if e.CreatedDate.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return deleted, nil
}

func (f *fakeSyncLogStore) byEventType(eventType string) []models.SyncLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SyncLogEntry
	for _, e := range f.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeUserStore struct {
	users []models.User
}

func userWithAgent(id string, agentID int64) models.User {
	return models.User{ID: id, Name: "User " + id, Email: id + "@example.com", ExternalAgentID: &agentID}
}

func (f *fakeUserStore) FindByExternalAgentID(ctx context.Context, agentID int64) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ExternalAgentID != nil && *f.users[i].ExternalAgentID == agentID {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, nil
}
