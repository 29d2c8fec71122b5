package ports

import (
	"context"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
)

// FunnelStore provides access to funnels and their stages.
type FunnelStore interface {
	ListFunnels(ctx context.Context) ([]models.Funnel, error)
	GetFunnel(ctx context.Context, id string) (*models.Funnel, error)
	FindFunnelByName(ctx context.Context, name string) (*models.Funnel, error)
	CreateFunnel(ctx context.Context, funnel *models.Funnel) error
	ListStages(ctx context.Context, funnelID string) ([]models.Stage, error)
	GetStage(ctx context.Context, id string) (*models.Stage, error)
	FindStageByName(ctx context.Context, funnelID, name string) (*models.Stage, error)
	CreateStage(ctx context.Context, stage *models.Stage) error
	// FirstPlacement returns the first stage (by position) of the first
	// funnel (by creation date), the default landing place for inbound
	// events. Returns (nil, nil, nil) when no funnel or stage exists.
	FirstPlacement(ctx context.Context) (*models.Funnel, *models.Stage, error)
	CountCardsInStage(ctx context.Context, stageID string) (int, error)
	DeleteStage(ctx context.Context, id string) error
}

// CardUpsert carries the fields of an idempotent card upsert keyed by
// the external conversation id.
type CardUpsert struct {
	Title                  string
	FunnelID               string
	StageID                string
	ExternalConversationID int64
	AssignedUserID         *string
	ContactName            string
	ContactPhone           string
	// UpdatePlacement controls whether funnel/stage are overwritten when
	// the card already exists. Default placement must not move an
	// existing card; a mapping-resolved target does.
	UpdatePlacement bool
}

// CardStore provides access to cards.
type CardStore interface {
	// Upsert inserts or updates a card keyed by external conversation id
	// and reports whether a new row was inserted. The inserted flag comes
	// from the store itself, not from event metadata.
	Upsert(ctx context.Context, up CardUpsert) (card *models.Card, inserted bool, err error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	FindByConversationID(ctx context.Context, conversationID int64) (*models.Card, error)
	ListByFunnel(ctx context.Context, funnelID string) ([]models.Card, error)
	CreateCard(ctx context.Context, card *models.Card) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	MoveStage(ctx context.Context, id, funnelID, stageID string) error
	SetState(ctx context.Context, id, state string) error
}

// ActivityStore provides access to activities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetActivity(ctx context.Context, id string) (*models.Activity, error)
	ListByCard(ctx context.Context, cardID string) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, activity *models.Activity) error
}

// MappingRuleStore provides access to mapping rules.
type MappingRuleStore interface {
	ListActiveRules(ctx context.Context) ([]models.MappingRule, error)
	ListRules(ctx context.Context) ([]models.MappingRule, error)
	CreateRule(ctx context.Context, rule *models.MappingRule) error
	UpdateRule(ctx context.Context, rule *models.MappingRule) error
}

// WebhookStore provides access to automation webhook subscriptions.
type WebhookStore interface {
	ListActiveWebhooks(ctx context.Context) ([]models.AutomationWebhook, error)
	ListWebhooks(ctx context.Context) ([]models.AutomationWebhook, error)
	CreateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error
	UpdateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error
}

// SyncLogStore is the append-only monitoring sink.
type SyncLogStore interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
	List(ctx context.Context, limit int) ([]models.SyncLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserStore resolves external agent identifiers to local users.
type UserStore interface {
	FindByExternalAgentID(ctx context.Context, agentID int64) (*models.User, error)
}

// PlatformClient pushes CRM-side changes back to the messaging
// platform. Implementations must bound every call with a timeout.
type PlatformClient interface {
	UpdateConversationAttributes(ctx context.Context, conversationID int64, attrs map[string]string) error
	AddConversationLabel(ctx context.Context, conversationID int64, label string) error
}
