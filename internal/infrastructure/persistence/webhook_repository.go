package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/utils"
)

// WebhookRepository persists automation webhook subscriptions.
type WebhookRepository struct {
	db *sql.DB
}

// NewWebhookRepository creates a new WebhookRepository
func NewWebhookRepository(db *sql.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

// ListActiveWebhooks retrieves active subscriptions
func (r *WebhookRepository) ListActiveWebhooks(ctx context.Context) ([]models.AutomationWebhook, error) {
	query := r.selectQuery() + " WHERE is_active = TRUE"
	return r.queryWebhooks(ctx, query)
}

// ListWebhooks retrieves all subscriptions
func (r *WebhookRepository) ListWebhooks(ctx context.Context) ([]models.AutomationWebhook, error) {
	return r.queryWebhooks(ctx, r.selectQuery())
}

func (r *WebhookRepository) selectQuery() string {
	return fmt.Sprintf(`
		SELECT id, name, is_active, trigger_stage_origin, trigger_stage_destination,
		       external_url, custom_headers, condition_expr
		FROM %s`, constants.TableAutomationWebhook)
}

func (r *WebhookRepository) queryWebhooks(ctx context.Context, query string) ([]models.AutomationWebhook, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	webhooks := make([]models.AutomationWebhook, 0)
	for rows.Next() {
		var w models.AutomationWebhook
		var origin, dest, headersJSON, conditionExpr sql.NullString

		if err := rows.Scan(&w.ID, &w.Name, &w.IsActive, &origin, &dest,
			&w.ExternalURL, &headersJSON, &conditionExpr); err != nil {
			return nil, err
		}
		if origin.Valid {
			w.TriggerStageOrigin = &origin.String
		}
		if dest.Valid {
			w.TriggerStageDestination = &dest.String
		}
		if conditionExpr.Valid {
			w.ConditionExpr = &conditionExpr.String
		}
		if headersJSON.Valid && headersJSON.String != "" {
			if err := json.Unmarshal([]byte(headersJSON.String), &w.CustomHeaders); err != nil {
				log.Printf("⚠️ Webhook %s has invalid custom_headers JSON: %v", w.ID, err)
			}
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// CreateWebhook inserts a new subscription
func (r *WebhookRepository) CreateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	if webhook.ID == "" {
		webhook.ID = utils.GenerateID()
	}

	headersJSON, err := marshalHeaders(webhook.CustomHeaders)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, name, is_active, trigger_stage_origin, trigger_stage_destination,
			 external_url, custom_headers, condition_expr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		constants.TableAutomationWebhook)

	_, err = r.db.ExecContext(ctx, query,
		webhook.ID, webhook.Name, webhook.IsActive,
		webhook.TriggerStageOrigin, webhook.TriggerStageDestination,
		webhook.ExternalURL, headersJSON, webhook.ConditionExpr)
	return err
}

// UpdateWebhook persists changes to a subscription
func (r *WebhookRepository) UpdateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	headersJSON, err := marshalHeaders(webhook.CustomHeaders)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = ?, is_active = ?, trigger_stage_origin = ?, trigger_stage_destination = ?,
		    external_url = ?, custom_headers = ?, condition_expr = ?
		WHERE id = ?`,
		constants.TableAutomationWebhook)

	_, err = r.db.ExecContext(ctx, query,
		webhook.Name, webhook.IsActive,
		webhook.TriggerStageOrigin, webhook.TriggerStageDestination,
		webhook.ExternalURL, headersJSON, webhook.ConditionExpr, webhook.ID)
	return err
}

func marshalHeaders(headers map[string]string) (interface{}, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom headers: %w", err)
	}
	return string(b), nil
}
