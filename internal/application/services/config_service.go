package services

import (
	"context"
	"net/url"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// ConfigService manages the operator-editable sync configuration:
// mapping rules and automation webhook subscriptions.
type ConfigService struct {
	rules    ports.MappingRuleStore
	webhooks ports.WebhookStore
}

// NewConfigService creates a new ConfigService
func NewConfigService(rules ports.MappingRuleStore, webhooks ports.WebhookStore) *ConfigService {
	return &ConfigService{rules: rules, webhooks: webhooks}
}

// ListMappingRules returns all mapping rules, active or not
func (s *ConfigService) ListMappingRules(ctx context.Context) ([]models.MappingRule, error) {
	return s.rules.ListRules(ctx)
}

// CreateMappingRule validates and stores a new mapping rule
func (s *ConfigService) CreateMappingRule(ctx context.Context, rule *models.MappingRule) error {
	if err := validateMappingRule(rule); err != nil {
		return err
	}
	return s.rules.CreateRule(ctx, rule)
}

// UpdateMappingRule validates and stores rule changes
func (s *ConfigService) UpdateMappingRule(ctx context.Context, rule *models.MappingRule) error {
	if rule.ID == "" {
		return errors.NewValidationError("id", "rule id is required")
	}
	if err := validateMappingRule(rule); err != nil {
		return err
	}
	return s.rules.UpdateRule(ctx, rule)
}

// ListWebhooks returns all automation webhook subscriptions
func (s *ConfigService) ListWebhooks(ctx context.Context) ([]models.AutomationWebhook, error) {
	return s.webhooks.ListWebhooks(ctx)
}

// CreateWebhook validates and stores a new subscription
func (s *ConfigService) CreateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	if err := validateWebhook(webhook); err != nil {
		return err
	}
	return s.webhooks.CreateWebhook(ctx, webhook)
}

// UpdateWebhook validates and stores subscription changes
func (s *ConfigService) UpdateWebhook(ctx context.Context, webhook *models.AutomationWebhook) error {
	if webhook.ID == "" {
		return errors.NewValidationError("id", "webhook id is required")
	}
	if err := validateWebhook(webhook); err != nil {
		return err
	}
	return s.webhooks.UpdateWebhook(ctx, webhook)
}

func validateMappingRule(rule *models.MappingRule) error {
	switch rule.SourceType {
	case constants.MappingSourceLabel, constants.MappingSourceAttribute:
	default:
		return errors.NewValidationError("source_type", "must be label or attribute")
	}
	if rule.SourceKey == "" {
		return errors.NewValidationError("source_key", "source key is required")
	}
	if !rule.Valid() {
		return errors.NewValidationError("target", "rule needs a target funnel or stage name")
	}
	return nil
}

func validateWebhook(webhook *models.AutomationWebhook) error {
	if webhook.Name == "" {
		return errors.NewValidationError("name", "name is required")
	}
	u, err := url.Parse(webhook.ExternalURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewValidationError("external_url", "must be an absolute http(s) URL")
	}
	if webhook.TriggerStageOrigin == nil && webhook.TriggerStageDestination == nil {
		return errors.NewValidationError("trigger", "at least one trigger stage is required")
	}
	return nil
}
