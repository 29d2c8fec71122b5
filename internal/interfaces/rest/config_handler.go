package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/internal/domain/models"
)

// ConfigHandler manages mapping rules and automation webhook
// subscriptions.
type ConfigHandler struct {
	config *services.ConfigService
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(config *services.ConfigService) *ConfigHandler {
	return &ConfigHandler{config: config}
}

// ListMappingRules handles GET /api/mapping-rules
func (h *ConfigHandler) ListMappingRules(c *gin.Context) {
	HandleGetEnvelope(c, "rules", func() (interface{}, error) {
		return h.config.ListMappingRules(c.Request.Context())
	})
}

// CreateMappingRule handles POST /api/mapping-rules
func (h *ConfigHandler) CreateMappingRule(c *gin.Context) {
	rule := &models.MappingRule{}
	HandleCreateEnvelope(c, "rule", "Mapping rule created", rule, func() error {
		return h.config.CreateMappingRule(c.Request.Context(), rule)
	})
}

// UpdateMappingRule handles PATCH /api/mapping-rules/:id
func (h *ConfigHandler) UpdateMappingRule(c *gin.Context) {
	rule := &models.MappingRule{}
	HandleUpdateEnvelope(c, "rule", "Mapping rule updated", rule, func() error {
		rule.ID = c.Param("id")
		return h.config.UpdateMappingRule(c.Request.Context(), rule)
	})
}

// ListWebhooks handles GET /api/automation-webhooks
func (h *ConfigHandler) ListWebhooks(c *gin.Context) {
	HandleGetEnvelope(c, "webhooks", func() (interface{}, error) {
		return h.config.ListWebhooks(c.Request.Context())
	})
}

// CreateWebhook handles POST /api/automation-webhooks
func (h *ConfigHandler) CreateWebhook(c *gin.Context) {
	webhook := &models.AutomationWebhook{}
	HandleCreateEnvelope(c, "webhook", "Automation webhook created", webhook, func() error {
		return h.config.CreateWebhook(c.Request.Context(), webhook)
	})
}

// UpdateWebhook handles PATCH /api/automation-webhooks/:id
func (h *ConfigHandler) UpdateWebhook(c *gin.Context) {
	webhook := &models.AutomationWebhook{}
	HandleUpdateEnvelope(c, "webhook", "Automation webhook updated", webhook, func() error {
		webhook.ID = c.Param("id")
		return h.config.UpdateWebhook(c.Request.Context(), webhook)
	})
}
