package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/pkg/constants"
)

// FunnelHandler serves funnel reads for the board UI
type FunnelHandler struct {
	funnels *services.FunnelService
	cards   *services.CardService
}

// NewFunnelHandler creates a new FunnelHandler
func NewFunnelHandler(funnels *services.FunnelService, cards *services.CardService) *FunnelHandler {
	return &FunnelHandler{funnels: funnels, cards: cards}
}

// List handles GET /api/funnels
func (h *FunnelHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "funnels", func() (interface{}, error) {
		return h.funnels.List(c.Request.Context())
	})
}

// Get handles GET /api/funnels/:id
func (h *FunnelHandler) Get(c *gin.Context) {
	HandleGetEnvelope(c, "funnel", func() (interface{}, error) {
		return h.funnels.Get(c.Request.Context(), c.Param("id"))
	})
}

// ListCards handles GET /api/funnels/:id/cards
func (h *FunnelHandler) ListCards(c *gin.Context) {
	HandleGetEnvelope(c, "cards", func() (interface{}, error) {
		return h.cards.ListByFunnel(c.Request.Context(), c.Param("id"))
	})
}

// DeleteStage handles DELETE /api/stages/:id
func (h *FunnelHandler) DeleteStage(c *gin.Context) {
	if err := h.funnels.DeleteStage(c.Request.Context(), c.Param("id")); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		constants.FieldMessage:    "stage deleted",
	})
}
