package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
)

// CardHandler exposes the card writes whose side effects feed the
// outbound dispatcher and automation fan-out.
type CardHandler struct {
	cards *services.CardService
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(cards *services.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// Create handles POST /api/cards
func (h *CardHandler) Create(c *gin.Context) {
	card := &models.Card{}
	HandleCreateEnvelope(c, "card", "Card created", card, func() error {
		return h.cards.Create(c.Request.Context(), card)
	})
}

// Get handles GET /api/cards/:id
func (h *CardHandler) Get(c *gin.Context) {
	HandleGetEnvelope(c, "card", func() (interface{}, error) {
		return h.cards.Get(c.Request.Context(), c.Param("id"))
	})
}

// Update handles PATCH /api/cards/:id
func (h *CardHandler) Update(c *gin.Context) {
	var fields map[string]interface{}
	if !BindJSON(c, &fields) {
		return
	}
	card, err := h.cards.Update(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		constants.FieldMessage:    "Card updated",
		"card":                    card,
	})
}

// Move handles POST /api/cards/:id/move
func (h *CardHandler) Move(c *gin.Context) {
	var req struct {
		StageID string `json:"stage_id" binding:"required"`
	}
	if !BindJSON(c, &req) {
		return
	}
	card, err := h.cards.Move(c.Request.Context(), c.Param("id"), req.StageID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		constants.FieldMessage:    "Card moved",
		"card":                    card,
	})
}
