package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// IntegrationHandler is the action-dispatch endpoint for external
// agents and automation tools. One route, one JSON body, one action
// field; authentication happens in middleware via x-api-key.
type IntegrationHandler struct {
	cards      *services.CardService
	funnels    *services.FunnelService
	activities *services.ActivityService
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(cards *services.CardService, funnels *services.FunnelService,
	activities *services.ActivityService) *IntegrationHandler {
	return &IntegrationHandler{cards: cards, funnels: funnels, activities: activities}
}

type integrationRequest struct {
	Action string `json:"action" binding:"required"`

	CardID         string                 `json:"card_id"`
	StageID        string                 `json:"stage_id"`
	FunnelID       string                 `json:"funnel_id"`
	ConversationID int64                  `json:"conversation_id"`
	Title          string                 `json:"title"`
	ContactName    string                 `json:"contact_name"`
	ContactPhone   string                 `json:"contact_phone"`
	Fields         map[string]interface{} `json:"fields"`
	Description    string                 `json:"description"`
	DueDate        *time.Time             `json:"due_date"`
}

// Dispatch handles POST /api/integration
func (h *IntegrationHandler) Dispatch(c *gin.Context) {
	var req integrationRequest
	if !BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	respond := func(key string, result interface{}, err error) {
		if err != nil {
			RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{constants.ResponseSuccess: true, key: result})
	}

	switch req.Action {
	case "move":
		card, err := h.cards.Move(ctx, req.CardID, req.StageID)
		respond("card", card, err)

	case "list":
		cards, err := h.cards.ListByFunnel(ctx, req.FunnelID)
		respond("cards", cards, err)

	case "get":
		card, err := h.cards.Get(ctx, req.CardID)
		respond("card", card, err)

	case "create":
		card := &models.Card{
			Title:        req.Title,
			StageID:      req.StageID,
			ContactName:  req.ContactName,
			ContactPhone: req.ContactPhone,
		}
		err := h.cards.Create(ctx, card)
		respond("card", card, err)

	case "update":
		card, err := h.cards.Update(ctx, req.CardID, req.Fields)
		respond("card", card, err)

	case "getByConversation":
		card, err := h.cards.GetByConversation(ctx, req.ConversationID)
		respond("card", card, err)

	case "createFromConversation":
		card, created, err := h.cards.CreateFromConversation(ctx, req.ConversationID, req.Title,
			req.ContactName, req.ContactPhone, req.StageID)
		if err != nil {
			RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			constants.ResponseSuccess: true,
			"card":                    card,
			"created":                 created,
		})

	case "createActivity":
		activity, err := h.activities.ScheduleFollowUp(ctx, req.CardID, req.Description, req.DueDate)
		respond("activity", activity, err)

	case "listFunnels":
		funnels, err := h.funnels.List(ctx)
		respond("funnels", funnels, err)

	default:
		RespondAppError(c, errors.NewValidationError("action", "unknown action "+req.Action))
	}
}
