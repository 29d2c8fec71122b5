package rest

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// InboundProcessor handles one raw inbound webhook delivery
type InboundProcessor interface {
	Handle(ctx context.Context, raw []byte) (*services.InboundResult, error)
}

// WebhookHandler receives inbound platform webhook deliveries
type WebhookHandler struct {
	inbound InboundProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(inbound InboundProcessor) *WebhookHandler {
	return &WebhookHandler{inbound: inbound}
}

// Receive handles POST /webhooks/platform.
//
// Recognized-but-filtered deliveries are acknowledged with 200 so the
// platform does not retry them; only malformed payloads and fatal
// processing errors get an error status.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondAppError(c, errors.NewValidationError("body", "could not read request body"))
		return
	}

	result, err := h.inbound.Handle(c.Request.Context(), raw)
	if err != nil {
		c.JSON(errors.GetHTTPStatus(err), gin.H{
			constants.ResponseSuccess: false,
			constants.ResponseError:   err.Error(),
		})
		return
	}

	if result.Ignored {
		c.JSON(http.StatusOK, gin.H{
			constants.ResponseSuccess: true,
			constants.FieldMessage:    result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		"cardId":                  result.CardID,
		"created":                 result.Created,
	})
}
