package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
	"github.com/funnelsync/backend/pkg/constants"
)

// ActivityHandler manages follow-up activities on cards
type ActivityHandler struct {
	activities *services.ActivityService
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activities *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// Create handles POST /api/cards/:id/activities
func (h *ActivityHandler) Create(c *gin.Context) {
	var req struct {
		Description string     `json:"description"`
		DueDate     *time.Time `json:"due_date"`
	}
	if !BindJSON(c, &req) {
		return
	}
	activity, err := h.activities.ScheduleFollowUp(c.Request.Context(), c.Param("id"), req.Description, req.DueDate)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.ResponseSuccess: true,
		constants.FieldMessage:    "Activity scheduled",
		"activity":                activity,
	})
}

// List handles GET /api/cards/:id/activities
func (h *ActivityHandler) List(c *gin.Context) {
	HandleGetEnvelope(c, "activities", func() (interface{}, error) {
		return h.activities.ListByCard(c.Request.Context(), c.Param("id"))
	})
}

// Postpone handles POST /api/activities/:id/postpone
func (h *ActivityHandler) Postpone(c *gin.Context) {
	var req struct {
		NewDate *time.Time `json:"new_date"`
	}
	if !BindJSON(c, &req) {
		return
	}
	h.respondTransition(c, func() (interface{}, error) {
		return h.activities.Postpone(c.Request.Context(), c.Param("id"), req.NewDate)
	}, "Activity postponed")
}

// Complete handles POST /api/activities/:id/complete
func (h *ActivityHandler) Complete(c *gin.Context) {
	var req struct {
		MarkCardWon bool `json:"mark_card_won"`
	}
	if c.Request.ContentLength > 0 && !BindJSON(c, &req) {
		return
	}
	h.respondTransition(c, func() (interface{}, error) {
		return h.activities.Complete(c.Request.Context(), c.Param("id"), req.MarkCardWon)
	}, "Activity completed")
}

// Reopen handles POST /api/activities/:id/reopen
func (h *ActivityHandler) Reopen(c *gin.Context) {
	h.respondTransition(c, func() (interface{}, error) {
		return h.activities.Reopen(c.Request.Context(), c.Param("id"))
	}, "Activity reopened")
}

// Cancel handles POST /api/activities/:id/cancel
func (h *ActivityHandler) Cancel(c *gin.Context) {
	h.respondTransition(c, func() (interface{}, error) {
		return h.activities.Cancel(c.Request.Context(), c.Param("id"))
	}, "Activity canceled")
}

func (h *ActivityHandler) respondTransition(c *gin.Context, action func() (interface{}, error), msg string) {
	activity, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		constants.FieldMessage:    msg,
		"activity":                activity,
	})
}
