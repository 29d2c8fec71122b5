package rest

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/internal/application/services"
)

const defaultSyncLogLimit = 100

// SyncLogHandler is the read side of the monitoring sink
type SyncLogHandler struct {
	syncLog *services.SyncLogService
}

// NewSyncLogHandler creates a new SyncLogHandler
func NewSyncLogHandler(syncLog *services.SyncLogService) *SyncLogHandler {
	return &SyncLogHandler{syncLog: syncLog}
}

// List handles GET /api/sync-logs?limit=N
func (h *SyncLogHandler) List(c *gin.Context) {
	limit := defaultSyncLogLimit
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}
	HandleGetEnvelope(c, "logs", func() (interface{}, error) {
		return h.syncLog.List(c.Request.Context(), limit)
	})
}
