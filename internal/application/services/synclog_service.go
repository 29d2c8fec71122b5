package services

import (
	"context"
	"log"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
)

// SyncLogService records every sync attempt (latency, outcome,
// direction) into the append-only monitoring sink. Recording is
// best-effort: a failed log write never fails the operation it
// observes.
type SyncLogService struct {
	store ports.SyncLogStore
}

// NewSyncLogService creates a new SyncLogService
func NewSyncLogService(store ports.SyncLogStore) *SyncLogService {
	return &SyncLogService{store: store}
}

// Record appends one entry. Errors are logged and swallowed.
func (s *SyncLogService) Record(ctx context.Context, entry models.SyncLogEntry) {
	if err := s.store.Append(ctx, &entry); err != nil {
		log.Printf("⚠️ Failed to append sync log (%s/%s): %v", entry.Direction, entry.EventType, err)
	}
}

// RecordInbound logs one platform→CRM attempt
func (s *SyncLogService) RecordInbound(ctx context.Context, eventType string, conversationID *int64, started time.Time, err error) {
	entry := models.SyncLogEntry{
		Direction:              constants.SyncDirectionInbound,
		Status:                 constants.SyncStatusSuccess,
		EventType:              eventType,
		ExternalConversationID: conversationID,
		LatencyMs:              time.Since(started).Milliseconds(),
	}
	if err != nil {
		entry.Status = constants.SyncStatusError
		entry.ErrorMessage = err.Error()
	}
	s.Record(ctx, entry)
}

// RecordOutbound logs one CRM→platform attempt. Failures are warnings:
// outbound sync is best-effort and the CRM write already succeeded.
func (s *SyncLogService) RecordOutbound(ctx context.Context, eventType string, conversationID *int64, started time.Time, err error) {
	entry := models.SyncLogEntry{
		Direction:              constants.SyncDirectionOutbound,
		Status:                 constants.SyncStatusSuccess,
		EventType:              eventType,
		ExternalConversationID: conversationID,
		LatencyMs:              time.Since(started).Milliseconds(),
	}
	if err != nil {
		entry.Status = constants.SyncStatusWarning
		entry.ErrorMessage = err.Error()
	}
	s.Record(ctx, entry)
}

// List returns the most recent entries for the observability endpoint
func (s *SyncLogService) List(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	return s.store.List(ctx, limit)
}

// Prune deletes entries older than the retention window
func (s *SyncLogService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.store.DeleteOlderThan(ctx, cutoff)
}
