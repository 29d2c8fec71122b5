package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/utils"
)

// SyncLogRepository is the append-only monitoring sink for sync
// attempts in both directions.
type SyncLogRepository struct {
	db *sql.DB
}

// NewSyncLogRepository creates a new SyncLogRepository
func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Append inserts one sync log entry
func (r *SyncLogRepository) Append(ctx context.Context, entry *models.SyncLogEntry) error {
	if entry.ID == "" {
		entry.ID = utils.GenerateID()
	}
	if entry.CreatedDate.IsZero() {
		entry.CreatedDate = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, direction, status, event_type, external_conversation_id, latency_ms, error_message, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		constants.TableSyncLog)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Direction, entry.Status, entry.EventType,
		entry.ExternalConversationID, entry.LatencyMs, entry.ErrorMessage, entry.CreatedDate)
	return err
}

// List retrieves the most recent entries
func (r *SyncLogRepository) List(ctx context.Context, limit int) ([]models.SyncLogEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, direction, status, event_type, external_conversation_id, latency_ms, error_message, created_date
		FROM %s
		ORDER BY created_date DESC
		LIMIT ?`,
		constants.TableSyncLog)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.SyncLogEntry, 0)
	for rows.Next() {
		var e models.SyncLogEntry
		var conversationID sql.NullInt64
		var errorMessage sql.NullString

		if err := rows.Scan(&e.ID, &e.Direction, &e.Status, &e.EventType,
			&conversationID, &e.LatencyMs, &errorMessage, &e.CreatedDate); err != nil {
			return nil, err
		}
		if conversationID.Valid {
			e.ExternalConversationID = &conversationID.Int64
		}
		e.ErrorMessage = errorMessage.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan prunes entries created before the cutoff and returns
// the number of deleted rows
func (r *SyncLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE created_date < ?", constants.TableSyncLog)
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
