package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
)

func TestSyncLogAppendFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncLogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO "+constants.TableSyncLog)).
		WithArgs(sqlmock.AnyArg(), constants.SyncDirectionInbound, constants.SyncStatusSuccess,
			"webhook_received", nil, int64(12), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.SyncLogEntry{
		Direction: constants.SyncDirectionInbound,
		Status:    constants.SyncStatusSuccess,
		EventType: "webhook_received",
		LatencyMs: 12,
	}
	err = repo.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogListClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncLogRepository(db)

	columns := []string{"id", "direction", "status", "event_type", "external_conversation_id", "latency_ms", "error_message", "created_date"}
	rows := sqlmock.NewRows(columns).
		AddRow("log-1", constants.SyncDirectionOutbound, constants.SyncStatusWarning,
			"automation_webhook", nil, int64(340), "status 500", time.Now().UTC())

	// Out-of-range limits fall back to the default of 100.
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("FROM %s", constants.TableSyncLog))).
		WithArgs(100).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), -5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "automation_webhook", entries[0].EventType)
	assert.Equal(t, "status 500", entries[0].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncLogDeleteOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSyncLogRepository(db)

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	query := fmt.Sprintf("DELETE FROM %s WHERE created_date < ?", constants.TableSyncLog)
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 17))

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(17), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
