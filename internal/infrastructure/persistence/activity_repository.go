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

// ActivityRepository persists card activities and standalone tasks.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateActivity inserts a new activity
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = utils.GenerateID()
	}
	if activity.Status == "" {
		activity.Status = constants.ActivityStatusPending
	}
	if activity.CreatedDate.IsZero() {
		activity.CreatedDate = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, card_id, type, description, scheduled_date, completed_date, status, is_private, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		constants.TableActivity)

	_, err := r.db.ExecContext(ctx, query,
		activity.ID, activity.CardID, activity.Type, activity.Description,
		activity.ScheduledDate, activity.CompletedDate, activity.Status,
		activity.IsPrivate, activity.CreatedDate)
	return err
}

// GetActivity fetches an activity by id. Returns (nil, nil) when missing.
func (r *ActivityRepository) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	query := fmt.Sprintf(`
		SELECT id, card_id, type, description, scheduled_date, completed_date, status, is_private, created_date
		FROM %s
		WHERE id = ? LIMIT 1`,
		constants.TableActivity)

	var a models.Activity
	var cardID sql.NullString
	var scheduled, completed sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &cardID, &a.Type, &a.Description, &scheduled, &completed,
		&a.Status, &a.IsPrivate, &a.CreatedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if cardID.Valid {
		a.CardID = &cardID.String
	}
	if scheduled.Valid {
		t := scheduled.Time
		a.ScheduledDate = &t
	}
	if completed.Valid {
		t := completed.Time
		a.CompletedDate = &t
	}
	return &a, nil
}

// ListByCard retrieves a card's activities, newest first
func (r *ActivityRepository) ListByCard(ctx context.Context, cardID string) ([]models.Activity, error) {
	query := fmt.Sprintf(`
		SELECT id, card_id, type, description, scheduled_date, completed_date, status, is_private, created_date
		FROM %s
		WHERE card_id = ?
		ORDER BY created_date DESC`,
		constants.TableActivity)

	rows, err := r.db.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]models.Activity, 0)
	for rows.Next() {
		var a models.Activity
		var cID sql.NullString
		var scheduled, completed sql.NullTime

		if err := rows.Scan(&a.ID, &cID, &a.Type, &a.Description, &scheduled, &completed,
			&a.Status, &a.IsPrivate, &a.CreatedDate); err != nil {
			return nil, err
		}
		if cID.Valid {
			a.CardID = &cID.String
		}
		if scheduled.Valid {
			t := scheduled.Time
			a.ScheduledDate = &t
		}
		if completed.Valid {
			t := completed.Time
			a.CompletedDate = &t
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// UpdateActivity persists status, schedule and completion changes
func (r *ActivityRepository) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, scheduled_date = ?, completed_date = ?, description = ?
		WHERE id = ?`,
		constants.TableActivity)

	_, err := r.db.ExecContext(ctx, query,
		activity.Status, activity.ScheduledDate, activity.CompletedDate,
		activity.Description, activity.ID)
	return err
}
