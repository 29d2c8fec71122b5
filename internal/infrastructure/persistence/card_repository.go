package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/utils"
)

// CardRepository persists cards. The unique constraint on
// external_conversation_id is the idempotency key for inbound upserts.
type CardRepository struct {
	db *sql.DB
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

// Upsert inserts or updates a card keyed by external conversation id.
// MySQL reports 1 affected row for an insert and 2 for an update of an
// existing row through ON DUPLICATE KEY, which gives the store-level
// insert/update signal the creation heuristic needs.
func (r *CardRepository) Upsert(ctx context.Context, up ports.CardUpsert) (*models.Card, bool, error) {
	id := utils.GenerateID()

	placementUpdate := ""
	if up.UpdatePlacement {
		placementUpdate = "funnel_id = VALUES(funnel_id), stage_id = VALUES(stage_id),"
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, title, funnel_id, stage_id, external_conversation_id, state,
			 assigned_user_id, contact_name, contact_phone, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			%s
			assigned_user_id = COALESCE(VALUES(assigned_user_id), assigned_user_id),
			contact_name = VALUES(contact_name),
			contact_phone = VALUES(contact_phone),
			last_modified_date = NOW()`,
		constants.TableCard, placementUpdate)

	result, err := r.db.ExecContext(ctx, query,
		id, up.Title, up.FunnelID, up.StageID, up.ExternalConversationID,
		constants.CardStateActive, up.AssignedUserID, up.ContactName, up.ContactPhone)
	if err != nil {
		return nil, false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	inserted := affected == 1

	card, err := r.FindByConversationID(ctx, up.ExternalConversationID)
	if err != nil {
		return nil, false, err
	}
	if card == nil {
		return nil, false, fmt.Errorf("card missing after upsert for conversation %d", up.ExternalConversationID)
	}
	return card, inserted, nil
}

// GetCard fetches a card by id. Returns (nil, nil) when missing.
func (r *CardRepository) GetCard(ctx context.Context, id string) (*models.Card, error) {
	query := r.selectQuery() + " WHERE id = ? LIMIT 1"
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByConversationID fetches a card by its external conversation id.
// Returns (nil, nil) when missing.
func (r *CardRepository) FindByConversationID(ctx context.Context, conversationID int64) (*models.Card, error) {
	query := r.selectQuery() + " WHERE external_conversation_id = ? LIMIT 1"
	return r.scanOne(r.db.QueryRowContext(ctx, query, conversationID))
}

// ListByFunnel retrieves the non-archived cards of a funnel
func (r *CardRepository) ListByFunnel(ctx context.Context, funnelID string) ([]models.Card, error) {
	query := r.selectQuery() + " WHERE funnel_id = ? AND state != ? ORDER BY created_date DESC"

	rows, err := r.db.QueryContext(ctx, query, funnelID, constants.CardStateArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]models.Card, 0)
	for rows.Next() {
		card, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// CreateCard inserts a manually created card (no external conversation)
func (r *CardRepository) CreateCard(ctx context.Context, card *models.Card) error {
	if card.ID == "" {
		card.ID = utils.GenerateID()
	}
	if card.State == "" {
		card.State = constants.CardStateActive
	}
	now := time.Now().UTC()
	card.CreatedDate = now
	card.LastModifiedDate = now

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, title, funnel_id, stage_id, external_conversation_id, state,
			 assigned_user_id, contact_name, contact_phone, return_date, created_date, last_modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		constants.TableCard)

	_, err := r.db.ExecContext(ctx, query,
		card.ID, card.Title, card.FunnelID, card.StageID, card.ExternalConversationID,
		card.State, card.AssignedUserID, card.ContactName, card.ContactPhone,
		card.ReturnDate, card.CreatedDate, card.LastModifiedDate)
	return err
}

// UpdateFields applies a partial update (autosave edits, return date)
func (r *CardRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}
	for k, v := range fields {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}
	setClauses = append(setClauses, fmt.Sprintf("%s = ?", constants.FieldLastModifiedDate))
	args = append(args, time.Now().UTC())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		constants.TableCard, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// MoveStage updates a card's funnel/stage placement
func (r *CardRepository) MoveStage(ctx context.Context, id, funnelID, stageID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET funnel_id = ?, stage_id = ?, last_modified_date = NOW()
		WHERE id = ?`,
		constants.TableCard)
	_, err := r.db.ExecContext(ctx, query, funnelID, stageID, id)
	return err
}

// SetState updates a card's lifecycle state
func (r *CardRepository) SetState(ctx context.Context, id, state string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET state = ?, last_modified_date = NOW()
		WHERE id = ?`,
		constants.TableCard)
	_, err := r.db.ExecContext(ctx, query, state, id)
	return err
}

func (r *CardRepository) selectQuery() string {
	return fmt.Sprintf(`
		SELECT id, title, funnel_id, stage_id, external_conversation_id, state,
		       assigned_user_id, contact_name, contact_phone, return_date,
		       created_date, last_modified_date
		FROM %s`, constants.TableCard)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *CardRepository) scanOne(row *sql.Row) (*models.Card, error) {
	card, err := r.scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return card, nil
}

func (r *CardRepository) scanRow(row rowScanner) (*models.Card, error) {
	var c models.Card
	var conversationID sql.NullInt64
	var assignedUserID, contactName, contactPhone sql.NullString
	var returnDate sql.NullTime

	err := row.Scan(&c.ID, &c.Title, &c.FunnelID, &c.StageID, &conversationID, &c.State,
		&assignedUserID, &contactName, &contactPhone, &returnDate,
		&c.CreatedDate, &c.LastModifiedDate)
	if err != nil {
		return nil, err
	}

	if conversationID.Valid {
		c.ExternalConversationID = &conversationID.Int64
	}
	if assignedUserID.Valid {
		c.AssignedUserID = &assignedUserID.String
	}
	c.ContactName = contactName.String
	c.ContactPhone = contactPhone.String
	if returnDate.Valid {
		t := returnDate.Time
		c.ReturnDate = &t
	}
	return &c, nil
}
