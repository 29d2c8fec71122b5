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

// FunnelRepository persists funnels and their ordered stages.
type FunnelRepository struct {
	db dbtx
}

// NewFunnelRepository creates a new FunnelRepository
func NewFunnelRepository(db *sql.DB) *FunnelRepository {
	return &FunnelRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given
// transaction, so multi-row writes commit or roll back together.
func (r *FunnelRepository) WithTx(tx *sql.Tx) *FunnelRepository {
	return &FunnelRepository{db: tx}
}

// ListFunnels retrieves all funnels ordered by position, then creation date
func (r *FunnelRepository) ListFunnels(ctx context.Context) ([]models.Funnel, error) {
	query := fmt.Sprintf(`
		SELECT id, name, position, created_date
		FROM %s
		ORDER BY position ASC, created_date ASC`,
		constants.TableFunnel)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funnels := make([]models.Funnel, 0)
	for rows.Next() {
		var f models.Funnel
		if err := rows.Scan(&f.ID, &f.Name, &f.Position, &f.CreatedDate); err != nil {
			return nil, err
		}
		funnels = append(funnels, f)
	}
	return funnels, rows.Err()
}

// GetFunnel fetches a single funnel by id. Returns (nil, nil) when missing.
func (r *FunnelRepository) GetFunnel(ctx context.Context, id string) (*models.Funnel, error) {
	query := fmt.Sprintf(`
		SELECT id, name, position, created_date
		FROM %s
		WHERE id = ? LIMIT 1`,
		constants.TableFunnel)

	var f models.Funnel
	err := r.db.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name, &f.Position, &f.CreatedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// FindFunnelByName fetches a funnel by exact name, case-insensitive per
// MySQL's default collation. Returns (nil, nil) when missing.
func (r *FunnelRepository) FindFunnelByName(ctx context.Context, name string) (*models.Funnel, error) {
	query := fmt.Sprintf(`
		SELECT id, name, position, created_date
		FROM %s
		WHERE name = ? LIMIT 1`,
		constants.TableFunnel)

	var f models.Funnel
	err := r.db.QueryRowContext(ctx, query, name).Scan(&f.ID, &f.Name, &f.Position, &f.CreatedDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// CreateFunnel inserts a new funnel, assigning an id if absent
func (r *FunnelRepository) CreateFunnel(ctx context.Context, funnel *models.Funnel) error {
	if funnel.ID == "" {
		funnel.ID = utils.GenerateID()
	}
	if funnel.CreatedDate.IsZero() {
		funnel.CreatedDate = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, position, created_date)
		VALUES (?, ?, ?, ?)`,
		constants.TableFunnel)

	_, err := r.db.ExecContext(ctx, query, funnel.ID, funnel.Name, funnel.Position, funnel.CreatedDate)
	return err
}

// ListStages retrieves a funnel's stages ordered by position
func (r *FunnelRepository) ListStages(ctx context.Context, funnelID string) ([]models.Stage, error) {
	query := fmt.Sprintf(`
		SELECT id, funnel_id, name, position
		FROM %s
		WHERE funnel_id = ?
		ORDER BY position ASC`,
		constants.TableStage)

	rows, err := r.db.QueryContext(ctx, query, funnelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]models.Stage, 0)
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// GetStage fetches a single stage by id. Returns (nil, nil) when missing.
func (r *FunnelRepository) GetStage(ctx context.Context, id string) (*models.Stage, error) {
	query := fmt.Sprintf(`
		SELECT id, funnel_id, name, position
		FROM %s
		WHERE id = ? LIMIT 1`,
		constants.TableStage)

	var s models.Stage
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// FindStageByName fetches a stage by name. An empty funnelID searches
// across all funnels. Returns (nil, nil) when missing.
func (r *FunnelRepository) FindStageByName(ctx context.Context, funnelID, name string) (*models.Stage, error) {
	query := fmt.Sprintf(`
		SELECT id, funnel_id, name, position
		FROM %s
		WHERE name = ?`,
		constants.TableStage)
	args := []interface{}{name}
	if funnelID != "" {
		query += " AND funnel_id = ?"
		args = append(args, funnelID)
	}
	query += " LIMIT 1"

	var s models.Stage
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateStage inserts a new stage. When position is zero it is appended
// after the funnel's current highest position.
func (r *FunnelRepository) CreateStage(ctx context.Context, stage *models.Stage) error {
	if stage.ID == "" {
		stage.ID = utils.GenerateID()
	}

	if stage.Position == 0 {
		var maxPos sql.NullInt64
		posQuery := fmt.Sprintf("SELECT MAX(position) FROM %s WHERE funnel_id = ?", constants.TableStage)
		if err := r.db.QueryRowContext(ctx, posQuery, stage.FunnelID).Scan(&maxPos); err != nil {
			return err
		}
		stage.Position = int(maxPos.Int64) + 1
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, funnel_id, name, position)
		VALUES (?, ?, ?, ?)`,
		constants.TableStage)

	_, err := r.db.ExecContext(ctx, query, stage.ID, stage.FunnelID, stage.Name, stage.Position)
	return err
}

// FirstPlacement returns the first stage of the first funnel, the
// default landing place for inbound events. Returns (nil, nil, nil)
// when no funnel with at least one stage exists.
func (r *FunnelRepository) FirstPlacement(ctx context.Context) (*models.Funnel, *models.Stage, error) {
	query := fmt.Sprintf(`
		SELECT f.id, f.name, f.position, f.created_date,
		       s.id, s.funnel_id, s.name, s.position
		FROM %s f
		JOIN %s s ON s.funnel_id = f.id
		ORDER BY f.created_date ASC, s.position ASC
		LIMIT 1`,
		constants.TableFunnel, constants.TableStage)

	var f models.Funnel
	var s models.Stage
	err := r.db.QueryRowContext(ctx, query).Scan(
		&f.ID, &f.Name, &f.Position, &f.CreatedDate,
		&s.ID, &s.FunnelID, &s.Name, &s.Position,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &f, &s, nil
}

// CountCardsInStage reports how many cards reference a stage. Stage
// deletion is blocked while this is non-zero.
func (r *FunnelRepository) CountCardsInStage(ctx context.Context, stageID string) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE stage_id = ?", constants.TableCard)
	if err := r.db.QueryRowContext(ctx, query, stageID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteStage removes a stage row. Callers check CountCardsInStage
// first; the service layer refuses to delete a referenced stage.
func (r *FunnelRepository) DeleteStage(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", constants.TableStage)
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
