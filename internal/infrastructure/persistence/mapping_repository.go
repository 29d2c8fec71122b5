package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/utils"
)

// MappingRepository persists label/attribute mapping rules.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new MappingRepository
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// ListActiveRules retrieves active rules ordered by ascending priority,
// with value-specific rules before wildcards at equal priority.
func (r *MappingRepository) ListActiveRules(ctx context.Context) ([]models.MappingRule, error) {
	query := fmt.Sprintf(`
		SELECT id, source_type, source_key, source_value, target_funnel_name, target_stage_name, priority, is_active
		FROM %s
		WHERE is_active = TRUE
		ORDER BY priority ASC, (source_value IS NULL) ASC`,
		constants.TableMappingRule)
	return r.queryRules(ctx, query)
}

// ListRules retrieves all rules, active or not
func (r *MappingRepository) ListRules(ctx context.Context) ([]models.MappingRule, error) {
	query := fmt.Sprintf(`
		SELECT id, source_type, source_key, source_value, target_funnel_name, target_stage_name, priority, is_active
		FROM %s
		ORDER BY priority ASC`,
		constants.TableMappingRule)
	return r.queryRules(ctx, query)
}

func (r *MappingRepository) queryRules(ctx context.Context, query string) ([]models.MappingRule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]models.MappingRule, 0)
	for rows.Next() {
		var rule models.MappingRule
		var sourceValue, targetFunnel, targetStage sql.NullString

		if err := rows.Scan(&rule.ID, &rule.SourceType, &rule.SourceKey, &sourceValue,
			&targetFunnel, &targetStage, &rule.Priority, &rule.IsActive); err != nil {
			return nil, err
		}
		if sourceValue.Valid {
			rule.SourceValue = &sourceValue.String
		}
		if targetFunnel.Valid {
			rule.TargetFunnelName = &targetFunnel.String
		}
		if targetStage.Valid {
			rule.TargetStageName = &targetStage.String
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateRule inserts a new mapping rule
func (r *MappingRepository) CreateRule(ctx context.Context, rule *models.MappingRule) error {
	if rule.ID == "" {
		rule.ID = utils.GenerateID()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
			(id, source_type, source_key, source_value, target_funnel_name, target_stage_name, priority, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		constants.TableMappingRule)

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.SourceType, rule.SourceKey, rule.SourceValue,
		rule.TargetFunnelName, rule.TargetStageName, rule.Priority, rule.IsActive)
	return err
}

// UpdateRule persists changes to an existing mapping rule
func (r *MappingRepository) UpdateRule(ctx context.Context, rule *models.MappingRule) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET source_type = ?, source_key = ?, source_value = ?,
		    target_funnel_name = ?, target_stage_name = ?, priority = ?, is_active = ?
		WHERE id = ?`,
		constants.TableMappingRule)

	_, err := r.db.ExecContext(ctx, query,
		rule.SourceType, rule.SourceKey, rule.SourceValue,
		rule.TargetFunnelName, rule.TargetStageName, rule.Priority, rule.IsActive, rule.ID)
	return err
}
