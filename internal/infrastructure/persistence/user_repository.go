package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/pkg/constants"
)

// UserRepository resolves platform agent identifiers against the local
// user table. User management itself lives outside this subsystem.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByExternalAgentID fetches the local user mapped to a platform
// agent id. Returns (nil, nil) when no mapping exists: absence of a
// mapped agent is expected and non-fatal.
func (r *UserRepository) FindByExternalAgentID(ctx context.Context, agentID int64) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, external_agent_id
		FROM %s
		WHERE external_agent_id = ? LIMIT 1`,
		constants.TableUser)

	var u models.User
	var externalAgentID sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, agentID).Scan(&u.ID, &u.Name, &u.Email, &externalAgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if externalAgentID.Valid {
		u.ExternalAgentID = &externalAgentID.Int64
	}
	return &u, nil
}
