package bootstrap

import (
	"context"
	"database/sql"
	"log"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/infrastructure/database"
	"github.com/funnelsync/backend/internal/infrastructure/persistence"
	"github.com/funnelsync/backend/pkg/constants"
)

// SeedDefaultFunnel creates the default funnel and its stages on an
// empty database. Inbound processing requires at least one funnel to
// exist as the fallback placement for unmapped conversations.
func SeedDefaultFunnel(db *database.TiDBConnection) error {
	ctx := context.Background()
	repo := persistence.NewFunnelRepository(db.DB())
	tm := persistence.NewTransactionManager(db.DB())

	funnels, err := repo.ListFunnels(ctx)
	if err != nil {
		return err
	}
	if len(funnels) > 0 {
		return nil
	}

	log.Printf("🌱 Seeding default funnel %q...", constants.DefaultFunnelName)

	// Funnel and stages land together or not at all: a partially seeded
	// funnel without stages would break default placement.
	err = tm.WithTransaction(func(tx *sql.Tx) error {
		txRepo := repo.WithTx(tx)

		funnel := &models.Funnel{Name: constants.DefaultFunnelName}
		if err := txRepo.CreateFunnel(ctx, funnel); err != nil {
			return err
		}
		for i, name := range constants.DefaultStageNames {
			stage := &models.Stage{FunnelID: funnel.ID, Name: name, Position: i + 1}
			if err := txRepo.CreateStage(ctx, stage); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("✅ Default funnel seeded with %d stages", len(constants.DefaultStageNames))
	return nil
}
