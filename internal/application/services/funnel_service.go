package services

import (
	"context"
	"fmt"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/errors"
)

// FunnelService serves funnel reads for the board and integration API
type FunnelService struct {
	funnels ports.FunnelStore
}

// NewFunnelService creates a new FunnelService
func NewFunnelService(funnels ports.FunnelStore) *FunnelService {
	return &FunnelService{funnels: funnels}
}

// List returns all funnels with their stages loaded
func (s *FunnelService) List(ctx context.Context) ([]models.Funnel, error) {
	funnels, err := s.funnels.ListFunnels(ctx)
	if err != nil {
		return nil, err
	}
	for i := range funnels {
		stages, err := s.funnels.ListStages(ctx, funnels[i].ID)
		if err != nil {
			return nil, err
		}
		funnels[i].Stages = stages
	}
	return funnels, nil
}

// Get returns one funnel with its stages loaded
func (s *FunnelService) Get(ctx context.Context, id string) (*models.Funnel, error) {
	funnel, err := s.funnels.GetFunnel(ctx, id)
	if err != nil {
		return nil, err
	}
	if funnel == nil {
		return nil, errors.NewNotFoundError("funnel", id)
	}
	stages, err := s.funnels.ListStages(ctx, funnel.ID)
	if err != nil {
		return nil, err
	}
	funnel.Stages = stages
	return funnel, nil
}

// DeleteStage removes an empty stage. Stages are shared by reference
// from cards, so deletion is blocked while any card sits in the stage.
func (s *FunnelService) DeleteStage(ctx context.Context, stageID string) error {
	stage, err := s.funnels.GetStage(ctx, stageID)
	if err != nil {
		return err
	}
	if stage == nil {
		return errors.NewNotFoundError("stage", stageID)
	}

	count, err := s.funnels.CountCardsInStage(ctx, stageID)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.NewValidationError("stage",
			fmt.Sprintf("cannot delete stage %q while %d cards reference it", stage.Name, count))
	}

	return s.funnels.DeleteStage(ctx, stageID)
}
