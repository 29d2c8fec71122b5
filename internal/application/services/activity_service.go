package services

import (
	"context"
	"strings"
	"time"

	"github.com/funnelsync/backend/internal/domain/models"
	"github.com/funnelsync/backend/internal/domain/ports"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// ActivityService derives follow-up and note activities from processed
// events and manual CRM actions, and drives the activity state machine:
// pending -> {completed, canceled, postponed}; postponed re-enters
// pending once rescheduled; completed and canceled are terminal.
type ActivityService struct {
	activities ports.ActivityStore
	cards      ports.CardStore
	funnels    ports.FunnelStore
	now        func() time.Time
}

// NewActivityService creates a new ActivityService
func NewActivityService(activities ports.ActivityStore, cards ports.CardStore, funnels ports.FunnelStore) *ActivityService {
	return &ActivityService{
		activities: activities,
		cards:      cards,
		funnels:    funnels,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleFollowUp creates a follow-up activity for a card. Without an
// explicit due date, cards in commercial funnels default to +3 business
// days from now; for non-commercial funnels the derived activity is a
// private internal note instead of a customer-facing follow-up.
func (s *ActivityService) ScheduleFollowUp(ctx context.Context, cardID, description string, dueDate *time.Time) (*models.Activity, error) {
	card, err := s.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, errors.NewNotFoundError("card", cardID)
	}

	funnel, err := s.funnels.GetFunnel(ctx, card.FunnelID)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		CardID:      &card.ID,
		Description: description,
		Status:      constants.ActivityStatusPending,
	}

	commercial := funnel != nil && isCommercialFunnel(funnel.Name)
	switch {
	case dueDate != nil:
		activity.Type = constants.ActivityTypeFollowUp
		activity.ScheduledDate = dueDate
	case commercial:
		due := NextBusinessDays(s.now(), constants.FollowUpBusinessDays)
		activity.Type = constants.ActivityTypeFollowUp
		activity.ScheduledDate = &due
	default:
		activity.Type = constants.ActivityTypeNote
		activity.IsPrivate = true
	}

	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// Postpone moves an activity's scheduled date forward, either to an
// explicitly chosen date or to the next business day, and marks it
// postponed.
func (s *ActivityService) Postpone(ctx context.Context, activityID string, newDate *time.Time) (*models.Activity, error) {
	activity, err := s.loadOpenActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	if newDate != nil {
		activity.ScheduledDate = newDate
	} else {
		base := s.now()
		if activity.ScheduledDate != nil && activity.ScheduledDate.After(base) {
			base = *activity.ScheduledDate
		}
		next := NextBusinessDays(base, 1)
		activity.ScheduledDate = &next
	}
	activity.Status = constants.ActivityStatusPostponed

	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// Reopen moves a postponed activity back to pending
func (s *ActivityService) Reopen(ctx context.Context, activityID string) (*models.Activity, error) {
	activity, err := s.getActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Status != constants.ActivityStatusPostponed {
		return nil, errors.NewValidationError("status", "only postponed activities can re-enter pending")
	}
	activity.Status = constants.ActivityStatusPending
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// Complete marks an activity completed. When markCardWon is set (an
// explicit, user-confirmed choice, never automatic) the parent card is
// moved to the won state as well.
func (s *ActivityService) Complete(ctx context.Context, activityID string, markCardWon bool) (*models.Activity, error) {
	activity, err := s.loadOpenActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	activity.Status = constants.ActivityStatusCompleted
	activity.CompletedDate = &now

	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}

	if markCardWon && activity.CardID != nil {
		if err := s.cards.SetState(ctx, *activity.CardID, constants.CardStateWon); err != nil {
			return nil, err
		}
	}
	return activity, nil
}

// Cancel marks an activity canceled
func (s *ActivityService) Cancel(ctx context.Context, activityID string) (*models.Activity, error) {
	activity, err := s.loadOpenActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	activity.Status = constants.ActivityStatusCanceled
	if err := s.activities.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// CreateStandalone creates an activity not linked to any card
func (s *ActivityService) CreateStandalone(ctx context.Context, activityType, description string, scheduledDate *time.Time, private bool) (*models.Activity, error) {
	activity := &models.Activity{
		Type:          activityType,
		Description:   description,
		ScheduledDate: scheduledDate,
		Status:        constants.ActivityStatusPending,
		IsPrivate:     private,
	}
	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// ListByCard returns a card's activities
func (s *ActivityService) ListByCard(ctx context.Context, cardID string) ([]models.Activity, error) {
	return s.activities.ListByCard(ctx, cardID)
}

func (s *ActivityService) getActivity(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.activities.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, errors.NewNotFoundError("activity", id)
	}
	return activity, nil
}

// loadOpenActivity fetches an activity and rejects terminal states
func (s *ActivityService) loadOpenActivity(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.getActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	switch activity.Status {
	case constants.ActivityStatusCompleted, constants.ActivityStatusCanceled:
		return nil, errors.NewValidationError("status", "activity is already "+activity.Status)
	}
	return activity, nil
}

// NextBusinessDays advances from the given time by n business days,
// skipping Saturdays and Sundays. Friday +3 lands on Wednesday.
func NextBusinessDays(from time.Time, n int) time.Time {
	d := from
	for i := 0; i < n; i++ {
		d = d.AddDate(0, 0, 1)
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
	}
	return d
}

// isCommercialFunnel reports whether a funnel name marks a commercial
// pipeline, matching either spelling case-insensitively.
func isCommercialFunnel(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, constants.CommercialFunnelKeyword) ||
		strings.Contains(lower, "commercial")
}
