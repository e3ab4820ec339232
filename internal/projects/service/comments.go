package service

import (
	"context"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

type CommentInput struct {
	Notes     string
	PlanCheck bool
}

// AddComment records a comment on the project. A plan-check comment also
// moves the project into the plan-check status.
func (s *Service) AddComment(ctx context.Context, actor auth.Actor, projectID int64, in CommentInput) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectByID(ctx, projectID)
		if err != nil {
			return err
		}

		if in.PlanCheck {
			if err := s.store.SetStatus(ctx, p.ID, domain.StatusPlanCheckComments); err != nil {
				return err
			}
		}

		comment := &domain.Comment{
			ProjectID:   p.ID,
			CommentedBy: actor.ID,
			Notes:       in.Notes,
		}
		if err := s.store.CreateComment(ctx, comment); err != nil {
			return err
		}

		s.publish(ctx, events.SelectCommentEvent(actor, in.PlanCheck), p.ID, actor.ID)
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}
