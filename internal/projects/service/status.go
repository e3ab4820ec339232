package service

import (
	"context"
	"fmt"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

type StatusInput struct {
	Status         string
	TrackingNumber string
	TrackingNotes  string
}

// ChangeStatus sets the project status directly. Staff use it to release
// reviewed projects; shipment tracking may be recorded alongside.
func (s *Service) ChangeStatus(ctx context.Context, actor auth.Actor, projectID int64, in StatusInput) error {
	if !domain.ValidStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrOperationFailed, in.Status)
	}

	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectByID(ctx, projectID)
		if err != nil {
			return err
		}

		if err := s.store.SetStatus(ctx, p.ID, in.Status); err != nil {
			return err
		}
		if in.TrackingNumber != "" {
			if err := s.store.UpdateShippingTracking(ctx, p.ID, in.TrackingNumber, in.TrackingNotes); err != nil {
				return err
			}
		}

		s.publish(ctx, events.ProjectStatusChanged, p.ID, actor.ID)
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}
