package service

import (
	"context"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// StoreWetStampRequest charges the wet-stamp service and records the
// delivery address on an already finalized project. Engineers acting on
// a client's behalf are not billed.
func (s *Service) StoreWetStampRequest(ctx context.Context, actor auth.Actor, projectID int64, in ShippingInput) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}

		if !actor.HasRole(auth.RolePzseEngineer) {
			if err := s.payments.PayForService(ctx, actor, domain.ServiceWetStamp, p); err != nil {
				return err
			}
		}
		if err := s.store.SetWetSignRequested(ctx, p.ID, domain.WetSignRequested); err != nil {
			return err
		}
		if err := s.recordShipping(ctx, actor, p.ID, in); err != nil {
			return err
		}

		s.publish(ctx, events.WetStampRequested, p.ID, actor.ID)
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// UpdateWetStampRequest replaces the delivery details of a pending
// request. Switching to a saved profile detaches the ad-hoc one.
func (s *Service) UpdateWetStampRequest(ctx context.Context, actor auth.Actor, projectID int64, profileID int64, in ShippingInput) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Meta.WetSignRequested != domain.WetSignRequested {
			return domain.ErrShippingNotFound
		}

		if in.ProfileID != nil && *in.ProfileID != profileID {
			if err := s.store.DetachShippingProfile(ctx, profileID); err != nil {
				return err
			}
			return s.recordShipping(ctx, actor, p.ID, in)
		}

		sp, err := s.store.ShippingProfileByID(ctx, profileID)
		if err != nil {
			return err
		}
		sp.Name = in.Name
		sp.Address = in.Address
		sp.City = in.City
		sp.State = in.State
		sp.Zip = in.Zip
		sp.Phone = in.Phone
		if in.Save {
			sp.Regular = true
		}
		return s.store.UpdateShippingProfile(ctx, sp)
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

// CancelWetStampRequest withdraws a pending request and refunds the
// wet-stamp price at its current rate to the billing account. Engineer
// cancellations refund nothing because nothing was charged.
func (s *Service) CancelWetStampRequest(ctx context.Context, actor auth.Actor, projectID int64) error {
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		p, err := s.store.ProjectWithMeta(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Meta.WetSignRequested != domain.WetSignRequested {
			return domain.ErrShippingNotFound
		}

		if err := s.store.SetWetSignRequested(ctx, p.ID, domain.WetSignCancelled); err != nil {
			return err
		}

		if !actor.HasRole(auth.RolePzseEngineer) {
			price, err := s.payments.ServicePrice(ctx, domain.ServiceWetStamp)
			if err != nil {
				return err
			}
			if err := s.payments.Refund(ctx, actor.BillingAccountID(), price); err != nil {
				return err
			}
		}

		s.publish(ctx, events.WetStampCancelled, p.ID, actor.ID)
		return nil
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}
