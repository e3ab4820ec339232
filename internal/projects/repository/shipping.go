package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

func (s *Store) CreateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error {
	err := s.db.Q(ctx).QueryRow(ctx, `
		INSERT INTO shipping_profiles (account_id, name, address, city, state, zip, phone, regular)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		sp.AccountID, sp.Name, sp.Address, sp.City, sp.State, sp.Zip, sp.Phone, sp.Regular,
	).Scan(&sp.ID, &sp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert shipping profile: %w", err)
	}
	return nil
}

func (s *Store) ShippingProfileByID(ctx context.Context, id int64) (*domain.ShippingProfile, error) {
	var sp domain.ShippingProfile
	err := s.db.Q(ctx).QueryRow(ctx, `
		SELECT id, account_id, name, address, city, state, zip, phone, regular, created_at
		FROM shipping_profiles WHERE id = $1`,
		id).Scan(&sp.ID, &sp.AccountID, &sp.Name, &sp.Address, &sp.City, &sp.State,
		&sp.Zip, &sp.Phone, &sp.Regular, &sp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrShippingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("shipping profile %d: %w", id, err)
	}
	return &sp, nil
}

func (s *Store) UpdateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE shipping_profiles
		SET name = $2, address = $3, city = $4, state = $5, zip = $6, phone = $7, regular = $8
		WHERE id = $1`,
		sp.ID, sp.Name, sp.Address, sp.City, sp.State, sp.Zip, sp.Phone, sp.Regular)
	if err != nil {
		return fmt.Errorf("update shipping profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShippingNotFound
	}
	return nil
}

func (s *Store) AttachShippingProfile(ctx context.Context, projectID, profileID int64) error {
	_, err := s.db.Q(ctx).Exec(ctx, `
		INSERT INTO project_shipping (project_id, profile_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id) DO UPDATE SET profile_id = EXCLUDED.profile_id`,
		projectID, profileID)
	if err != nil {
		return fmt.Errorf("attach shipping profile: %w", err)
	}
	return nil
}

func (s *Store) DetachShippingProfile(ctx context.Context, profileID int64) error {
	_, err := s.db.Q(ctx).Exec(ctx,
		`DELETE FROM project_shipping WHERE profile_id = $1`, profileID)
	if err != nil {
		return fmt.Errorf("detach shipping profile: %w", err)
	}
	return nil
}

func (s *Store) UpdateShippingTracking(ctx context.Context, projectID int64, trackingNumber, notes string) error {
	tag, err := s.db.Q(ctx).Exec(ctx, `
		UPDATE project_shipping SET tracking_number = $2, tracking_notes = $3
		WHERE project_id = $1`,
		projectID, trackingNumber, notes)
	if err != nil {
		return fmt.Errorf("update shipping tracking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShippingNotFound
	}
	return nil
}
