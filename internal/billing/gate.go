// Package billing moves money for workflow transitions: base letter
// charge, wet-stamp add-on, re-stamp fees, and the wet-stamp refund.
// Role exemptions are decided by callers; the gate only charges who it
// is told to charge.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/db"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

var (
	ErrInsufficientBalance = errors.New("insufficient account balance")
	ErrServiceNotFound     = errors.New("service not found")
)

// Gate charges and refunds account balances. All mutations join the
// caller's transaction via the context.
type Gate struct {
	db *db.DB
}

func NewGate(database *db.DB) *Gate {
	return &Gate{db: database}
}

// ServicePrice resolves the current price for a service slug. Prices are
// read at call time, never cached on the project.
func (g *Gate) ServicePrice(ctx context.Context, slug string) (int64, error) {
	const q = `SELECT price_cents FROM services WHERE slug = $1;`

	var cents int64
	err := g.db.Q(ctx).QueryRow(ctx, q, slug).Scan(&cents)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrServiceNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("service price %q: %w", slug, err)
	}
	return cents, nil
}

// PayForProject deducts the project's base price from the actor's
// billing account.
func (g *Gate) PayForProject(ctx context.Context, actor auth.Actor, p *domain.Project) error {
	return g.deduct(ctx, actor.BillingAccountID(), p.PriceCents)
}

// PayForService deducts the service's current price from the actor's
// billing account.
func (g *Gate) PayForService(ctx context.Context, actor auth.Actor, slug string, _ *domain.Project) error {
	cents, err := g.ServicePrice(ctx, slug)
	if err != nil {
		return err
	}
	return g.deduct(ctx, actor.BillingAccountID(), cents)
}

// Refund credits cents back to the given billing account.
func (g *Gate) Refund(ctx context.Context, accountID string, cents int64) error {
	const q = `
UPDATE balances
SET balance_cents = balance_cents + $2, updated_at = now()
WHERE account_id = $1;
`
	tag, err := g.db.Q(ctx).Exec(ctx, q, accountID, cents)
	if err != nil {
		return fmt.Errorf("refund balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("refund balance: account %s not found", accountID)
	}
	return nil
}

// deduct takes cents from the account, failing with
// ErrInsufficientBalance when the balance does not cover the charge.
func (g *Gate) deduct(ctx context.Context, accountID string, cents int64) error {
	const q = `
UPDATE balances
SET balance_cents = balance_cents - $2, updated_at = now()
WHERE account_id = $1 AND balance_cents >= $2;
`
	tag, err := g.db.Q(ctx).Exec(ctx, q, accountID, cents)
	if err != nil {
		return fmt.Errorf("deduct balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientBalance
	}
	return nil
}
