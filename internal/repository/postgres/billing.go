package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/huddlehq/huddle/internal/domain"
	"github.com/huddlehq/huddle/internal/repository"
)

// GetBillingAccountByOwner fetches the billing account keyed by owner.
func (r *Repository) GetBillingAccountByOwner(ctx context.Context, ownerKind, ownerID string) (*domain.BillingAccount, error) {
	const query = `SELECT id, owner_kind, owner_id, billing_status, grace_period_end, updated_at
		FROM billing_accounts WHERE owner_kind = $1 AND owner_id = $2`
	row := r.pool.QueryRow(ctx, query, ownerKind, ownerID)
	var a domain.BillingAccount
	if err := row.Scan(&a.ID, &a.OwnerKind, &a.OwnerID, &a.BillingStatus, &a.GracePeriodEnd, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// CreateBillingAccount provisions a billing account for a new owner.
func (r *Repository) CreateBillingAccount(ctx context.Context, account *domain.BillingAccount) error {
	const query = `INSERT INTO billing_accounts (id, owner_kind, owner_id, billing_status, grace_period_end, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_kind, owner_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, account.ID, account.OwnerKind, account.OwnerID, account.BillingStatus, account.GracePeriodEnd, account.UpdatedAt)
	return err
}

// UpdateBillingStatus applies a provider-driven status transition.
func (r *Repository) UpdateBillingStatus(ctx context.Context, accountID, status string, gracePeriodEnd *time.Time) error {
	const query = `UPDATE billing_accounts SET billing_status = $2, grace_period_end = $3, updated_at = $4
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, accountID, status, gracePeriodEnd, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
