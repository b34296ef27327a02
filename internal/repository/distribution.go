package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"agreepay/internal/domain"
)

type DistributionRepository struct {
	db *sql.DB
}

func NewDistributionRepository(db *sql.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// Get returns the stored distribution for an agreement, or nil when none has
// been set up yet.
func (r *DistributionRepository) Get(ctx context.Context, agreementID string) (*domain.Distribution, error) {
	var d domain.Distribution
	var entries []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT agreement_id, total_amount, duration_days, entries, created_at, updated_at
		FROM payment_distributions
		WHERE agreement_id = $1
	`, agreementID).Scan(
		&d.AgreementID,
		&d.TotalAmount,
		&d.DurationDays,
		&entries,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entries, &d.Entries); err != nil {
		return nil, fmt.Errorf("decode distribution entries: %w", err)
	}
	return &d, nil
}

// Replace overwrites the distribution wholesale and moves the agreement's
// aggregate status in the same transaction. The agreement row is locked first
// so concurrent setups serialize per agreement instead of interleaving.
func (r *DistributionRepository) Replace(ctx context.Context, d *domain.Distribution, status domain.PaymentStatus) error {
	entries, err := json.Marshal(d.Entries)
	if err != nil {
		return fmt.Errorf("encode distribution entries: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM agreements WHERE id = $1 FOR UPDATE`, d.AgreementID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrAgreementNotFound
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_distributions (agreement_id, total_amount, duration_days, entries)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agreement_id) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			duration_days = EXCLUDED.duration_days,
			entries = EXCLUDED.entries,
			updated_at = now()
	`, d.AgreementID, d.TotalAmount, d.DurationDays, entries)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE agreements SET payment_status = $2, updated_at = now()
		WHERE id = $1
	`, d.AgreementID, string(status))
	if err != nil {
		return err
	}

	return tx.Commit()
}
