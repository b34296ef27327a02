package repository

import (
	"context"
	"database/sql"
	"errors"

	"agreepay/internal/domain"

	"github.com/google/uuid"
)

type PricingRepository struct {
	db *sql.DB
}

func NewPricingRepository(db *sql.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetActive returns the newest active pricing config, or nil when the rate
// has never been configured.
func (r *PricingRepository) GetActive(ctx context.Context) (*domain.PricingConfig, error) {
	var p domain.PricingConfig
	var createdBy, updatedBy sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, daily_rate, is_active, created_by, updated_by, created_at, updated_at
		FROM pricing_config
		WHERE is_active = TRUE
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&p.ID, &p.DailyRate, &p.IsActive, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		p.CreatedBy = &createdBy.Int64
	}
	if updatedBy.Valid {
		p.UpdatedBy = &updatedBy.Int64
	}
	return &p, nil
}

// Update deactivates all previous configs and inserts the new active one,
// recording who changed it. Rows are never deleted.
func (r *PricingRepository) Update(ctx context.Context, dailyRate float64, userID int64) (*domain.PricingConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE pricing_config SET is_active = FALSE, updated_by = $1, updated_at = now()
		WHERE is_active = TRUE
	`, userID)
	if err != nil {
		return nil, err
	}

	p := &domain.PricingConfig{
		ID:        uuid.NewString(),
		DailyRate: dailyRate,
		IsActive:  true,
		CreatedBy: &userID,
		UpdatedBy: &userID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO pricing_config (id, daily_rate, is_active, created_by, updated_by)
		VALUES ($1, $2, TRUE, $3, $3)
		RETURNING created_at, updated_at
	`, p.ID, p.DailyRate, userID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}
