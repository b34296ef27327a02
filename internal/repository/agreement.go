package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"agreepay/internal/domain"

	"github.com/google/uuid"
)

type AgreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

// FindByIDOrCode resolves either the canonical uuid or the short public code
// to one agreement. Callers downstream only ever see the canonical entity.
func (r *AgreementRepository) FindByIDOrCode(ctx context.Context, key string) (*domain.Agreement, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrAgreementNotFound
	}

	query := `
		SELECT id, code, name, primary_user_id, start_date, end_date,
		       status, payment_status, total_amount, created_at, updated_at
		FROM agreements
		WHERE id = $1
	`
	args := []any{key}
	if _, err := uuid.Parse(key); err != nil {
		// not a uuid, look up by public code instead
		query = strings.Replace(query, "WHERE id = $1", "WHERE code = $1", 1)
		args[0] = strings.ToUpper(key)
	}

	var a domain.Agreement
	var startDate, endDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&a.Code,
		&a.Name,
		&a.PrimaryUserID,
		&startDate,
		&endDate,
		&a.Status,
		&a.PaymentStatus,
		&a.TotalAmount,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAgreementNotFound
	}
	if err != nil {
		return nil, err
	}

	if startDate.Valid {
		a.StartDate = &startDate.Time
	}
	if endDate.Valid {
		a.EndDate = &endDate.Time
	}

	participants, err := r.listParticipants(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Participants = participants

	return &a, nil
}

func (r *AgreementRepository) listParticipants(ctx context.Context, agreementID string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM agreement_participants
		WHERE agreement_id = $1
		ORDER BY position ASC
	`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CacheTotal writes back the derived total so other consumers of the
// agreement record see it without recomputing.
func (r *AgreementRepository) CacheTotal(ctx context.Context, agreementID string, total float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE agreements SET total_amount = $2, updated_at = now()
		WHERE id = $1
	`, agreementID, total)
	return err
}

func (r *AgreementRepository) UpdatePaymentStatus(ctx context.Context, agreementID string, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE agreements SET payment_status = $2, updated_at = now()
		WHERE id = $1
	`, agreementID, string(status))
	return err
}
