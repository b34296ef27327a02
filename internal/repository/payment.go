package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agreepay/internal/domain"

	"github.com/google/uuid"
)

// amountEpsilon absorbs float drift when comparing paid vs assigned amounts.
const amountEpsilon = 0.005

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) ListByAgreement(ctx context.Context, agreementID string) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, agreement_id, user_id, amount, percentage, status,
		       payment_method, transaction_id, created_at, updated_at
		FROM payments
		WHERE agreement_id = $1
		ORDER BY created_at DESC
	`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(
			&p.ID,
			&p.AgreementID,
			&p.UserID,
			&p.Amount,
			&p.Percentage,
			&p.Status,
			&p.PaymentMethod,
			&p.TransactionID,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasCompleted reports whether the participant already holds a completed
// record covering at least minAmount.
func (r *PaymentRepository) HasCompleted(ctx context.Context, agreementID string, userID int64, minAmount float64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE agreement_id = $1 AND user_id = $2
			  AND status = 'completed' AND amount >= $3
		)
	`, agreementID, userID, minAmount-amountEpsilon).Scan(&exists)
	return exists, err
}

// ExecutePayment runs the whole pay critical section as one transaction:
// lock the payer's wallet row, re-check balance and duplicates under the
// lock, debit, write the payment record plus its ledger entry, and refresh
// the agreement's aggregate status. Concurrent pays for the same participant
// serialize on the wallet row; different participants do not block each other.
func (r *PaymentRepository) ExecutePayment(ctx context.Context, agreementID string, userID int64, entry domain.DistributionEntry) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if entry.Amount > 0 {
		var balance float64
		err = tx.QueryRowContext(ctx,
			`SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID,
		).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInsufficientFunds
		}
		if err != nil {
			return nil, err
		}

		var dup bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM payments
				WHERE agreement_id = $1 AND user_id = $2
				  AND status = 'completed' AND amount >= $3
			)
		`, agreementID, userID, entry.Amount-amountEpsilon).Scan(&dup)
		if err != nil {
			return nil, err
		}
		if dup {
			return nil, domain.ErrAlreadyPaid
		}

		if balance < entry.Amount {
			return nil, domain.ErrInsufficientFunds
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE wallets SET balance = balance - $2, updated_at = now()
			WHERE user_id = $1
		`, userID, entry.Amount)
		if err != nil {
			return nil, err
		}
	}

	payment := &domain.Payment{
		ID:            uuid.NewString(),
		AgreementID:   agreementID,
		UserID:        userID,
		Amount:        entry.Amount,
		Percentage:    entry.Percentage,
		Status:        domain.PaymentRecordCompleted,
		PaymentMethod: "wallet",
		TransactionID: uuid.NewString(),
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO payments (id, agreement_id, user_id, amount, percentage, status, payment_method, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`,
		payment.ID,
		payment.AgreementID,
		payment.UserID,
		payment.Amount,
		payment.Percentage,
		string(payment.Status),
		payment.PaymentMethod,
		payment.TransactionID,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		// the partial unique index catches a lost duplicate race
		return nil, translateDuplicate(err)
	}

	if entry.Amount > 0 {
		desc := fmt.Sprintf("Payment for agreement %s - %.2f%%", agreementID, entry.Percentage)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (id, user_id, type, amount, description, payment_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), userID, string(domain.WalletPayment), -entry.Amount, desc, payment.ID)
		if err != nil {
			return nil, translateDuplicate(err)
		}
	}

	if err := r.refreshAggregateTx(ctx, tx, agreementID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return payment, nil
}

// Refund flips a completed record to refunded, credits the wallet back and
// recomputes the aggregate status, all in one transaction.
func (r *PaymentRepository) Refund(ctx context.Context, paymentID string, userID int64) (*domain.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var p domain.Payment
	err = tx.QueryRowContext(ctx, `
		SELECT id, agreement_id, user_id, amount, percentage, status,
		       payment_method, transaction_id, created_at, updated_at
		FROM payments
		WHERE id = $1
		FOR UPDATE
	`, paymentID).Scan(
		&p.ID,
		&p.AgreementID,
		&p.UserID,
		&p.Amount,
		&p.Percentage,
		&p.Status,
		&p.PaymentMethod,
		&p.TransactionID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.UserID != userID {
		return nil, domain.ErrNotRefundable
	}
	if p.Status != domain.PaymentRecordCompleted {
		return nil, domain.ErrNotRefundable
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments SET status = 'refunded', updated_at = now()
		WHERE id = $1
	`, p.ID)
	if err != nil {
		return nil, err
	}

	if p.Amount > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET
				balance = wallets.balance + EXCLUDED.balance,
				updated_at = now()
		`, p.UserID, p.Amount)
		if err != nil {
			return nil, err
		}

		desc := fmt.Sprintf("Refund for agreement %s", p.AgreementID)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallet_transactions (id, user_id, type, amount, description, payment_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), p.UserID, string(domain.WalletRefund), p.Amount, desc, p.ID)
		if err != nil {
			return nil, translateDuplicate(err)
		}
	}

	if err := r.refreshAggregateTx(ctx, tx, p.AgreementID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	p.Status = domain.PaymentRecordRefunded
	return &p, nil
}

// RefreshAggregate recomputes the agreement aggregate outside any pay/refund
// flow, e.g. after a distribution setup that requires zero payments.
func (r *PaymentRepository) RefreshAggregate(ctx context.Context, agreementID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := r.refreshAggregateTx(ctx, tx, agreementID); err != nil {
		return err
	}
	return tx.Commit()
}

// refreshAggregateTx applies the cross-entity invariant: completed iff every
// entry of the current distribution is covered by a completed record of at
// least the assigned amount. Without a stored distribution nothing changes.
func (r *PaymentRepository) refreshAggregateTx(ctx context.Context, tx *sql.Tx, agreementID string) error {
	var raw []byte
	err := tx.QueryRowContext(ctx,
		`SELECT entries FROM payment_distributions WHERE agreement_id = $1`, agreementID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	var entries []domain.DistributionEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode distribution entries: %w", err)
	}

	satisfied := true
	for _, e := range entries {
		if e.Amount <= 0 {
			continue
		}
		var covered bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM payments
				WHERE agreement_id = $1 AND user_id = $2
				  AND status = 'completed' AND amount >= $3
			)
		`, agreementID, e.UserID, e.Amount-amountEpsilon).Scan(&covered)
		if err != nil {
			return err
		}
		if !covered {
			satisfied = false
			break
		}
	}

	status := domain.PaymentDistributed
	if satisfied {
		status = domain.PaymentCompleted
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE agreements SET payment_status = $2, updated_at = now()
		WHERE id = $1
	`, agreementID, string(status))
	return err
}

func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	// unique_violation from the completed-once or idempotency indexes
	msg := err.Error()
	if strings.Contains(msg, "payments_completed_once") || strings.Contains(msg, "wallet_tx_idempotency") {
		return domain.ErrAlreadyPaid
	}
	return err
}
