package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"agreepay/internal/domain"

	"github.com/google/uuid"
)

type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetOrCreate returns the user's wallet, provisioning a zero-balance one on
// first access.
func (r *WalletRepository) GetOrCreate(ctx context.Context, userID int64) (*domain.Wallet, error) {
	w, err := r.get(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, userID)
}

func (r *WalletRepository) get(ctx context.Context, userID int64) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, balance, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// AddFunds credits the wallet and writes the matching ledger entry.
func (r *WalletRepository) AddFunds(ctx context.Context, userID int64, amount float64) (*domain.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			balance = wallets.balance + EXCLUDED.balance,
			updated_at = now()
	`, userID, amount)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Added %.2f coins to wallet", amount)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), userID, string(domain.WalletCredit), amount, desc)
	if err != nil {
		return nil, err
	}

	var w domain.Wallet
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) ListTransactions(ctx context.Context, userID int64) ([]domain.WalletTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, description, payment_id, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WalletTransaction
	for rows.Next() {
		var t domain.WalletTransaction
		var paymentID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Description, &paymentID, &t.CreatedAt); err != nil {
			return nil, err
		}
		if paymentID.Valid {
			t.PaymentID = &paymentID.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
