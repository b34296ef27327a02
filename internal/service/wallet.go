package service

import (
	"context"
	"fmt"

	"agreepay/internal/domain"
)

// maxTopUp caps a single add-funds operation.
const maxTopUp = 10000.0

type WalletRepository interface {
	GetOrCreate(ctx context.Context, userID int64) (*domain.Wallet, error)
	AddFunds(ctx context.Context, userID int64, amount float64) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, userID int64) ([]domain.WalletTransaction, error)
}

type WalletService struct {
	repo WalletRepository
}

func NewWalletService(repo WalletRepository) *WalletService {
	return &WalletService{repo: repo}
}

func (s *WalletService) Balance(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

func (s *WalletService) AddFunds(ctx context.Context, userID int64, amount float64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if amount > maxTopUp {
		return nil, &ValidationError{Field: "amount", Message: fmt.Sprintf("amount must not exceed %.0f", maxTopUp)}
	}
	return s.repo.AddFunds(ctx, userID, amount)
}

func (s *WalletService) Transactions(ctx context.Context, userID int64) ([]domain.WalletTransaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}
