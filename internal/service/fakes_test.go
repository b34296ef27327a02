package service

import (
	"context"
	"fmt"
	"time"

	"agreepay/internal/domain"
)

// In-memory doubles mirroring the repository contracts, wallet balances
// included, so the pay/refund flows can be exercised end to end.

type fakeAgreements struct {
	byID map[string]*domain.Agreement
}

func newFakeAgreements(agreements ...*domain.Agreement) *fakeAgreements {
	f := &fakeAgreements{byID: make(map[string]*domain.Agreement)}
	for _, a := range agreements {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAgreements) FindByIDOrCode(_ context.Context, key string) (*domain.Agreement, error) {
	if a, ok := f.byID[key]; ok {
		return a, nil
	}
	for _, a := range f.byID {
		if a.Code == key {
			return a, nil
		}
	}
	return nil, domain.ErrAgreementNotFound
}

func (f *fakeAgreements) CacheTotal(_ context.Context, agreementID string, total float64) error {
	if a, ok := f.byID[agreementID]; ok {
		a.TotalAmount = total
	}
	return nil
}

func (f *fakeAgreements) UpdatePaymentStatus(_ context.Context, agreementID string, status domain.PaymentStatus) error {
	if a, ok := f.byID[agreementID]; ok {
		a.PaymentStatus = status
	}
	return nil
}

type fakeDistributions struct {
	agreements *fakeAgreements
	stored     map[string]*domain.Distribution
}

func newFakeDistributions(agreements *fakeAgreements) *fakeDistributions {
	return &fakeDistributions{
		agreements: agreements,
		stored:     make(map[string]*domain.Distribution),
	}
}

func (f *fakeDistributions) Get(_ context.Context, agreementID string) (*domain.Distribution, error) {
	d, ok := f.stored[agreementID]
	if !ok {
		return nil, nil
	}
	cp := *d
	cp.Entries = append([]domain.DistributionEntry(nil), d.Entries...)
	return &cp, nil
}

func (f *fakeDistributions) Replace(_ context.Context, d *domain.Distribution, status domain.PaymentStatus) error {
	cp := *d
	cp.Entries = append([]domain.DistributionEntry(nil), d.Entries...)
	f.stored[d.AgreementID] = &cp
	return f.agreements.UpdatePaymentStatus(context.Background(), d.AgreementID, status)
}

type fakePayments struct {
	agreements *fakeAgreements
	dists      *fakeDistributions

	wallets map[int64]float64
	records []domain.Payment
	nextID  int
}

func newFakePayments(agreements *fakeAgreements, dists *fakeDistributions) *fakePayments {
	return &fakePayments{
		agreements: agreements,
		dists:      dists,
		wallets:    make(map[int64]float64),
	}
}

func (f *fakePayments) ListByAgreement(_ context.Context, agreementID string) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range f.records {
		if p.AgreementID == agreementID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) HasCompleted(_ context.Context, agreementID string, userID int64, minAmount float64) (bool, error) {
	for _, p := range f.records {
		if p.AgreementID == agreementID && p.UserID == userID &&
			p.Status == domain.PaymentRecordCompleted && p.Amount >= minAmount-0.005 {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePayments) ExecutePayment(ctx context.Context, agreementID string, userID int64, entry domain.DistributionEntry) (*domain.Payment, error) {
	if entry.Amount > 0 {
		balance, ok := f.wallets[userID]
		if !ok {
			return nil, domain.ErrInsufficientFunds
		}

		dup, _ := f.HasCompleted(ctx, agreementID, userID, entry.Amount)
		if dup {
			return nil, domain.ErrAlreadyPaid
		}

		if balance < entry.Amount {
			return nil, domain.ErrInsufficientFunds
		}
		f.wallets[userID] = balance - entry.Amount
	}

	f.nextID++
	now := time.Now()
	payment := domain.Payment{
		ID:            fmt.Sprintf("pay-%d", f.nextID),
		AgreementID:   agreementID,
		UserID:        userID,
		Amount:        entry.Amount,
		Percentage:    entry.Percentage,
		Status:        domain.PaymentRecordCompleted,
		PaymentMethod: "wallet",
		TransactionID: fmt.Sprintf("tx-%d", f.nextID),
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}
	f.records = append(f.records, payment)

	if err := f.RefreshAggregate(ctx, agreementID); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (f *fakePayments) Refund(ctx context.Context, paymentID string, userID int64) (*domain.Payment, error) {
	for i := range f.records {
		p := &f.records[i]
		if p.ID != paymentID {
			continue
		}
		if p.UserID != userID || p.Status != domain.PaymentRecordCompleted {
			return nil, domain.ErrNotRefundable
		}

		p.Status = domain.PaymentRecordRefunded
		if p.Amount > 0 {
			f.wallets[p.UserID] += p.Amount
		}

		if err := f.RefreshAggregate(ctx, p.AgreementID); err != nil {
			return nil, err
		}
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (f *fakePayments) RefreshAggregate(ctx context.Context, agreementID string) error {
	dist, ok := f.dists.stored[agreementID]
	if !ok {
		return nil
	}

	satisfied := true
	for _, e := range dist.Entries {
		if e.Amount <= 0 {
			continue
		}
		covered, _ := f.HasCompleted(ctx, agreementID, e.UserID, e.Amount)
		if !covered {
			satisfied = false
			break
		}
	}

	status := domain.PaymentDistributed
	if satisfied {
		status = domain.PaymentCompleted
	}
	return f.agreements.UpdatePaymentStatus(ctx, agreementID, status)
}

type fakePricing struct {
	active *domain.PricingConfig
}

func (f *fakePricing) GetActive(_ context.Context) (*domain.PricingConfig, error) {
	return f.active, nil
}

func (f *fakePricing) Update(_ context.Context, dailyRate float64, userID int64) (*domain.PricingConfig, error) {
	now := time.Now()
	f.active = &domain.PricingConfig{
		ID:        fmt.Sprintf("pc-%d", now.UnixNano()),
		DailyRate: dailyRate,
		IsActive:  true,
		CreatedBy: &userID,
		UpdatedBy: &userID,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	return f.active, nil
}

// sevenDayAgreement is the common fixture: two participants, 7 days, user 1
// primary, default rate makes the total 7.00.
func sevenDayAgreement() *domain.Agreement {
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	return &domain.Agreement{
		ID:            "agr-1",
		Code:          "AB12CD34",
		Name:          "Consulting agreement",
		PrimaryUserID: 1,
		Participants:  []int64{1, 2},
		StartDate:     &start,
		EndDate:       &end,
		Status:        "active",
		PaymentStatus: domain.PaymentNotSetup,
	}
}

type fixture struct {
	agreements *fakeAgreements
	dists      *fakeDistributions
	payments   *fakePayments
	pricing    *PricingService

	distribution *DistributionService
	payment      *PaymentService
}

func newFixture(agreements ...*domain.Agreement) *fixture {
	fa := newFakeAgreements(agreements...)
	fd := newFakeDistributions(fa)
	fp := newFakePayments(fa, fd)
	pricing := NewPricingService(&fakePricing{}, nil)

	return &fixture{
		agreements:   fa,
		dists:        fd,
		payments:     fp,
		pricing:      pricing,
		distribution: NewDistributionService(fa, fd, fp, pricing),
		payment:      NewPaymentService(fa, fd, fp, pricing, nil),
	}
}
