package service

import (
	"context"
	"fmt"
	"math"

	"agreepay/internal/domain"
)

type AgreementRepository interface {
	FindByIDOrCode(ctx context.Context, key string) (*domain.Agreement, error)
	CacheTotal(ctx context.Context, agreementID string, total float64) error
	UpdatePaymentStatus(ctx context.Context, agreementID string, status domain.PaymentStatus) error
}

type DistributionRepository interface {
	Get(ctx context.Context, agreementID string) (*domain.Distribution, error)
	Replace(ctx context.Context, d *domain.Distribution, status domain.PaymentStatus) error
}

// ValidationError carries a field-level rejection; nothing is written when
// one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ShareInput is one requested participant share; amounts are never accepted
// from callers, they are always derived here.
type ShareInput struct {
	UserID     int64
	Percentage float64
}

type DistributionService struct {
	agreements AgreementRepository
	dists      DistributionRepository
	payments   AggregateRefresher
	pricing    *PricingService
}

// AggregateRefresher re-evaluates the agreement's aggregate payment status
// after a distribution write (a zero-amount split can complete immediately).
type AggregateRefresher interface {
	RefreshAggregate(ctx context.Context, agreementID string) error
}

func NewDistributionService(
	agreements AgreementRepository,
	dists DistributionRepository,
	payments AggregateRefresher,
	pricing *PricingService,
) *DistributionService {
	return &DistributionService{
		agreements: agreements,
		dists:      dists,
		payments:   payments,
		pricing:    pricing,
	}
}

func (s *DistributionService) resolve(ctx context.Context, key string, userID int64) (*domain.Agreement, error) {
	agreement, err := s.agreements.FindByIDOrCode(ctx, key)
	if err != nil {
		return nil, err
	}
	if !agreement.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return agreement, nil
}

// GetOrDefault returns the stored distribution, or a synthesized equal split
// over the current participants. The default is never persisted here, so
// repeated reads before an explicit setup always agree.
func (s *DistributionService) GetOrDefault(ctx context.Context, agreement *domain.Agreement, totalAmount float64, durationDays int) (*domain.Distribution, bool, error) {
	return distributionOrDefault(ctx, s.dists, agreement, totalAmount, durationDays)
}

func distributionOrDefault(ctx context.Context, dists DistributionRepository, agreement *domain.Agreement, totalAmount float64, durationDays int) (*domain.Distribution, bool, error) {
	stored, err := dists.Get(ctx, agreement.ID)
	if err != nil {
		return nil, false, err
	}
	if stored != nil {
		return stored, true, nil
	}

	return &domain.Distribution{
		AgreementID:  agreement.ID,
		TotalAmount:  totalAmount,
		DurationDays: durationDays,
		Entries:      DefaultDistribution(agreement.Participants, totalAmount),
	}, false, nil
}

// Setup validates and stores a complete distribution, replacing any previous
// one wholesale. Only the primary participant may set it up. The aggregate
// moves not_setup/pending -> distributed; a completed agreement cannot be
// re-split without going through a refund first.
func (s *DistributionService) Setup(ctx context.Context, key string, callerID int64, shares []ShareInput) (*domain.Distribution, error) {
	agreement, err := s.resolve(ctx, key, callerID)
	if err != nil {
		return nil, err
	}
	if agreement.PrimaryUserID != callerID {
		return nil, domain.ErrNotPrimary
	}
	if agreement.PaymentStatus == domain.PaymentCompleted {
		return nil, &ValidationError{Field: "payment_status", Message: "payment already completed for this agreement"}
	}

	if len(shares) == 0 {
		return nil, &ValidationError{Field: "distributions", Message: "distributions is required and must be a non-empty array"}
	}

	rate, err := s.pricing.DailyRate(ctx)
	if err != nil {
		return nil, err
	}
	days := DurationDays(agreement.StartDate, agreement.EndDate)
	total := CalculateTotal(days, rate)

	seen := make(map[int64]bool, len(shares))
	var sum float64
	entries := make([]domain.DistributionEntry, 0, len(shares))
	for _, in := range shares {
		if in.Percentage < 0 || in.Percentage > 100 {
			return nil, &ValidationError{Field: "percentage", Message: fmt.Sprintf("percentage must be between 0 and 100, got %v", in.Percentage)}
		}
		if !agreement.HasParticipant(in.UserID) {
			return nil, &ValidationError{Field: "user_id", Message: fmt.Sprintf("user %d is not a participant of the agreement", in.UserID)}
		}
		if seen[in.UserID] {
			return nil, &ValidationError{Field: "user_id", Message: fmt.Sprintf("duplicate share for user %d", in.UserID)}
		}
		seen[in.UserID] = true
		sum += in.Percentage
		entries = append(entries, domain.DistributionEntry{
			UserID:     in.UserID,
			Percentage: in.Percentage,
			Amount:     ShareAmount(total, in.Percentage),
		})
	}

	// round the accumulated sum first; float addition of otherwise valid
	// shares can drift just past the tolerance
	if math.Abs(round2(sum)-100.0) > domain.PercentageTolerance {
		return nil, &ValidationError{Field: "percentage", Message: fmt.Sprintf("total percentage must equal 100%%, got %v%%", sum)}
	}

	dist := &domain.Distribution{
		AgreementID:  agreement.ID,
		TotalAmount:  total,
		DurationDays: days,
		Entries:      entries,
	}

	if err := s.dists.Replace(ctx, dist, domain.PaymentDistributed); err != nil {
		return nil, err
	}
	if err := s.agreements.CacheTotal(ctx, agreement.ID, total); err != nil {
		return nil, err
	}

	// a zero-amount agreement needs no payments and completes right away
	if err := s.payments.RefreshAggregate(ctx, agreement.ID); err != nil {
		return nil, err
	}
	return dist, nil
}

// UpdateShare adjusts a single participant's percentage without touching the
// rest. The edit is rejected outright when the new total would exceed 100;
// only the changed entry's amount is re-derived.
func (s *DistributionService) UpdateShare(ctx context.Context, key string, callerID, targetUserID int64, percentage float64) (*domain.Distribution, error) {
	agreement, err := s.resolve(ctx, key, callerID)
	if err != nil {
		return nil, err
	}
	if agreement.PrimaryUserID != callerID {
		return nil, domain.ErrNotPrimary
	}
	if agreement.PaymentStatus == domain.PaymentCompleted {
		return nil, &ValidationError{Field: "payment_status", Message: "payment already completed for this agreement"}
	}
	if percentage < 0 || percentage > 100 {
		return nil, &ValidationError{Field: "percentage", Message: fmt.Sprintf("percentage must be between 0 and 100, got %v", percentage)}
	}
	if !agreement.HasParticipant(targetUserID) {
		return nil, &ValidationError{Field: "user_id", Message: fmt.Sprintf("user %d is not a participant of the agreement", targetUserID)}
	}

	dist, err := s.dists.Get(ctx, agreement.ID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, domain.ErrDistributionNotSetup
	}

	var sum float64
	idx := -1
	for i, e := range dist.Entries {
		if e.UserID == targetUserID {
			idx = i
			continue
		}
		sum += e.Percentage
	}
	if round2(sum+percentage) > 100+domain.PercentageTolerance {
		return nil, &ValidationError{Field: "percentage", Message: fmt.Sprintf("total percentage would exceed 100%% (%.2f%%)", sum+percentage)}
	}

	entry := domain.DistributionEntry{
		UserID:     targetUserID,
		Percentage: percentage,
		Amount:     ShareAmount(dist.TotalAmount, percentage),
	}
	if idx >= 0 {
		dist.Entries[idx] = entry
	} else {
		dist.Entries = append(dist.Entries, entry)
	}

	if err := s.dists.Replace(ctx, dist, agreement.PaymentStatus); err != nil {
		return nil, err
	}
	if err := s.payments.RefreshAggregate(ctx, agreement.ID); err != nil {
		return nil, err
	}
	return dist, nil
}
