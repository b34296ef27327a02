package service

import (
	"context"
	"log"
	"time"

	"agreepay/internal/clients"
	"agreepay/internal/domain"
)

type PaymentRepository interface {
	ListByAgreement(ctx context.Context, agreementID string) ([]domain.Payment, error)
	HasCompleted(ctx context.Context, agreementID string, userID int64, minAmount float64) (bool, error)
	ExecutePayment(ctx context.Context, agreementID string, userID int64, entry domain.DistributionEntry) (*domain.Payment, error)
	Refund(ctx context.Context, paymentID string, userID int64) (*domain.Payment, error)
	RefreshAggregate(ctx context.Context, agreementID string) error
}

// Calculation is the payment overview for one agreement.
type Calculation struct {
	AgreementID   string                     `json:"agreement_id"`
	Code          string                     `json:"agreement_code"`
	Name          string                     `json:"agreement_name"`
	StartDate     *time.Time                 `json:"start_date"`
	EndDate       *time.Time                 `json:"end_date"`
	DurationDays  int                        `json:"duration_days"`
	DailyRate     float64                    `json:"daily_rate"`
	TotalAmount   float64                    `json:"total_amount"`
	PaymentStatus domain.PaymentStatus       `json:"payment_status"`
	Distribution  []domain.DistributionEntry `json:"distribution"`
	Stored        bool                       `json:"distribution_stored"`
	Stale         bool                       `json:"distribution_stale"`
	CanFinalize   bool                       `json:"can_finalize"`
}

// ParticipantStatus is one row of the per-participant payment breakdown.
type ParticipantStatus struct {
	UserID     int64   `json:"user_id"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	PaidAmount float64 `json:"paid_amount"`
}

// StatusReport joins the stored distribution with all payment records.
type StatusReport struct {
	PaymentStatus   domain.PaymentStatus `json:"payment_status"`
	TotalAmount     float64              `json:"total_amount"`
	TotalPaid       float64              `json:"total_paid"`
	RemainingAmount float64              `json:"remaining_amount"`
	CanFinalize     bool                 `json:"can_finalize"`
	Stale           bool                 `json:"stale"`
	Participants    []ParticipantStatus  `json:"payment_distributions"`
}

type PaymentService struct {
	agreements AgreementRepository
	dists      DistributionRepository
	payments   PaymentRepository
	pricing    *PricingService
	ws         *clients.WebSocketClient
}

func NewPaymentService(
	agreements AgreementRepository,
	dists DistributionRepository,
	payments PaymentRepository,
	pricing *PricingService,
	ws *clients.WebSocketClient,
) *PaymentService {
	return &PaymentService{
		agreements: agreements,
		dists:      dists,
		payments:   payments,
		pricing:    pricing,
		ws:         ws,
	}
}

func (s *PaymentService) resolve(ctx context.Context, key string, userID int64) (*domain.Agreement, error) {
	agreement, err := s.agreements.FindByIDOrCode(ctx, key)
	if err != nil {
		return nil, err
	}
	if !agreement.HasParticipant(userID) {
		return nil, domain.ErrNotParticipant
	}
	return agreement, nil
}

// Calculate derives the total owed for an agreement from its duration and
// the active daily rate. Pure with respect to payment state; the only write
// is caching the derived total back onto the agreement record.
func (s *PaymentService) Calculate(ctx context.Context, key string, userID int64) (*Calculation, error) {
	agreement, err := s.resolve(ctx, key, userID)
	if err != nil {
		return nil, err
	}

	rate, err := s.pricing.DailyRate(ctx)
	if err != nil {
		return nil, err
	}

	days := DurationDays(agreement.StartDate, agreement.EndDate)
	total := CalculateTotal(days, rate)

	if total != agreement.TotalAmount {
		if err := s.agreements.CacheTotal(ctx, agreement.ID, total); err != nil {
			log.Printf("cache total for agreement %s error: %v", agreement.ID, err)
		}
	}

	dist, stored, err := distributionOrDefault(ctx, s.dists, agreement, total, days)
	if err != nil {
		return nil, err
	}

	calc := &Calculation{
		AgreementID:   agreement.ID,
		Code:          agreement.Code,
		Name:          agreement.Name,
		StartDate:     agreement.StartDate,
		EndDate:       agreement.EndDate,
		DurationDays:  days,
		DailyRate:     rate,
		TotalAmount:   total,
		PaymentStatus: agreement.PaymentStatus,
		Distribution:  dist.Entries,
		Stored:        stored,
	}
	if stored {
		calc.Stale = dist.Stale(agreement)
		completed, err := s.allCovered(ctx, agreement.ID, dist)
		if err != nil {
			return nil, err
		}
		if completed {
			calc.PaymentStatus = domain.PaymentCompleted
			calc.CanFinalize = true
		}
	}
	return calc, nil
}

// Status is a pure read: it joins the stored distribution with all payment
// records and reports per-participant and aggregate state. Nothing mutates.
func (s *PaymentService) Status(ctx context.Context, key string, userID int64) (*StatusReport, error) {
	agreement, err := s.resolve(ctx, key, userID)
	if err != nil {
		return nil, err
	}

	dist, err := s.dists.Get(ctx, agreement.ID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return &StatusReport{PaymentStatus: domain.PaymentNotSetup}, nil
	}

	records, err := s.payments.ListByAgreement(ctx, agreement.ID)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		TotalAmount: dist.TotalAmount,
		Stale:       dist.Stale(agreement),
	}

	allCovered := true
	for _, e := range dist.Entries {
		row := ParticipantStatus{
			UserID:     e.UserID,
			Percentage: e.Percentage,
			Amount:     e.Amount,
			Status:     "pending",
		}
		for _, p := range records {
			if p.UserID == e.UserID && p.Status == domain.PaymentRecordCompleted && p.Amount >= e.Amount-0.005 {
				row.Status = "completed"
				row.PaidAmount = p.Amount
				report.TotalPaid += p.Amount
				break
			}
		}
		if row.Status != "completed" && e.Amount > 0 {
			allCovered = false
		}
		report.Participants = append(report.Participants, row)
	}

	report.RemainingAmount = dist.TotalAmount - report.TotalPaid
	if report.RemainingAmount < 0 {
		report.RemainingAmount = 0
	}
	if allCovered {
		report.PaymentStatus = domain.PaymentCompleted
		report.CanFinalize = true
	} else {
		report.PaymentStatus = domain.PaymentDistributed
	}
	return report, nil
}

// Pay executes the caller's share of the agreement total. The balance check,
// wallet debit, record write and aggregate refresh happen atomically in the
// repository; a duplicate attempt surfaces as ErrAlreadyPaid without a second
// debit.
func (s *PaymentService) Pay(ctx context.Context, key string, userID int64) (*domain.Payment, error) {
	agreement, err := s.resolve(ctx, key, userID)
	if err != nil {
		return nil, err
	}

	dist, err := s.dists.Get(ctx, agreement.ID)
	if err != nil {
		return nil, err
	}
	if dist == nil {
		return nil, domain.ErrDistributionNotSetup
	}
	entry := dist.EntryFor(userID)
	if entry == nil {
		return nil, domain.ErrDistributionNotSetup
	}

	done, err := s.payments.HasCompleted(ctx, agreement.ID, userID, entry.Amount)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, domain.ErrAlreadyPaid
	}

	payment, err := s.payments.ExecutePayment(ctx, agreement.ID, userID, *entry)
	if err != nil {
		return nil, err
	}

	if s.ws != nil {
		_ = s.ws.NotifyPaymentReceived(ctx, agreement.Participants, agreement.ID, userID, payment.Amount)
		completed, err := s.allCovered(ctx, agreement.ID, dist)
		if err == nil && completed {
			_ = s.ws.NotifyAgreementPaid(ctx, agreement.Participants, agreement.ID)
		}
	}
	return payment, nil
}

// History lists every payment record of the agreement, newest first.
func (s *PaymentService) History(ctx context.Context, key string, userID int64) ([]domain.Payment, error) {
	agreement, err := s.resolve(ctx, key, userID)
	if err != nil {
		return nil, err
	}
	return s.payments.ListByAgreement(ctx, agreement.ID)
}

// Refund reverses the caller's own completed payment. The aggregate drops
// back from completed to distributed when the refunded share was required.
func (s *PaymentService) Refund(ctx context.Context, paymentID string, userID int64) (*domain.Payment, error) {
	payment, err := s.payments.Refund(ctx, paymentID, userID)
	if err != nil {
		return nil, err
	}

	if s.ws != nil {
		if agreement, aerr := s.agreements.FindByIDOrCode(ctx, payment.AgreementID); aerr == nil {
			_ = s.ws.NotifyPaymentRefunded(ctx, agreement.Participants, agreement.ID, userID, payment.Amount)
		}
	}
	return payment, nil
}

func (s *PaymentService) allCovered(ctx context.Context, agreementID string, dist *domain.Distribution) (bool, error) {
	for _, e := range dist.Entries {
		if e.Amount <= 0 {
			continue
		}
		covered, err := s.payments.HasCompleted(ctx, agreementID, e.UserID, e.Amount)
		if err != nil {
			return false, err
		}
		if !covered {
			return false, nil
		}
	}
	return true, nil
}
