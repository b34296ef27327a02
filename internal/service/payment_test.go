package service

import (
	"context"
	"testing"

	"agreepay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSixtyForty(t *testing.T, fx *fixture) {
	t.Helper()
	_, err := fx.distribution.Setup(context.Background(), "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)
}

func TestCalculate_DefaultSplitBeforeSetup(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	calc, err := fx.payment.Calculate(context.Background(), "agr-1", 1)
	require.NoError(t, err)

	assert.Equal(t, 7, calc.DurationDays)
	assert.Equal(t, 1.0, calc.DailyRate)
	assert.Equal(t, 7.0, calc.TotalAmount)
	assert.False(t, calc.Stored)
	require.Len(t, calc.Distribution, 2)
	assert.Equal(t, 3.5, calc.Distribution[0].Amount)
	assert.Equal(t, 3.5, calc.Distribution[1].Amount)
}

func TestCalculate_IsPure(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	first, err := fx.payment.Calculate(ctx, "agr-1", 1)
	require.NoError(t, err)
	second, err := fx.payment.Calculate(ctx, "agr-1", 2)
	require.NoError(t, err)

	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.Equal(t, first.Distribution, second.Distribution)

	// no distribution was persisted by reading
	stored, _ := fx.dists.Get(ctx, "agr-1")
	assert.Nil(t, stored)
	assert.Empty(t, fx.payments.records)
}

func TestCalculate_UsesUpdatedRate(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.pricing.Update(ctx, 2.5, 1)
	require.NoError(t, err)

	calc, err := fx.payment.Calculate(ctx, "agr-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, calc.DailyRate)
	assert.Equal(t, 17.5, calc.TotalAmount)
}

func TestCalculate_RejectsOutsider(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.payment.Calculate(context.Background(), "agr-1", 99)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestCalculate_UnknownAgreement(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.payment.Calculate(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, domain.ErrAgreementNotFound)
}

func TestPay_RequiresDistribution(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	fx.payments.wallets[1] = 100

	_, err := fx.payment.Pay(context.Background(), "agr-1", 1)
	assert.ErrorIs(t, err, domain.ErrDistributionNotSetup)
}

func TestPay_InsufficientFundsLeavesStateUntouched(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 2.0 // share is 4.2

	_, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, 2.0, fx.payments.wallets[1])
	assert.Empty(t, fx.payments.records)

	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentDistributed, agreement.PaymentStatus)
}

func TestPay_DebitsExactShare(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0

	payment, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)

	assert.Equal(t, 4.2, payment.Amount)
	assert.Equal(t, 60.0, payment.Percentage)
	assert.Equal(t, domain.PaymentRecordCompleted, payment.Status)
	assert.Equal(t, "wallet", payment.PaymentMethod)
	assert.InDelta(t, 5.8, fx.payments.wallets[1], 0.0001)

	// one share paid does not complete the agreement
	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentDistributed, agreement.PaymentStatus)
}

func TestPay_IsIdempotent(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0

	_, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)

	_, err = fx.payment.Pay(ctx, "agr-1", 1)
	assert.ErrorIs(t, err, domain.ErrAlreadyPaid)

	// balance debited exactly once
	assert.InDelta(t, 5.8, fx.payments.wallets[1], 0.0001)
	assert.Len(t, fx.payments.records, 1)
}

func TestPay_AllSharesCompleteAgreement(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0
	fx.payments.wallets[2] = 10.0

	_, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)
	_, err = fx.payment.Pay(ctx, "agr-1", 2)
	require.NoError(t, err)

	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentCompleted, agreement.PaymentStatus)

	report, err := fx.payment.Status(ctx, "agr-1", 1)
	require.NoError(t, err)
	assert.True(t, report.CanFinalize)
	assert.Equal(t, domain.PaymentCompleted, report.PaymentStatus)
	assert.InDelta(t, 7.0, report.TotalPaid, 0.0001)
	assert.InDelta(t, 0.0, report.RemainingAmount, 0.0001)
}

func TestStatus_BeforeSetup(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	report, err := fx.payment.Status(context.Background(), "agr-1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentNotSetup, report.PaymentStatus)
	assert.Empty(t, report.Participants)
}

func TestStatus_RoundTripAfterSetup(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[2] = 10.0
	_, err := fx.payment.Pay(ctx, "agr-1", 2)
	require.NoError(t, err)

	report, err := fx.payment.Status(ctx, "agr-1", 1)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentDistributed, report.PaymentStatus)
	assert.False(t, report.CanFinalize)
	require.Len(t, report.Participants, 2)

	byUser := map[int64]ParticipantStatus{}
	for _, p := range report.Participants {
		byUser[p.UserID] = p
	}
	assert.Equal(t, "pending", byUser[1].Status)
	assert.Equal(t, 4.2, byUser[1].Amount)
	assert.Equal(t, "completed", byUser[2].Status)
	assert.Equal(t, 2.8, byUser[2].PaidAmount)
	assert.InDelta(t, 4.2, report.RemainingAmount, 0.0001)
}

func TestStatus_StaleAfterParticipantRemoval(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	// participant 2 leaves the agreement after the split was stored
	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	agreement.Participants = []int64{1}

	report, err := fx.payment.Status(ctx, "agr-1", 1)
	require.NoError(t, err)
	assert.True(t, report.Stale)

	calc, err := fx.payment.Calculate(ctx, "agr-1", 1)
	require.NoError(t, err)
	assert.True(t, calc.Stale)
}

func TestRefund_RestoresBalanceAndDropsAggregate(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0
	fx.payments.wallets[2] = 10.0

	p1, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)
	_, err = fx.payment.Pay(ctx, "agr-1", 2)
	require.NoError(t, err)

	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	require.Equal(t, domain.PaymentCompleted, agreement.PaymentStatus)

	refunded, err := fx.payment.Refund(ctx, p1.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRecordRefunded, refunded.Status)
	assert.InDelta(t, 10.0, fx.payments.wallets[1], 0.0001)

	agreement, _ = fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentDistributed, agreement.PaymentStatus)
}

func TestRefund_OnlyOwnCompletedRecord(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0
	p1, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)

	// someone else's record
	_, err = fx.payment.Refund(ctx, p1.ID, 2)
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	// double refund
	_, err = fx.payment.Refund(ctx, p1.ID, 1)
	require.NoError(t, err)
	_, err = fx.payment.Refund(ctx, p1.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	// unknown record
	_, err = fx.payment.Refund(ctx, "nope", 1)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestHistory_ListsAllRecords(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	setupSixtyForty(t, fx)

	fx.payments.wallets[1] = 10.0
	p1, err := fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)
	_, err = fx.payment.Refund(ctx, p1.ID, 1)
	require.NoError(t, err)

	records, err := fx.payment.History(ctx, "agr-1", 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.PaymentRecordRefunded, records[0].Status)

	_, err = fx.payment.History(ctx, "agr-1", 99)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}
