package service

import (
	"context"
	"testing"

	"agreepay/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_SplitsSevenDayTotal(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	dist, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	assert.Equal(t, 7.0, dist.TotalAmount)
	assert.Equal(t, 7, dist.DurationDays)
	require.Len(t, dist.Entries, 2)
	assert.Equal(t, 4.2, dist.Entries[0].Amount)
	assert.Equal(t, 2.8, dist.Entries[1].Amount)

	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentDistributed, agreement.PaymentStatus)
	assert.Equal(t, 7.0, agreement.TotalAmount)
}

func TestSetup_ByCode(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	dist, err := fx.distribution.Setup(context.Background(), "AB12CD34", 1, []ShareInput{
		{UserID: 1, Percentage: 50},
		{UserID: 2, Percentage: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, "agr-1", dist.AgreementID)
}

func TestSetup_RejectsNonPrimary(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.distribution.Setup(context.Background(), "agr-1", 2, []ShareInput{
		{UserID: 1, Percentage: 50},
		{UserID: 2, Percentage: 50},
	})
	assert.ErrorIs(t, err, domain.ErrNotPrimary)
}

func TestSetup_RejectsOutsider(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.distribution.Setup(context.Background(), "agr-1", 99, []ShareInput{
		{UserID: 1, Percentage: 100},
	})
	assert.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestSetup_RejectsBadPercentages(t *testing.T) {
	tests := []struct {
		name   string
		shares []ShareInput
	}{
		{
			name:   "sum below 100",
			shares: []ShareInput{{UserID: 1, Percentage: 60}, {UserID: 2, Percentage: 30}},
		},
		{
			name:   "sum above 100",
			shares: []ShareInput{{UserID: 1, Percentage: 60}, {UserID: 2, Percentage: 50}},
		},
		{
			name:   "negative share",
			shares: []ShareInput{{UserID: 1, Percentage: -10}, {UserID: 2, Percentage: 110}},
		},
		{
			name:   "share above 100",
			shares: []ShareInput{{UserID: 1, Percentage: 150}},
		},
		{
			name:   "non-participant share",
			shares: []ShareInput{{UserID: 1, Percentage: 50}, {UserID: 99, Percentage: 50}},
		},
		{
			name:   "duplicate user",
			shares: []ShareInput{{UserID: 1, Percentage: 50}, {UserID: 1, Percentage: 50}},
		},
		{
			name:   "empty",
			shares: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(sevenDayAgreement())

			_, err := fx.distribution.Setup(context.Background(), "agr-1", 1, tt.shares)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)

			// nothing persisted on rejection
			stored, _ := fx.dists.Get(context.Background(), "agr-1")
			assert.Nil(t, stored)
		})
	}
}

func TestSetup_AcceptsSumWithinTolerance(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.distribution.Setup(context.Background(), "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 33.33},
		{UserID: 2, Percentage: 66.66},
	})
	assert.NoError(t, err)
}

func TestSetup_ReplacesWholesale(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	_, err = fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 100},
	})
	require.NoError(t, err)

	stored, err := fx.dists.Get(ctx, "agr-1")
	require.NoError(t, err)
	require.Len(t, stored.Entries, 1)
	assert.Equal(t, int64(1), stored.Entries[0].UserID)
	assert.Equal(t, 7.0, stored.Entries[0].Amount)
}

func TestSetup_RejectedAfterCompletion(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	fx.payments.wallets[1] = 10
	fx.payments.wallets[2] = 10
	_, err = fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)
	_, err = fx.payment.Pay(ctx, "agr-1", 2)
	require.NoError(t, err)

	_, err = fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 100},
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestSetup_ZeroDurationCompletesImmediately(t *testing.T) {
	agreement := sevenDayAgreement()
	agreement.EndDate = agreement.StartDate
	fx := newFixture(agreement)
	ctx := context.Background()

	dist, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 50},
		{UserID: 2, Percentage: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, dist.TotalAmount)

	// no shares to pay, so the aggregate lands on completed right away
	got, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentCompleted, got.PaymentStatus)
}

func TestUpdateShare_AdjustsOneEntry(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	dist, err := fx.distribution.UpdateShare(ctx, "agr-1", 1, 2, 30)
	require.NoError(t, err)

	entry := dist.EntryFor(2)
	require.NotNil(t, entry)
	assert.Equal(t, 30.0, entry.Percentage)
	assert.Equal(t, 2.1, entry.Amount)

	// the other entry is untouched
	assert.Equal(t, 60.0, dist.EntryFor(1).Percentage)
}

func TestUpdateShare_RejectsExceeding100(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	_, err = fx.distribution.UpdateShare(ctx, "agr-1", 1, 2, 50)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	// stored split unchanged
	stored, _ := fx.dists.Get(ctx, "agr-1")
	assert.Equal(t, 40.0, stored.EntryFor(2).Percentage)
}

func TestUpdateShare_RejectedAfterCompletion(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	fx.payments.wallets[1] = 10
	fx.payments.wallets[2] = 10
	_, err = fx.payment.Pay(ctx, "agr-1", 1)
	require.NoError(t, err)
	_, err = fx.payment.Pay(ctx, "agr-1", 2)
	require.NoError(t, err)

	_, err = fx.distribution.UpdateShare(ctx, "agr-1", 1, 2, 30)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	// the aggregate never leaves completed without a refund
	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")
	assert.Equal(t, domain.PaymentCompleted, agreement.PaymentStatus)
	stored, _ := fx.dists.Get(ctx, "agr-1")
	assert.Equal(t, 40.0, stored.EntryFor(2).Percentage)
}

func TestUpdateShare_AcceptsSumAtToleranceBoundary(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 33.34},
		{UserID: 2, Percentage: 66.66},
	})
	require.NoError(t, err)

	// 33.34 + 66.67 accumulates to just over 100.01 in floats; the rounded
	// sum sits exactly on the tolerance bound and must pass
	dist, err := fx.distribution.UpdateShare(ctx, "agr-1", 1, 2, 66.67)
	require.NoError(t, err)
	assert.Equal(t, 66.67, dist.EntryFor(2).Percentage)
}

func TestUpdateShare_RequiresSetup(t *testing.T) {
	fx := newFixture(sevenDayAgreement())

	_, err := fx.distribution.UpdateShare(context.Background(), "agr-1", 1, 2, 30)
	assert.ErrorIs(t, err, domain.ErrDistributionNotSetup)
}

func TestUpdateShare_RejectsNonPrimary(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()

	_, err := fx.distribution.Setup(ctx, "agr-1", 1, []ShareInput{
		{UserID: 1, Percentage: 60},
		{UserID: 2, Percentage: 40},
	})
	require.NoError(t, err)

	_, err = fx.distribution.UpdateShare(ctx, "agr-1", 2, 2, 30)
	assert.ErrorIs(t, err, domain.ErrNotPrimary)
}

func TestGetOrDefault_SynthesizedNeverPersisted(t *testing.T) {
	fx := newFixture(sevenDayAgreement())
	ctx := context.Background()
	agreement, _ := fx.agreements.FindByIDOrCode(ctx, "agr-1")

	dist, stored, err := fx.distribution.GetOrDefault(ctx, agreement, 7.0, 7)
	require.NoError(t, err)
	assert.False(t, stored)
	require.Len(t, dist.Entries, 2)
	assert.Equal(t, 50.0, dist.Entries[0].Percentage)

	// repeated reads agree and nothing landed in storage
	again, storedAgain, err := fx.distribution.GetOrDefault(ctx, agreement, 7.0, 7)
	require.NoError(t, err)
	assert.False(t, storedAgain)
	assert.Equal(t, dist.Entries, again.Entries)

	raw, _ := fx.dists.Get(ctx, "agr-1")
	assert.Nil(t, raw)
}
