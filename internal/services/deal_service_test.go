package services

import (
	"context"
	"testing"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDealFixture(t *testing.T) (*memStore, *DealService) {
	t.Helper()
	store := newMemStore()
	repos := store.repos()
	commissionSvc := NewCommissionService(repos.Deal, repos.Dealer)
	svc := NewDealService(store, repos.Deal, commissionSvc, nil)
	svc.now = fixedTime
	return store, svc
}

func seedPendingDeal(store *memStore) *models.Deal {
	store.dealers[1] = &models.Dealer{ID: 1, Name: "Dealer One"}
	store.plots[5] = &models.Plot{ID: 5, PlotNumber: "P-5", Status: models.PlotStatusAvailable}

	return store.addDeal(&models.Deal{
		ClientID:             3,
		PlotID:               5,
		DealerID:             1,
		Amount:               decimal.NewFromInt(1000000),
		CommissionPercentage: decimal.NewFromFloat(2.5),
		Status:               models.DealStatusPending,
	})
}

func TestDealService_Create(t *testing.T) {
	store, svc := newDealFixture(t)
	ctx := context.Background()

	deal, err := svc.Create(ctx, CreateDealInput{
		ClientID: 3,
		PlotID:   5,
		DealerID: 1,
		Amount:   decimal.NewFromInt(1000000),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusPending, deal.Status)
	assert.NotZero(t, deal.ID)
	assert.NotNil(t, store.deals[deal.ID])
}

func TestDealService_Create_Validation(t *testing.T) {
	_, svc := newDealFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateDealInput{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateDealInput{
		Amount:           decimal.NewFromInt(100),
		CommissionAmount: decimal.NewFromInt(-5),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDealService_Confirm_CashPlan(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	file, err := svc.Confirm(ctx, ConfirmDealInput{
		DealID:      deal.ID,
		PaymentPlan: models.PaymentPlanCash,
		ActorID:     7,
	})
	require.NoError(t, err)

	assert.Equal(t, "CF-2024-00001", file.FileNumber)
	assert.Equal(t, models.FileStatusActive, file.Status)
	assert.Equal(t, deal.ClientID, file.ClientID)
	assert.Equal(t, deal.PlotID, file.PlotID)
	require.NotNil(t, file.DealID)
	assert.Equal(t, deal.ID, *file.DealID)
	assert.True(t, file.TotalAmount.Equal(deal.Amount))
	assert.True(t, file.PaidAmount.IsZero())
	assert.True(t, file.RemainingAmount.Equal(deal.Amount))
	assert.Equal(t, models.PaymentPlanCash, file.PaymentPlan)

	confirmed := store.deals[deal.ID]
	assert.Equal(t, models.DealStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	// Plot is held while the sale runs
	assert.Equal(t, models.PlotStatusReserved, store.plots[5].Status)
}

func TestDealService_Confirm_InstallmentPlanGeneratesSchedule(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	firstDue := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	file, err := svc.Confirm(ctx, ConfirmDealInput{
		DealID:               deal.ID,
		PaymentPlan:          models.PaymentPlanInstallment,
		TotalInstallments:    10,
		InstallmentAmount:    decimal.NewFromInt(100000),
		InstallmentFrequency: models.FrequencyMonthly,
		FirstInstallmentDate: firstDue,
		ActorID:              7,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPlanInstallment, file.PaymentPlan)
	assert.Equal(t, 10, file.TotalInstallments)
	assert.True(t, file.InstallmentAmount.Equal(decimal.NewFromInt(100000)))
	require.NotNil(t, file.FirstInstallmentDate)
	assert.Equal(t, firstDue, *file.FirstInstallmentDate)
	require.NotNil(t, file.LastInstallmentDate)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), *file.LastInstallmentDate)

	installments, err := store.repos().Installment.FindByFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Len(t, installments, 10)
}

func TestDealService_Confirm_Rejections(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	_, err := svc.Confirm(ctx, ConfirmDealInput{DealID: deal.ID, PaymentPlan: "layaway"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Confirm(ctx, ConfirmDealInput{DealID: 404, PaymentPlan: models.PaymentPlanCash})
	assert.ErrorIs(t, err, ErrNotFound)

	// Confirming twice is a state error
	_, err = svc.Confirm(ctx, ConfirmDealInput{DealID: deal.ID, PaymentPlan: models.PaymentPlanCash, ActorID: 7})
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, ConfirmDealInput{DealID: deal.ID, PaymentPlan: models.PaymentPlanCash, ActorID: 7})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDealService_Complete(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	_, err := svc.Confirm(ctx, ConfirmDealInput{DealID: deal.ID, PaymentPlan: models.PaymentPlanCash, ActorID: 7})
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, deal.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	assert.Equal(t, models.PlotStatusSold, store.plots[5].Status)

	// Completion refreshed the dealer projection from the completed set
	dealer := store.dealers[1]
	assert.Equal(t, 1, dealer.TotalDeals)
	assert.True(t, dealer.TotalCommission.Equal(decimal.NewFromInt(25000)))
}

func TestDealService_Complete_RequiresConfirmed(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	_, err := svc.Complete(ctx, deal.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Complete(ctx, 404, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDealService_Cancel(t *testing.T) {
	store, svc := newDealFixture(t)
	deal := seedPendingDeal(store)
	ctx := context.Background()

	cancelled, err := svc.Cancel(ctx, deal.ID, "client withdrew", 7)
	require.NoError(t, err)
	assert.Equal(t, models.DealStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Notes)
	assert.Equal(t, "client withdrew", *cancelled.Notes)

	// Cancelled deals cannot complete
	_, err = svc.Complete(ctx, deal.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidState)
}
