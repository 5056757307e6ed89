package services

import (
	"context"
	"testing"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransferFixture(t *testing.T) (*memStore, *TransferService) {
	t.Helper()
	store := newMemStore()
	svc := NewTransferService(store, nil)
	svc.now = fixedTime
	return store, svc
}

func seedTransferableFile(store *memStore) *models.ContractFile {
	store.clients[1] = &models.Client{ID: 1, FullName: "Original Owner"}
	store.clients[2] = &models.Client{ID: 2, FullName: "New Owner"}

	total := decimal.NewFromInt(600000)
	return store.addFile(&models.ContractFile{
		FileNumber:      "CF-2024-00001",
		ClientID:        1,
		PlotID:          1,
		TotalAmount:     total,
		PaidAmount:      decimal.NewFromInt(200000),
		RemainingAmount: decimal.NewFromInt(400000),
		Status:          models.FileStatusActive,
	})
}

func TestTransferService_Transfer(t *testing.T) {
	store, svc := newTransferFixture(t)
	file := seedTransferableFile(store)
	ctx := context.Background()

	fee := decimal.NewFromInt(25000)
	transferred, err := svc.Transfer(ctx, file.ID, 2, fee, "ownership change", 7)
	require.NoError(t, err)

	assert.Equal(t, models.FileStatusTransferred, transferred.Status)
	assert.Equal(t, uint(2), transferred.ClientID)
	require.NotNil(t, transferred.PreviousClientID)
	assert.Equal(t, uint(1), *transferred.PreviousClientID)
	require.NotNil(t, transferred.TransferDate)
	assert.Equal(t, fixedTime(), *transferred.TransferDate)
	require.NotNil(t, transferred.TransferFee)
	assert.True(t, transferred.TransferFee.Equal(fee))
	require.NotNil(t, transferred.Remarks)
	assert.Equal(t, "ownership change", *transferred.Remarks)

	// Transfer is terminal even with a remaining balance
	updated := store.files[file.ID]
	assert.Equal(t, models.FileStatusTransferred, updated.Status)
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(400000)))

	// The fee lands as a cleared cash transfer-charges record
	payments, err := store.repos().Payment.FindByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	feeRecord := payments[0]
	assert.Equal(t, models.PaymentKindTransferCharges, feeRecord.Kind)
	assert.Equal(t, models.PaymentMethodCash, feeRecord.Method)
	assert.Equal(t, models.PaymentStatusCleared, feeRecord.Status)
	assert.NotNil(t, feeRecord.ClearedAt)
	assert.True(t, feeRecord.NetAmount.Equal(fee))
	assert.False(t, feeRecord.CountsTowardBalance())

	// The fee never moves the contract balances
	assert.True(t, updated.PaidAmount.Equal(decimal.NewFromInt(200000)))
}

func TestTransferService_Transfer_ZeroFeePostsNoRecord(t *testing.T) {
	store, svc := newTransferFixture(t)
	file := seedTransferableFile(store)
	ctx := context.Background()

	transferred, err := svc.Transfer(ctx, file.ID, 2, decimal.Zero, "", 7)
	require.NoError(t, err)
	assert.Nil(t, transferred.TransferFee)

	payments, err := store.repos().Payment.FindByFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestTransferService_Transfer_Rejections(t *testing.T) {
	store, svc := newTransferFixture(t)
	file := seedTransferableFile(store)
	ctx := context.Background()

	_, err := svc.Transfer(ctx, file.ID, 2, decimal.NewFromInt(-1), "", 7)
	assert.ErrorIs(t, err, ErrValidation)

	// New owner must differ from the current one
	_, err = svc.Transfer(ctx, file.ID, 1, decimal.Zero, "", 7)
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown client
	_, err = svc.Transfer(ctx, file.ID, 99, decimal.Zero, "", 7)
	assert.ErrorIs(t, err, ErrNotFound)

	// Unknown file
	_, err = svc.Transfer(ctx, 404, 2, decimal.Zero, "", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransferService_Transfer_RejectsNonActiveFile(t *testing.T) {
	store, svc := newTransferFixture(t)
	store.clients[2] = &models.Client{ID: 2, FullName: "New Owner"}
	ctx := context.Background()

	for _, status := range []string{
		models.FileStatusCompleted,
		models.FileStatusTransferred,
		models.FileStatusCancelled,
	} {
		file := store.addFile(&models.ContractFile{
			FileNumber:      "CF-2024-2" + status,
			ClientID:        1,
			TotalAmount:     decimal.NewFromInt(100000),
			RemainingAmount: decimal.Zero,
			Status:          status,
		})

		_, err := svc.Transfer(ctx, file.ID, 2, decimal.Zero, "", 7)
		assert.ErrorIs(t, err, ErrInvalidState, "status %s should reject transfer", status)
	}
}

func TestTransferService_TransferredFileRejectsPayments(t *testing.T) {
	store, transferSvc := newTransferFixture(t)
	file := seedTransferableFile(store)
	ctx := context.Background()

	repos := store.repos()
	ledgerSvc := NewLedgerService(store, repos.File, repos.Payment, repos.Installment, nil)
	ledgerSvc.now = fixedTime

	_, err := transferSvc.Transfer(ctx, file.ID, 2, decimal.Zero, "", 7)
	require.NoError(t, err)

	_, err = ledgerSvc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCash,
		ActorID: 7,
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}
