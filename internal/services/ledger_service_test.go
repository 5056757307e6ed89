package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
}

func newLedgerFixture(t *testing.T) (*memStore, *LedgerService) {
	t.Helper()
	store := newMemStore()
	repos := store.repos()
	svc := NewLedgerService(store, repos.File, repos.Payment, repos.Installment, nil)
	svc.now = fixedTime
	return store, svc
}

// seedInstallmentFile creates an active file of 600,000 split into 12
// monthly installments of 50,000 starting 2024-01-01.
func seedInstallmentFile(store *memStore) *models.ContractFile {
	total := decimal.NewFromInt(600000)
	file := store.addFile(&models.ContractFile{
		FileNumber:      "CF-2024-00001",
		ClientID:        1,
		PlotID:          1,
		TotalAmount:     total,
		PaidAmount:      decimal.Zero,
		RemainingAmount: total,
		PaymentPlan:     models.PaymentPlanInstallment,
		Status:          models.FileStatusActive,
		IssueDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	installments, _ := BuildSchedule(file.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12, decimal.NewFromInt(50000), models.FrequencyMonthly)
	store.addInstallments(installments)
	return file
}

func intPtr(n int) *int { return &n }

func TestLedgerService_PostPayment_CashSettlesImmediately(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCash,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCleared, record.Status)
	assert.NotNil(t, record.ClearedAt)
	assert.Equal(t, "RCP-2024-00001", record.ReceiptNumber)
	assert.Equal(t, models.PaymentKindInstallment, record.Kind)
	assert.True(t, record.NetAmount.Equal(decimal.NewFromInt(50000)))

	updated := store.files[file.ID]
	assert.True(t, updated.PaidAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(550000)))
	assert.Equal(t, models.FileStatusActive, updated.Status)

	inst, err := store.repos().Installment.FindByFileAndSequence(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, inst.Status)
	require.NotNil(t, inst.PaymentRecordID)
	assert.Equal(t, record.ID, *inst.PaymentRecordID)
	assert.NotNil(t, inst.PaidAt)
}

func TestLedgerService_PostPayment_FullCycleCompletesFile(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	receipts := make(map[string]bool)
	for seq := 1; seq <= 12; seq++ {
		record, err := svc.PostPayment(ctx, PostPaymentInput{
			FileID:         file.ID,
			Amount:         decimal.NewFromInt(50000),
			Method:         models.PaymentMethodCash,
			InstallmentSeq: intPtr(seq),
			ActorID:        7,
		})
		require.NoError(t, err)
		assert.False(t, receipts[record.ReceiptNumber], "receipt %s allocated twice", record.ReceiptNumber)
		receipts[record.ReceiptNumber] = true

		updated := store.files[file.ID]
		expectedPaid := decimal.NewFromInt(int64(seq) * 50000)
		assert.True(t, updated.PaidAmount.Equal(expectedPaid), "after installment %d paid should be %s, got %s", seq, expectedPaid, updated.PaidAmount)
	}

	updated := store.files[file.ID]
	assert.Equal(t, models.FileStatusCompleted, updated.Status)
	assert.True(t, updated.RemainingAmount.IsZero())
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, fixedTime(), *updated.CompletedAt)

	counts, err := store.repos().Installment.StatusCounts(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, counts.Paid)
	assert.Equal(t, 0, counts.Pending)
}

func TestLedgerService_PostPayment_RejectsTerminalStatuses(t *testing.T) {
	store, svc := newLedgerFixture(t)
	ctx := context.Background()

	for _, status := range []string{
		models.FileStatusCompleted,
		models.FileStatusTransferred,
		models.FileStatusCancelled,
		models.FileStatusDefaulted,
	} {
		file := store.addFile(&models.ContractFile{
			FileNumber:      "CF-2024-1" + status,
			TotalAmount:     decimal.NewFromInt(100000),
			RemainingAmount: decimal.NewFromInt(100000),
			Status:          status,
		})

		_, err := svc.PostPayment(ctx, PostPaymentInput{
			FileID:  file.ID,
			Amount:  decimal.NewFromInt(1000),
			Method:  models.PaymentMethodCash,
			ActorID: 7,
		})
		assert.ErrorIs(t, err, ErrInvalidState, "status %s should reject payments", status)
	}
}

func TestLedgerService_PostPayment_RejectsSettledInstallment(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCash,
		InstallmentSeq: intPtr(3),
		ActorID:        7,
	})
	require.NoError(t, err)

	_, err = svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCash,
		InstallmentSeq: intPtr(3),
		ActorID:        7,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedgerService_PostPayment_ValidationErrors(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(-5),
		Method:  models.PaymentMethodCash,
		ActorID: 7,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(100),
		Method:  "barter",
		ActorID: 7,
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PostPayment(ctx, PostPaymentInput{
		FileID:  999,
		Amount:  decimal.NewFromInt(100),
		Method:  models.PaymentMethodCash,
		ActorID: 7,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(100),
		Method:         models.PaymentMethodCash,
		InstallmentSeq: intPtr(40),
		ActorID:        7,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedgerService_PostPayment_TransferChargesCannotTargetInstallment(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(25000),
		Method:         models.PaymentMethodCash,
		Kind:           models.PaymentKindTransferCharges,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	assert.ErrorIs(t, err, ErrValidation)

	// The obligation stays open and the ledger is untouched.
	for _, inst := range store.installments {
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	}
	assert.True(t, store.files[file.ID].PaidAmount.IsZero())
}

func TestLedgerService_PostPayment_NetAmountAppliesPenaltyAndDiscount(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		PenaltyAmount:  decimal.NewFromInt(500),
		DiscountAmount: decimal.NewFromInt(200),
		Method:         models.PaymentMethodCash,
		ActorID:        7,
	})
	require.NoError(t, err)

	assert.True(t, record.NetAmount.Equal(decimal.NewFromInt(50300)))
	assert.True(t, store.files[file.ID].PaidAmount.Equal(decimal.NewFromInt(50300)))
}

func TestLedgerService_ClearPayment_SettlesReceivedCheque(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCheque,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusReceived, record.Status)
	assert.Nil(t, record.ClearedAt)

	// Nothing counted until clearance
	assert.True(t, store.files[file.ID].PaidAmount.IsZero())

	result, err := svc.ClearPayment(ctx, record.ID, 7)
	require.NoError(t, err)
	assert.False(t, result.AlreadyCleared)
	assert.Equal(t, models.PaymentStatusCleared, result.Record.Status)
	assert.NotNil(t, result.Record.ClearedAt)

	assert.True(t, store.files[file.ID].PaidAmount.Equal(decimal.NewFromInt(50000)))

	inst, err := store.repos().Installment.FindByFileAndSequence(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, inst.Status)
}

func TestLedgerService_ClearPayment_SecondClearIsNoOp(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCheque,
		ActorID: 7,
	})
	require.NoError(t, err)

	first, err := svc.ClearPayment(ctx, record.ID, 7)
	require.NoError(t, err)
	assert.False(t, first.AlreadyCleared)

	second, err := svc.ClearPayment(ctx, record.ID, 7)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCleared)

	// The no-op must not double count
	assert.True(t, store.files[file.ID].PaidAmount.Equal(decimal.NewFromInt(50000)))
}

func TestLedgerService_ClearPayment_NotFound(t *testing.T) {
	_, svc := newLedgerFixture(t)

	_, err := svc.ClearPayment(context.Background(), 404, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerService_BouncePayment_ClearedReversesBalances(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCheque,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	require.NoError(t, err)
	_, err = svc.ClearPayment(ctx, record.ID, 7)
	require.NoError(t, err)

	bounced, err := svc.BouncePayment(ctx, record.ID, "returned by bank", 7)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusBounced, bounced.Status)
	assert.NotNil(t, bounced.BouncedAt)
	require.NotNil(t, bounced.StatusReason)
	assert.Equal(t, "returned by bank", *bounced.StatusReason)

	updated := store.files[file.ID]
	assert.True(t, updated.PaidAmount.IsZero())
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(600000)))

	inst, err := store.repos().Installment.FindByFileAndSequence(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	assert.Nil(t, inst.PaymentRecordID)
	assert.Nil(t, inst.PaidAt)
}

func TestLedgerService_BouncePayment_RevertsCompletion(t *testing.T) {
	store, svc := newLedgerFixture(t)
	ctx := context.Background()

	total := decimal.NewFromInt(100000)
	file := store.addFile(&models.ContractFile{
		FileNumber:      "CF-2024-00009",
		TotalAmount:     total,
		RemainingAmount: total,
		Status:          models.FileStatusActive,
	})

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  total,
		Method:  models.PaymentMethodCash,
		Kind:    models.PaymentKindFullPayment,
		ActorID: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusCompleted, store.files[file.ID].Status)

	_, err = svc.BouncePayment(ctx, record.ID, "chargeback", 7)
	require.NoError(t, err)

	updated := store.files[file.ID]
	assert.Equal(t, models.FileStatusActive, updated.Status)
	assert.Nil(t, updated.CompletedAt)
	assert.True(t, updated.PaidAmount.IsZero())
}

func TestLedgerService_BouncePayment_ReceivedHasNoBalanceEffect(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	record, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCheque,
		ActorID: 7,
	})
	require.NoError(t, err)

	bounced, err := svc.BouncePayment(ctx, record.ID, "insufficient funds", 7)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusBounced, bounced.Status)
	assert.True(t, store.files[file.ID].PaidAmount.IsZero())
}

func TestLedgerService_BouncePayment_DoesNotReopenInstallmentSettledByAnotherRecord(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	// First cheque targets installment 1 but bounces before clearance
	first, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCheque,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	require.NoError(t, err)
	_, err = svc.ClearPayment(ctx, first.ID, 7)
	require.NoError(t, err)
	_, err = svc.BouncePayment(ctx, first.ID, "bad cheque", 7)
	require.NoError(t, err)

	// Cash replacement settles the reopened installment
	second, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:         file.ID,
		Amount:         decimal.NewFromInt(50000),
		Method:         models.PaymentMethodCash,
		InstallmentSeq: intPtr(1),
		ActorID:        7,
	})
	require.NoError(t, err)

	inst, err := store.repos().Installment.FindByFileAndSequence(ctx, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentStatusPaid, inst.Status)
	require.NotNil(t, inst.PaymentRecordID)
	assert.Equal(t, second.ID, *inst.PaymentRecordID)
}

func TestLedgerService_CancelPayment(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	received, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCheque,
		ActorID: 7,
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelPayment(ctx, received.ID, "posted in error", 7)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	// Cleared money must bounce, not cancel
	cash, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCash,
		ActorID: 7,
	})
	require.NoError(t, err)

	_, err = svc.CancelPayment(ctx, cash.ID, "oops", 7)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLedgerService_SyncPaidAmount_DetectsAndRepairsDrift(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	_, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  decimal.NewFromInt(50000),
		Method:  models.PaymentMethodCash,
		ActorID: 7,
	})
	require.NoError(t, err)

	// Corrupt the stored balance behind the service's back
	store.files[file.ID].PaidAmount = decimal.NewFromInt(70000)

	result, err := svc.SyncPaidAmount(ctx, file.ID, 7)
	require.NoError(t, err)
	assert.True(t, result.ReconcileNeeded)
	assert.True(t, result.PreviousPaid.Equal(decimal.NewFromInt(70000)))
	assert.True(t, result.ComputedPaid.Equal(decimal.NewFromInt(50000)))
	assert.True(t, result.Drift.Equal(decimal.NewFromInt(20000)))

	updated := store.files[file.ID]
	assert.True(t, updated.PaidAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, updated.RemainingAmount.Equal(decimal.NewFromInt(550000)))

	// A second run finds nothing to repair
	again, err := svc.SyncPaidAmount(ctx, file.ID, 7)
	require.NoError(t, err)
	assert.False(t, again.ReconcileNeeded)
	assert.True(t, again.Drift.IsZero())
}

func TestLedgerService_SyncPaidAmount_ReappliesCompletionRule(t *testing.T) {
	store, svc := newLedgerFixture(t)
	ctx := context.Background()

	total := decimal.NewFromInt(100000)
	file := store.addFile(&models.ContractFile{
		FileNumber:      "CF-2024-00010",
		TotalAmount:     total,
		RemainingAmount: total,
		Status:          models.FileStatusActive,
	})

	_, err := svc.PostPayment(ctx, PostPaymentInput{
		FileID:  file.ID,
		Amount:  total,
		Method:  models.PaymentMethodCash,
		Kind:    models.PaymentKindFullPayment,
		ActorID: 7,
	})
	require.NoError(t, err)

	// Knock the file back to active with a wrong balance; sync should
	// restore both the amount and the completed status.
	store.files[file.ID].Status = models.FileStatusActive
	store.files[file.ID].PaidAmount = decimal.Zero
	store.files[file.ID].CompletedAt = nil

	result, err := svc.SyncPaidAmount(ctx, file.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, models.FileStatusCompleted, result.Status)
	assert.NotNil(t, store.files[file.ID].CompletedAt)
}

func TestLedgerService_GetLedgerSummary(t *testing.T) {
	store, svc := newLedgerFixture(t)
	file := seedInstallmentFile(store)
	ctx := context.Background()

	for seq := 1; seq <= 3; seq++ {
		_, err := svc.PostPayment(ctx, PostPaymentInput{
			FileID:         file.ID,
			Amount:         decimal.NewFromInt(50000),
			Method:         models.PaymentMethodCash,
			InstallmentSeq: intPtr(seq),
			ActorID:        7,
		})
		require.NoError(t, err)
	}

	summary, err := svc.GetLedgerSummary(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.FileNumber, summary.FileNumber)
	assert.True(t, summary.PaidAmount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, summary.ProgressPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 3, summary.ObligationsPaid)
	assert.Equal(t, 9, summary.ObligationsPending)

	_, err = svc.GetLedgerSummary(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerService_ErrorsWrapSentinels(t *testing.T) {
	_, svc := newLedgerFixture(t)
	ctx := context.Background()

	_, err := svc.FindPayment(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetFile(ctx, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}
