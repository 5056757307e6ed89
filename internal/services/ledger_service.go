package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/estatedesk/estatedesk-api/internal/statemachine"
	"github.com/estatedesk/estatedesk-api/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceiptPrefix is the prefix for payment receipt numbers
const ReceiptPrefix = "RCP"

// LedgerService owns every balance-affecting operation on a contract file.
// All mutations run inside one transaction with the file row locked, so two
// concurrent clearances against the same file serialize instead of racing
// on paid_amount.
type LedgerService struct {
	tx              repository.TxManager
	fileRepo        repository.FileRepository
	paymentRepo     repository.PaymentRepository
	installmentRepo repository.InstallmentRepository
	auditSvc        *AuditService
	now             func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	tx repository.TxManager,
	fileRepo repository.FileRepository,
	paymentRepo repository.PaymentRepository,
	installmentRepo repository.InstallmentRepository,
	auditSvc *AuditService,
) *LedgerService {
	return &LedgerService{
		tx:              tx,
		fileRepo:        fileRepo,
		paymentRepo:     paymentRepo,
		installmentRepo: installmentRepo,
		auditSvc:        auditSvc,
		now:             time.Now,
	}
}

// PostPaymentInput carries the values for a new payment record
type PostPaymentInput struct {
	FileID         uint
	Amount         decimal.Decimal
	PenaltyAmount  decimal.Decimal
	DiscountAmount decimal.Decimal
	Method         string
	Kind           string
	PaymentDate    time.Time
	DueDate        *time.Time
	InstallmentSeq *int
	Remarks        *string
	ActorID        uint
}

func (in *PostPaymentInput) validate() error {
	if in.Kind == "" {
		in.Kind = models.PaymentKindInstallment
	}
	if in.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if in.PenaltyAmount.IsNegative() || in.DiscountAmount.IsNegative() {
		return fmt.Errorf("%w: penalty and discount must not be negative", ErrValidation)
	}
	if !models.ValidPaymentMethod(in.Method) {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.Method)
	}
	if !models.ValidPaymentKind(in.Kind) {
		return fmt.Errorf("%w: unknown payment kind %q", ErrValidation, in.Kind)
	}
	// Transfer charges never reach the ledger, so they can never settle an
	// installment.
	if in.InstallmentSeq != nil && in.Kind == models.PaymentKindTransferCharges {
		return fmt.Errorf("%w: %s payments cannot target an installment", ErrValidation, in.Kind)
	}
	return nil
}

// PostPayment records a money movement against a file. The record lands in
// received status, or cleared immediately for cash, in which case the
// file's balances, completion status and any targeted installment are
// updated in the same transaction.
func (s *LedgerService) PostPayment(ctx context.Context, in PostPaymentInput) (*models.PaymentRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = s.now()
	}

	var record *models.PaymentRecord
	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		file, err := tx.File.FindByIDForUpdate(ctx, in.FileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contract file %d", ErrNotFound, in.FileID)
			}
			return err
		}

		if !file.MayPostPayment() {
			return fmt.Errorf("%w: cannot post payment to %s file %s", ErrInvalidState, file.Status, file.FileNumber)
		}

		var installment *models.Installment
		if in.InstallmentSeq != nil {
			installment, err = tx.Installment.FindByFileAndSequenceForUpdate(ctx, file.ID, *in.InstallmentSeq)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: installment #%d does not exist on file %s", ErrValidation, *in.InstallmentSeq, file.FileNumber)
				}
				return err
			}
			if !installment.IsOpen() {
				return fmt.Errorf("%w: installment #%d on file %s is already settled", ErrValidation, *in.InstallmentSeq, file.FileNumber)
			}
		}

		counter, err := tx.Receipt.NextNumber(ctx, ReceiptPrefix, paymentDate.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate receipt number: %w", err)
		}

		record = &models.PaymentRecord{
			ContractFileID: file.ID,
			ReceiptNumber:  models.ReceiptNumberFor(ReceiptPrefix, paymentDate.Year(), counter),
			Amount:         in.Amount,
			PenaltyAmount:  in.PenaltyAmount,
			DiscountAmount: in.DiscountAmount,
			NetAmount:      models.ComputeNet(in.Amount, in.PenaltyAmount, in.DiscountAmount),
			Method:         in.Method,
			Kind:           in.Kind,
			PaymentDate:    paymentDate,
			DueDate:        in.DueDate,
			Status:         models.PaymentStatusPending,
			ReceivedByID:   in.ActorID,
			Remarks:        in.Remarks,
		}
		if installment != nil {
			record.InstallmentID = &installment.ID
			if record.DueDate == nil {
				due := installment.DueDate
				record.DueDate = &due
			}
		}

		fsm := statemachine.NewPaymentFSM(record)
		if err := fsm.Receive(ctx); err != nil {
			return err
		}

		// Cash needs no clearance delay
		if record.Method == models.PaymentMethodCash {
			now := s.now()
			if err := fsm.Clear(ctx); err != nil {
				return err
			}
			record.ClearedAt = &now
		}

		if err := tx.Payment.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}

		if record.Status == models.PaymentStatusCleared {
			if err := s.settle(ctx, tx, file, record, installment); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, in.ActorID, "POST", "PaymentRecord", record.ID,
		fmt.Sprintf("Posted %s %s payment %s against file %d", record.NetAmount, record.Method, record.ReceiptNumber, record.ContractFileID))

	return record, nil
}

// ClearResult reports a clearance, flagging the idempotent no-op case
type ClearResult struct {
	Record         *models.PaymentRecord `json:"record"`
	AlreadyCleared bool                  `json:"already_cleared"`
}

// ClearPayment settles a received payment: the file's paid amount grows by
// the record's net amount, the remaining amount is recomputed, the file
// completes when nothing remains, and a targeted installment is marked
// paid. Clearing an already-cleared record is a no-op reported as such.
func (s *LedgerService) ClearPayment(ctx context.Context, recordID uint, actorID uint) (*ClearResult, error) {
	result := &ClearResult{}

	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		// Lock the file before the payment so every balance path takes
		// locks in the same order.
		peek, err := tx.Payment.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment record %d", ErrNotFound, recordID)
			}
			return err
		}

		file, err := tx.File.FindByIDForUpdate(ctx, peek.ContractFileID)
		if err != nil {
			return err
		}

		record, err := tx.Payment.FindByIDForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		result.Record = record

		if record.Status == models.PaymentStatusCleared {
			result.AlreadyCleared = true
			return nil
		}
		if !record.MayClear() {
			return fmt.Errorf("%w: payment %s cannot be cleared from status %s", ErrInvalidState, record.ReceiptNumber, record.Status)
		}

		fsm := statemachine.NewPaymentFSM(record)
		if err := fsm.Clear(ctx); err != nil {
			return err
		}
		now := s.now()
		record.ClearedAt = &now

		if err := tx.Payment.Update(ctx, record); err != nil {
			return fmt.Errorf("failed to update payment record: %w", err)
		}

		var installment *models.Installment
		if record.InstallmentID != nil {
			installment, err = tx.Installment.FindByID(ctx, *record.InstallmentID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		return s.settle(ctx, tx, file, record, installment)
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCleared {
		s.audit(ctx, actorID, "CLEAR", "PaymentRecord", recordID,
			fmt.Sprintf("Cleared payment %s for file %d", result.Record.ReceiptNumber, result.Record.ContractFileID))
	}

	return result, nil
}

// settle applies a freshly cleared record to the file and its installment.
// Transfer charges are tracked but never counted toward the contract total.
func (s *LedgerService) settle(ctx context.Context, tx *repository.Repositories, file *models.ContractFile, record *models.PaymentRecord, installment *models.Installment) error {
	if !record.CountsTowardBalance() {
		return nil
	}

	file.ApplyCleared(record.NetAmount, s.now())
	if err := tx.File.Update(ctx, file); err != nil {
		return fmt.Errorf("failed to update file balances: %w", err)
	}

	if installment != nil && installment.IsOpen() {
		installment.MarkPaid(record.ID, s.now())
		if err := tx.Installment.Update(ctx, installment); err != nil {
			return fmt.Errorf("failed to settle installment: %w", err)
		}
	}

	return nil
}

// BouncePayment dishonours a payment. Bouncing a received record has no
// balance effect; bouncing a cleared record reverses it: the file's paid
// amount shrinks by the net amount, a completion caused by this payment is
// undone, and the installment it settled reopens. The record is never
// adjusted on the file unless it had actually been counted.
func (s *LedgerService) BouncePayment(ctx context.Context, recordID uint, reason string, actorID uint) (*models.PaymentRecord, error) {
	var record *models.PaymentRecord

	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		peek, err := tx.Payment.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment record %d", ErrNotFound, recordID)
			}
			return err
		}

		file, err := tx.File.FindByIDForUpdate(ctx, peek.ContractFileID)
		if err != nil {
			return err
		}

		record, err = tx.Payment.FindByIDForUpdate(ctx, recordID)
		if err != nil {
			return err
		}

		if !record.MayBounce() {
			return fmt.Errorf("%w: payment %s cannot be bounced from status %s", ErrInvalidState, record.ReceiptNumber, record.Status)
		}

		wasCleared := record.Status == models.PaymentStatusCleared

		fsm := statemachine.NewPaymentFSM(record)
		if err := fsm.Bounce(ctx); err != nil {
			return err
		}
		now := s.now()
		record.BouncedAt = &now
		if reason != "" {
			record.StatusReason = &reason
		}

		if err := tx.Payment.Update(ctx, record); err != nil {
			return fmt.Errorf("failed to update payment record: %w", err)
		}

		if wasCleared && record.CountsTowardBalance() {
			file.RevertCleared(record.NetAmount)
			if err := tx.File.Update(ctx, file); err != nil {
				return fmt.Errorf("failed to revert file balances: %w", err)
			}
		}

		if wasCleared && record.InstallmentID != nil {
			installment, err := tx.Installment.FindByID(ctx, *record.InstallmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil
				}
				return err
			}
			// Only reopen if this record is the one that settled it
			if installment.PaymentRecordID != nil && *installment.PaymentRecordID == record.ID {
				installment.Reopen()
				if err := tx.Installment.Update(ctx, installment); err != nil {
					return fmt.Errorf("failed to reopen installment: %w", err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, "BOUNCE", "PaymentRecord", recordID,
		fmt.Sprintf("Bounced payment %s for file %d: %s", record.ReceiptNumber, record.ContractFileID, reason))

	return record, nil
}

// CancelPayment voids a payment that has not settled. Cleared records must
// bounce or be corrected by an adjustment so counted money is never
// silently erased.
func (s *LedgerService) CancelPayment(ctx context.Context, recordID uint, reason string, actorID uint) (*models.PaymentRecord, error) {
	var record *models.PaymentRecord

	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		var err error
		record, err = tx.Payment.FindByIDForUpdate(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment record %d", ErrNotFound, recordID)
			}
			return err
		}

		if !record.MayCancel() {
			return fmt.Errorf("%w: payment %s cannot be cancelled from status %s", ErrInvalidState, record.ReceiptNumber, record.Status)
		}

		fsm := statemachine.NewPaymentFSM(record)
		if err := fsm.Cancel(ctx); err != nil {
			return err
		}
		now := s.now()
		record.CancelledAt = &now
		if reason != "" {
			record.StatusReason = &reason
		}

		return tx.Payment.Update(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, "CANCEL", "PaymentRecord", recordID,
		fmt.Sprintf("Cancelled payment %s for file %d: %s", record.ReceiptNumber, record.ContractFileID, reason))

	return record, nil
}

// SyncResult reports a paid-amount reconciliation
type SyncResult struct {
	FileID          uint            `json:"file_id"`
	PreviousPaid    decimal.Decimal `json:"previous_paid"`
	ComputedPaid    decimal.Decimal `json:"computed_paid"`
	Drift           decimal.Decimal `json:"drift"`
	ReconcileNeeded bool            `json:"reconcile_needed"`
	Status          string          `json:"status"`
}

// SyncPaidAmount recomputes the file's paid amount from scratch as the sum
// of settled, non-deleted payment records and reapplies the completion
// rule. It is idempotent; a detected drift is logged and surfaced in the
// result, never silently swallowed.
func (s *LedgerService) SyncPaidAmount(ctx context.Context, fileID uint, actorID uint) (*SyncResult, error) {
	result := &SyncResult{FileID: fileID}

	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		file, err := tx.File.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contract file %d", ErrNotFound, fileID)
			}
			return err
		}

		sum, err := tx.Payment.SumSettledNet(ctx, fileID)
		if err != nil {
			return fmt.Errorf("failed to sum settled payments: %w", err)
		}

		result.PreviousPaid = file.PaidAmount
		result.ComputedPaid = sum
		result.Drift = file.PaidAmount.Sub(sum)
		result.ReconcileNeeded = !result.Drift.IsZero()

		file.PaidAmount = sum
		file.RemainingAmount = file.TotalAmount.Sub(sum)

		switch {
		case file.Status == models.FileStatusActive && file.IsSettled():
			file.Status = models.FileStatusCompleted
			now := s.now()
			file.CompletedAt = &now
		case file.Status == models.FileStatusCompleted && !file.IsSettled():
			file.Status = models.FileStatusActive
			file.CompletedAt = nil
		}
		result.Status = file.Status

		return tx.File.Update(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if result.ReconcileNeeded {
		logger.Warn("Ledger drift detected during sync",
			"file_id", fileID,
			"stored_paid", result.PreviousPaid.String(),
			"computed_paid", result.ComputedPaid.String(),
			"drift", result.Drift.String())
		s.audit(ctx, actorID, "SYNC", "ContractFile", fileID,
			fmt.Sprintf("Reconcile needed on file %d: stored paid %s, settled sum %s", fileID, result.PreviousPaid, result.ComputedPaid))
	}

	return result, nil
}

// GetLedgerSummary returns the read model for a file's financial position
func (s *LedgerService) GetLedgerSummary(ctx context.Context, fileID uint) (*models.LedgerSummary, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract file %d", ErrNotFound, fileID)
		}
		return nil, err
	}

	counts, err := s.installmentRepo.StatusCounts(ctx, fileID)
	if err != nil {
		return nil, err
	}

	return &models.LedgerSummary{
		FileID:             file.ID,
		FileNumber:         file.FileNumber,
		Status:             file.Status,
		TotalAmount:        file.TotalAmount,
		PaidAmount:         file.PaidAmount,
		RemainingAmount:    file.RemainingAmount,
		ProgressPercent:    file.ProgressPercent(),
		ObligationsPaid:    counts.Paid,
		ObligationsPending: counts.Pending,
		ObligationsOverdue: counts.Overdue,
		CompletedAt:        file.CompletedAt,
	}, nil
}

// GetFile returns a contract file with its schedule and payment history
func (s *LedgerService) GetFile(ctx context.Context, fileID uint) (*models.ContractFile, error) {
	file, err := s.fileRepo.FindByIDWithDetails(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract file %d", ErrNotFound, fileID)
		}
		return nil, err
	}
	return file, nil
}

// ListFiles returns contract files matching the query
func (s *LedgerService) ListFiles(ctx context.Context, query *repository.ListQuery) ([]models.ContractFile, int64, error) {
	return s.fileRepo.List(ctx, query)
}

// FindPayment returns a payment record by id
func (s *LedgerService) FindPayment(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	record, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment record %d", ErrNotFound, id)
		}
		return nil, err
	}
	return record, nil
}

// ListPayments returns payment records matching the query
func (s *LedgerService) ListPayments(ctx context.Context, query *repository.ListQuery) ([]models.PaymentRecord, int64, error) {
	return s.paymentRepo.List(ctx, query)
}

func (s *LedgerService) audit(ctx context.Context, actorID uint, action, entity string, entityID uint, details string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Log(ctx, actorID, action, entity, entityID, details); err != nil {
		logger.Warn("Failed to write audit entry", "action", action, "entity_id", entityID, "error", err)
	}
}
