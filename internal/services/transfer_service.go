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

// TransferService re-points a contract file to a new owning client
// mid-contract. Transfer is terminal for the file: obligation tracking
// stops even when a balance remains, because the contractual party changed.
type TransferService struct {
	tx       repository.TxManager
	auditSvc *AuditService
	now      func() time.Time
}

// NewTransferService creates a new transfer service
func NewTransferService(tx repository.TxManager, auditSvc *AuditService) *TransferService {
	return &TransferService{
		tx:       tx,
		auditSvc: auditSvc,
		now:      time.Now,
	}
}

// Transfer moves the file to a new owner, records the lineage and, for a
// positive fee, posts a cash transfer-charges record. That record clears
// immediately but never counts toward the contract's paid/remaining
// reconciliation; it is a standalone one-off charge.
func (s *TransferService) Transfer(ctx context.Context, fileID, newClientID uint, transferFee decimal.Decimal, remarks string, actorID uint) (*models.ContractFile, error) {
	if transferFee.IsNegative() {
		return nil, fmt.Errorf("%w: transfer fee must not be negative", ErrValidation)
	}

	var file *models.ContractFile
	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		var err error
		file, err = tx.File.FindByIDForUpdate(ctx, fileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contract file %d", ErrNotFound, fileID)
			}
			return err
		}

		if file.ClientID == newClientID {
			return fmt.Errorf("%w: new owner must differ from current owner", ErrValidation)
		}
		if !file.MayTransfer() {
			return fmt.Errorf("%w: cannot transfer %s file %s", ErrInvalidState, file.Status, file.FileNumber)
		}

		if _, err := tx.Client.FindByID(ctx, newClientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: client %d", ErrNotFound, newClientID)
			}
			return err
		}

		now := s.now()
		previous := file.ClientID
		file.PreviousClientID = &previous
		file.ClientID = newClientID
		transferDate := now
		file.TransferDate = &transferDate
		if transferFee.GreaterThan(decimal.Zero) {
			fee := transferFee
			file.TransferFee = &fee
		}
		if remarks != "" {
			file.Remarks = &remarks
		}

		fsm := statemachine.NewFileFSM(file)
		if err := fsm.Transfer(ctx); err != nil {
			return err
		}

		if err := tx.File.Update(ctx, file); err != nil {
			return fmt.Errorf("failed to update file: %w", err)
		}

		if transferFee.GreaterThan(decimal.Zero) {
			counter, err := tx.Receipt.NextNumber(ctx, ReceiptPrefix, now.Year())
			if err != nil {
				return fmt.Errorf("failed to allocate receipt number: %w", err)
			}

			feeRecord := &models.PaymentRecord{
				ContractFileID: file.ID,
				ReceiptNumber:  models.ReceiptNumberFor(ReceiptPrefix, now.Year(), counter),
				Amount:         transferFee,
				PenaltyAmount:  decimal.Zero,
				DiscountAmount: decimal.Zero,
				NetAmount:      transferFee,
				Method:         models.PaymentMethodCash,
				Kind:           models.PaymentKindTransferCharges,
				PaymentDate:    now,
				Status:         models.PaymentStatusPending,
				ReceivedByID:   actorID,
			}

			pfsm := statemachine.NewPaymentFSM(feeRecord)
			if err := pfsm.Receive(ctx); err != nil {
				return err
			}
			if err := pfsm.Clear(ctx); err != nil {
				return err
			}
			feeRecord.ClearedAt = &now

			if err := tx.Payment.Create(ctx, feeRecord); err != nil {
				return fmt.Errorf("failed to create transfer fee record: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		details := fmt.Sprintf("Transferred file %s from client %d to client %d (fee %s)", file.FileNumber, *file.PreviousClientID, file.ClientID, transferFee)
		if err := s.auditSvc.Log(ctx, actorID, "TRANSFER", "ContractFile", file.ID, details); err != nil {
			logger.Warn("Failed to write audit entry", "action", "TRANSFER", "file_id", file.ID, "error", err)
		}
	}

	return file, nil
}
