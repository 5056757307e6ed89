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

// FileNumberPrefix is the prefix for contract file numbers
const FileNumberPrefix = "CF"

// DealService drives the deal lifecycle. Confirming a deal opens the
// contract file; completing it earns the dealer's commission.
type DealService struct {
	tx            repository.TxManager
	dealRepo      repository.DealRepository
	commissionSvc *CommissionService
	auditSvc      *AuditService
	now           func() time.Time
}

// NewDealService creates a new deal service
func NewDealService(tx repository.TxManager, dealRepo repository.DealRepository, commissionSvc *CommissionService, auditSvc *AuditService) *DealService {
	return &DealService{
		tx:            tx,
		dealRepo:      dealRepo,
		commissionSvc: commissionSvc,
		auditSvc:      auditSvc,
		now:           time.Now,
	}
}

// CreateDealInput carries the values for a new deal
type CreateDealInput struct {
	ClientID             uint
	PlotID               uint
	DealerID             uint
	Amount               decimal.Decimal
	CommissionPercentage decimal.Decimal
	CommissionAmount     decimal.Decimal
	Notes                *string
}

// Create records a new pending deal
func (s *DealService) Create(ctx context.Context, in CreateDealInput) (*models.Deal, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: deal amount must be positive", ErrValidation)
	}
	if in.CommissionPercentage.IsNegative() || in.CommissionAmount.IsNegative() {
		return nil, fmt.Errorf("%w: commission must not be negative", ErrValidation)
	}

	deal := &models.Deal{
		ClientID:             in.ClientID,
		PlotID:               in.PlotID,
		DealerID:             in.DealerID,
		Amount:               in.Amount,
		CommissionPercentage: in.CommissionPercentage,
		CommissionAmount:     in.CommissionAmount,
		Status:               models.DealStatusPending,
		Notes:                in.Notes,
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}
	return deal, nil
}

// ConfirmDealInput describes the payment arrangement for a confirmed sale
type ConfirmDealInput struct {
	DealID               uint
	PaymentPlan          string // cash | installment
	TotalInstallments    int
	InstallmentAmount    decimal.Decimal
	InstallmentFrequency string
	FirstInstallmentDate time.Time
	Remarks              *string
	ActorID              uint
}

// Confirm moves the deal to confirmed and opens its contract file in the
// same transaction: a cash file carries the whole amount as one obligation,
// an installment file gets a generated schedule.
func (s *DealService) Confirm(ctx context.Context, in ConfirmDealInput) (*models.ContractFile, error) {
	if in.PaymentPlan != models.PaymentPlanCash && in.PaymentPlan != models.PaymentPlanInstallment {
		return nil, fmt.Errorf("%w: unknown payment plan %q", ErrValidation, in.PaymentPlan)
	}

	var file *models.ContractFile
	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		deal, err := tx.Deal.FindByIDForUpdate(ctx, in.DealID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: deal %d", ErrNotFound, in.DealID)
			}
			return err
		}

		fsm := statemachine.NewDealFSM(deal)
		if err := fsm.Confirm(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		now := s.now()
		deal.ConfirmedAt = &now

		if err := tx.Deal.Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}

		counter, err := tx.Receipt.NextNumber(ctx, FileNumberPrefix, now.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate file number: %w", err)
		}

		dealID := deal.ID
		file = &models.ContractFile{
			FileNumber:      models.ReceiptNumberFor(FileNumberPrefix, now.Year(), counter),
			ClientID:        deal.ClientID,
			PlotID:          deal.PlotID,
			DealID:          &dealID,
			TotalAmount:     deal.Amount,
			PaidAmount:      decimal.Zero,
			RemainingAmount: deal.Amount,
			PaymentPlan:     in.PaymentPlan,
			Status:          models.FileStatusActive,
			IssueDate:       now,
			Remarks:         in.Remarks,
		}

		if err := tx.File.Create(ctx, file); err != nil {
			return fmt.Errorf("failed to create contract file: %w", err)
		}

		if in.PaymentPlan == models.PaymentPlanInstallment {
			installments, err := BuildSchedule(file.ID, in.FirstInstallmentDate, in.TotalInstallments, in.InstallmentAmount, in.InstallmentFrequency)
			if err != nil {
				return err
			}
			lastDue, err := LastDueDate(in.FirstInstallmentDate, in.TotalInstallments, in.InstallmentFrequency)
			if err != nil {
				return err
			}

			if err := tx.Installment.CreateBatch(ctx, installments); err != nil {
				return fmt.Errorf("failed to create installment schedule: %w", err)
			}

			file.TotalInstallments = in.TotalInstallments
			file.InstallmentAmount = in.InstallmentAmount
			file.InstallmentFrequency = in.InstallmentFrequency
			firstDue := in.FirstInstallmentDate
			file.FirstInstallmentDate = &firstDue
			file.LastInstallmentDate = &lastDue

			if err := tx.File.Update(ctx, file); err != nil {
				return fmt.Errorf("failed to update file plan: %w", err)
			}
		}

		// Reserve the plot while the sale runs
		plot, err := tx.Property.FindPlotByID(ctx, deal.PlotID)
		if err == nil && plot.Status == models.PlotStatusAvailable {
			plot.Status = models.PlotStatusReserved
			if err := tx.Property.UpdatePlot(ctx, plot); err != nil {
				return fmt.Errorf("failed to reserve plot: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, in.ActorID, "CONFIRM", in.DealID,
		fmt.Sprintf("Confirmed deal %d, opened file %s (%s plan)", in.DealID, file.FileNumber, in.PaymentPlan))

	return file, nil
}

// Complete moves a confirmed deal to completed and refreshes the dealer's
// commission projection. Completion from any other state is rejected.
func (s *DealService) Complete(ctx context.Context, dealID uint, actorID uint) (*models.Deal, error) {
	var deal *models.Deal
	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		var err error
		deal, err = tx.Deal.FindByIDForUpdate(ctx, dealID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: deal %d", ErrNotFound, dealID)
			}
			return err
		}

		fsm := statemachine.NewDealFSM(deal)
		if err := fsm.Complete(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		now := s.now()
		deal.CompletedAt = &now

		if err := tx.Deal.Update(ctx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}

		plot, err := tx.Property.FindPlotByID(ctx, deal.PlotID)
		if err == nil {
			plot.Status = models.PlotStatusSold
			if err := tx.Property.UpdatePlot(ctx, plot); err != nil {
				return fmt.Errorf("failed to mark plot sold: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.commissionSvc.OnDealCompleted(ctx, deal); err != nil {
		logger.Error("Failed to refresh dealer stats after completion", "deal_id", dealID, "error", err)
	}

	s.audit(ctx, actorID, "COMPLETE", dealID,
		fmt.Sprintf("Completed deal %d, commission %s", dealID, deal.Commission()))

	return deal, nil
}

// Cancel voids a pending or confirmed deal
func (s *DealService) Cancel(ctx context.Context, dealID uint, reason string, actorID uint) (*models.Deal, error) {
	var deal *models.Deal
	err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
		var err error
		deal, err = tx.Deal.FindByIDForUpdate(ctx, dealID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: deal %d", ErrNotFound, dealID)
			}
			return err
		}

		fsm := statemachine.NewDealFSM(deal)
		if err := fsm.Cancel(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		if reason != "" {
			deal.Notes = &reason
		}

		return tx.Deal.Update(ctx, deal)
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actorID, "CANCEL", dealID, fmt.Sprintf("Cancelled deal %d: %s", dealID, reason))
	return deal, nil
}

// FindByID returns a deal by id
func (s *DealService) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	deal, err := s.dealRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: deal %d", ErrNotFound, id)
		}
		return nil, err
	}
	return deal, nil
}

// List returns deals matching the query
func (s *DealService) List(ctx context.Context, query *repository.ListQuery) ([]models.Deal, int64, error) {
	return s.dealRepo.List(ctx, query)
}

func (s *DealService) audit(ctx context.Context, actorID uint, action string, dealID uint, details string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Log(ctx, actorID, action, "Deal", dealID, details); err != nil {
		logger.Warn("Failed to write audit entry", "action", action, "deal_id", dealID, "error", err)
	}
}
