package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayableQuote is the resolved view of a tagged payable reference
type PayableQuote struct {
	Ref         models.PayableRef `json:"ref"`
	FileID      uint              `json:"file_id"`
	Description string            `json:"description"`
	Amount      decimal.Decimal   `json:"amount"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
}

// PayableResolver turns a tagged payable reference into an amount owed.
// Dispatch is over the closed kind set; an unknown tag is a validation
// error, never a dynamic lookup.
type PayableResolver struct {
	fileRepo        repository.FileRepository
	installmentRepo repository.InstallmentRepository
	now             func() time.Time
}

// NewPayableResolver creates a new payable resolver
func NewPayableResolver(fileRepo repository.FileRepository, installmentRepo repository.InstallmentRepository) *PayableResolver {
	return &PayableResolver{
		fileRepo:        fileRepo,
		installmentRepo: installmentRepo,
		now:             time.Now,
	}
}

// Resolve looks up the referenced entity and quotes what is owed against it
func (r *PayableResolver) Resolve(ctx context.Context, ref models.PayableRef) (*PayableQuote, error) {
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	switch ref.Kind {
	case models.PayableInstallment:
		return r.resolveInstallment(ctx, ref)
	case models.PayableLatePenalty:
		return r.resolveLatePenalty(ctx, ref)
	case models.PayableTransferCharge:
		return r.resolveTransferCharge(ctx, ref)
	}
	return nil, fmt.Errorf("%w: unknown payable kind %q", ErrValidation, ref.Kind)
}

func (r *PayableResolver) resolveInstallment(ctx context.Context, ref models.PayableRef) (*PayableQuote, error) {
	inst, err := r.installmentRepo.FindByID(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: installment %d", ErrNotFound, ref.ID)
		}
		return nil, err
	}
	if !inst.IsOpen() {
		return nil, fmt.Errorf("%w: installment %d is already %s", ErrInvalidState, ref.ID, inst.Status)
	}

	due := inst.DueDate
	return &PayableQuote{
		Ref:         ref,
		FileID:      inst.ContractFileID,
		Description: fmt.Sprintf("Installment #%d", inst.Sequence),
		Amount:      inst.Amount,
		DueDate:     &due,
	}, nil
}

// resolveLatePenalty quotes the late fee accrued on an open installment as
// of today. The quote is advisory; posting it goes through PostPayment with
// the penalty field.
func (r *PayableResolver) resolveLatePenalty(ctx context.Context, ref models.PayableRef) (*PayableQuote, error) {
	inst, err := r.installmentRepo.FindByID(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: installment %d", ErrNotFound, ref.ID)
		}
		return nil, err
	}

	asOf := r.now()
	if !inst.IsOverdueAt(asOf) {
		return nil, fmt.Errorf("%w: installment %d is not overdue", ErrInvalidState, ref.ID)
	}

	days := DaysOverdue(inst.DueDate, asOf)
	return &PayableQuote{
		Ref:         ref,
		FileID:      inst.ContractFileID,
		Description: fmt.Sprintf("Late fee on installment #%d (%d days)", inst.Sequence, days),
		Amount:      LateFee(inst.Amount, days),
	}, nil
}

func (r *PayableResolver) resolveTransferCharge(ctx context.Context, ref models.PayableRef) (*PayableQuote, error) {
	file, err := r.fileRepo.FindByID(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: file %d", ErrNotFound, ref.ID)
		}
		return nil, err
	}
	if file.TransferFee == nil {
		return nil, fmt.Errorf("%w: file %d has no transfer fee", ErrInvalidState, ref.ID)
	}

	return &PayableQuote{
		Ref:         ref,
		FileID:      file.ID,
		Description: fmt.Sprintf("Transfer charges on file %s", file.FileNumber),
		Amount:      *file.TransferFee,
		DueDate:     file.TransferDate,
	}, nil
}
