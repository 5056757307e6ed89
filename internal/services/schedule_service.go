package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/shopspring/decimal"
)

// ScheduleService generates and maintains installment schedules
type ScheduleService struct {
	installmentRepo repository.InstallmentRepository
	fileRepo        repository.FileRepository
}

// NewScheduleService creates a new schedule service
func NewScheduleService(installmentRepo repository.InstallmentRepository, fileRepo repository.FileRepository) *ScheduleService {
	return &ScheduleService{
		installmentRepo: installmentRepo,
		fileRepo:        fileRepo,
	}
}

// BuildSchedule produces the ordered installment slices for a plan without
// touching storage. Exactly count obligations come back, sequenced 1..count,
// due dates advancing by the frequency step from firstDue.
func BuildSchedule(fileID uint, firstDue time.Time, count int, amountPerPeriod decimal.Decimal, frequency string) ([]models.Installment, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: installment count must be at least 1", ErrValidation)
	}
	if amountPerPeriod.IsNegative() {
		return nil, fmt.Errorf("%w: installment amount must not be negative", ErrValidation)
	}
	step := models.FrequencyMonths(frequency)
	if step == 0 {
		return nil, fmt.Errorf("%w: unknown installment frequency %q", ErrValidation, frequency)
	}

	installments := make([]models.Installment, 0, count)
	for i := 0; i < count; i++ {
		installments = append(installments, models.Installment{
			ContractFileID: fileID,
			Sequence:       i + 1,
			Amount:         amountPerPeriod,
			DueDate:        firstDue.AddDate(0, i*step, 0),
			Status:         models.InstallmentStatusPending,
		})
	}
	return installments, nil
}

// LastDueDate computes the due date of the final installment with the same
// date-advance rule BuildSchedule uses. The file's last_installment_date is
// derived from this; the two must always agree.
func LastDueDate(firstDue time.Time, count int, frequency string) (time.Time, error) {
	if count < 1 {
		return time.Time{}, fmt.Errorf("%w: installment count must be at least 1", ErrValidation)
	}
	step := models.FrequencyMonths(frequency)
	if step == 0 {
		return time.Time{}, fmt.Errorf("%w: unknown installment frequency %q", ErrValidation, frequency)
	}
	return firstDue.AddDate(0, (count-1)*step, 0), nil
}

// Generate builds and persists the schedule for a file, stamping the file's
// plan fields. The batch insert keeps generation all-or-nothing.
func (s *ScheduleService) Generate(ctx context.Context, file *models.ContractFile, firstDue time.Time, count int, amountPerPeriod decimal.Decimal, frequency string) ([]models.Installment, error) {
	installments, err := BuildSchedule(file.ID, firstDue, count, amountPerPeriod, frequency)
	if err != nil {
		return nil, err
	}

	lastDue, err := LastDueDate(firstDue, count, frequency)
	if err != nil {
		return nil, err
	}

	if err := s.installmentRepo.CreateBatch(ctx, installments); err != nil {
		return nil, fmt.Errorf("failed to create installment schedule: %w", err)
	}

	file.PaymentPlan = models.PaymentPlanInstallment
	file.TotalInstallments = count
	file.InstallmentAmount = amountPerPeriod
	file.InstallmentFrequency = frequency
	first := firstDue
	file.FirstInstallmentDate = &first
	file.LastInstallmentDate = &lastDue

	if err := s.fileRepo.Update(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to update file plan: %w", err)
	}

	return installments, nil
}

// FindByFile returns the schedule for a file ordered by sequence
func (s *ScheduleService) FindByFile(ctx context.Context, fileID uint) ([]models.Installment, error) {
	return s.installmentRepo.FindByFile(ctx, fileID)
}
