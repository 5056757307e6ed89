package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/estatedesk/estatedesk-api/pkg/logger"
	"github.com/shopspring/decimal"
)

// LateFeeMonthlyPercent is the late fee per started month overdue, as a
// percentage of the installment amount.
var LateFeeMonthlyPercent = decimal.NewFromInt(1)

// OverdueService computes lateness and penalties over open obligations.
// The computation is pure; the sweep persists the same numbers for query
// efficiency.
type OverdueService struct {
	tx              repository.TxManager
	installmentRepo repository.InstallmentRepository
	now             func() time.Time
}

// NewOverdueService creates a new overdue service
func NewOverdueService(tx repository.TxManager, installmentRepo repository.InstallmentRepository) *OverdueService {
	return &OverdueService{
		tx:              tx,
		installmentRepo: installmentRepo,
		now:             time.Now,
	}
}

// DaysOverdue returns whole days between the due date and asOf, or 0 if the
// due date has not passed.
func DaysOverdue(dueDate, asOf time.Time) int {
	due := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, time.UTC)
	at := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	days := int(at.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// LateFee computes the installment late fee: LateFeeMonthlyPercent of the
// amount per started month overdue. A partial month counts as a full month
// (ceil(days/30)).
func LateFee(amount decimal.Decimal, daysOverdue int) decimal.Decimal {
	if daysOverdue <= 0 {
		return decimal.Zero
	}
	months := int64((daysOverdue + 29) / 30)
	return amount.
		Mul(LateFeeMonthlyPercent).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(months)).
		Round(2)
}

// DailyPenalty is the simple-interest accrual for ad-hoc overdue payments
// not tied to a schedule: amount * dailyRate/100 * daysLate. Deliberately a
// different formula from the monthly-stepped installment late fee; do not
// unify the two.
func DailyPenalty(amount, dailyRatePercent decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	return amount.
		Mul(dailyRatePercent).
		Div(decimal.NewFromInt(100)).
		Mul(decimal.NewFromInt(int64(daysLate))).
		Round(2)
}

// OverdueResult is the computed lateness for one obligation
type OverdueResult struct {
	DaysOverdue int             `json:"days_overdue"`
	LateFee     decimal.Decimal `json:"late_fee"`
	Overdue     bool            `json:"overdue"`
}

// ComputeOverdue evaluates one installment as of a date without mutating
// anything. An obligation is overdue only while open and past due.
func (s *OverdueService) ComputeOverdue(installment *models.Installment, asOf time.Time) OverdueResult {
	if !installment.IsOverdueAt(asOf) {
		return OverdueResult{}
	}
	days := DaysOverdue(installment.DueDate, asOf)
	return OverdueResult{
		DaysOverdue: days,
		LateFee:     LateFee(installment.Amount, days),
		Overdue:     days > 0,
	}
}

// Sweep persists lateness onto every open installment past due, one file
// per transaction so the aging write serializes with any in-flight payment
// on the same file. Reporting and persistence share ComputeOverdue, so the
// two can never disagree.
func (s *OverdueService) Sweep(ctx context.Context) error {
	asOf := s.now()

	installments, err := s.installmentRepo.FindOpenDueBefore(ctx, asOf)
	if err != nil {
		return fmt.Errorf("failed to load open installments: %w", err)
	}

	byFile := make(map[uint][]models.Installment)
	order := make([]uint, 0)
	for _, inst := range installments {
		if _, seen := byFile[inst.ContractFileID]; !seen {
			order = append(order, inst.ContractFileID)
		}
		byFile[inst.ContractFileID] = append(byFile[inst.ContractFileID], inst)
	}

	flagged := 0
	for _, fileID := range order {
		fileInstallments := byFile[fileID]
		err := s.tx.Atomic(ctx, func(tx *repository.Repositories) error {
			if _, err := tx.File.FindByIDForUpdate(ctx, fileID); err != nil {
				return err
			}

			for i := range fileInstallments {
				inst, err := tx.Installment.FindByID(ctx, fileInstallments[i].ID)
				if err != nil {
					return err
				}
				result := s.ComputeOverdue(inst, asOf)
				if !result.Overdue {
					continue
				}

				inst.Status = models.InstallmentStatusOverdue
				inst.DaysOverdue = result.DaysOverdue
				inst.LateFee = result.LateFee
				if err := tx.Installment.Update(ctx, inst); err != nil {
					return err
				}
				flagged++
			}
			return nil
		})
		if err != nil {
			logger.Error("Overdue sweep failed for file", "file_id", fileID, "error", err)
			continue
		}
	}

	logger.Info("Overdue sweep completed", "files", len(order), "installments_flagged", flagged)
	return nil
}
