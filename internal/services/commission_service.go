package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/estatedesk/estatedesk-api/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CommissionService derives dealer commission from completed deals and
// keeps the dealer's cached statistics in line with them.
type CommissionService struct {
	dealRepo   repository.DealRepository
	dealerRepo repository.DealerRepository
}

// NewCommissionService creates a new commission service
func NewCommissionService(dealRepo repository.DealRepository, dealerRepo repository.DealerRepository) *CommissionService {
	return &CommissionService{
		dealRepo:   dealRepo,
		dealerRepo: dealerRepo,
	}
}

// ComputeCommission returns the dealer's cut for a deal. A positive
// percentage takes precedence over a manually supplied fixed amount.
func ComputeCommission(deal *models.Deal) decimal.Decimal {
	return deal.Commission()
}

// OnDealCompleted refreshes the dealer projection after a deal reaches
// completed. Totals are always recomputed from the completed-deal set, not
// patched incrementally, so a missed event can never leave drift behind.
func (s *CommissionService) OnDealCompleted(ctx context.Context, deal *models.Deal) error {
	if deal.Status != models.DealStatusCompleted {
		return fmt.Errorf("%w: commission accrues only on completed deals, got %s", ErrInvalidState, deal.Status)
	}
	return s.RefreshDealerStats(ctx, deal.DealerID)
}

// RefreshDealerStats recomputes a dealer's total_deals and total_commission
// from their completed deals. Idempotent.
func (s *CommissionService) RefreshDealerStats(ctx context.Context, dealerID uint) error {
	if _, err := s.dealerRepo.FindByID(ctx, dealerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: dealer %d", ErrNotFound, dealerID)
		}
		return err
	}

	deals, err := s.dealRepo.FindCompletedByDealer(ctx, dealerID)
	if err != nil {
		return fmt.Errorf("failed to load completed deals: %w", err)
	}

	total := decimal.Zero
	for i := range deals {
		total = total.Add(deals[i].Commission())
	}

	if err := s.dealerRepo.UpdateStats(ctx, dealerID, len(deals), total); err != nil {
		return fmt.Errorf("failed to update dealer stats: %w", err)
	}

	return nil
}

// RefreshAllDealerStats rebuilds the projection for every dealer. Run as a
// periodic safety net behind the per-completion refresh.
func (s *CommissionService) RefreshAllDealerStats(ctx context.Context) error {
	dealers, err := s.dealerRepo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dealers: %w", err)
	}

	refreshed := 0
	for i := range dealers {
		if err := s.RefreshDealerStats(ctx, dealers[i].ID); err != nil {
			logger.Error("Failed to refresh dealer stats", "dealer_id", dealers[i].ID, "error", err)
			continue
		}
		refreshed++
	}

	logger.Info("Dealer stats refresh completed", "dealers", refreshed)
	return nil
}
