package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"

	"gorm.io/gorm"
)

// PropertyService manages the society → block → street → plot hierarchy.
// Deletes refuse when children exist; they never cascade. Availability
// counts are always recomputed from the plot rows.
type PropertyService struct {
	propertyRepo repository.PropertyRepository
}

// NewPropertyService creates a new property service
func NewPropertyService(propertyRepo repository.PropertyRepository) *PropertyService {
	return &PropertyService{propertyRepo: propertyRepo}
}

// DeleteSociety removes a society with no blocks
func (s *PropertyService) DeleteSociety(ctx context.Context, id uint) error {
	if _, err := s.propertyRepo.FindSocietyByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: society %d", ErrNotFound, id)
		}
		return err
	}

	count, err := s.propertyRepo.CountBlocks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count blocks: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: society %d has %d blocks", ErrHasChildren, id, count)
	}

	return s.propertyRepo.DeleteSociety(ctx, id)
}

// DeleteBlock removes a block with no streets
func (s *PropertyService) DeleteBlock(ctx context.Context, id uint) error {
	if _, err := s.propertyRepo.FindBlockByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: block %d", ErrNotFound, id)
		}
		return err
	}

	count, err := s.propertyRepo.CountStreets(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count streets: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: block %d has %d streets", ErrHasChildren, id, count)
	}

	return s.propertyRepo.DeleteBlock(ctx, id)
}

// DeleteStreet removes a street with no plots
func (s *PropertyService) DeleteStreet(ctx context.Context, id uint) error {
	if _, err := s.propertyRepo.FindStreetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: street %d", ErrNotFound, id)
		}
		return err
	}

	count, err := s.propertyRepo.CountPlots(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count plots: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: street %d has %d plots", ErrHasChildren, id, count)
	}

	return s.propertyRepo.DeleteStreet(ctx, id)
}

// DeletePlot removes an available plot. Reserved and sold plots belong to a
// sale and must be released through the deal lifecycle first.
func (s *PropertyService) DeletePlot(ctx context.Context, id uint) error {
	plot, err := s.propertyRepo.FindPlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: plot %d", ErrNotFound, id)
		}
		return err
	}

	if plot.Status != models.PlotStatusAvailable {
		return fmt.Errorf("%w: plot %d is %s", ErrInvalidState, id, plot.Status)
	}

	return s.propertyRepo.DeletePlot(ctx, id)
}

// StreetAvailability recomputes plot counts for a street
func (s *PropertyService) StreetAvailability(ctx context.Context, streetID uint) (*models.PlotCounts, error) {
	if _, err := s.propertyRepo.FindStreetByID(ctx, streetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: street %d", ErrNotFound, streetID)
		}
		return nil, err
	}
	return s.propertyRepo.PlotCountsForStreet(ctx, streetID)
}

// SocietyAvailability recomputes plot counts across a whole society
func (s *PropertyService) SocietyAvailability(ctx context.Context, societyID uint) (*models.PlotCounts, error) {
	if _, err := s.propertyRepo.FindSocietyByID(ctx, societyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: society %d", ErrNotFound, societyID)
		}
		return nil, err
	}
	return s.propertyRepo.PlotCountsForSociety(ctx, societyID)
}
