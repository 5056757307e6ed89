package repository

import (
	"context"

	"github.com/estatedesk/estatedesk-api/internal/models"

	"gorm.io/gorm"
)

// PropertyRepository defines the interface for the society → block → street
// → plot hierarchy. Child counts feed the delete guard and the derived
// availability projections.
type PropertyRepository interface {
	FindPlotByID(ctx context.Context, id uint) (*models.Plot, error)
	UpdatePlot(ctx context.Context, plot *models.Plot) error

	FindSocietyByID(ctx context.Context, id uint) (*models.Society, error)
	FindBlockByID(ctx context.Context, id uint) (*models.Block, error)
	FindStreetByID(ctx context.Context, id uint) (*models.Street, error)

	CountBlocks(ctx context.Context, societyID uint) (int64, error)
	CountStreets(ctx context.Context, blockID uint) (int64, error)
	CountPlots(ctx context.Context, streetID uint) (int64, error)

	DeleteSociety(ctx context.Context, id uint) error
	DeleteBlock(ctx context.Context, id uint) error
	DeleteStreet(ctx context.Context, id uint) error
	DeletePlot(ctx context.Context, id uint) error

	// PlotCountsForStreet recomputes the availability projection from the
	// plot rows; nothing is cached.
	PlotCountsForStreet(ctx context.Context, streetID uint) (*models.PlotCounts, error)
	PlotCountsForSociety(ctx context.Context, societyID uint) (*models.PlotCounts, error)
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) FindPlotByID(ctx context.Context, id uint) (*models.Plot, error) {
	var plot models.Plot
	if err := r.db.WithContext(ctx).First(&plot, id).Error; err != nil {
		return nil, err
	}
	return &plot, nil
}

func (r *propertyRepository) UpdatePlot(ctx context.Context, plot *models.Plot) error {
	return r.db.WithContext(ctx).Save(plot).Error
}

func (r *propertyRepository) FindSocietyByID(ctx context.Context, id uint) (*models.Society, error) {
	var society models.Society
	if err := r.db.WithContext(ctx).First(&society, id).Error; err != nil {
		return nil, err
	}
	return &society, nil
}

func (r *propertyRepository) FindBlockByID(ctx context.Context, id uint) (*models.Block, error) {
	var block models.Block
	if err := r.db.WithContext(ctx).First(&block, id).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *propertyRepository) FindStreetByID(ctx context.Context, id uint) (*models.Street, error) {
	var street models.Street
	if err := r.db.WithContext(ctx).First(&street, id).Error; err != nil {
		return nil, err
	}
	return &street, nil
}

func (r *propertyRepository) CountBlocks(ctx context.Context, societyID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Block{}).
		Where("society_id = ?", societyID).
		Count(&count).Error
	return count, err
}

func (r *propertyRepository) CountStreets(ctx context.Context, blockID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Street{}).
		Where("block_id = ?", blockID).
		Count(&count).Error
	return count, err
}

func (r *propertyRepository) CountPlots(ctx context.Context, streetID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Plot{}).
		Where("street_id = ?", streetID).
		Count(&count).Error
	return count, err
}

func (r *propertyRepository) DeleteSociety(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Society{}, id).Error
}

func (r *propertyRepository) DeleteBlock(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Block{}, id).Error
}

func (r *propertyRepository) DeleteStreet(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Street{}, id).Error
}

func (r *propertyRepository) DeletePlot(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Plot{}, id).Error
}

func (r *propertyRepository) PlotCountsForStreet(ctx context.Context, streetID uint) (*models.PlotCounts, error) {
	return r.plotCounts(ctx, r.db.WithContext(ctx).
		Model(&models.Plot{}).
		Where("street_id = ?", streetID))
}

func (r *propertyRepository) PlotCountsForSociety(ctx context.Context, societyID uint) (*models.PlotCounts, error) {
	return r.plotCounts(ctx, r.db.WithContext(ctx).
		Model(&models.Plot{}).
		Joins("JOIN streets ON streets.id = plots.street_id").
		Joins("JOIN blocks ON blocks.id = streets.block_id").
		Where("blocks.society_id = ?", societyID))
}

func (r *propertyRepository) plotCounts(ctx context.Context, db *gorm.DB) (*models.PlotCounts, error) {
	var rows []struct {
		Status string
		Count  int
	}

	if err := db.Select("plots.status, COUNT(*) as count").Group("plots.status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := &models.PlotCounts{}
	for _, row := range rows {
		counts.TotalPlots += row.Count
		switch row.Status {
		case models.PlotStatusAvailable:
			counts.AvailablePlots = row.Count
		case models.PlotStatusReserved:
			counts.ReservedPlots = row.Count
		case models.PlotStatusSold:
			counts.SoldPlots = row.Count
		}
	}
	return counts, nil
}
