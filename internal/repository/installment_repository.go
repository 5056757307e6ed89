package repository

import (
	"context"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallmentStatusCounts groups a file's installments by settlement state
type InstallmentStatusCounts struct {
	Paid    int
	Pending int
	Overdue int
}

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	// CreateBatch inserts a whole schedule in one statement so generation is
	// all-or-nothing.
	CreateBatch(ctx context.Context, installments []models.Installment) error
	FindByFile(ctx context.Context, fileID uint) ([]models.Installment, error)
	FindByFileAndSequence(ctx context.Context, fileID uint, sequence int) (*models.Installment, error)
	// FindByFileAndSequenceForUpdate locks the installment row for the
	// enclosing transaction.
	FindByFileAndSequenceForUpdate(ctx context.Context, fileID uint, sequence int) (*models.Installment, error)
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	Update(ctx context.Context, installment *models.Installment) error
	StatusCounts(ctx context.Context, fileID uint) (*InstallmentStatusCounts, error)
	// FindOpenDueBefore returns pending/overdue installments past due as of
	// the given date, for the aging sweep.
	FindOpenDueBefore(ctx context.Context, asOf time.Time) ([]models.Installment, error)
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&installments).Error
}

func (r *installmentRepository) FindByFile(ctx context.Context, fileID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("contract_file_id = ?", fileID).
		Order("sequence ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) FindByFileAndSequence(ctx context.Context, fileID uint, sequence int) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Where("contract_file_id = ? AND sequence = ?", fileID, sequence).
		First(&installment).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindByFileAndSequenceForUpdate(ctx context.Context, fileID uint, sequence int) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("contract_file_id = ? AND sequence = ?", fileID, sequence).
		First(&installment).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var installment models.Installment
	if err := r.db.WithContext(ctx).First(&installment, id).Error; err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}

func (r *installmentRepository) StatusCounts(ctx context.Context, fileID uint) (*InstallmentStatusCounts, error) {
	var rows []struct {
		Status string
		Count  int
	}

	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Select("status, COUNT(*) as count").
		Where("contract_file_id = ?", fileID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &InstallmentStatusCounts{}
	for _, row := range rows {
		switch row.Status {
		case models.InstallmentStatusPaid:
			counts.Paid = row.Count
		case models.InstallmentStatusPending:
			counts.Pending = row.Count
		case models.InstallmentStatusOverdue:
			counts.Overdue = row.Count
		}
	}
	return counts, nil
}

func (r *installmentRepository) FindOpenDueBefore(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{models.InstallmentStatusPending, models.InstallmentStatusOverdue}).
		Where("due_date < ?", asOf).
		Order("contract_file_id ASC, sequence ASC").
		Find(&installments).Error
	return installments, err
}
