package repository

import (
	"context"

	"github.com/estatedesk/estatedesk-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileRepository defines the interface for contract file data access
type FileRepository interface {
	Create(ctx context.Context, file *models.ContractFile) error
	FindByID(ctx context.Context, id uint) (*models.ContractFile, error)
	// FindByIDForUpdate locks the file row for the duration of the enclosing
	// transaction. Call only inside Repositories.Atomic.
	FindByIDForUpdate(ctx context.Context, id uint) (*models.ContractFile, error)
	FindByNumber(ctx context.Context, fileNumber string) (*models.ContractFile, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.ContractFile, error)
	FindActive(ctx context.Context) ([]models.ContractFile, error)
	Update(ctx context.Context, file *models.ContractFile) error
	List(ctx context.Context, query *ListQuery) ([]models.ContractFile, int64, error)
}

type fileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new contract file repository
func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(ctx context.Context, file *models.ContractFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *fileRepository) FindByID(ctx context.Context, id uint) (*models.ContractFile, error) {
	var file models.ContractFile
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.ContractFile, error) {
	var file models.ContractFile
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&file, id).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindByNumber(ctx context.Context, fileNumber string) (*models.ContractFile, error) {
	var file models.ContractFile
	err := r.db.WithContext(ctx).
		Where("file_number = ?", fileNumber).
		First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.ContractFile, error) {
	var file models.ContractFile
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("PreviousClient").
		Preload("Plot").
		Preload("Plot.Street").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("payment_date ASC, id ASC")
		}).
		Preload("Payments.ReceivedBy").
		First(&file, id).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindActive(ctx context.Context) ([]models.ContractFile, error) {
	var files []models.ContractFile
	err := r.db.WithContext(ctx).
		Where("status = ?", models.FileStatusActive).
		Find(&files).Error
	return files, err
}

func (r *fileRepository) Update(ctx context.Context, file *models.ContractFile) error {
	return r.db.WithContext(ctx).Save(file).Error
}

func (r *fileRepository) List(ctx context.Context, query *ListQuery) ([]models.ContractFile, int64, error) {
	var files []models.ContractFile
	var total int64

	db := r.db.WithContext(ctx).Model(&models.ContractFile{})

	if status, ok := query.Filters["status"]; ok && status != "" {
		db = db.Where("status = ?", status)
	}
	if plan, ok := query.Filters["payment_plan"]; ok && plan != "" {
		db = db.Where("payment_plan = ?", plan)
	}
	if clientID, ok := query.Filters["client_id"]; ok && clientID != "" {
		db = db.Where("client_id = ?", clientID)
	}
	if query.Search != "" {
		db = db.Where("file_number ILIKE ?", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "created_at"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sortDir := "desc"
	if query.SortDir == "asc" {
		sortDir = "asc"
	}

	err := db.
		Preload("Client").
		Preload("Plot").
		Order(sortBy + " " + sortDir).
		Limit(query.Limit()).
		Offset(query.Offset()).
		Find(&files).Error

	return files, total, err
}
