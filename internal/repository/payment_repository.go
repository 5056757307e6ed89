package repository

import (
	"context"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository defines the interface for payment record data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.PaymentRecord) error
	FindByID(ctx context.Context, id uint) (*models.PaymentRecord, error)
	// FindByIDForUpdate locks the payment row for the enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentRecord, error)
	FindByFile(ctx context.Context, fileID uint) ([]models.PaymentRecord, error)
	Update(ctx context.Context, payment *models.PaymentRecord) error
	// SumSettledNet sums net amounts of non-deleted received and cleared
	// records that count toward the file balance. This is the authoritative
	// input to reconciliation.
	SumSettledNet(ctx context.Context, fileID uint) (decimal.Decimal, error)
	List(ctx context.Context, query *ListQuery) ([]models.PaymentRecord, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment record repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	var payment models.PaymentRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByFile(ctx context.Context, fileID uint) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("contract_file_id = ?", fileID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *paymentRepository) SumSettledNet(ctx context.Context, fileID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Select("COALESCE(SUM(net_amount), 0) as total").
		Where("contract_file_id = ?", fileID).
		Where("status IN ?", []string{models.PaymentStatusReceived, models.PaymentStatusCleared}).
		Where("kind <> ?", models.PaymentKindTransferCharges).
		Scan(&result).Error

	return result.Total, err
}

func (r *paymentRepository) List(ctx context.Context, query *ListQuery) ([]models.PaymentRecord, int64, error) {
	var payments []models.PaymentRecord
	var total int64

	db := r.db.WithContext(ctx).Model(&models.PaymentRecord{})

	if status, ok := query.Filters["status"]; ok && status != "" {
		db = db.Where("status = ?", status)
	}
	if method, ok := query.Filters["method"]; ok && method != "" {
		db = db.Where("method = ?", method)
	}
	if kind, ok := query.Filters["kind"]; ok && kind != "" {
		db = db.Where("kind = ?", kind)
	}
	if fileID, ok := query.Filters["contract_file_id"]; ok && fileID != "" {
		db = db.Where("contract_file_id = ?", fileID)
	}
	if query.Search != "" {
		db = db.Where("receipt_number ILIKE ?", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := "payment_date"
	if query.SortBy != "" {
		sortBy = query.SortBy
	}
	sortDir := "desc"
	if query.SortDir == "asc" {
		sortDir = "asc"
	}

	err := db.
		Preload("ReceivedBy").
		Order(sortBy + " " + sortDir).
		Limit(query.Limit()).
		Offset(query.Offset()).
		Find(&payments).Error

	return payments, total, err
}
