package repository

import (
	"context"
	"errors"

	"github.com/estatedesk/estatedesk-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptRepository hands out receipt numbers from a per-year counter row.
// NextNumber must be called inside Repositories.Atomic: the counter row is
// locked FOR UPDATE so two concurrent postings never share a number.
type ReceiptRepository interface {
	NextNumber(ctx context.Context, prefix string, year int) (int64, error)
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt sequence repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) NextNumber(ctx context.Context, prefix string, year int) (int64, error) {
	var seq models.ReceiptSequence
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ? AND year = ?", prefix, year).
		First(&seq).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.ReceiptSequence{Prefix: prefix, Year: year, LastValue: 0}
		if err := r.db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, err
		}
	} else if err != nil {
		return 0, err
	}

	seq.LastValue++
	if err := r.db.WithContext(ctx).Save(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
