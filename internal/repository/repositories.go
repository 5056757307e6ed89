package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	db *gorm.DB

	File        FileRepository
	Payment     PaymentRepository
	Installment InstallmentRepository
	Deal        DealRepository
	Dealer      DealerRepository
	Client      ClientRepository
	Property    PropertyRepository
	Receipt     ReceiptRepository
	User        UserRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		File:        NewFileRepository(db),
		Payment:     NewPaymentRepository(db),
		Installment: NewInstallmentRepository(db),
		Deal:        NewDealRepository(db),
		Dealer:      NewDealerRepository(db),
		Client:      NewClientRepository(db),
		Property:    NewPropertyRepository(db),
		Receipt:     NewReceiptRepository(db),
		User:        NewUserRepository(db),
	}
}

// TxManager runs a function against repositories bound to one database
// transaction. Balance-affecting ledger operations go through Atomic so the
// read-modify-write on a file happens under its row lock.
type TxManager interface {
	Atomic(ctx context.Context, fn func(tx *Repositories) error) error
}

// Atomic implements TxManager on the live repository set
func (r *Repositories) Atomic(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(txdb *gorm.DB) error {
		return fn(NewRepositories(txdb))
	})
}

// ListQuery carries pagination, search and filter parameters
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	SortBy  string
	SortDir string
	Filters map[string]string
}

// NewListQuery creates a ListQuery with defaults
func NewListQuery() *ListQuery {
	return &ListQuery{
		Page:    1,
		PerPage: 20,
		Filters: make(map[string]string),
	}
}

// Offset returns the row offset for the current page
func (q *ListQuery) Offset() int {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 20
	}
	return (page - 1) * perPage
}

// Limit returns the page size
func (q *ListQuery) Limit() int {
	if q.PerPage < 1 {
		return 20
	}
	return q.PerPage
}
