package repository

import (
	"context"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DealRepository defines the interface for deal data access
type DealRepository interface {
	Create(ctx context.Context, deal *models.Deal) error
	FindByID(ctx context.Context, id uint) (*models.Deal, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) error
	FindCompletedByDealer(ctx context.Context, dealerID uint) ([]models.Deal, error)
	List(ctx context.Context, query *ListQuery) ([]models.Deal, int64, error)
}

type dealRepository struct {
	db *gorm.DB
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) Create(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

func (r *dealRepository) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Dealer").
		Preload("Plot").
		First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.Deal, error) {
	var deal models.Deal
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&deal, id).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) Update(ctx context.Context, deal *models.Deal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

func (r *dealRepository) FindCompletedByDealer(ctx context.Context, dealerID uint) ([]models.Deal, error) {
	var deals []models.Deal
	err := r.db.WithContext(ctx).
		Where("dealer_id = ? AND status = ?", dealerID, models.DealStatusCompleted).
		Order("completed_at ASC").
		Find(&deals).Error
	return deals, err
}

func (r *dealRepository) List(ctx context.Context, query *ListQuery) ([]models.Deal, int64, error) {
	var deals []models.Deal
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Deal{})

	if status, ok := query.Filters["status"]; ok && status != "" {
		db = db.Where("status = ?", status)
	}
	if dealerID, ok := query.Filters["dealer_id"]; ok && dealerID != "" {
		db = db.Where("dealer_id = ?", dealerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Client").
		Preload("Dealer").
		Order("created_at desc").
		Limit(query.Limit()).
		Offset(query.Offset()).
		Find(&deals).Error

	return deals, total, err
}

// DealerRepository defines the interface for dealer data access
type DealerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Dealer, error)
	Update(ctx context.Context, dealer *models.Dealer) error
	// UpdateStats overwrites the cached projection columns in one statement.
	UpdateStats(ctx context.Context, dealerID uint, totalDeals int, totalCommission decimal.Decimal) error
	FindAll(ctx context.Context) ([]models.Dealer, error)
}

type dealerRepository struct {
	db *gorm.DB
}

// NewDealerRepository creates a new dealer repository
func NewDealerRepository(db *gorm.DB) DealerRepository {
	return &dealerRepository{db: db}
}

func (r *dealerRepository) FindByID(ctx context.Context, id uint) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := r.db.WithContext(ctx).First(&dealer, id).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

func (r *dealerRepository) Update(ctx context.Context, dealer *models.Dealer) error {
	return r.db.WithContext(ctx).Save(dealer).Error
}

func (r *dealerRepository) UpdateStats(ctx context.Context, dealerID uint, totalDeals int, totalCommission decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id = ?", dealerID).
		Updates(map[string]interface{}{
			"total_deals":      totalDeals,
			"total_commission": totalCommission,
		}).Error
}

func (r *dealerRepository) FindAll(ctx context.Context) ([]models.Dealer, error) {
	var dealers []models.Dealer
	err := r.db.WithContext(ctx).Order("name ASC").Find(&dealers).Error
	return dealers, err
}

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, id uint) (*models.Client, error)
	List(ctx context.Context, query *ListQuery) ([]models.Client, int64, error)
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, query *ListQuery) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Client{})
	if query.Search != "" {
		db = db.Where("full_name ILIKE ? OR cnic ILIKE ?", "%"+query.Search+"%", "%"+query.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Order("full_name ASC").
		Limit(query.Limit()).
		Offset(query.Offset()).
		Find(&clients).Error

	return clients, total, err
}

// UserRepository defines the interface for back-office actor lookup
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
