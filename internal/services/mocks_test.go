package services

import (
	"context"
	"fmt"
	"time"

	"github.com/estatedesk/estatedesk-api/internal/models"
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database. Finds return copies
// and Update writes them back, matching how rows round-trip through gorm,
// so the services' read-modify-write paths behave as they would in
// production.
type memStore struct {
	files        map[uint]*models.ContractFile
	payments     map[uint]*models.PaymentRecord
	installments map[uint]*models.Installment
	deals        map[uint]*models.Deal
	dealers      map[uint]*models.Dealer
	clients      map[uint]*models.Client
	plots        map[uint]*models.Plot
	sequences    map[string]int64

	nextFileID        uint
	nextPaymentID     uint
	nextInstallmentID uint
	nextDealID        uint
}

func newMemStore() *memStore {
	return &memStore{
		files:        make(map[uint]*models.ContractFile),
		payments:     make(map[uint]*models.PaymentRecord),
		installments: make(map[uint]*models.Installment),
		deals:        make(map[uint]*models.Deal),
		dealers:      make(map[uint]*models.Dealer),
		clients:      make(map[uint]*models.Client),
		plots:        make(map[uint]*models.Plot),
		sequences:    make(map[string]int64),
	}
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		File:        &memFileRepo{s},
		Payment:     &memPaymentRepo{s},
		Installment: &memInstallmentRepo{s},
		Deal:        &memDealRepo{s},
		Dealer:      &memDealerRepo{s},
		Client:      &memClientRepo{s},
		Property:    &memPropertyRepo{s: s},
		Receipt:     &memReceiptRepo{s},
	}
}

// Atomic satisfies repository.TxManager. Tests run single-goroutine, so
// there is nothing to lock or roll back.
func (s *memStore) Atomic(ctx context.Context, fn func(tx *repository.Repositories) error) error {
	return fn(s.repos())
}

func (s *memStore) addFile(file *models.ContractFile) *models.ContractFile {
	if file.ID == 0 {
		s.nextFileID++
		file.ID = s.nextFileID
	}
	s.files[file.ID] = file
	return file
}

func (s *memStore) addInstallments(installments []models.Installment) {
	for i := range installments {
		inst := installments[i]
		if inst.ID == 0 {
			s.nextInstallmentID++
			inst.ID = s.nextInstallmentID
		}
		s.installments[inst.ID] = &inst
	}
}

func (s *memStore) addDeal(deal *models.Deal) *models.Deal {
	if deal.ID == 0 {
		s.nextDealID++
		deal.ID = s.nextDealID
	}
	s.deals[deal.ID] = deal
	return deal
}

// --- contract files ---

type memFileRepo struct{ s *memStore }

func (r *memFileRepo) Create(ctx context.Context, file *models.ContractFile) error {
	r.s.addFile(file)
	return nil
}

func (r *memFileRepo) FindByID(ctx context.Context, id uint) (*models.ContractFile, error) {
	file, ok := r.s.files[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *file
	return &copied, nil
}

func (r *memFileRepo) FindByIDForUpdate(ctx context.Context, id uint) (*models.ContractFile, error) {
	return r.FindByID(ctx, id)
}

func (r *memFileRepo) FindByNumber(ctx context.Context, fileNumber string) (*models.ContractFile, error) {
	for _, file := range r.s.files {
		if file.FileNumber == fileNumber {
			copied := *file
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memFileRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.ContractFile, error) {
	return r.FindByID(ctx, id)
}

func (r *memFileRepo) FindActive(ctx context.Context) ([]models.ContractFile, error) {
	var files []models.ContractFile
	for _, file := range r.s.files {
		if file.Status == models.FileStatusActive {
			files = append(files, *file)
		}
	}
	return files, nil
}

func (r *memFileRepo) Update(ctx context.Context, file *models.ContractFile) error {
	if _, ok := r.s.files[file.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *file
	r.s.files[file.ID] = &copied
	return nil
}

func (r *memFileRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.ContractFile, int64, error) {
	var files []models.ContractFile
	for _, file := range r.s.files {
		files = append(files, *file)
	}
	return files, int64(len(files)), nil
}

// --- payment records ---

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(ctx context.Context, payment *models.PaymentRecord) error {
	r.s.nextPaymentID++
	payment.ID = r.s.nextPaymentID
	copied := *payment
	r.s.payments[payment.ID] = &copied
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	payment, ok := r.s.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payment
	return &copied, nil
}

func (r *memPaymentRepo) FindByIDForUpdate(ctx context.Context, id uint) (*models.PaymentRecord, error) {
	return r.FindByID(ctx, id)
}

func (r *memPaymentRepo) FindByFile(ctx context.Context, fileID uint) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	for _, payment := range r.s.payments {
		if payment.ContractFileID == fileID {
			payments = append(payments, *payment)
		}
	}
	return payments, nil
}

func (r *memPaymentRepo) Update(ctx context.Context, payment *models.PaymentRecord) error {
	if _, ok := r.s.payments[payment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *payment
	r.s.payments[payment.ID] = &copied
	return nil
}

func (r *memPaymentRepo) SumSettledNet(ctx context.Context, fileID uint) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, payment := range r.s.payments {
		if payment.ContractFileID != fileID {
			continue
		}
		if !payment.IsSettled() || !payment.CountsTowardBalance() {
			continue
		}
		sum = sum.Add(payment.NetAmount)
	}
	return sum, nil
}

func (r *memPaymentRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.PaymentRecord, int64, error) {
	var payments []models.PaymentRecord
	for _, payment := range r.s.payments {
		payments = append(payments, *payment)
	}
	return payments, int64(len(payments)), nil
}

// --- installments ---

type memInstallmentRepo struct{ s *memStore }

func (r *memInstallmentRepo) CreateBatch(ctx context.Context, installments []models.Installment) error {
	r.s.addInstallments(installments)
	return nil
}

func (r *memInstallmentRepo) FindByFile(ctx context.Context, fileID uint) ([]models.Installment, error) {
	var installments []models.Installment
	for _, inst := range r.s.installments {
		if inst.ContractFileID == fileID {
			installments = append(installments, *inst)
		}
	}
	return installments, nil
}

func (r *memInstallmentRepo) FindByFileAndSequence(ctx context.Context, fileID uint, sequence int) (*models.Installment, error) {
	for _, inst := range r.s.installments {
		if inst.ContractFileID == fileID && inst.Sequence == sequence {
			copied := *inst
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memInstallmentRepo) FindByFileAndSequenceForUpdate(ctx context.Context, fileID uint, sequence int) (*models.Installment, error) {
	return r.FindByFileAndSequence(ctx, fileID, sequence)
}

func (r *memInstallmentRepo) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	inst, ok := r.s.installments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *inst
	return &copied, nil
}

func (r *memInstallmentRepo) Update(ctx context.Context, installment *models.Installment) error {
	if _, ok := r.s.installments[installment.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *installment
	r.s.installments[installment.ID] = &copied
	return nil
}

func (r *memInstallmentRepo) StatusCounts(ctx context.Context, fileID uint) (*repository.InstallmentStatusCounts, error) {
	counts := &repository.InstallmentStatusCounts{}
	for _, inst := range r.s.installments {
		if inst.ContractFileID != fileID {
			continue
		}
		switch inst.Status {
		case models.InstallmentStatusPaid:
			counts.Paid++
		case models.InstallmentStatusPending:
			counts.Pending++
		case models.InstallmentStatusOverdue:
			counts.Overdue++
		}
	}
	return counts, nil
}

func (r *memInstallmentRepo) FindOpenDueBefore(ctx context.Context, asOf time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	for _, inst := range r.s.installments {
		if inst.IsOpen() && inst.DueDate.Before(asOf) {
			installments = append(installments, *inst)
		}
	}
	return installments, nil
}

// --- deals, dealers, clients ---

type memDealRepo struct{ s *memStore }

func (r *memDealRepo) Create(ctx context.Context, deal *models.Deal) error {
	r.s.addDeal(deal)
	return nil
}

func (r *memDealRepo) FindByID(ctx context.Context, id uint) (*models.Deal, error) {
	deal, ok := r.s.deals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *deal
	return &copied, nil
}

func (r *memDealRepo) FindByIDForUpdate(ctx context.Context, id uint) (*models.Deal, error) {
	return r.FindByID(ctx, id)
}

func (r *memDealRepo) Update(ctx context.Context, deal *models.Deal) error {
	if _, ok := r.s.deals[deal.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *deal
	r.s.deals[deal.ID] = &copied
	return nil
}

func (r *memDealRepo) FindCompletedByDealer(ctx context.Context, dealerID uint) ([]models.Deal, error) {
	var deals []models.Deal
	for _, deal := range r.s.deals {
		if deal.DealerID == dealerID && deal.Status == models.DealStatusCompleted {
			deals = append(deals, *deal)
		}
	}
	return deals, nil
}

func (r *memDealRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Deal, int64, error) {
	var deals []models.Deal
	for _, deal := range r.s.deals {
		deals = append(deals, *deal)
	}
	return deals, int64(len(deals)), nil
}

type memDealerRepo struct{ s *memStore }

func (r *memDealerRepo) FindByID(ctx context.Context, id uint) (*models.Dealer, error) {
	dealer, ok := r.s.dealers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *dealer
	return &copied, nil
}

func (r *memDealerRepo) Update(ctx context.Context, dealer *models.Dealer) error {
	copied := *dealer
	r.s.dealers[dealer.ID] = &copied
	return nil
}

func (r *memDealerRepo) UpdateStats(ctx context.Context, dealerID uint, totalDeals int, totalCommission decimal.Decimal) error {
	dealer, ok := r.s.dealers[dealerID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	dealer.TotalDeals = totalDeals
	dealer.TotalCommission = totalCommission
	return nil
}

func (r *memDealerRepo) FindAll(ctx context.Context) ([]models.Dealer, error) {
	var dealers []models.Dealer
	for _, dealer := range r.s.dealers {
		dealers = append(dealers, *dealer)
	}
	return dealers, nil
}

type memClientRepo struct{ s *memStore }

func (r *memClientRepo) Create(ctx context.Context, client *models.Client) error {
	r.s.clients[client.ID] = client
	return nil
}

func (r *memClientRepo) FindByID(ctx context.Context, id uint) (*models.Client, error) {
	client, ok := r.s.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *client
	return &copied, nil
}

func (r *memClientRepo) List(ctx context.Context, query *repository.ListQuery) ([]models.Client, int64, error) {
	return nil, 0, nil
}

// --- property (only the plot methods the deal lifecycle touches) ---

type memPropertyRepo struct {
	repository.PropertyRepository
	s *memStore
}

func (r *memPropertyRepo) FindPlotByID(ctx context.Context, id uint) (*models.Plot, error) {
	plot, ok := r.s.plots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *plot
	return &copied, nil
}

func (r *memPropertyRepo) UpdatePlot(ctx context.Context, plot *models.Plot) error {
	copied := *plot
	r.s.plots[plot.ID] = &copied
	return nil
}

// --- receipt sequences ---

type memReceiptRepo struct{ s *memStore }

func (r *memReceiptRepo) NextNumber(ctx context.Context, prefix string, year int) (int64, error) {
	key := fmt.Sprintf("%s-%d", prefix, year)
	r.s.sequences[key]++
	return r.s.sequences[key], nil
}
