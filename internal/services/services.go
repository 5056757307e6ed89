package services

import (
	"github.com/estatedesk/estatedesk-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Schedule   *ScheduleService
	Ledger     *LedgerService
	Overdue    *OverdueService
	Transfer   *TransferService
	Commission *CommissionService
	Deal       *DealService
	Property   *PropertyService
	Payable    *PayableResolver
	Audit      *AuditService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, tx repository.TxManager, db *gorm.DB) *Services {
	auditSvc := NewAuditService(db)
	commissionSvc := NewCommissionService(repos.Deal, repos.Dealer)

	return &Services{
		Schedule:   NewScheduleService(repos.Installment, repos.File),
		Ledger:     NewLedgerService(tx, repos.File, repos.Payment, repos.Installment, auditSvc),
		Overdue:    NewOverdueService(tx, repos.Installment),
		Transfer:   NewTransferService(tx, auditSvc),
		Commission: commissionSvc,
		Deal:       NewDealService(tx, repos.Deal, commissionSvc, auditSvc),
		Property:   NewPropertyService(repos.Property),
		Payable:    NewPayableResolver(repos.File, repos.Installment),
		Audit:      auditSvc,
	}
}
