package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractFile is the per-sale ledger. It owns the installment schedule and
// every payment record posted against the sale, and carries the running
// total/paid/remaining balances.
type ContractFile struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	FileNumber string `gorm:"size:30;uniqueIndex;not null" json:"file_number"`
	ClientID   uint   `gorm:"not null;index" json:"client_id"`
	PlotID     uint   `gorm:"not null;index" json:"plot_id"`
	DealID     *uint  `gorm:"index" json:"deal_id"`

	TotalAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"paid_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"remaining_amount"`

	PaymentPlan          string     `gorm:"size:20;not null;default:cash" json:"payment_plan"`
	TotalInstallments    int        `json:"total_installments"`
	InstallmentAmount    decimal.Decimal `gorm:"type:decimal(15,2)" json:"installment_amount"`
	InstallmentFrequency string     `gorm:"size:20" json:"installment_frequency"`
	FirstInstallmentDate *time.Time `gorm:"type:date" json:"first_installment_date"`
	LastInstallmentDate  *time.Time `gorm:"type:date" json:"last_installment_date"`

	Status       string     `gorm:"size:20;not null;default:active;index" json:"status"`
	IssueDate    time.Time  `gorm:"type:date;not null" json:"issue_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	Remarks      *string    `gorm:"type:text" json:"remarks"`

	// Transfer lineage, set once the file is transferred to a new owner.
	PreviousClientID *uint            `gorm:"index" json:"previous_client_id"`
	TransferDate     *time.Time       `gorm:"type:date" json:"transfer_date"`
	TransferFee      *decimal.Decimal `gorm:"type:decimal(15,2)" json:"transfer_fee"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Client         Client          `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	PreviousClient *Client         `gorm:"foreignKey:PreviousClientID" json:"previous_client,omitempty"`
	Plot           Plot            `gorm:"foreignKey:PlotID" json:"plot,omitempty"`
	Deal           *Deal           `gorm:"foreignKey:DealID" json:"deal,omitempty"`
	Installments   []Installment   `gorm:"foreignKey:ContractFileID" json:"installments,omitempty"`
	Payments       []PaymentRecord `gorm:"foreignKey:ContractFileID" json:"payments,omitempty"`
}

// TableName specifies the table name for ContractFile
func (ContractFile) TableName() string {
	return "contract_files"
}

// File status constants
const (
	FileStatusActive      = "active"
	FileStatusCompleted   = "completed"
	FileStatusTransferred = "transferred"
	FileStatusCancelled   = "cancelled"
	FileStatusDefaulted   = "defaulted"
)

// Payment plan constants
const (
	PaymentPlanCash        = "cash"
	PaymentPlanInstallment = "installment"
)

// Installment frequency constants
const (
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// FrequencyMonths returns the number of months between due dates for a
// frequency, or 0 for an unknown frequency.
func FrequencyMonths(frequency string) int {
	switch frequency {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyYearly:
		return 12
	default:
		return 0
	}
}

// IsTerminal returns true if the file is in a terminal status
func (f *ContractFile) IsTerminal() bool {
	switch f.Status {
	case FileStatusCompleted, FileStatusTransferred, FileStatusCancelled, FileStatusDefaulted:
		return true
	}
	return false
}

// MayPostPayment returns true if new payments may be posted against the file
func (f *ContractFile) MayPostPayment() bool {
	return f.Status == FileStatusActive
}

// MayTransfer returns true if the file can be transferred to a new owner
func (f *ContractFile) MayTransfer() bool {
	return f.Status == FileStatusActive
}

// IsSettled returns true if the remaining balance is zero or below
func (f *ContractFile) IsSettled() bool {
	return f.RemainingAmount.LessThanOrEqual(decimal.Zero)
}

// ApplyCleared folds a settled payment's net amount into the running
// balances and flips the file to completed when nothing remains. Terminal
// override statuses are left untouched.
func (f *ContractFile) ApplyCleared(net decimal.Decimal, at time.Time) {
	f.PaidAmount = f.PaidAmount.Add(net)
	f.RemainingAmount = f.TotalAmount.Sub(f.PaidAmount)

	if f.Status == FileStatusActive && f.IsSettled() {
		f.Status = FileStatusCompleted
		completed := at
		f.CompletedAt = &completed
	}
}

// RevertCleared backs a previously counted payment out of the running
// balances. A file auto-completed by that payment reverts to active.
func (f *ContractFile) RevertCleared(net decimal.Decimal) {
	f.PaidAmount = f.PaidAmount.Sub(net)
	f.RemainingAmount = f.TotalAmount.Sub(f.PaidAmount)

	if f.Status == FileStatusCompleted && !f.IsSettled() {
		f.Status = FileStatusActive
		f.CompletedAt = nil
	}
}

// ProgressPercent returns how much of the total has been paid, 0-100.
func (f *ContractFile) ProgressPercent() decimal.Decimal {
	if f.TotalAmount.IsZero() {
		return decimal.Zero
	}
	return f.PaidAmount.Div(f.TotalAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// LedgerSummary is the read model for the file's financial position
type LedgerSummary struct {
	FileID              uint            `json:"file_id"`
	FileNumber          string          `json:"file_number"`
	Status              string          `json:"status"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	RemainingAmount     decimal.Decimal `json:"remaining_amount"`
	ProgressPercent     decimal.Decimal `json:"progress_percent"`
	ObligationsPaid     int             `json:"obligations_paid"`
	ObligationsPending  int             `json:"obligations_pending"`
	ObligationsOverdue  int             `json:"obligations_overdue"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
}

// ContractFileResponse is the JSON response format for contract files
type ContractFileResponse struct {
	ID                   uint             `json:"id"`
	FileNumber           string           `json:"file_number"`
	ClientID             uint             `json:"client_id"`
	ClientName           string           `json:"client_name,omitempty"`
	PlotID               uint             `json:"plot_id"`
	PlotNumber           string           `json:"plot_number,omitempty"`
	TotalAmount          decimal.Decimal  `json:"total_amount"`
	PaidAmount           decimal.Decimal  `json:"paid_amount"`
	RemainingAmount      decimal.Decimal  `json:"remaining_amount"`
	ProgressPercent      decimal.Decimal  `json:"progress_percent"`
	PaymentPlan          string           `json:"payment_plan"`
	TotalInstallments    int              `json:"total_installments"`
	InstallmentAmount    decimal.Decimal  `json:"installment_amount"`
	InstallmentFrequency string           `json:"installment_frequency,omitempty"`
	FirstInstallmentDate *time.Time       `json:"first_installment_date,omitempty"`
	LastInstallmentDate  *time.Time       `json:"last_installment_date,omitempty"`
	Status               string           `json:"status"`
	IssueDate            time.Time        `json:"issue_date"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty"`
	Remarks              *string          `json:"remarks,omitempty"`
	PreviousClientID     *uint            `json:"previous_client_id,omitempty"`
	TransferDate         *time.Time       `json:"transfer_date,omitempty"`
	TransferFee          *decimal.Decimal `json:"transfer_fee,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	Installments []InstallmentResponse  `json:"installments,omitempty"`
	Payments     []PaymentRecordResponse `json:"payments,omitempty"`
}

// ToResponse converts ContractFile to ContractFileResponse
func (f *ContractFile) ToResponse() ContractFileResponse {
	resp := ContractFileResponse{
		ID:                   f.ID,
		FileNumber:           f.FileNumber,
		ClientID:             f.ClientID,
		PlotID:               f.PlotID,
		TotalAmount:          f.TotalAmount,
		PaidAmount:           f.PaidAmount,
		RemainingAmount:      f.RemainingAmount,
		ProgressPercent:      f.ProgressPercent(),
		PaymentPlan:          f.PaymentPlan,
		TotalInstallments:    f.TotalInstallments,
		InstallmentAmount:    f.InstallmentAmount,
		InstallmentFrequency: f.InstallmentFrequency,
		FirstInstallmentDate: f.FirstInstallmentDate,
		LastInstallmentDate:  f.LastInstallmentDate,
		Status:               f.Status,
		IssueDate:            f.IssueDate,
		CompletedAt:          f.CompletedAt,
		Remarks:              f.Remarks,
		PreviousClientID:     f.PreviousClientID,
		TransferDate:         f.TransferDate,
		TransferFee:          f.TransferFee,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}

	if f.Client.ID != 0 {
		resp.ClientName = f.Client.FullName
	}
	if f.Plot.ID != 0 {
		resp.PlotNumber = f.Plot.PlotNumber
	}

	for _, inst := range f.Installments {
		resp.Installments = append(resp.Installments, inst.ToResponse())
	}
	for _, p := range f.Payments {
		resp.Payments = append(resp.Payments, p.ToResponse())
	}

	return resp
}
