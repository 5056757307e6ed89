package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Installment is one due slice of a file's installment plan
type Installment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ContractFileID uint            `gorm:"not null;index:idx_installments_file_seq,unique" json:"contract_file_id"`
	Sequence       int             `gorm:"not null;index:idx_installments_file_seq,unique" json:"sequence"`
	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	DueDate        time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	Status         string          `gorm:"size:20;not null;default:pending;index" json:"status"`

	// Aging fields persisted by the overdue sweep; always derivable from
	// DueDate and Amount via the overdue service.
	DaysOverdue int             `json:"days_overdue"`
	LateFee     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"late_fee"`

	PaymentRecordID *uint      `gorm:"index" json:"payment_record_id"`
	PaidAt          *time.Time `json:"paid_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	ContractFile  *ContractFile  `gorm:"foreignKey:ContractFileID" json:"contract_file,omitempty"`
	PaymentRecord *PaymentRecord `gorm:"foreignKey:PaymentRecordID" json:"payment_record,omitempty"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// IsOpen returns true while the installment still awaits settlement.
// Overdue is an open state: only a settling payment moves it to paid.
func (i *Installment) IsOpen() bool {
	return i.Status == InstallmentStatusPending || i.Status == InstallmentStatusOverdue
}

// IsOverdueAt returns true if the installment is open and past due as of the
// given date
func (i *Installment) IsOverdueAt(asOf time.Time) bool {
	return i.IsOpen() && i.DueDate.Before(truncateToDay(asOf))
}

// MarkPaid settles the installment against a payment record
func (i *Installment) MarkPaid(paymentID uint, at time.Time) {
	i.Status = InstallmentStatusPaid
	i.PaymentRecordID = &paymentID
	paid := at
	i.PaidAt = &paid
	i.DaysOverdue = 0
	i.LateFee = decimal.Zero
}

// Reopen reverts a settled installment back to pending, used when the
// settling payment bounces after clearance. Aging is left zeroed; the next
// overdue sweep recomputes it.
func (i *Installment) Reopen() {
	i.Status = InstallmentStatusPending
	i.PaymentRecordID = nil
	i.PaidAt = nil
	i.DaysOverdue = 0
	i.LateFee = decimal.Zero
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID              uint            `json:"id"`
	ContractFileID  uint            `json:"contract_file_id"`
	Sequence        int             `json:"sequence"`
	Amount          decimal.Decimal `json:"amount"`
	DueDate         time.Time       `json:"due_date"`
	Status          string          `json:"status"`
	DaysOverdue     int             `json:"days_overdue"`
	LateFee         decimal.Decimal `json:"late_fee"`
	PaymentRecordID *uint           `json:"payment_record_id,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
}

// ToResponse converts Installment to InstallmentResponse
func (i *Installment) ToResponse() InstallmentResponse {
	return InstallmentResponse{
		ID:              i.ID,
		ContractFileID:  i.ContractFileID,
		Sequence:        i.Sequence,
		Amount:          i.Amount,
		DueDate:         i.DueDate,
		Status:          i.Status,
		DaysOverdue:     i.DaysOverdue,
		LateFee:         i.LateFee,
		PaymentRecordID: i.PaymentRecordID,
		PaidAt:          i.PaidAt,
	}
}
