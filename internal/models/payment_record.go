package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRecord is one recorded money movement against a contract file.
// Once cleared it is immutable; reversals go through the bounce path so the
// ledger keeps an auditable trail instead of silently deleting money.
type PaymentRecord struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ContractFileID uint   `gorm:"not null;index" json:"contract_file_id"`
	ReceiptNumber  string `gorm:"size:30;uniqueIndex;not null" json:"receipt_number"`

	Amount         decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PenaltyAmount  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"penalty_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"discount_amount"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"net_amount"`

	Method      string     `gorm:"size:20;not null" json:"method"`
	Kind        string     `gorm:"size:30;not null;default:installment" json:"kind"`
	PaymentDate time.Time  `gorm:"type:date;not null;index" json:"payment_date"`
	DueDate     *time.Time `gorm:"type:date" json:"due_date"`

	Status        string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	ClearedAt     *time.Time `json:"cleared_at"`
	BouncedAt     *time.Time `json:"bounced_at"`
	CancelledAt   *time.Time `json:"cancelled_at"`
	StatusReason  *string    `gorm:"type:text" json:"status_reason,omitempty"`
	InstallmentID *uint      `gorm:"index" json:"installment_id"`

	ReceivedByID uint    `gorm:"not null;index" json:"received_by_id"`
	Remarks      *string `gorm:"type:text" json:"remarks,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	ContractFile *ContractFile `gorm:"foreignKey:ContractFileID" json:"contract_file,omitempty"`
	Installment  *Installment  `gorm:"foreignKey:InstallmentID" json:"installment,omitempty"`
	ReceivedBy   User          `gorm:"foreignKey:ReceivedByID" json:"received_by,omitempty"`
}

// TableName specifies the table name for PaymentRecord
func (PaymentRecord) TableName() string {
	return "payment_records"
}

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusReceived  = "received"
	PaymentStatusCleared   = "cleared"
	PaymentStatusBounced   = "bounced"
	PaymentStatusCancelled = "cancelled"
)

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodCheque       = "cheque"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodOnline       = "online"
	PaymentMethodCard         = "card"
)

// Payment kind constants
const (
	PaymentKindDownPayment     = "down_payment"
	PaymentKindInstallment     = "installment"
	PaymentKindPartial         = "partial"
	PaymentKindFullPayment     = "full_payment"
	PaymentKindPenalty         = "penalty"
	PaymentKindAdjustment      = "adjustment"
	PaymentKindTransferCharges = "transfer_charges"
)

// ValidPaymentMethod reports whether method is one of the accepted methods
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodCheque, PaymentMethodBankTransfer,
		PaymentMethodOnline, PaymentMethodCard:
		return true
	}
	return false
}

// ValidPaymentKind reports whether kind is one of the accepted kinds
func ValidPaymentKind(kind string) bool {
	switch kind {
	case PaymentKindDownPayment, PaymentKindInstallment, PaymentKindPartial,
		PaymentKindFullPayment, PaymentKindPenalty, PaymentKindAdjustment,
		PaymentKindTransferCharges:
		return true
	}
	return false
}

// ComputeNet returns amount + penalty - discount rounded to 2 places
func ComputeNet(amount, penalty, discount decimal.Decimal) decimal.Decimal {
	return amount.Add(penalty).Sub(discount).Round(2)
}

// CountsTowardBalance reports whether this record's net amount participates
// in the file's paid/remaining reconciliation. Transfer charges are a
// standalone fee tracked outside the contract total.
func (p *PaymentRecord) CountsTowardBalance() bool {
	return p.Kind != PaymentKindTransferCharges
}

// IsSettled returns true for statuses whose net amount the ledger counts
// when resyncing paid totals
func (p *PaymentRecord) IsSettled() bool {
	return p.Status == PaymentStatusReceived || p.Status == PaymentStatusCleared
}

// MayClear returns true if the record can transition to cleared
func (p *PaymentRecord) MayClear() bool {
	return p.Status == PaymentStatusReceived
}

// MayBounce returns true if the record can transition to bounced.
// Bouncing is allowed both before clearance (no balance effect) and after
// clearance (reversal).
func (p *PaymentRecord) MayBounce() bool {
	return p.Status == PaymentStatusReceived || p.Status == PaymentStatusCleared
}

// MayCancel returns true if the record can be cancelled. Cleared records
// must bounce instead so counted money is never silently erased.
func (p *PaymentRecord) MayCancel() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusReceived
}

// ReceiptNumberFor formats a receipt number from the yearly sequence:
// prefix, four digit year, zero padded counter (RCP-2024-00042).
func ReceiptNumberFor(prefix string, year int, counter int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, counter)
}

// PaymentRecordResponse is the JSON response format for payment records
type PaymentRecordResponse struct {
	ID             uint            `json:"id"`
	ContractFileID uint            `json:"contract_file_id"`
	ReceiptNumber  string          `json:"receipt_number"`
	Amount         decimal.Decimal `json:"amount"`
	PenaltyAmount  decimal.Decimal `json:"penalty_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Method         string          `json:"method"`
	Kind           string          `json:"kind"`
	PaymentDate    time.Time       `json:"payment_date"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Status         string          `json:"status"`
	ClearedAt      *time.Time      `json:"cleared_at,omitempty"`
	BouncedAt      *time.Time      `json:"bounced_at,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	StatusReason   *string         `json:"status_reason,omitempty"`
	InstallmentID  *uint           `json:"installment_id,omitempty"`
	ReceivedBy     string          `json:"received_by,omitempty"`
	Remarks        *string         `json:"remarks,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ToResponse converts PaymentRecord to PaymentRecordResponse
func (p *PaymentRecord) ToResponse() PaymentRecordResponse {
	resp := PaymentRecordResponse{
		ID:             p.ID,
		ContractFileID: p.ContractFileID,
		ReceiptNumber:  p.ReceiptNumber,
		Amount:         p.Amount,
		PenaltyAmount:  p.PenaltyAmount,
		DiscountAmount: p.DiscountAmount,
		NetAmount:      p.NetAmount,
		Method:         p.Method,
		Kind:           p.Kind,
		PaymentDate:    p.PaymentDate,
		DueDate:        p.DueDate,
		Status:         p.Status,
		ClearedAt:      p.ClearedAt,
		BouncedAt:      p.BouncedAt,
		CancelledAt:    p.CancelledAt,
		StatusReason:   p.StatusReason,
		InstallmentID:  p.InstallmentID,
		Remarks:        p.Remarks,
		CreatedAt:      p.CreatedAt,
	}
	if p.ReceivedBy.ID != 0 {
		resp.ReceivedBy = p.ReceivedBy.FullName
	}
	return resp
}

// ReceiptSequence backs receipt number generation: one row per prefix and
// year, bumped under a row lock so numbers are unique per year.
type ReceiptSequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Prefix    string    `gorm:"size:10;not null;index:idx_receipt_seq_prefix_year,unique" json:"prefix"`
	Year      int       `gorm:"not null;index:idx_receipt_seq_prefix_year,unique" json:"year"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ReceiptSequence
func (ReceiptSequence) TableName() string {
	return "receipt_sequences"
}
