package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deal represents a brokered sale. A confirmed deal spawns the contract
// file; commission is earned only once the deal completes.
type Deal struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	ClientID uint `gorm:"not null;index" json:"client_id"`
	PlotID   uint `gorm:"not null;index" json:"plot_id"`
	DealerID uint `gorm:"not null;index" json:"dealer_id"`

	Amount               decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CommissionPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"commission_amount"`

	Status      string     `gorm:"size:20;not null;default:pending;index" json:"status"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       *string    `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Client Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Plot   Plot   `gorm:"foreignKey:PlotID" json:"plot,omitempty"`
	Dealer Dealer `gorm:"foreignKey:DealerID" json:"dealer,omitempty"`
}

// TableName specifies the table name for Deal
func (Deal) TableName() string {
	return "deals"
}

// Deal status constants
const (
	DealStatusPending   = "pending"
	DealStatusConfirmed = "confirmed"
	DealStatusCompleted = "completed"
	DealStatusCancelled = "cancelled"
)

// MayConfirm returns true if the deal can be confirmed
func (d *Deal) MayConfirm() bool {
	return d.Status == DealStatusPending
}

// MayComplete returns true if the deal can be completed. Completion is only
// reachable from confirmed; commission never accrues from any other state.
func (d *Deal) MayComplete() bool {
	return d.Status == DealStatusConfirmed
}

// MayCancel returns true if the deal can be cancelled
func (d *Deal) MayCancel() bool {
	return d.Status == DealStatusPending || d.Status == DealStatusConfirmed
}

// Commission derives the dealer's cut. A positive percentage wins over any
// manually entered fixed amount.
func (d *Deal) Commission() decimal.Decimal {
	if d.CommissionPercentage.GreaterThan(decimal.Zero) {
		return d.Amount.Mul(d.CommissionPercentage).Div(decimal.NewFromInt(100)).Round(2)
	}
	if d.CommissionAmount.GreaterThan(decimal.Zero) {
		return d.CommissionAmount
	}
	return decimal.Zero
}

// DealResponse is the JSON response format for deals
type DealResponse struct {
	ID                   uint            `json:"id"`
	ClientID             uint            `json:"client_id"`
	ClientName           string          `json:"client_name,omitempty"`
	PlotID               uint            `json:"plot_id"`
	DealerID             uint            `json:"dealer_id"`
	DealerName           string          `json:"dealer_name,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	CommissionAmount     decimal.Decimal `json:"commission_amount"`
	Commission           decimal.Decimal `json:"commission"`
	Status               string          `json:"status"`
	ConfirmedAt          *time.Time      `json:"confirmed_at,omitempty"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
	Notes                *string         `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// ToResponse converts Deal to DealResponse
func (d *Deal) ToResponse() DealResponse {
	resp := DealResponse{
		ID:                   d.ID,
		ClientID:             d.ClientID,
		PlotID:               d.PlotID,
		DealerID:             d.DealerID,
		Amount:               d.Amount,
		CommissionPercentage: d.CommissionPercentage,
		CommissionAmount:     d.CommissionAmount,
		Commission:           d.Commission(),
		Status:               d.Status,
		ConfirmedAt:          d.ConfirmedAt,
		CompletedAt:          d.CompletedAt,
		Notes:                d.Notes,
		CreatedAt:            d.CreatedAt,
	}
	if d.Client.ID != 0 {
		resp.ClientName = d.Client.FullName
	}
	if d.Dealer.ID != 0 {
		resp.DealerName = d.Dealer.Name
	}
	return resp
}

// Dealer is a commission-earning agent. TotalDeals and TotalCommission are
// a cached projection over completed deals, refreshed by the commission
// service, never patched incrementally.
type Dealer struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	Phone           string          `gorm:"size:30" json:"phone"`
	Email           *string         `gorm:"size:100" json:"email,omitempty"`
	TotalDeals      int             `gorm:"not null;default:0" json:"total_deals"`
	TotalCommission decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_commission"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for Dealer
func (Dealer) TableName() string {
	return "dealers"
}

// Client is the party that owns a contract file
type Client struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:100;not null" json:"full_name"`
	Phone     string         `gorm:"size:30" json:"phone"`
	CNIC      string         `gorm:"size:20;index" json:"cnic"`
	Address   *string        `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for Client
func (Client) TableName() string {
	return "clients"
}
