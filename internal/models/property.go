package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Society is the top of the property hierarchy: society → block → street →
// plot. Deleting a parent with surviving children is refused by the
// repository layer, never cascaded.
type Society struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;not null;uniqueIndex" json:"name"`
	City      string         `gorm:"size:60" json:"city"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Blocks []Block `gorm:"foreignKey:SocietyID" json:"blocks,omitempty"`
}

// TableName specifies the table name for Society
func (Society) TableName() string {
	return "societies"
}

// Block is a subdivision of a society
type Block struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SocietyID uint           `gorm:"not null;index" json:"society_id"`
	Name      string         `gorm:"size:60;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Society Society  `gorm:"foreignKey:SocietyID" json:"society,omitempty"`
	Streets []Street `gorm:"foreignKey:BlockID" json:"streets,omitempty"`
}

// TableName specifies the table name for Block
func (Block) TableName() string {
	return "blocks"
}

// Street is a subdivision of a block
type Street struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	BlockID   uint           `gorm:"not null;index" json:"block_id"`
	Name      string         `gorm:"size:60;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Block Block  `gorm:"foreignKey:BlockID" json:"block,omitempty"`
	Plots []Plot `gorm:"foreignKey:StreetID" json:"plots,omitempty"`
}

// TableName specifies the table name for Street
func (Street) TableName() string {
	return "streets"
}

// Plot is the sellable asset a contract file points at
type Plot struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	StreetID   uint            `gorm:"not null;index" json:"street_id"`
	PlotNumber string          `gorm:"size:30;not null" json:"plot_number"`
	SizeMarla  decimal.Decimal `gorm:"type:decimal(10,2)" json:"size_marla"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"price"`
	Status     string          `gorm:"size:20;not null;default:available;index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`

	Street Street `gorm:"foreignKey:StreetID" json:"street,omitempty"`
}

// TableName specifies the table name for Plot
func (Plot) TableName() string {
	return "plots"
}

// Plot status constants
const (
	PlotStatusAvailable = "available"
	PlotStatusReserved  = "reserved"
	PlotStatusSold      = "sold"
)

// PlotCounts is the derived availability projection for a hierarchy node,
// recomputed on read instead of being cached in a column.
type PlotCounts struct {
	TotalPlots     int `json:"total_plots"`
	AvailablePlots int `json:"available_plots"`
	ReservedPlots  int `json:"reserved_plots"`
	SoldPlots      int `json:"sold_plots"`
}
