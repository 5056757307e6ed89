package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a back-office actor. Authentication lives outside this service;
// the JWT middleware hands us the acting user's id for audit fields.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:100;not null" json:"full_name"`
	Email     string         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"size:30;not null;default:staff" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// User role constants
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)
