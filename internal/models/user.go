package models

import (
	"time"

	"gorm.io/gorm"
)

// Operator is an admin console user.
type Operator struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Username     string         `json:"username" gorm:"unique;not null"`
	Email        string         `json:"email" gorm:"unique;not null"`
	PhoneNumber  string         `json:"phone_number"`
	Role         string         `json:"role" gorm:"default:'admin'"` // super_admin, admin, viewer
	PasswordHash string         `json:"-" gorm:"not null"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type OperatorRole string

const (
	SuperAdmin OperatorRole = "super_admin"
	Admin      OperatorRole = "admin"
	Viewer     OperatorRole = "viewer"
)

// CanPlaceOrders reports whether the role may mutate subscriptions and place orders.
func (r OperatorRole) CanPlaceOrders() bool {
	return r == SuperAdmin || r == Admin
}
