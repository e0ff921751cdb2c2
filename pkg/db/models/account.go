package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// Account is an identity known to the marketplace. Accounts are created on
// registration or first role assignment and are never deleted, only
// reassigned.
type Account struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email         string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	Role          enums.Role `gorm:"column:role;not null;default:'none'"`
	IsAdmin       bool       `gorm:"column:is_admin;not null;default:false"`
	IsDeliveryMan bool       `gorm:"column:is_delivery_man;not null;default:false"`
	IsOwner       bool       `gorm:"column:is_owner;not null;default:false"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
