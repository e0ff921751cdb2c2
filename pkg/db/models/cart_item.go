package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one pending purchase line owned by a buyer. Repeated adds for
// the same product append new lines; there is no aggregation. Positional
// semantics (removal by index) follow ascending id order.
type CartItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	ProductID int64     `gorm:"column:product_id;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	IsSet     bool      `gorm:"column:is_set;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
