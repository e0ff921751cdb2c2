package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment backs the legacy direct-payment path, keyed by the caller-supplied
// order id. RefundApprovedWei is set once by an admin and RefundClaimed flips
// exactly once when the buyer claims the payout.
type Payment struct {
	OrderID           int64     `gorm:"column:order_id;primaryKey;autoIncrement:false"`
	BuyerID           uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	AmountWei         int64     `gorm:"column:amount_wei;not null"`
	RefundApprovedWei int64     `gorm:"column:refund_approved_wei;not null;default:0"`
	RefundClaimed     bool      `gorm:"column:refund_claimed;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
