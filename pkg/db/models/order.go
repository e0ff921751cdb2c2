package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// Order is created by the payment engine with status Paid and is mutated only
// through the delivery state machine and the refund ledger; it is never
// deleted. PaidWei always equals the unit price at purchase time times Qty.
type Order struct {
	ID                 int64             `gorm:"column:id;primaryKey;autoIncrement"`
	BuyerID            uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	ProductID          int64             `gorm:"column:product_id;not null"`
	IsSet              bool              `gorm:"column:is_set;not null;default:false"`
	Qty                int               `gorm:"column:qty;not null"`
	PaidWei            int64             `gorm:"column:paid_wei;not null"`
	Status             enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	DeliveryID         string            `gorm:"column:delivery_id;not null;default:''"`
	ProofImage         string            `gorm:"column:proof_image;not null;default:''"`
	AssignedDeliveryID *uuid.UUID        `gorm:"column:assigned_delivery_id;type:uuid"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
