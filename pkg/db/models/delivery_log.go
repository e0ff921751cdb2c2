package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// DeliveryLogEntry is one immutable line of an order's audit trail. An entry
// is appended on every status transition and never updated.
type DeliveryLogEntry struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    int64             `gorm:"column:order_id;not null;index"`
	Status     enums.OrderStatus `gorm:"column:status;not null"`
	Note       string            `gorm:"column:note;not null;default:''"`
	ProofImage string            `gorm:"column:proof_image;not null;default:''"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
