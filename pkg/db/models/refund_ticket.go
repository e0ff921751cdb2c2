package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// RefundTicket is a buyer-initiated request to reclaim part or all of an
// order's payment. AmountWei is bounded by the order's PaidWei at creation.
type RefundTicket struct {
	ID          int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64                    `gorm:"column:order_id;not null;index"`
	RequesterID uuid.UUID                `gorm:"column:requester_id;type:uuid;not null"`
	Type        enums.RefundType         `gorm:"column:type;not null"`
	AmountWei   int64                    `gorm:"column:amount_wei;not null"`
	Status      enums.RefundTicketStatus `gorm:"column:status;not null;default:'open'"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
