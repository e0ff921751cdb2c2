package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aridelgado/blindbox-backend/pkg/enums"
)

// CatalogAudit is an append-only record of a catalog mutation. DataHash is
// the SHA-256 of the mutation payload so the trail can be verified without
// storing the full payload.
type CatalogAudit struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64               `gorm:"column:product_id;not null;index"`
	ActorID   uuid.UUID           `gorm:"column:actor_id;type:uuid;not null"`
	Action    enums.CatalogAction `gorm:"column:action;not null"`
	DataHash  string              `gorm:"column:data_hash;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
