package delivery

import (
	"context"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages order status writes and the delivery audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, id int64, updates map[string]any) error
	AppendLog(ctx context.Context, entry *models.DeliveryLogEntry) error
	ListLogs(ctx context.Context, orderID int64) ([]models.DeliveryLogEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a delivery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendLog(ctx context.Context, entry *models.DeliveryLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListLogs(ctx context.Context, orderID int64) ([]models.DeliveryLogEntry, error) {
	var entries []models.DeliveryLogEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
