package cart

import (
	"context"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for cart lines. Lines are positional:
// ascending id order is the cart order presented to the buyer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, item *models.CartItem) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartItem, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", id).Error
}

func (r *repository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "account_id = ?", accountID).Error
}
