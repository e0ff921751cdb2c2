package catalog

import (
	"context"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for products and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, afterID int64, limit int, activeOnly bool) ([]models.Product, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	AppendAudit(ctx context.Context, entry *models.CatalogAudit) error
	ListAudits(ctx context.Context, productID int64) ([]models.CatalogAudit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) List(ctx context.Context, afterID int64, limit int, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	if activeOnly {
		query = query.Where("status = ?", "active")
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendAudit(ctx context.Context, entry *models.CatalogAudit) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListAudits(ctx context.Context, productID int64) ([]models.CatalogAudit, error) {
	var entries []models.CatalogAudit
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
