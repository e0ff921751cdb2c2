package orders

import (
	"context"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for orders, their delivery logs, and the
// legacy payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, afterID int64, limit int) ([]models.Order, error)
	List(ctx context.Context, afterID int64, limit int) ([]models.Order, error)
	DebitStock(ctx context.Context, productID int64, isSet bool, qty int) (bool, error)
	SyncIDSequence(ctx context.Context, id int64) error
	AppendLog(ctx context.Context, entry *models.DeliveryLogEntry) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	FindPayment(ctx context.Context, orderID int64) (*models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, afterID int64, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("id ASC").
		Limit(limit)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) List(ctx context.Context, afterID int64, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID > 0 {
		query = query.Where("id > ?", afterID)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// DebitStock decrements the mode counter only when enough stock remains.
// The guard in the WHERE clause makes check-and-debit a single atomic
// statement; the caller inspects the returned flag instead of racing a read.
func (r *repository) DebitStock(ctx context.Context, productID int64, isSet bool, qty int) (bool, error) {
	column := "individual_stock"
	if isSet {
		column = "set_stock"
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND "+column+" >= ?", productID, qty).
		Update(column, gorm.Expr(column+" - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SyncIDSequence moves the orders id sequence past an explicitly inserted id.
// Inserting with an explicit id leaves the Postgres sequence untouched, so
// without this the next generated id would collide with the legacy row.
func (r *repository) SyncIDSequence(ctx context.Context, id int64) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.WithContext(ctx).Exec(
		"SELECT setval(pg_get_serial_sequence('orders', 'id'), GREATEST((SELECT COALESCE(MAX(id), 1) FROM orders), ?))",
		id,
	).Error
}

func (r *repository) AppendLog(ctx context.Context, entry *models.DeliveryLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindPayment(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}
