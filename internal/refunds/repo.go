package refunds

import (
	"context"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages refund tickets plus the order and legacy payment rows
// a refund settles against.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateTicket(ctx context.Context, ticket *models.RefundTicket) error
	FindTicket(ctx context.Context, id int64) (*models.RefundTicket, error)
	ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.RefundTicket, error)
	UpdateTicket(ctx context.Context, id int64, updates map[string]any) error
	FindOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, id int64, updates map[string]any) error
	AppendLog(ctx context.Context, entry *models.DeliveryLogEntry) error
	FindPayment(ctx context.Context, orderID int64) (*models.Payment, error)
	UpdatePayment(ctx context.Context, orderID int64, updates map[string]any) error
	ClaimPayment(ctx context.Context, orderID int64, buyerID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a refund repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTicket(ctx context.Context, ticket *models.RefundTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) FindTicket(ctx context.Context, id int64) (*models.RefundTicket, error) {
	var ticket models.RefundTicket
	if err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.RefundTicket, error) {
	var tickets []models.RefundTicket
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) UpdateTicket(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.RefundTicket{}).
		Where("id = ?", id).
		Updates(updates).Error
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

func (r *repository) FindPayment(ctx context.Context, orderID int64) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) UpdatePayment(ctx context.Context, orderID int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

// ClaimPayment flips refund_claimed exactly once. The guard in the WHERE
// clause makes the claim atomic so a racing second claim sees zero rows.
func (r *repository) ClaimPayment(ctx context.Context, orderID int64, buyerID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ? AND buyer_id = ? AND refund_claimed = ? AND refund_approved_wei > 0", orderID, buyerID, false).
		Update("refund_claimed", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
