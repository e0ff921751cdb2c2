package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/aridelgado/blindbox-backend/internal/catalog"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/metrics"
	"github.com/aridelgado/blindbox-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// BuyInput carries the arguments of a purchase.
type BuyInput struct {
	ProductID  int64
	IsSet      bool
	Qty        int
	DeliveryID string
	PaymentWei int64
}

// PayDirectInput carries the arguments of the legacy direct-payment path:
// a one-unit individual purchase keyed by a caller-supplied order id.
type PayDirectInput struct {
	OrderID    int64
	ProductID  int64
	DeliveryID string
	PaymentWei int64
}

// ListResult is one page of orders plus the cursor for the next page.
type ListResult struct {
	Orders     []models.Order
	NextCursor string
}

// Service is the payment engine: the single point where money changes hands.
// Both Buy and the legacy PayDirect settle through one primitive so their
// invariants cannot diverge.
type Service interface {
	ProductPrice(ctx context.Context, productID int64, isSet bool, qty int) (int64, error)
	Buy(ctx context.Context, buyerID uuid.UUID, input BuyInput) (*models.Order, error)
	PayDirect(ctx context.Context, buyerID uuid.UUID, input PayDirectInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (*ListResult, error)
	ListAll(ctx context.Context, cursor string, limit int) (*ListResult, error)
}

type service struct {
	repo     Repository
	products catalog.Repository
	tx       txRunner
	metrics  *metrics.CommerceMetrics
}

// NewService builds the order service. Metrics may be nil.
func NewService(repo Repository, products catalog.Repository, tx txRunner, m *metrics.CommerceMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx, metrics: m}, nil
}

func (s *service) ProductPrice(ctx context.Context, productID int64, isSet bool, qty int) (int64, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	product, err := s.loadProduct(ctx, s.products, productID)
	if err != nil {
		return 0, err
	}
	unit := product.UnitPriceWei(isSet)
	if unit <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no price configured for the requested mode")
	}
	return unit * int64(qty), nil
}

// Buy validates payment against the computed price, debits stock, and opens
// the order, all inside one transaction. A failed precondition leaves no
// trace: no stock debit, no order row, no burned order id.
func (s *service) Buy(ctx context.Context, buyerID uuid.UUID, input BuyInput) (*models.Order, error) {
	return s.settleOrder(ctx, buyerID, settlement{
		productID:  input.ProductID,
		isSet:      input.IsSet,
		qty:        input.Qty,
		deliveryID: input.DeliveryID,
		paymentWei: input.PaymentWei,
	})
}

// PayDirect is the legacy storefront entry point. It settles exactly like
// Buy but is restricted to a single individual unit, uses the caller's order
// id, and records a Payment row for the legacy refund-claim flow.
func (s *service) PayDirect(ctx context.Context, buyerID uuid.UUID, input PayDirectInput) (*models.Order, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive")
	}
	return s.settleOrder(ctx, buyerID, settlement{
		orderIDHint:   input.OrderID,
		productID:     input.ProductID,
		isSet:         false,
		qty:           1,
		deliveryID:    input.DeliveryID,
		paymentWei:    input.PaymentWei,
		recordPayment: true,
	})
}

type settlement struct {
	orderIDHint   int64
	productID     int64
	isSet         bool
	qty           int
	deliveryID    string
	paymentWei    int64
	recordPayment bool
}

func (s *service) settleOrder(ctx context.Context, buyerID uuid.UUID, in settlement) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if in.qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		product, err := s.loadProduct(ctx, products, in.productID)
		if err != nil {
			return err
		}
		if product.Status != enums.ProductStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive")
		}
		if !product.ModeEnabled(in.isSet) {
			return pkgerrors.New(pkgerrors.CodeValidation, "requested sale mode is not enabled")
		}

		unit := product.UnitPriceWei(in.isSet)
		if unit <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no price configured for the requested mode")
		}
		required := unit * int64(in.qty)
		if in.paymentWei != required {
			return pkgerrors.New(pkgerrors.CodePaymentMismatch, "payment does not match price").
				WithDetails(map[string]int64{"required_wei": required, "paid_wei": in.paymentWei})
		}

		if in.orderIDHint > 0 {
			if _, err := repo.FindByID(ctx, in.orderIDHint); err == nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "order id already taken")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
			}
		}

		debited, err := repo.DebitStock(ctx, in.productID, in.isSet, in.qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit stock")
		}
		if !debited {
			if s.metrics != nil {
				s.metrics.IncStockRejection()
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock in the requested mode")
		}

		// the per-mode counters are authoritative; in_stock is a cache
		refreshed, err := products.FindByID(ctx, in.productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
		}
		if err := products.Update(ctx, in.productID, map[string]any{"in_stock": refreshed.AnyModeInStock()}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh stock flag")
		}
		audit := &models.CatalogAudit{
			ProductID: in.productID,
			ActorID:   buyerID,
			Action:    enums.CatalogActionStockDebited,
			DataHash:  catalog.HashPayload(map[string]any{"is_set": in.isSet, "qty": in.qty}),
		}
		if err := products.AppendAudit(ctx, audit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
		}

		order = &models.Order{
			ID:         in.orderIDHint,
			BuyerID:    buyerID,
			ProductID:  in.productID,
			IsSet:      in.isSet,
			Qty:        in.qty,
			PaidWei:    in.paymentWei,
			Status:     enums.OrderStatusPaid,
			DeliveryID: in.deliveryID,
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if in.orderIDHint > 0 {
			if err := repo.SyncIDSequence(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order id sequence")
			}
		}

		entry := &models.DeliveryLogEntry{
			OrderID: order.ID,
			Status:  enums.OrderStatusPaid,
			Note:    "ORDER_PAID",
			ActorID: buyerID,
		}
		if err := repo.AppendLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append delivery log")
		}

		if in.recordPayment {
			payment := &models.Payment{
				OrderID:   order.ID,
				BuyerID:   buyerID,
				AmountWei: in.paymentWei,
			}
			if err := repo.CreatePayment(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveOrderPaid(enums.SaleModeFor(in.isSet).String(), order.PaidWei)
	}
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order")
	}
	return order, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerID uuid.UUID, cursor string, limit int) (*ListResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	return s.page(cursor, limit, func(afterID int64, fetch int) ([]models.Order, error) {
		return s.repo.ListByBuyer(ctx, buyerID, afterID, fetch)
	})
}

func (s *service) ListAll(ctx context.Context, cursor string, limit int) (*ListResult, error) {
	return s.page(cursor, limit, func(afterID int64, fetch int) ([]models.Order, error) {
		return s.repo.List(ctx, afterID, fetch)
	})
}

func (s *service) page(cursor string, limit int, fetch func(afterID int64, limit int) ([]models.Order, error)) (*ListResult, error) {
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	var afterID int64
	if parsed != nil {
		afterID = parsed.ID
	}
	limit = pagination.NormalizeLimit(limit)

	orders, err := fetch(afterID, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	result := &ListResult{Orders: orders}
	if len(orders) > limit {
		result.Orders = orders[:limit]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: result.Orders[limit-1].ID})
	}
	return result, nil
}

func (s *service) loadProduct(ctx context.Context, repo catalog.Repository, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	product, err := repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	return product, nil
}
