package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
}

// Line is one cart entry joined with its current catalog price.
type Line struct {
	Item         models.CartItem
	ProductName  string
	UnitPriceWei int64
	LineTotalWei int64
}

// Service manages the per-buyer cart. The cart is a convenience layer over
// the catalog; it moves no money and reserves no stock.
type Service interface {
	AddToCart(ctx context.Context, buyerID uuid.UUID, productID int64, quantity int, isSet bool) (*models.CartItem, error)
	RemoveFromCart(ctx context.Context, buyerID uuid.UUID, index int) error
	ClearCart(ctx context.Context, buyerID uuid.UUID) error
	GetCart(ctx context.Context, buyerID uuid.UUID) ([]Line, error)
	GetCartTotal(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type service struct {
	repo     Repository
	products productFinder
	tx       txRunner
}

// NewService builds the cart service.
func NewService(repo Repository, products productFinder, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, tx: tx}, nil
}

// AddToCart appends a line. Repeated calls for the same product append
// additional lines rather than aggregating quantities.
func (s *service) AddToCart(ctx context.Context, buyerID uuid.UUID, productID int64, quantity int, isSet bool) (*models.CartItem, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != enums.ProductStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is inactive")
	}
	if !product.ModeEnabled(isSet) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested sale mode is not enabled")
	}

	item := &models.CartItem{
		AccountID: buyerID,
		ProductID: productID,
		Quantity:  quantity,
		IsSet:     isSet,
	}
	if err := s.repo.Append(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append cart line")
	}
	return item, nil
}

// RemoveFromCart drops the line at the given position by moving the last
// line into its slot. The tail of the cart changes order; callers see the
// same swap-and-pop behavior the storefront always had.
func (s *service) RemoveFromCart(ctx context.Context, buyerID uuid.UUID, index int) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.ListByAccount(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
		}
		if index < 0 || index >= len(items) {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart index out of range")
		}

		last := items[len(items)-1]
		target := items[index]
		if target.ID != last.ID {
			updates := map[string]any{
				"product_id": last.ProductID,
				"quantity":   last.Quantity,
				"is_set":     last.IsSet,
			}
			if err := repo.Update(ctx, target.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move cart line")
			}
		}
		if err := repo.Delete(ctx, last.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop cart line")
		}
		return nil
	})
}

func (s *service) ClearCart(ctx context.Context, buyerID uuid.UUID) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	if err := s.repo.DeleteByAccount(ctx, buyerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) GetCart(ctx context.Context, buyerID uuid.UUID) ([]Line, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	items, err := s.repo.ListByAccount(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart")
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		product, err := s.findProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		unit := product.UnitPriceWei(item.IsSet)
		lines = append(lines, Line{
			Item:         item,
			ProductName:  product.Name,
			UnitPriceWei: unit,
			LineTotalWei: unit * int64(item.Quantity),
		})
	}
	return lines, nil
}

func (s *service) GetCartTotal(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	lines, err := s.GetCart(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, line := range lines {
		total += line.LineTotalWei
	}
	return total, nil
}

func (s *service) findProduct(ctx context.Context, productID int64) (*models.Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup product")
	}
	return product, nil
}
