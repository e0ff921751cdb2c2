package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/aridelgado/blindbox-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type roleChecker interface {
	IsAdmin(ctx context.Context, accountID uuid.UUID) (bool, error)
}

// ProductInput carries the mutable fields of a listing. The same shape is
// used for creation and full overwrite on update.
type ProductInput struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	EnableIndividual   bool   `json:"enable_individual"`
	EnableSet          bool   `json:"enable_set"`
	IndividualPriceWei int64  `json:"individual_price_wei"`
	IndividualStock    int    `json:"individual_stock"`
	SetPriceWei        int64  `json:"set_price_wei"`
	SetStock           int    `json:"set_stock"`
	SetBoxes           int    `json:"set_boxes"`
	LegacyPriceWei     int64  `json:"legacy_price_wei"`
}

// ListResult is one page of products plus the cursor for the next page.
type ListResult struct {
	Products   []models.Product
	NextCursor string
}

// Service manages the product catalog. Every mutation is admin gated and
// appends a hashed audit record in the same transaction.
type Service interface {
	AddProduct(ctx context.Context, actorID uuid.UUID, input ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, actorID uuid.UUID, productID int64, input ProductInput) (*models.Product, error)
	DeactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error
	ReactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
	ListProducts(ctx context.Context, cursor string, limit int, activeOnly bool) (*ListResult, error)
	IsInStock(ctx context.Context, productID int64) (bool, error)
	GetAuditTrail(ctx context.Context, productID int64) ([]models.CatalogAudit, error)
}

type service struct {
	repo  Repository
	roles roleChecker
	tx    txRunner
}

// NewService builds the catalog service.
func NewService(repo Repository, roles roleChecker, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if roles == nil {
		return nil, fmt.Errorf("role checker required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, roles: roles, tx: tx}, nil
}

func (s *service) AddProduct(ctx context.Context, actorID uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:               strings.TrimSpace(input.Name),
		Description:        input.Description,
		Status:             enums.ProductStatusActive,
		EnableIndividual:   input.EnableIndividual,
		EnableSet:          input.EnableSet,
		IndividualPriceWei: input.IndividualPriceWei,
		IndividualStock:    input.IndividualStock,
		SetPriceWei:        input.SetPriceWei,
		SetStock:           input.SetStock,
		SetBoxes:           input.SetBoxes,
		LegacyPriceWei:     input.LegacyPriceWei,
	}
	product.InStock = product.AnyModeInStock()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		return appendAudit(ctx, repo, product.ID, actorID, enums.CatalogActionProductAdded, input)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, actorID uuid.UUID, productID int64, input ProductInput) (*models.Product, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := loadProduct(ctx, repo, productID)
		if err != nil {
			return err
		}

		product.Name = strings.TrimSpace(input.Name)
		product.Description = input.Description
		product.EnableIndividual = input.EnableIndividual
		product.EnableSet = input.EnableSet
		product.IndividualPriceWei = input.IndividualPriceWei
		product.IndividualStock = input.IndividualStock
		product.SetPriceWei = input.SetPriceWei
		product.SetStock = input.SetStock
		product.SetBoxes = input.SetBoxes
		product.LegacyPriceWei = input.LegacyPriceWei
		product.InStock = product.AnyModeInStock()

		updates := map[string]any{
			"name":                 product.Name,
			"description":          product.Description,
			"enable_individual":    product.EnableIndividual,
			"enable_set":           product.EnableSet,
			"individual_price_wei": product.IndividualPriceWei,
			"individual_stock":     product.IndividualStock,
			"set_price_wei":        product.SetPriceWei,
			"set_stock":            product.SetStock,
			"set_boxes":            product.SetBoxes,
			"legacy_price_wei":     product.LegacyPriceWei,
			"in_stock":             product.InStock,
		}
		if err := repo.Update(ctx, productID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		updated = product
		return appendAudit(ctx, repo, productID, actorID, enums.CatalogActionProductUpdated, input)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) DeactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error {
	return s.setStatus(ctx, actorID, productID, enums.ProductStatusInactive, enums.CatalogActionProductDeactivated)
}

func (s *service) ReactivateProduct(ctx context.Context, actorID uuid.UUID, productID int64) error {
	return s.setStatus(ctx, actorID, productID, enums.ProductStatusActive, enums.CatalogActionProductReactivated)
}

func (s *service) setStatus(ctx context.Context, actorID uuid.UUID, productID int64, status enums.ProductStatus, action enums.CatalogAction) error {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := loadProduct(ctx, repo, productID); err != nil {
			return err
		}
		if err := repo.Update(ctx, productID, map[string]any{"status": status}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
		}
		return appendAudit(ctx, repo, productID, actorID, action, map[string]any{"status": status})
	})
}

func (s *service) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	return loadProduct(ctx, s.repo, productID)
}

func (s *service) ListProducts(ctx context.Context, cursor string, limit int, activeOnly bool) (*ListResult, error) {
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	var afterID int64
	if parsed != nil {
		afterID = parsed.ID
	}
	limit = pagination.NormalizeLimit(limit)

	products, err := s.repo.List(ctx, afterID, pagination.LimitWithBuffer(limit), activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	result := &ListResult{Products: products}
	if len(products) > limit {
		result.Products = products[:limit]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{ID: result.Products[limit-1].ID})
	}
	return result, nil
}

func (s *service) IsInStock(ctx context.Context, productID int64) (bool, error) {
	product, err := loadProduct(ctx, s.repo, productID)
	if err != nil {
		return false, err
	}
	return product.AnyModeInStock(), nil
}

func (s *service) GetAuditTrail(ctx context.Context, productID int64) ([]models.CatalogAudit, error) {
	if _, err := loadProduct(ctx, s.repo, productID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListAudits(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail")
	}
	return entries, nil
}

func (s *service) requireAdmin(ctx context.Context, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "account identity missing")
	}
	isAdmin, err := s.roles.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

// validateInput enforces the mode configuration rules: at least one sale
// mode enabled, an enabled mode priced above zero unless the legacy flat
// price covers it, and a disabled mode carrying no price or stock.
func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.EnableIndividual && !input.EnableSet {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one sale mode must be enabled")
	}
	if input.IndividualPriceWei < 0 || input.SetPriceWei < 0 || input.LegacyPriceWei < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}
	if input.IndividualStock < 0 || input.SetStock < 0 || input.SetBoxes < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if input.EnableIndividual && input.IndividualPriceWei == 0 && input.LegacyPriceWei == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "individual mode requires a price")
	}
	if input.EnableSet && input.SetPriceWei == 0 && input.LegacyPriceWei == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "set mode requires a price")
	}
	if !input.EnableIndividual && (input.IndividualPriceWei != 0 || input.IndividualStock != 0) {
		return pkgerrors.New(pkgerrors.CodeValidation, "disabled individual mode must have zero price and stock")
	}
	if !input.EnableSet && (input.SetPriceWei != 0 || input.SetStock != 0) {
		return pkgerrors.New(pkgerrors.CodeValidation, "disabled set mode must have zero price and stock")
	}
	return nil
}

func appendAudit(ctx context.Context, repo Repository, productID int64, actorID uuid.UUID, action enums.CatalogAction, payload any) error {
	entry := &models.CatalogAudit{
		ProductID: productID,
		ActorID:   actorID,
		Action:    action,
		DataHash:  HashPayload(payload),
	}
	if err := repo.AppendAudit(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
	}
	return nil
}

// HashPayload returns the hex SHA-256 of the JSON encoding of payload. Audit
// entries store the hash rather than the payload itself.
func HashPayload(payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func loadProduct(ctx context.Context, repo Repository, productID int64) (*models.Product, error) {
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
