package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeRoles struct {
	admins map[uuid.UUID]bool
}

func (f *fakeRoles) IsAdmin(_ context.Context, accountID uuid.UUID) (bool, error) {
	return f.admins[accountID], nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.CatalogAudit{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, admin uuid.UUID) Service {
	t.Helper()
	roles := &fakeRoles{admins: map[uuid.UUID]bool{admin: true}}
	svc, err := NewService(NewRepository(db), roles, &gormTx{db: db})
	require.NoError(t, err)
	return svc
}

func validInput() ProductInput {
	return ProductInput{
		Name:               "Mystery Figurine",
		Description:        "One random figurine from series 4",
		EnableIndividual:   true,
		IndividualPriceWei: 1000,
		IndividualStock:    5,
	}
}

func TestAddProduct(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, admin, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), product.ID)
	assert.Equal(t, enums.ProductStatusActive, product.Status)
	assert.True(t, product.InStock)

	second, err := svc.AddProduct(ctx, admin, validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)

	trail, err := svc.GetAuditTrail(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, enums.CatalogActionProductAdded, trail[0].Action)
	assert.Len(t, trail[0].DataHash, 64)
}

func TestAddProductRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, uuid.New())

	_, err := svc.AddProduct(context.Background(), uuid.New(), validInput())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestAddProductValidation(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*ProductInput)
	}{
		{"empty name", func(in *ProductInput) { in.Name = "  " }},
		{"no mode enabled", func(in *ProductInput) {
			in.EnableIndividual = false
			in.IndividualPriceWei = 0
			in.IndividualStock = 0
		}},
		{"enabled mode without price", func(in *ProductInput) { in.IndividualPriceWei = 0 }},
		{"disabled mode with price", func(in *ProductInput) { in.SetPriceWei = 500 }},
		{"disabled mode with stock", func(in *ProductInput) { in.SetStock = 3 }},
		{"negative stock", func(in *ProductInput) { in.IndividualStock = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.AddProduct(ctx, admin, input)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}

	// legacy flat price stands in for a missing mode price
	input := validInput()
	input.IndividualPriceWei = 0
	input.LegacyPriceWei = 750
	_, err := svc.AddProduct(ctx, admin, input)
	require.NoError(t, err)
}

func TestUpdateProduct(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, admin, validInput())
	require.NoError(t, err)

	input := validInput()
	input.Name = "Mystery Figurine v2"
	input.EnableSet = true
	input.SetPriceWei = 4500
	input.SetStock = 2
	input.SetBoxes = 5

	updated, err := svc.UpdateProduct(ctx, admin, product.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "Mystery Figurine v2", updated.Name)
	assert.True(t, updated.EnableSet)
	assert.True(t, updated.InStock)

	_, err = svc.UpdateProduct(ctx, admin, 99, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	trail, err := svc.GetAuditTrail(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, enums.CatalogActionProductUpdated, trail[1].Action)
}

func TestDeactivateReactivate(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, admin, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(ctx, admin, product.ID))
	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusInactive, got.Status)

	require.NoError(t, svc.ReactivateProduct(ctx, admin, product.ID))
	got, err = svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusActive, got.Status)

	err = svc.DeactivateProduct(ctx, admin, 42)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListProductsPagination(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.AddProduct(ctx, admin, validInput())
		require.NoError(t, err)
	}

	page, err := svc.ListProducts(ctx, "", 2, false)
	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListProducts(ctx, page.NextCursor, 2, false)
	require.NoError(t, err)
	require.Len(t, next.Products, 1)
	assert.Empty(t, next.NextCursor)
	assert.Equal(t, int64(3), next.Products[0].ID)
}

func TestIsInStock(t *testing.T) {
	db := newTestDB(t)
	admin := uuid.New()
	svc := newTestService(t, db, admin)
	ctx := context.Background()

	product, err := svc.AddProduct(ctx, admin, validInput())
	require.NoError(t, err)

	inStock, err := svc.IsInStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, inStock)

	input := validInput()
	input.IndividualStock = 0
	_, err = svc.UpdateProduct(ctx, admin, product.ID, input)
	require.NoError(t, err)

	inStock, err = svc.IsInStock(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, inStock)

	_, err = svc.IsInStock(ctx, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
