package roles

import (
	"context"
	"fmt"
	"testing"

	"github.com/aridelgado/blindbox-backend/internal/accounts"
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

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:roles_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}))
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, mutate func(*models.Account)) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()),
		PasswordHash: "x",
		Role:         enums.RoleBuyer,
		IsActive:     true,
	}
	if mutate != nil {
		mutate(account)
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(accounts.NewRepository(db), &gormTx{db: db})
	require.NoError(t, err)
	return svc
}

func TestAddAdminRequiresOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := seedAccount(t, db, func(a *models.Account) { a.IsOwner = true; a.IsAdmin = true; a.Role = enums.RoleAdmin })
	admin := seedAccount(t, db, func(a *models.Account) { a.IsAdmin = true; a.Role = enums.RoleAdmin })
	target := seedAccount(t, db, nil)

	err := svc.AddAdmin(ctx, admin.ID, target.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	require.NoError(t, svc.AddAdmin(ctx, owner.ID, target.ID))

	got, err := svc.IsAdmin(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestAddDeliveryManRequiresAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	admin := seedAccount(t, db, func(a *models.Account) { a.IsAdmin = true; a.Role = enums.RoleAdmin })
	buyer := seedAccount(t, db, nil)
	target := seedAccount(t, db, nil)

	err := svc.AddDeliveryMan(ctx, buyer.ID, target.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	require.NoError(t, svc.AddDeliveryMan(ctx, admin.ID, target.ID))

	got, err := svc.IsDelivery(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestRoleFlagsStayExclusive(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	owner := seedAccount(t, db, func(a *models.Account) { a.IsOwner = true; a.IsAdmin = true; a.Role = enums.RoleAdmin })
	target := seedAccount(t, db, nil)

	require.NoError(t, svc.AddDeliveryMan(ctx, owner.ID, target.ID))
	require.NoError(t, svc.AddAdmin(ctx, owner.ID, target.ID))

	var stored models.Account
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	assert.True(t, stored.IsAdmin)
	assert.False(t, stored.IsDeliveryMan)
	assert.Equal(t, enums.RoleAdmin, stored.Role)

	require.NoError(t, svc.AddDeliveryMan(ctx, owner.ID, target.ID))
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	assert.False(t, stored.IsAdmin)
	assert.True(t, stored.IsDeliveryMan)
	assert.Equal(t, enums.RoleDelivery, stored.Role)
}

func TestAssignRoleValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	admin := seedAccount(t, db, func(a *models.Account) { a.IsAdmin = true; a.Role = enums.RoleAdmin })
	target := seedAccount(t, db, nil)

	err := svc.AssignRole(ctx, admin.ID, target.ID, enums.Role("butler"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AssignRole(ctx, admin.ID, uuid.Nil, enums.RoleSeller)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AssignRole(ctx, admin.ID, uuid.New(), enums.RoleSeller)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	require.NoError(t, svc.AssignRole(ctx, admin.ID, target.ID, enums.RoleSeller))

	var stored models.Account
	require.NoError(t, db.First(&stored, "id = ?", target.ID).Error)
	assert.Equal(t, enums.RoleSeller, stored.Role)
	assert.False(t, stored.IsAdmin)
	assert.False(t, stored.IsDeliveryMan)
}
