package accounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkgauth "github.com/aridelgado/blindbox-backend/pkg/auth"
	"github.com/aridelgado/blindbox-backend/pkg/config"
	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
)

type fakeSessions struct {
	generated []string
	err       error
}

func (f *fakeSessions) Generate(ctx context.Context, accessID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.generated = append(f.generated, accessID)
	return "refresh-" + accessID, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:accounts_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}))
	return db
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 30}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T, db *gorm.DB, sessions *fakeSessions, owner config.OwnerConfig) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), sessions, testJWTConfig(), testPasswordConfig(), owner)
	require.NoError(t, err)
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	sessions := &fakeSessions{}
	svc := newTestService(t, db, sessions, config.OwnerConfig{})
	ctx := context.Background()

	dto, err := svc.Register(ctx, RegisterInput{Email: "Buyer@Example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", dto.Email)
	assert.Equal(t, enums.RoleBuyer, dto.Role)
	assert.False(t, dto.IsAdmin)

	result, err := svc.Login(ctx, "buyer@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	require.Len(t, sessions.generated, 1)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, claims.UserID)
	assert.Equal(t, sessions.generated[0], claims.ID)
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "", Password: "hunter2hunter2"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Register(ctx, RegisterInput{Email: "short@example.com", Password: "short"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Register(ctx, RegisterInput{Email: "dupe@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "DUPE@example.com", Password: "hunter2hunter2"})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "user@example.com", "wrong-password")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	_, err = svc.Login(ctx, "nobody@example.com", "hunter2hunter2")
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{})
	ctx := context.Background()

	dto, err := svc.Register(ctx, RegisterInput{Email: "frozen@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Account{}).Where("id = ?", dto.ID).Update("is_active", false).Error)

	_, err = svc.Login(ctx, "frozen@example.com", "hunter2hunter2")
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestEnsureOwnerIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{Email: "owner@example.com", Password: "ownerownerowner"})
	ctx := context.Background()

	first, err := svc.EnsureOwner(ctx)
	require.NoError(t, err)
	assert.True(t, first.IsOwner)
	assert.True(t, first.IsAdmin)
	assert.Equal(t, enums.RoleAdmin, first.Role)

	second, err := svc.EnsureOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Where("is_owner = ?", true).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEnsureOwnerRequiresConfiguredEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{})

	_, err := svc.EnsureOwner(context.Background())
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGet(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeSessions{}, config.OwnerConfig{})
	ctx := context.Background()

	dto, err := svc.Register(ctx, RegisterInput{Email: "reader@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)

	found, err := svc.Get(ctx, dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.Email, found.Email)

	_, err = svc.Get(ctx, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
