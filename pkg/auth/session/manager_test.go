package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aridelgado/blindbox-backend/pkg/config"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "session:access:" + accessID
}

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	return &Manager{store: store, keyer: store, ttl: time.Hour}, store
}

func TestNewManagerValidatesTTLs(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{RefreshTokenTTLMinutes: 60})
	require.Error(t, err)
}

func TestGenerateAndHasSession(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	accessID := NewAccessID()

	token, err := manager.Generate(ctx, accessID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	active, err := manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	assert.True(t, active)

	active, err = manager.HasSession(ctx, NewAccessID())
	require.NoError(t, err)
	assert.False(t, active)
}

func TestRotateInvalidatesOldSession(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	accessID := NewAccessID()

	token, err := manager.Generate(ctx, accessID)
	require.NoError(t, err)

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, token)
	require.NoError(t, err)
	assert.NotEqual(t, accessID, newAccessID)
	assert.NotEqual(t, token, newToken)

	active, err := manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	assert.False(t, active)

	active, err = manager.HasSession(ctx, newAccessID)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestRotateRejectsWrongToken(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	accessID := NewAccessID()

	_, err := manager.Generate(ctx, accessID)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, accessID, "forged")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = manager.Rotate(ctx, NewAccessID(), "anything")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRevoke(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	accessID := NewAccessID()

	_, err := manager.Generate(ctx, accessID)
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, accessID))

	active, err := manager.HasSession(ctx, accessID)
	require.NoError(t, err)
	assert.False(t, active)
}
