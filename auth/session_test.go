package auth

import (
	"context"
	"testing"

	"quizserver/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSessionStoreAndRestore(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	lg := zap.NewNop()

	client := &models.Client{UserID: 7}
	client.SetRoom(42)

	// Connがないクライアントでも保存自体は成功する
	sessionID, err := GenerateAndStoreSessionID(ctx, client, rdb, lg)
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	restored := ValidateSessionID(ctx, rdb, sessionID, lg)
	require.NotNil(t, restored)
	assert.Equal(t, uint(7), restored.UserID)
	assert.Equal(t, uint(42), restored.Room())
}

func TestStoreSessionInfoOverwritesRoom(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	lg := zap.NewNop()

	client := &models.Client{UserID: 7}
	sessionID, err := GenerateAndStoreSessionID(ctx, client, rdb, lg)
	require.NoError(t, err)

	// 接続直後はルーム未購読
	restored := ValidateSessionID(ctx, rdb, sessionID, lg)
	require.NotNil(t, restored)
	assert.Equal(t, uint(0), restored.Room())

	// 購読後の上書きで復元先が更新される
	client.SetRoom(42)
	require.NoError(t, StoreSessionInfo(ctx, rdb, sessionID, client, lg))

	restored = ValidateSessionID(ctx, rdb, sessionID, lg)
	require.NotNil(t, restored)
	assert.Equal(t, uint(42), restored.Room())
}

func TestValidateSessionIDRejectsUnknown(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	lg := zap.NewNop()

	assert.Nil(t, ValidateSessionID(ctx, rdb, "", lg))
	assert.Nil(t, ValidateSessionID(ctx, rdb, "no-such-session", lg))
}

func TestDeleteSessionID(t *testing.T) {
	ctx := context.Background()
	rdb := newTestRedis(t)
	lg := zap.NewNop()

	client := &models.Client{UserID: 7}
	sessionID, err := GenerateAndStoreSessionID(ctx, client, rdb, lg)
	require.NoError(t, err)

	DeleteSessionID(ctx, rdb, sessionID)
	assert.Nil(t, ValidateSessionID(ctx, rdb, sessionID, lg))
}
