package room

import (
	"testing"
	"time"

	"quizserver/migrations"
	"quizserver/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// インメモリSQLiteでテスト用DBを用意する。コネクションが分かれると
// 別のDBになってしまうため、プールは1本に固定する。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrations.AutoMigrateDB(db))
	return db
}

func newTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zap.NewNop()
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed-password",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// joined_atの順序が確実に異なるよう、入室の合間に少し待つ
func joinStaggered(t *testing.T, db *gorm.DB, lg *zap.Logger, roomID, userID uint) *models.RoomPlayer {
	t.Helper()
	time.Sleep(5 * time.Millisecond)
	member, err := JoinRoom(db, lg, roomID, userID)
	require.NoError(t, err)
	return member
}
