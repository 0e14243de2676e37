package room

import (
	"testing"
	"time"

	"quizserver/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ルームの作成時刻を過去にずらす（gormが自動で現在時刻を入れるため）
func backdateRoom(t *testing.T, db *gorm.DB, roomID uint, age time.Duration) {
	t.Helper()
	past := time.Now().Add(-age)
	require.NoError(t, db.Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("created_at", past).Error)
}

func TestCleanupEmptyRooms(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	// 古い空ルーム：削除対象
	oldEmpty, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)
	_, err = LeaveRoom(db, lg, oldEmpty.ID, alice.ID)
	require.NoError(t, err)
	// 退室で即削除されるため、空のまま残ったルームを直接用意する
	stale := models.Room{Code: "STALE123", Status: models.RoomStatusWaiting, OwnerID: alice.ID}
	require.NoError(t, db.Create(&stale).Error)
	backdateRoom(t, db, stale.ID, 10*time.Minute)

	// 新しい空ルーム：猶予内なので残る
	fresh := models.Room{Code: "FRESH456", Status: models.RoomStatusWaiting, OwnerID: alice.ID}
	require.NoError(t, db.Create(&fresh).Error)

	// 古いがメンバーのいるルーム：残る
	occupied, err := CreateRoom(db, lg, bob.ID)
	require.NoError(t, err)
	backdateRoom(t, db, occupied.ID, 10*time.Minute)

	result, err := CleanupEmptyRooms(db, lg, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)
	assert.Equal(t, []uint{stale.ID}, result.DeletedRoomIDs)

	var count int64
	require.NoError(t, db.Model(&models.Room{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCleanupStaleRooms(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	// 10時間放置されたplayingルーム：メンバー・結果ごと削除される
	abandoned, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)
	_, err = StartGame(db, lg, abandoned.ID, alice.ID)
	require.NoError(t, err)
	require.NoError(t, UpdateScore(db, lg, abandoned.ID, alice.ID, 50))
	backdateRoom(t, db, abandoned.ID, 11*time.Hour)

	// 古いがfinishedのルーム：戦績として残す
	done := models.Room{Code: "DONEROOM", Status: models.RoomStatusFinished, OwnerID: bob.ID}
	require.NoError(t, db.Create(&done).Error)
	backdateRoom(t, db, done.ID, 11*time.Hour)

	// 新しいルーム：残る
	active, err := CreateRoom(db, lg, bob.ID)
	require.NoError(t, err)

	result, err := CleanupStaleRooms(db, lg, 10*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)
	assert.Equal(t, []uint{abandoned.ID}, result.DeletedRoomIDs)

	// 付随データも物理削除されている
	var players, results int64
	require.NoError(t, db.Model(&models.RoomPlayer{}).Where("room_id = ?", abandoned.ID).Count(&players).Error)
	require.NoError(t, db.Model(&models.GameResult{}).Where("room_id = ?", abandoned.ID).Count(&results).Error)
	assert.EqualValues(t, 0, players)
	assert.EqualValues(t, 0, results)

	_, err = RoomState(db, active.ID)
	assert.NoError(t, err)
}

func TestCleanupNothingToDo(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)

	result, err := CleanupEmptyRooms(db, lg, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
	assert.Empty(t, result.DeletedRoomIDs)

	result, err = CleanupStaleRooms(db, lg, 10*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
}
