package room

import (
	"testing"

	"quizserver/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoomByCode(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")

	r, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)

	snapshot, err := FindRoomByCode(db, r.Code)
	require.NoError(t, err)
	assert.Equal(t, r.ID, snapshot.Room.RoomID)
	assert.Equal(t, r.Code, snapshot.Room.RoomCode)

	_, err = FindRoomByCode(db, "NOSUCHCD")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRooms(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	r1, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)
	r2, err := CreateRoom(db, lg, bob.ID)
	require.NoError(t, err)

	_, err = StartGame(db, lg, r2.ID, bob.ID)
	require.NoError(t, err)

	// ステータスでの絞り込み
	waiting, err := ListRooms(db, ListFilter{Status: models.RoomStatusWaiting})
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, r1.ID, waiting[0].Room.RoomID)

	// オーナー名での検索
	byOwner, err := ListRooms(db, ListFilter{Search: "bob"})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, r2.ID, byOwner[0].Room.RoomID)

	all, err := ListRooms(db, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMembership(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	stranger := createTestUser(t, db, "stranger")

	r, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)
	joinStaggered(t, db, lg, r.ID, bob.ID)

	ownerInfo, err := Membership(db, r.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ownerInfo.Authorized)
	assert.True(t, ownerInfo.IsOwner)
	assert.True(t, ownerInfo.IsMember)

	memberInfo, err := Membership(db, r.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, memberInfo.Authorized)
	assert.False(t, memberInfo.IsOwner)

	strangerInfo, err := Membership(db, r.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, strangerInfo.Authorized)

	_, err = Membership(db, 999, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameAccessRequiresPlaying(t *testing.T) {
	db := newTestDB(t)
	lg := newTestLogger(t)
	alice := createTestUser(t, db, "alice")

	r, err := CreateRoom(db, lg, alice.ID)
	require.NoError(t, err)

	// waiting中はメンバーでもゲーム画面には入れない
	info, err := GameAccess(db, r.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, info.Authorized)

	_, err = StartGame(db, lg, r.ID, alice.ID)
	require.NoError(t, err)

	info, err = GameAccess(db, r.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, info.Authorized)
	assert.Equal(t, models.RoomStatusPlaying, info.RoomStatus)
}
