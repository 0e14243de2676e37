package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"quizserver/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// テスト用のゲーム結果を直接作成する
func seedGameResult(t *testing.T, db *gorm.DB, roomID, userID uint, score int, result string, finishedAt time.Time) models.GameResult {
	t.Helper()
	gr := models.GameResult{
		RoomID:     roomID,
		UserID:     userID,
		Score:      score,
		Result:     result,
		FinishedAt: finishedAt,
	}
	require.NoError(t, db.Create(&gr).Error)
	return gr
}

func TestListGameResultsWithFilters(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)

	aliceToken := registerAndLogin(t, router, "alice")
	registerAndLogin(t, router, "bob")

	var alice, bob models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
	require.NoError(t, db.Where("username = ?", "bob").First(&bob).Error)

	room := models.Room{Code: "AAAABBBB", Status: models.RoomStatusFinished, OwnerID: alice.ID}
	require.NoError(t, db.Create(&room).Error)

	now := time.Now()
	seedGameResult(t, db, room.ID, alice.ID, 120, "win", now)
	seedGameResult(t, db, room.ID, bob.ID, 80, "lose", now.Add(-time.Minute))

	// フィルターなしは全件を新しい順で返す
	w, resp := doJSON(t, router, http.MethodGet, "/api/game-results", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := resp["results"].([]interface{})
	require.Len(t, results, 2)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "alice", first["username"])
	assert.Equal(t, "AAAABBBB", first["room_code"])
	assert.EqualValues(t, 120, first["score"])

	// user_idでの絞り込み
	w, resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/game-results?user_id=%d", bob.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results = resp["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].(map[string]interface{})["username"])

	// resultでの絞り込み
	w, resp = doJSON(t, router, http.MethodGet, "/api/game-results?result=win", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results = resp["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "win", results[0].(map[string]interface{})["result"])

	// 不正なuser_idは400
	w, _ = doJSON(t, router, http.MethodGet, "/api/game-results?user_id=abc", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGameResultsSurvivesRoomDeletion(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)

	aliceToken := registerAndLogin(t, router, "alice")
	var alice models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)

	room := models.Room{Code: "CCCCDDDD", Status: models.RoomStatusFinished, OwnerID: alice.ID}
	require.NoError(t, db.Create(&room).Error)
	seedGameResult(t, db, room.ID, alice.ID, 50, "draw", time.Now())

	// ルームを物理削除しても結果は照会できる（room_codeは空）
	require.NoError(t, db.Unscoped().Delete(&room).Error)

	w, resp := doJSON(t, router, http.MethodGet, "/api/game-results", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := resp["results"].([]interface{})
	require.Len(t, results, 1)
	row := results[0].(map[string]interface{})
	assert.Equal(t, "", row["room_code"])
	assert.EqualValues(t, 50, row["score"])
}

func TestGetGameResult(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)

	aliceToken := registerAndLogin(t, router, "alice")
	var alice models.User
	require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)

	room := models.Room{Code: "EEEEFFFF", Status: models.RoomStatusFinished, OwnerID: alice.ID}
	require.NoError(t, db.Create(&room).Error)
	gr := seedGameResult(t, db, room.ID, alice.ID, 99, "win", time.Now())

	w, resp := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/game-results/%d", gr.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, gr.ID, resp["id"])
	assert.Equal(t, "alice", resp["username"])
	assert.EqualValues(t, 99, resp["score"])

	// 存在しないIDは404
	w, _ = doJSON(t, router, http.MethodGet, "/api/game-results/99999", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 不正なIDは400
	w, _ = doJSON(t, router, http.MethodGet, "/api/game-results/abc", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsersSearch(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(t, db)

	aliceToken := registerAndLogin(t, router, "alice")
	registerAndLogin(t, router, "alicia")
	registerAndLogin(t, router, "bob")

	// 部分一致検索
	w, resp := doJSON(t, router, http.MethodGet, "/api/users?search=ali", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := resp["users"].([]interface{})
	require.Len(t, users, 2)
	for _, u := range users {
		row := u.(map[string]interface{})
		assert.Contains(t, row["username"], "ali")
		// パスワードは含まれない
		assert.NotContains(t, row, "password")
	}

	// 検索なしは全員、limitで件数を制限できる
	w, resp = doJSON(t, router, http.MethodGet, "/api/users?limit=2", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp["users"].([]interface{}), 2)
}
