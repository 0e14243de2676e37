package handlers

import (
	"net/http"

	"quizserver/middlewares"
	"quizserver/room"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoomState はルームの現在のスナップショットを返します。
// WebSocketを使えないクライアントのポーリングフォールバック先です。
func RoomState(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	snapshot, err := room.RoomState(db, roomID)
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			logger.Error("ルーム状態の取得に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// PlayersScores はルーム内全員の現在スコアを返します（ゲーム画面用）。
func PlayersScores(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	scores, err := room.PlayersScores(db, roomID)
	if err != nil {
		logger.Error("スコア一覧の取得に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, scores)
}

// Membership はユーザーがルームのメンバーかどうかを返します。
func Membership(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "authorized": false})
		return
	}

	info, err := room.Membership(db, roomID, userID)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, gin.H{"error": errorMessage(err, status), "authorized": false})
		return
	}

	c.JSON(http.StatusOK, info)
}

// GameAccess はゲーム画面へのアクセス可否を返します。
// playing状態のルームのメンバーだけが許可されます。
func GameAccess(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "authorized": false})
		return
	}

	info, err := room.GameAccess(db, roomID, userID)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, gin.H{"error": errorMessage(err, status), "authorized": false})
		return
	}

	c.JSON(http.StatusOK, info)
}
