package handlers

import (
	"net/http"
	"strconv"

	"quizserver/broadcast"
	"quizserver/middlewares"
	"quizserver/models"
	"quizserver/room"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// URLパラメータからルームIDを取り出す
func roomIDParam(c *gin.Context) (uint, bool) {
	idStr := c.Param("roomId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return 0, false
	}
	return uint(id), true
}

// JoinRoom はユーザーをルームに入室させ、購読者へ更新を配信します。
func JoinRoom(c *gin.Context, db *gorm.DB, hub *broadcast.Hub, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	member, err := room.JoinRoom(db, logger, roomID, userID)
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			logger.Error("入室処理に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	// 残りの購読者へ最新状態を配信
	hub.Notify(roomID)

	c.JSON(http.StatusCreated, gin.H{
		"id":        member.ID,
		"room_id":   member.RoomID,
		"user_id":   member.UserID,
		"joined_at": member.JoinedAt,
	})
}

// LeaveRoom はユーザーを退室させます。オーナー退室時は委譲または
// ルーム削除が行われ、結果がレスポンスに反映されます。
func LeaveRoom(c *gin.Context, db *gorm.DB, hub *broadcast.Hub, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := room.LeaveRoom(db, logger, roomID, userID)
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			logger.Error("退室処理に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	// ルームが消えた場合は配信する相手も状態もない。残った購読者は
	// ポーリングまたは次のフェッチでnot-foundを検知して離脱する。
	if !result.RoomDeleted {
		hub.Notify(roomID)
	}

	c.JSON(http.StatusOK, result)
}

// StartGame はオーナーの操作でゲームを開始し、全購読者へ
// ゲーム画面への遷移を通知します。
func StartGame(c *gin.Context, db *gorm.DB, hub *broadcast.Hub, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	redirectTo, err := room.StartGame(db, logger, roomID, userID)
	if err != nil {
		status := statusFromError(err)
		if status == http.StatusInternalServerError {
			logger.Error("ゲーム開始に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	// 通常の更新とは別メッセージで遷移先を通知する
	hub.NotifyGameStarted(roomID, redirectTo)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Game started successfully",
		"roomId":     roomID,
		"redirectTo": redirectTo,
	})
}

// UpdateScore はゲーム中の正解によるスコア加算を処理します。
func UpdateScore(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request models.ScoreUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "score_increment is required"})
		return
	}

	if err := room.UpdateScore(db, logger, roomID, userID, request.ScoreIncrement); err != nil {
		status := statusFromError(err)
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Score updated successfully",
	})
}
