package handlers

import (
	"net/http"
	"os"
	"time"

	"quizserver/room"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 放置されたロビーを削除するまでの猶予（対話的な掃除エンドポイント用）
const emptyRoomMaxAge = 5 * time.Minute

// CleanupRooms は5分以上プレイヤー0のままのルームを削除します。
// 外部スケジューラから呼ばれる想定で、CRON_SECRETで保護されています。
func CleanupRooms(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	secret := os.Getenv("CRON_SECRET")
	if secret != "" && c.GetHeader("Authorization") != "Bearer "+secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := room.CleanupEmptyRooms(db, logger, emptyRoomMaxAge)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup rooms"})
		return
	}

	if result.DeletedCount == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":       "No empty rooms to clean up",
			"deleted_count": 0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Successfully cleaned up empty rooms",
		"deleted_count":    result.DeletedCount,
		"deleted_room_ids": result.DeletedRoomIDs,
	})
}
