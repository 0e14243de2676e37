package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ゲーム結果の照会用の1行。ルームが削除済みでも結果は返す
// （room_codeは空になる）。
type gameResultRow struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	Username   string    `json:"username"`
	RoomID     uint      `json:"room_id"`
	RoomCode   string    `json:"room_code"`
	Score      int       `json:"score"`
	Result     string    `json:"result"`
	FinishedAt time.Time `json:"finished_at"`
}

// ListGameResults はゲーム結果の履歴をフィルター付きで返します。
// user_id / room_id / result で絞り込めます。
func ListGameResults(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}

	query := db.Table("game_results").
		Select("game_results.id, game_results.user_id, users.username, game_results.room_id, COALESCE(rooms.code, '') AS room_code, game_results.score, game_results.result, game_results.finished_at").
		Joins("JOIN users ON users.id = game_results.user_id").
		Joins("LEFT JOIN rooms ON rooms.id = game_results.room_id")

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		query = query.Where("game_results.user_id = ?", uint(userID))
	}
	if roomIDStr := c.Query("room_id"); roomIDStr != "" {
		roomID, err := strconv.ParseUint(roomIDStr, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room_id"})
			return
		}
		query = query.Where("game_results.room_id = ?", uint(roomID))
	}
	if result := c.Query("result"); result != "" {
		query = query.Where("game_results.result = ?", result)
	}

	rows := []gameResultRow{}
	err := query.Order("game_results.finished_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		logger.Error("ゲーム結果の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": rows,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(rows),
		},
	})
}

// GetGameResult はゲーム結果を1件返します。
func GetGameResult(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	idStr := c.Param("resultId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid result ID"})
		return
	}

	var row gameResultRow
	err = db.Table("game_results").
		Select("game_results.id, game_results.user_id, users.username, game_results.room_id, COALESCE(rooms.code, '') AS room_code, game_results.score, game_results.result, game_results.finished_at").
		Joins("JOIN users ON users.id = game_results.user_id").
		Joins("LEFT JOIN rooms ON rooms.id = game_results.room_id").
		Where("game_results.id = ?", uint(id)).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game result not found"})
			return
		}
		logger.Error("ゲーム結果の取得に失敗しました", zap.Uint64("resultID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, row)
}
