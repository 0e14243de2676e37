package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"quizserver/middlewares"
	"quizserver/models"
	"quizserver/room"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateRoom は新しいルームを作成し、作成者を入室させます。
func CreateRoom(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	userID, ok := middlewares.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	newRoom, err := room.CreateRoom(db, logger, userID)
	if err != nil {
		status := statusFromError(err)
		logger.Error("ルーム作成に失敗しました", zap.Uint("userID", userID), zap.Error(err))
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Room created successfully",
		"room": gin.H{
			"room_id":   newRoom.ID,
			"room_code": newRoom.Code,
			"owner_id":  newRoom.OwnerID,
			"status":    newRoom.Status,
		},
	})
}

// ListRooms はルーム一覧をフィルター付きで返します。
func ListRooms(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := room.ListFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}

	rooms, err := room.ListRooms(db, filter)
	if err != nil {
		logger.Error("ルーム一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(rooms),
		},
	})
}

// FindRoomByCode はルームコードからルームを検索します。
// QRスキャンで読み取った文字列はここに届きます。
func FindRoomByCode(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	code := strings.ToUpper(c.Param("roomCode"))
	if len(code) < 4 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room code"})
		return
	}

	snapshot, err := room.FindRoomByCode(db, code)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, gin.H{"error": errorMessage(err, status)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":     snapshot.Room,
		"players":  snapshot.Players,
		"joinable": snapshot.Room.Status == models.RoomStatusWaiting,
	})
}
