package handlers

import (
	"net/http"
	"strconv"

	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListUsers はユーザー一覧をユーザー名の部分一致検索付きで返します。
func ListUsers(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}

	query := db.Model(&models.User{})
	if search := c.Query("search"); search != "" {
		query = query.Where("username LIKE ?", "%"+search+"%")
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		logger.Error("ユーザー一覧の取得に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// パスワードハッシュなどは返さない
	list := make([]gin.H, 0, len(users))
	for _, u := range users {
		list = append(list, gin.H{
			"user_id":    u.ID,
			"username":   u.Username,
			"created_at": u.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"users": list,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(list),
		},
	})
}

// GetUser はユーザーの公開情報を返します。
func GetUser(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	idStr := c.Param("userId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := db.First(&user, uint(id)).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"username":   user.Username,
		"created_at": user.CreatedAt,
	})
}

// 直近のゲーム履歴の1行
type recentGame struct {
	Result     string `json:"result"`
	Score      int    `json:"score"`
	FinishedAt string `json:"finished_at"`
	RoomCode   string `json:"room_code"`
}

// GetUserStats はユーザーの戦績サマリーを返します。
func GetUserStats(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	idStr := c.Param("userId")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	userID := uint(id)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var totalGames, wins, losses, draws int64
	db.Model(&models.GameResult{}).Where("user_id = ?", userID).Count(&totalGames)
	db.Model(&models.GameResult{}).Where("user_id = ? AND result = 'win'", userID).Count(&wins)
	db.Model(&models.GameResult{}).Where("user_id = ? AND result = 'lose'", userID).Count(&losses)
	db.Model(&models.GameResult{}).Where("user_id = ? AND result = 'draw'", userID).Count(&draws)

	var scoreStats struct {
		AvgScore   float64 `json:"avg_score"`
		MaxScore   int     `json:"max_score"`
		MinScore   int     `json:"min_score"`
		TotalScore int     `json:"total_score"`
	}
	if totalGames > 0 {
		if err := db.Model(&models.GameResult{}).
			Select("AVG(score) AS avg_score, MAX(score) AS max_score, MIN(score) AS min_score, SUM(score) AS total_score").
			Where("user_id = ?", userID).
			Scan(&scoreStats).Error; err != nil {
			logger.Error("スコア統計の取得に失敗しました", zap.Uint("userID", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}

	// 直近5ゲーム
	recentGames := []recentGame{}
	if err := db.Table("game_results").
		Select("game_results.result, game_results.score, game_results.finished_at, rooms.code AS room_code").
		Joins("JOIN rooms ON rooms.id = game_results.room_id").
		Where("game_results.user_id = ?", userID).
		Order("game_results.finished_at DESC").
		Limit(5).
		Scan(&recentGames).Error; err != nil {
		logger.Error("直近ゲーム履歴の取得に失敗しました", zap.Uint("userID", userID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"user_id":  user.ID,
			"username": user.Username,
		},
		"stats": gin.H{
			"total_games":  totalGames,
			"wins":         wins,
			"losses":       losses,
			"draws":        draws,
			"avg_score":    scoreStats.AvgScore,
			"max_score":    scoreStats.MaxScore,
			"min_score":    scoreStats.MinScore,
			"total_score":  scoreStats.TotalScore,
			"recent_games": recentGames,
		},
	})
}
