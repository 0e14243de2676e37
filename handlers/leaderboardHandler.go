package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeaderboardEntry はリーダーボードの1行です。
type LeaderboardEntry struct {
	UserID     uint    `json:"user_id"`
	Username   string  `json:"username"`
	TotalGames int     `json:"total_games"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Draws      int     `json:"draws"`
	TotalScore int     `json:"total_score"`
	AvgScore   float64 `json:"avg_score"`
	MaxScore   int     `json:"max_score"`
	WinRate    float64 `json:"win_rate"`
	Rank       int     `json:"rank"`
}

// ソートキーはホワイトリストで検証する（SQLに直接埋め込むため）
var leaderboardOrders = map[string]string{
	"wins":     "wins DESC, total_score DESC",
	"score":    "total_score DESC, wins DESC",
	"win_rate": "win_rate DESC, total_games DESC",
}

// Leaderboard は全ユーザーの戦績を集計して返します。
func Leaderboard(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	sortBy := c.DefaultQuery("sort", "wins")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 10
	}

	orderClause, ok := leaderboardOrders[sortBy]
	if !ok {
		orderClause = leaderboardOrders["wins"]
		sortBy = "wins"
	}

	entries := []LeaderboardEntry{}
	err := db.Raw(`
		SELECT
			u.id AS user_id,
			u.username,
			COALESCE(stats.total_games, 0) AS total_games,
			COALESCE(stats.wins, 0) AS wins,
			COALESCE(stats.losses, 0) AS losses,
			COALESCE(stats.draws, 0) AS draws,
			COALESCE(stats.total_score, 0) AS total_score,
			COALESCE(stats.avg_score, 0) AS avg_score,
			COALESCE(stats.max_score, 0) AS max_score,
			CASE
				WHEN COALESCE(stats.total_games, 0) = 0 THEN 0
				ELSE ROUND((COALESCE(stats.wins, 0) * 100.0) / stats.total_games, 2)
			END AS win_rate
		FROM users u
		JOIN (
			SELECT
				user_id,
				COUNT(*) AS total_games,
				SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END) AS wins,
				SUM(CASE WHEN result = 'lose' THEN 1 ELSE 0 END) AS losses,
				SUM(CASE WHEN result = 'draw' THEN 1 ELSE 0 END) AS draws,
				SUM(score) AS total_score,
				ROUND(AVG(score), 2) AS avg_score,
				MAX(score) AS max_score
			FROM game_results
			GROUP BY user_id
		) stats ON u.id = stats.user_id
		ORDER BY `+orderClause+`
		LIMIT ? OFFSET ?
	`, limit, offset).Scan(&entries).Error
	if err != nil {
		logger.Error("リーダーボードの集計に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// 順位を付与
	for i := range entries {
		entries[i].Rank = offset + i + 1
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
			"total":  len(entries),
		},
		"sortedBy": sortBy,
	})
}
