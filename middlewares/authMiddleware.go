package middlewares

import (
	"net/http"
	"strings"
	"time"

	"quizserver/auth"
	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// コンテキストに格納するユーザーIDのキー
const ContextUserIDKey = "userID"

// トークン検証とユーザーID検証を行うミドルウェア
func AuthMiddleware(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")

		// Bearerトークンのプレフィックスを確認し、存在する場合は削除
		if strings.HasPrefix(tokenString, "Bearer ") {
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		}

		claims, err := auth.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("トークンのパースに失敗", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		// トークンがデータベースに存在するか確認（ログアウト済みトークンの拒否）
		var sessionToken models.SessionToken
		if err := db.Where("token = ? AND expires_at > ?", tokenString, time.Now()).First(&sessionToken).Error; err != nil {
			logger.Warn("トークンがデータベースに存在しない", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		// ユーザーIDが有効かどうかをチェック
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			logger.Warn("ユーザーIDがデータベースに存在しない", zap.Uint("userID", claims.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID) // ユーザーIDをコンテキストにセット
		c.Next()
	}
}

// GetUserID はミドルウェアがセットしたユーザーIDを取り出します。
func GetUserID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}
