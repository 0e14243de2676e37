package handlers

import (
	"net/http"

	"quizserver/auth"
	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Register は新規ユーザーを登録します。
func Register(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	var request models.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Register request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	// ユーザー名またはメールアドレスの重複チェック
	var count int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR (email != '' AND email = ?)", request.Username, request.Email).
		Count(&count).Error; err != nil {
		logger.Error("重複チェックに失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already taken"})
		return
	}

	// パスワードをハッシュ化して保存
	digest, err := auth.HashPassword(request.Password)
	if err != nil {
		logger.Error("パスワードのハッシュ化に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Username: request.Username,
		Email:    request.Email,
		Password: digest,
	}
	if err := db.Create(&user).Error; err != nil {
		logger.Error("ユーザー登録に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.Info("ユーザーを登録しました", zap.Uint("userID", user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

// Login はパスワードを照合し、JWTトークンを発行します。
func Login(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Login request bind error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	var user models.User
	if err := db.Where("username = ?", request.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	if !auth.VerifyPassword(request.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, expiresAt, err := auth.GenerateToken(user)
	if err != nil {
		logger.Error("トークン生成に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// 発行したトークンを保存（ミドルウェアで照合される）
	sessionToken := models.SessionToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := db.Create(&sessionToken).Error; err != nil {
		logger.Error("セッショントークンの保存に失敗しました", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	logger.Info("ログイン成功", zap.Uint("userID", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"userId":  user.ID,
		"token":   token,
	})
}
