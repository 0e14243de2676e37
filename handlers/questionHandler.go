package handlers

import (
	"net/http"
	"strings"

	"quizserver/questions"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetQuestion は静的な問題データをIDで返します。
func GetQuestion(c *gin.Context, store *questions.Store, logger *zap.Logger) {
	questionID := c.Param("questionId")

	// テンプレート変数がそのまま届いたようなIDは弾く
	if questionID == "" || strings.ContainsAny(questionID, "{}") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID format"})
		return
	}

	question, ok := store.Get(questionID)
	if !ok {
		logger.Warn("問題が見つかりません", zap.String("questionId", questionID))
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	c.JSON(http.StatusOK, question)
}
