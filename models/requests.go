package models

// RegisterRequest はユーザー登録リクエストを表します。
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email,omitempty"`
}

// LoginRequest はクライアントからのログインリクエストを表します。
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ScoreUpdateRequest はゲーム中のスコア加算リクエストを表します。
type ScoreUpdateRequest struct {
	ScoreIncrement int `json:"score_increment" binding:"required"`
}
