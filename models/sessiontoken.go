package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionToken モデルの定義。ログインで発行したJWTを保持し、
// ミドルウェアでの照合とログアウト時の失効に使います。
type SessionToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null"`
	Token     string    `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
}
