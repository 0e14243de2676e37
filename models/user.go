package models

import (
	"gorm.io/gorm"
)

// User モデルの定義
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"` // 一意のユーザー名
	Email    string `gorm:"unique"`          // メールアドレス（任意）
	Password string `gorm:"not null"`        // bcryptでハッシュ化されたパスワード
}
