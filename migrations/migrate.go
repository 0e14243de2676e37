package migrations

import (
	"quizserver/models"

	"gorm.io/gorm"
)

// マイグレーションを実行する関数
func AutoMigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomPlayer{},
		&models.GameResult{},
		&models.SessionToken{},
	)
}
