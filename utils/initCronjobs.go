package utils

import (
	"time"

	"quizserver/room"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 長時間放置されたルームを削除するまでの猶予
const staleRoomMaxAge = 10 * time.Hour

// CronCleaner はPostgreSQLの定期クリーンナップジョブを起動します。
func CronCleaner(db *gorm.DB, logger *zap.Logger) {
	c := cron.New()

	// 10時間以上前に作られた未終了ルームを削除するジョブ（毎時実行）
	c.AddFunc("@hourly", func() {
		logger.Info("古いルームを削除する処理を開始")
		result, err := room.CleanupStaleRooms(db, logger, staleRoomMaxAge)
		if err != nil {
			logger.Error("古いルームの削除に失敗しました", zap.Error(err))
			return
		}
		logger.Info("古いルーム削除完了", zap.Int("rooms_deleted", result.DeletedCount))
	})

	c.Start()
}
