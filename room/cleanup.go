package room

import (
	"time"

	"quizserver/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CleanupResult は掃除ジョブの実行結果です。
type CleanupResult struct {
	DeletedCount   int    `json:"deleted_count"`
	DeletedRoomIDs []uint `json:"deleted_room_ids"`
}

// CleanupEmptyRooms はmaxAgeより古く、プレイヤーが0人のルームを削除します。
// 放置されたロビーの即時掃除用（エンドポイントからは5分で呼ばれる）。
func CleanupEmptyRooms(db *gorm.DB, logger *zap.Logger, maxAge time.Duration) (*CleanupResult, error) {
	cutoff := time.Now().Add(-maxAge)

	emptyRoomIDs := []uint{}
	err := db.Model(&models.Room{}).
		Joins("LEFT JOIN room_players ON room_players.room_id = rooms.id").
		Where("rooms.created_at < ?", cutoff).
		Group("rooms.id").
		Having("COUNT(room_players.id) = 0").
		Pluck("rooms.id", &emptyRoomIDs).Error
	if err != nil {
		logger.Error("空ルームの検索に失敗しました", zap.Error(err))
		return nil, err
	}

	if len(emptyRoomIDs) == 0 {
		return &CleanupResult{DeletedCount: 0, DeletedRoomIDs: []uint{}}, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// メンバー行が残っていないはずだが、念のため先に消す
		if err := tx.Unscoped().Where("room_id IN ?", emptyRoomIDs).Delete(&models.RoomPlayer{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id IN ?", emptyRoomIDs).Delete(&models.Room{}).Error
	})
	if err != nil {
		logger.Error("空ルームの削除に失敗しました", zap.Error(err))
		return nil, err
	}

	logger.Info("空ルームを削除しました", zap.Int("rooms_deleted", len(emptyRoomIDs)))
	return &CleanupResult{DeletedCount: len(emptyRoomIDs), DeletedRoomIDs: emptyRoomIDs}, nil
}

// CleanupStaleRooms はmaxAgeより古い未終了ルームをメンバー・結果ごと削除します。
// スケジューラから長い閾値（10時間）で呼ばれるロングストップ掃除です。
func CleanupStaleRooms(db *gorm.DB, logger *zap.Logger, maxAge time.Duration) (*CleanupResult, error) {
	cutoff := time.Now().Add(-maxAge)

	staleRoomIDs := []uint{}
	err := db.Model(&models.Room{}).
		Where("status != ? AND created_at < ?", models.RoomStatusFinished, cutoff).
		Pluck("id", &staleRoomIDs).Error
	if err != nil {
		logger.Error("古いルームの検索に失敗しました", zap.Error(err))
		return nil, err
	}

	if len(staleRoomIDs) == 0 {
		return &CleanupResult{DeletedCount: 0, DeletedRoomIDs: []uint{}}, nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("room_id IN ?", staleRoomIDs).Delete(&models.GameResult{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("room_id IN ?", staleRoomIDs).Delete(&models.RoomPlayer{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id IN ?", staleRoomIDs).Delete(&models.Room{}).Error
	})
	if err != nil {
		logger.Error("古いルームの削除に失敗しました", zap.Error(err))
		return nil, err
	}

	logger.Info("古いルームを削除しました", zap.Int("rooms_deleted", len(staleRoomIDs)))
	return &CleanupResult{DeletedCount: len(staleRoomIDs), DeletedRoomIDs: staleRoomIDs}, nil
}
