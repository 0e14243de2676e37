package room

import (
	"errors"
	"fmt"
	"time"

	"quizserver/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ルーム行の読み取りに行ロック（SELECT ... FOR UPDATE）を付ける。
// SQLiteはFOR UPDATEを解釈できないため、PostgreSQLのときだけ付与する
// （SQLiteは書き込みがDB全体で直列化されるのでロックなしでも競合しない）。
func lockRoomRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// このパッケージがRoomとRoomPlayerを変更できる唯一の場所です。
// 入室・退室・オーナー委譲・定員のルールは全てここで守られます。

// CreateRoom は新しいルームを作成し、作成者を最初のメンバーとして登録します。
func CreateRoom(db *gorm.DB, logger *zap.Logger, ownerID uint) (*models.Room, error) {
	var owner models.User
	if err := db.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	code, err := generateUniqueRoomCode(db)
	if err != nil {
		return nil, err
	}

	newRoom := models.Room{
		Code:    code,
		Status:  models.RoomStatusWaiting,
		OwnerID: ownerID,
	}

	// ルーム作成とオーナーの入室を1トランザクションで行う
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&newRoom).Error; err != nil {
			return err
		}
		member := models.RoomPlayer{
			RoomID:   newRoom.ID,
			UserID:   ownerID,
			JoinedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		logger.Error("ルーム作成に失敗しました", zap.Uint("ownerID", ownerID), zap.Error(err))
		return nil, err
	}

	logger.Info("ルームを作成しました",
		zap.Uint("roomID", newRoom.ID),
		zap.String("code", newRoom.Code),
		zap.Uint("ownerID", ownerID),
	)
	return &newRoom, nil
}

// JoinRoom はユーザーをルームに入室させます。
// 定員チェックと挿入を同一トランザクションで行い、同時入室で
// 定員を超えないようにしています。
func JoinRoom(db *gorm.DB, logger *zap.Logger, roomID, userID uint) (*models.RoomPlayer, error) {
	var member models.RoomPlayer

	err := db.Transaction(func(tx *gorm.DB) error {
		// 同時入室が定員チェックをすり抜けないよう、ルーム行をロックして
		// 以降のメンバー数カウントと挿入を他の入室と直列化する
		var r models.Room
		if err := lockRoomRow(tx).First(&r, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if r.Status != models.RoomStatusWaiting {
			return ErrInvalidState
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// すでにメンバーなら409相当
		var existing int64
		if err := tx.Model(&models.RoomPlayer{}).
			Where("room_id = ? AND user_id = ?", roomID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrConflict
		}

		var count int64
		if err := tx.Model(&models.RoomPlayer{}).
			Where("room_id = ?", roomID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= models.MaxPlayers {
			return ErrFull
		}

		member = models.RoomPlayer{
			RoomID:   roomID,
			UserID:   userID,
			JoinedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Info("ルームに入室しました", zap.Uint("roomID", roomID), zap.Uint("userID", userID))
	return &member, nil
}

// LeaveResult は退室処理の結果です。
type LeaveResult struct {
	Message          string `json:"message"`
	RoomDeleted      bool   `json:"room_deleted,omitempty"`
	GameEnded        bool   `json:"game_ended,omitempty"`
	NewOwnerID       uint   `json:"new_owner_id,omitempty"`
	PlayersRemaining int64  `json:"players_remaining,omitempty"`
}

// LeaveRoom はユーザーをルームから退室させます。
// オーナー退室時のポリシーは「委譲」：waiting中なら最古参のメンバーへ
// オーナーを引き継ぎます。playing中のオーナー退室はゲーム終了とみなし、
// ルームごと削除します（開始者のいないゲームを再開する手段がないため）。
func LeaveRoom(db *gorm.DB, logger *zap.Logger, roomID, userID uint) (*LeaveResult, error) {
	result := &LeaveResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		// オーナー委譲と退室が入室と競合しないよう、こちらも行ロックを取る
		var r models.Room
		if err := lockRoomRow(tx).First(&r, roomID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var membership models.RoomPlayer
		if err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			First(&membership).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// オーナー以外の退室：メンバー行を消すだけ
		if r.OwnerID != userID {
			if err := tx.Unscoped().Delete(&membership).Error; err != nil {
				return err
			}
			var remaining int64
			if err := tx.Model(&models.RoomPlayer{}).
				Where("room_id = ?", roomID).
				Count(&remaining).Error; err != nil {
				return err
			}
			result.Message = "Successfully left room"
			result.PlayersRemaining = remaining
			return nil
		}

		// オーナー退室：残りのメンバーを入室順で取得
		var others []models.RoomPlayer
		if err := tx.Where("room_id = ? AND user_id != ?", roomID, userID).
			Order("joined_at ASC").
			Find(&others).Error; err != nil {
			return err
		}

		if len(others) == 0 {
			// 誰も残らないのでルームごと削除
			if err := deleteRoomCascade(tx, roomID); err != nil {
				return err
			}
			result.Message = "Successfully left room. Room deleted as it was empty."
			result.RoomDeleted = true
			return nil
		}

		if r.Status == models.RoomStatusPlaying {
			// ゲーム中のオーナー退室はゲーム終了扱い
			if err := deleteRoomCascade(tx, roomID); err != nil {
				return err
			}
			result.Message = "Game ended. Room deleted as owner left."
			result.RoomDeleted = true
			result.GameEnded = true
			return nil
		}

		// waiting中：最も早く入室したメンバーへオーナーを委譲
		newOwner := others[0]
		if err := tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			Update("owner_id", newOwner.UserID).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&membership).Error; err != nil {
			return err
		}
		result.Message = "Successfully left room. Ownership transferred."
		result.NewOwnerID = newOwner.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("ルームを退室しました",
		zap.Uint("roomID", roomID),
		zap.Uint("userID", userID),
		zap.Bool("roomDeleted", result.RoomDeleted),
		zap.Bool("gameEnded", result.GameEnded),
		zap.Uint("newOwnerID", result.NewOwnerID),
	)
	return result, nil
}

// ルームと全メンバー行を物理削除する
func deleteRoomCascade(tx *gorm.DB, roomID uint) error {
	if err := tx.Unscoped().Where("room_id = ?", roomID).Delete(&models.RoomPlayer{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Delete(&models.Room{}, roomID).Error
}

// StartGame はオーナーの操作でルームをplaying状態に移行します。
// 戻り値はクライアントが遷移すべきゲーム画面のパスです。
func StartGame(db *gorm.DB, logger *zap.Logger, roomID, ownerID uint) (string, error) {
	var r models.Room
	if err := db.First(&r, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}

	if r.OwnerID != ownerID {
		return "", ErrForbidden
	}

	if r.Status != models.RoomStatusWaiting {
		return "", ErrInvalidState
	}

	if err := db.Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("status", models.RoomStatusPlaying).Error; err != nil {
		return "", err
	}

	logger.Info("ゲームを開始しました", zap.Uint("roomID", roomID), zap.Uint("ownerID", ownerID))
	return fmt.Sprintf("/game/%d", roomID), nil
}

// UpdateScore はユーザーのスコア行を加算更新します。
// 初回の加点で行を作成し、以降は同じ行のscoreを増やします。
func UpdateScore(db *gorm.DB, logger *zap.Logger, roomID, userID uint, increment int) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.GameResult
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			newResult := models.GameResult{
				RoomID:     roomID,
				UserID:     userID,
				Score:      increment,
				Result:     "win",
				FinishedAt: time.Now(),
			}
			return tx.Create(&newResult).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&existing).Updates(map[string]interface{}{
			"score":       existing.Score + increment,
			"finished_at": time.Now(),
		}).Error
	})
	if err != nil {
		logger.Error("スコア更新に失敗しました",
			zap.Uint("roomID", roomID),
			zap.Uint("userID", userID),
			zap.Error(err),
		)
		return err
	}

	logger.Info("スコアを更新しました",
		zap.Uint("roomID", roomID),
		zap.Uint("userID", userID),
		zap.Int("increment", increment),
	)
	return nil
}
