package room

import (
	"math/rand"
	"time"

	"quizserver/models"

	"gorm.io/gorm"
)

// ルームコード生成の設定。衝突が続いた場合は長いコードに切り替えて
// 必ず終了するようにしています（無限ループ禁止）。
const (
	roomCodeLength         = 8
	roomCodeRetryLimit     = 5
	roomCodeFallbackLength = 12
)

// 紛らわしい文字を含まない英数字
const roomCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func createLocalRandGenerator() *rand.Rand {
	source := rand.NewSource(time.Now().UnixNano())
	return rand.New(source)
}

func generateRoomCode(randGen *rand.Rand, length int) string {
	code := make([]byte, length)
	for i := range code {
		code[i] = roomCodeCharset[randGen.Intn(len(roomCodeCharset))]
	}
	return string(code)
}

// generateUniqueRoomCode は重複しないルームコードを生成します。
// 最終的な防波堤はcodeカラムのユニーク制約です。
func generateUniqueRoomCode(db *gorm.DB) (string, error) {
	randGen := createLocalRandGenerator()

	for i := 0; i < roomCodeRetryLimit; i++ {
		code := generateRoomCode(randGen, roomCodeLength)

		var count int64
		if err := db.Model(&models.Room{}).Where("code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}

	// 短いコードの衝突が続く場合は長いコードで確定させる
	return generateRoomCode(randGen, roomCodeFallbackLength), nil
}
