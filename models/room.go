package models

import (
	"time"

	"gorm.io/gorm"
)

// ルームのステータス定数。waiting以外のルームには入室できない。
const (
	RoomStatusWaiting  = "waiting"
	RoomStatusPlaying  = "playing"
	RoomStatusFinished = "finished"
	RoomStatusClosed   = "closed"
)

// ルームの最大プレイヤー数
const MaxPlayers = 4

// Room モデルの定義
type Room struct {
	gorm.Model
	Code    string       `gorm:"unique;not null"`                  // 共有用の短いルームコード
	Status  string       `gorm:"not null;default:'waiting';index"` // waiting, playing, finished, closed
	OwnerID uint         `gorm:"not null"`                         // ルームオーナーのユーザーID
	Players []RoomPlayer `gorm:"foreignKey:RoomID"`                // 結びつくメンバーを取得
}

// RoomPlayer はルームとユーザーを結ぶメンバーシップです。
// (RoomID, UserID)の組は一意。JoinedAtの昇順が入室順となり、
// オーナー委譲の際の優先順位に使われます。
type RoomPlayer struct {
	gorm.Model
	RoomID   uint      `gorm:"index;uniqueIndex:idx_room_user;not null"`
	UserID   uint      `gorm:"uniqueIndex:idx_room_user;not null"`
	JoinedAt time.Time `gorm:"not null;index"`
}

// GameResult はルームごとのスコア行です。1ユーザー1ルームにつき1行で、
// スコア加算のたびに同じ行を更新します（再挿入はしない）。
type GameResult struct {
	gorm.Model
	RoomID     uint   `gorm:"index;uniqueIndex:idx_result_room_user;not null"`
	UserID     uint   `gorm:"uniqueIndex:idx_result_room_user;not null"`
	Score      int    `gorm:"not null;default:0"`
	Result     string `gorm:"not null;default:'win'"` // win, lose, draw
	FinishedAt time.Time
}
