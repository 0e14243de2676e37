package models

import (
	"time"
)

// RoomDetails はスナップショットに含まれるルーム情報です。
// 常にストアから取得した最新値で組み立てられます。
type RoomDetails struct {
	RoomID        uint      `json:"room_id"`
	RoomCode      string    `json:"room_code"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	OwnerID       uint      `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	PlayerCount   int       `json:"player_count"`
}

// PlayerInfo はスナップショットに含まれるメンバー情報です。
type PlayerInfo struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomSnapshot は購読者へ配信するルームの全体像です。
// 永続化はせず、配信のたびにストアから再構築します。
type RoomSnapshot struct {
	Room    RoomDetails  `json:"room"`
	Players []PlayerInfo `json:"players"`
}
