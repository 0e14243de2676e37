package models

// WebSocketで配信するメッセージタイプ
const (
	MessageTypeRoomUpdate  = "room_update"
	MessageTypeGameStarted = "game_started"
	MessageTypeError       = "error"
)

// RoomUpdateMessage はルーム状態のスナップショット配信です。
type RoomUpdateMessage struct {
	Type   string        `json:"type"` // 常に "room_update"
	RoomID uint          `json:"roomId"`
	Data   *RoomSnapshot `json:"data"`
}

// GameStartedData はゲーム開始通知のペイロードです。
type GameStartedData struct {
	RedirectTo string `json:"redirectTo"` // 例: "/game/42"
}

// GameStartedMessage はゲーム開始時にのみ送る特別なメッセージです。
// スナップショットは含まず、遷移先のみを伝えます。
type GameStartedMessage struct {
	Type   string          `json:"type"` // 常に "game_started"
	RoomID uint            `json:"roomId"`
	Data   GameStartedData `json:"data"`
}

// ErrorMessage はクライアントへ返すエラー通知です。
type ErrorMessage struct {
	Type string           `json:"type"` // 常に "error"
	Data ErrorMessageData `json:"data"`
}

type ErrorMessageData struct {
	Message string `json:"message"`
}

// NewRoomUpdateMessage はスナップショットからメッセージを組み立てます。
func NewRoomUpdateMessage(roomID uint, snapshot *RoomSnapshot) RoomUpdateMessage {
	return RoomUpdateMessage{Type: MessageTypeRoomUpdate, RoomID: roomID, Data: snapshot}
}

// NewGameStartedMessage はゲーム開始通知を組み立てます。
func NewGameStartedMessage(roomID uint, redirectTo string) GameStartedMessage {
	return GameStartedMessage{
		Type:   MessageTypeGameStarted,
		RoomID: roomID,
		Data:   GameStartedData{RedirectTo: redirectTo},
	}
}
