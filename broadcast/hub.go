package broadcast

import (
	"encoding/json"
	"sync"

	"quizserver/models"
	"quizserver/room"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Hub はルームごとの購読者を管理し、状態変化をファンアウトします。
// グローバル変数ではなくmain.goで生成してハンドラーに注入します。
// 購読者集合はひとつのミューテックスで守ります（ルーム数・購読者数とも
// 小さいので粗いロックで十分）。
type Hub struct {
	db     *gorm.DB
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[uint]map[*models.Client]bool
}

func NewHub(db *gorm.DB, logger *zap.Logger) *Hub {
	return &Hub{
		db:     db,
		logger: logger,
		rooms:  make(map[uint]map[*models.Client]bool),
	}
}

// Subscribe はクライアントをルームの購読者として登録し、
// 登録直後に現在のスナップショットを送ります。これにより
// 次の変更まで古い表示のままになる期間をなくします。
func (h *Hub) Subscribe(roomID uint, client *models.Client) {
	h.mu.Lock()
	// 別ルームを購読中なら先にそちらから外す
	if prev := client.Room(); prev != 0 && prev != roomID {
		h.removeLocked(prev, client)
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*models.Client]bool)
	}
	h.rooms[roomID][client] = true
	client.SetRoom(roomID)
	subscribers := len(h.rooms[roomID])
	h.mu.Unlock()

	h.logger.Info("ルームの購読を開始しました",
		zap.Uint("roomID", roomID),
		zap.Uint("userID", client.UserID),
		zap.Int("subscribers", subscribers),
	)

	// 新規購読者へ現在の状態を即時送信
	snapshot, err := room.RoomState(h.db, roomID)
	if err != nil {
		h.logger.Error("スナップショットの取得に失敗しました", zap.Uint("roomID", roomID), zap.Error(err))
		h.sendError(client, "Failed to load room state")
		return
	}
	h.sendJSON(client, models.NewRoomUpdateMessage(roomID, snapshot))
}

// Unsubscribe はクライアントを購読者集合から外します。
// 切断ハンドラーから何度呼ばれても安全です。
func (h *Hub) Unsubscribe(client *models.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if roomID := client.Room(); roomID != 0 {
		h.removeLocked(roomID, client)
		client.SetRoom(0)
	}
}

// removeLocked は呼び出し側がロックを保持していることを前提とします。
func (h *Hub) removeLocked(roomID uint, client *models.Client) {
	if set, ok := h.rooms[roomID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// SubscriberCount は現在の購読者数を返します。
func (h *Hub) SubscriberCount(roomID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

// Notify はルームの最新スナップショットを全購読者へ配信します。
// 購読者がいなければストアを読まずに終了します。配信中にストアの
// 読み取りが失敗した場合はログに残して今回の配信を諦めます。
// 次の状態変化がまた配信を試みるため、リトライはしません。
func (h *Hub) Notify(roomID uint) {
	if h.SubscriberCount(roomID) == 0 {
		return
	}

	snapshot, err := room.RoomState(h.db, roomID)
	if err != nil {
		h.logger.Error("配信用スナップショットの取得に失敗しました",
			zap.Uint("roomID", roomID), zap.Error(err))
		return
	}

	h.broadcast(roomID, models.NewRoomUpdateMessage(roomID, snapshot))
}

// NotifyGameStarted はゲーム開始を全購読者へ通知します。
// スナップショットではなく遷移先だけを送るため、ストアは読みません。
func (h *Hub) NotifyGameStarted(roomID uint, redirectTo string) {
	h.broadcast(roomID, models.NewGameStartedMessage(roomID, redirectTo))
}

// broadcast はメッセージを全購読者へ送信し、送信できなかった接続を
// その場で購読者集合から取り除きます（死んだ接続の遅延回収）。
func (h *Hub) broadcast(roomID uint, message interface{}) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("メッセージのエンコードに失敗しました", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.rooms[roomID]
	if len(set) == 0 {
		return
	}

	var dead []*models.Client
	for client := range set {
		if err := client.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
			h.logger.Warn("購読者への送信に失敗しました",
				zap.Uint("roomID", roomID),
				zap.Uint("userID", client.UserID),
				zap.Error(err),
			)
			dead = append(dead, client)
		}
	}

	for _, client := range dead {
		h.removeLocked(roomID, client)
	}
}

func (h *Hub) sendJSON(client *models.Client, message interface{}) {
	messageJSON, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("メッセージのエンコードに失敗しました", zap.Error(err))
		return
	}
	if err := client.WriteMessage(websocket.TextMessage, messageJSON); err != nil {
		h.logger.Warn("購読者への送信に失敗しました", zap.Uint("userID", client.UserID), zap.Error(err))
	}
}

func (h *Hub) sendError(client *models.Client, message string) {
	h.sendJSON(client, models.ErrorMessage{
		Type: models.MessageTypeError,
		Data: models.ErrorMessageData{Message: message},
	})
}

// Shutdown は全ての購読を解除し接続を閉じます。プロセス終了時に呼びます。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID, set := range h.rooms {
		for client := range set {
			client.Conn.Close()
		}
		delete(h.rooms, roomID)
	}
}
