package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"quizserver/auth"
	"quizserver/broadcast"
	"quizserver/models"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// クライアントから届く購読メッセージ
type subscribeMessage struct {
	Type   string `json:"type"`   // "join_room" または "leave_room"
	RoomID uint   `json:"roomId"` // 購読するルームID
}

// HandleConnections はWebSocket接続へのアップグレードを行い、
// 購読メッセージの読み取りループとPing/Pongの管理を開始します。
func HandleConnections(ctx context.Context, w http.ResponseWriter, r *http.Request, db *gorm.DB, rdb *redis.Client, hub *broadcast.Hub, logger *zap.Logger, upgrader websocket.Upgrader) {
	// JWTトークンをリクエストヘッダーまたはクエリから取得
	tokenString := r.Header.Get("Authorization")
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}

	claims, err := auth.ValidateToken(tokenString)
	if err != nil {
		logger.Error("Failed to validate token", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// WebSocket接続のアップグレードに失敗
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := &models.Client{Conn: conn, UserID: claims.UserID}

	// セッションIDの検証と復元。再接続したクライアントは
	// 前回購読していたルームに自動で戻る。
	sessionID := r.Header.Get("SessionID")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID != "" {
		if restored := auth.ValidateSessionID(ctx, rdb, sessionID, logger); restored != nil && restored.UserID == client.UserID {
			// 旧セッションの削除
			auth.DeleteSessionID(ctx, rdb, sessionID)
			if roomID := restored.Room(); roomID != 0 {
				hub.Subscribe(roomID, client)
			}
		}
	}

	// WebSocketのCloseHandlerを設定
	client.Conn.SetCloseHandler(func(code int, text string) error {
		logger.Info("WebSocket closed", zap.Int("code", code), zap.String("reason", text))
		hub.Unsubscribe(client)
		client.Conn.Close()
		return nil
	})

	logger.Info("New client connected", zap.Uint("UserID", client.UserID))

	// 読み取りループを起動する前にセッションIDを発行する。
	// 復元したルームがあればこの時点のセッションに反映される。
	newSessionID, err := auth.GenerateAndStoreSessionID(ctx, client, rdb, logger)
	if err != nil {
		logger.Error("Failed to generate or store session ID", zap.Error(err))
	}

	// クライアントごとにメッセージ読み取りゴルーチンを起動。
	// リクエストコンテキストはハンドラーの終了で取り消されるため、
	// 接続の生存中に使うコンテキストは別に持つ。
	go handleClient(context.Background(), client, rdb, newSessionID, hub, logger)

	// Ping/Pongを管理するゴルーチンを起動
	go func(c *models.Client) {
		defer func() {
			hub.Unsubscribe(c)
			c.Conn.Close()
			logger.Info("Client removed", zap.Uint("UserID", c.UserID))
		}()

		// Pongメッセージを受信したら読み取りデッドラインを更新
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.Conn.SetPongHandler(func(string) error {
			c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		pingPeriod := 10 * time.Second // 10秒ごとにPingを送信
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for range ticker.C {
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Error("Error sending ping", zap.Error(err))
				return // エラーが発生した場合はゴルーチンを終了
			}
		}
	}(client)
}

// クライアントごとにメッセージ読み取りするゴルーチン。
// 購読するルームが変わるたびにRedisのセッション情報を更新し、
// 再接続時の復元先を最新に保ちます。
func handleClient(ctx context.Context, client *models.Client, rdb *redis.Client, sessionID string, hub *broadcast.Hub, logger *zap.Logger) {
	defer func() {
		hub.Unsubscribe(client)
		client.Conn.Close()
	}()

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error", zap.Error(err))
			}
			break // エラーが発生したらループを抜ける
		}

		var msg subscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Error("Error decoding message", zap.Error(err))
			sendErrorMessage(client, "Invalid message format", logger)
			continue
		}

		// メッセージタイプに基づいて適切なアクションを実行
		switch msg.Type {
		case "join_room":
			if msg.RoomID == 0 {
				sendErrorMessage(client, "roomId is required", logger)
				continue
			}
			hub.Subscribe(msg.RoomID, client)
			updateSession(ctx, client, rdb, sessionID, logger)
		case "leave_room":
			hub.Unsubscribe(client)
			updateSession(ctx, client, rdb, sessionID, logger)
		default:
			logger.Info("Received unknown message type", zap.String("type", msg.Type))
			sendErrorMessage(client, "Unknown message type", logger)
		}
	}
}

// 現在の購読状態をセッションへ反映する
func updateSession(ctx context.Context, client *models.Client, rdb *redis.Client, sessionID string, logger *zap.Logger) {
	if sessionID == "" {
		return
	}
	if err := auth.StoreSessionInfo(ctx, rdb, sessionID, client, logger); err != nil {
		logger.Error("Failed to update session info", zap.Error(err))
	}
}

// Helper function to send error message to the client via WebSocket
func sendErrorMessage(client *models.Client, errorText string, logger *zap.Logger) {
	errorJSON, err := json.Marshal(models.ErrorMessage{
		Type: models.MessageTypeError,
		Data: models.ErrorMessageData{Message: errorText},
	})
	if err != nil {
		return
	}
	if err := client.WriteMessage(websocket.TextMessage, errorJSON); err != nil {
		logger.Warn("Failed to send error message", zap.Uint("to", client.UserID), zap.Error(err))
	}
}
