package auth

import (
	"context"
	"encoding/json"
	"time"

	"quizserver/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// セッション情報の有効期限
const sessionLifetime = 24 * time.Hour

// ValidateSessionID checks the session ID from Redis and returns the client if the session is valid.
func ValidateSessionID(ctx context.Context, rdb *redis.Client, sessionID string, logger *zap.Logger) *models.Client {
	if sessionID == "" {
		logger.Error("Session ID is empty")
		return nil
	}

	sessionInfoJSON, err := rdb.Get(ctx, "session:"+sessionID).Result()
	if err != nil {
		logger.Error("Failed to retrieve session info", zap.Error(err))
		return nil
	}

	var sessionInfo map[string]interface{}
	if err := json.Unmarshal([]byte(sessionInfoJSON), &sessionInfo); err != nil {
		logger.Error("Failed to decode session info", zap.Error(err))
		return nil
	}

	userID, ok := sessionInfo["userID"].(float64) // JSONの数値はfloat64としてデコードされます
	if !ok {
		logger.Error("Invalid session info: missing userID")
		return nil
	}
	roomID, ok := sessionInfo["roomID"].(float64)
	if !ok {
		logger.Error("Invalid session info: missing roomID")
		return nil
	}

	// 有効なセッション情報を基にClientオブジェクトを作成
	client := &models.Client{UserID: uint(userID)}
	client.SetRoom(uint(roomID))
	return client
}

// GenerateAndStoreSessionID は新しいセッションIDを発行してRedisに保存し、
// クライアントへ送り返します。再接続時のルーム復元に使われます。
func GenerateAndStoreSessionID(ctx context.Context, client *models.Client, rdb *redis.Client, logger *zap.Logger) (string, error) {
	sessionID := uuid.New().String()

	if err := StoreSessionInfo(ctx, rdb, sessionID, client, logger); err != nil {
		return "", err
	}

	// セッションIDをクライアントに送り返す
	if err := sendSessionIDToClient(client, sessionID, logger); err != nil {
		return "", err
	}
	return sessionID, nil
}

// StoreSessionInfo はセッションIDに紐づくユーザーとルームをRedisへ書き込みます。
// 購読するルームが変わるたびに同じセッションIDで上書きされるため、
// 再接続したクライアントは最後に購読していたルームへ戻れます。
func StoreSessionInfo(ctx context.Context, rdb *redis.Client, sessionID string, client *models.Client, logger *zap.Logger) error {
	sessionInfo := map[string]interface{}{
		"userID": client.UserID,
		"roomID": client.Room(),
	}
	sessionInfoJSON, err := json.Marshal(sessionInfo)
	if err != nil {
		logger.Error("Error encoding session info", zap.Error(err))
		return err
	}

	if err := rdb.Set(ctx, "session:"+sessionID, sessionInfoJSON, sessionLifetime).Err(); err != nil {
		logger.Error("Error storing session info in Redis", zap.Error(err))
		return err
	}
	return nil
}

// DeleteSessionID は古いセッションIDをRedisから削除します。
func DeleteSessionID(ctx context.Context, rdb *redis.Client, sessionID string) {
	rdb.Del(ctx, "session:"+sessionID)
}

func sendSessionIDToClient(client *models.Client, sessionID string, logger *zap.Logger) error {
	response := map[string]interface{}{
		"sessionID": sessionID,
		"userID":    client.UserID,
	}
	responseJSON, err := json.Marshal(response)
	if err != nil {
		logger.Error("Error marshalling session ID response", zap.Error(err))
		return err
	}

	// クライアントにセッションIDを含むレスポンスを送信
	if client.Conn != nil {
		if err := client.WriteMessage(websocket.TextMessage, responseJSON); err != nil {
			logger.Error("Error sending session ID to client", zap.Error(err))
			return err
		}
		logger.Info("Successfully sent session ID to client", zap.String("sessionID", sessionID))
	} else {
		logger.Warn("WebSocket connection is not established, cannot send session ID")
	}

	return nil
}
