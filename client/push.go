package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quizserver/models"

	"go.uber.org/zap"
)

// pushFeed はWebSocket経由でルーム更新を受信するフィードです。
type pushFeed struct {
	agent *RoomSyncAgent
}

var _ liveFeed = (*pushFeed)(nil)

// run はWebSocketをダイヤルし、購読メッセージを送ってから
// 受信ループに入ります。接続が失われるまでブロックします。
func (p *pushFeed) run(ctx context.Context) error {
	a := p.agent

	header := http.Header{}
	if a.Token != "" {
		header.Set("Authorization", "Bearer "+a.Token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.dialTimeout)
	defer cancel()

	conn, resp, err := a.dialer.DialContext(dialCtx, a.wsURL(), header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		a.logger.Warn("WebSocket接続の確立に失敗", zap.Error(err))
		return errEstablish
	}
	defer conn.Close()

	// コンテキストのキャンセルで読み取りを解除するため、
	// 監視ゴルーチンから接続を閉じる。
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	// ルーム購読を宣言する
	join := map[string]interface{}{
		"type":   "join_room",
		"roomId": a.roomID,
	}
	if err := conn.WriteJSON(join); err != nil {
		a.logger.Warn("購読メッセージの送信に失敗", zap.Error(err))
		return errEstablish
	}

	a.setState(StateConnectedPush)
	a.logger.Info("WebSocket接続を確立", zap.Uint("roomID", a.roomID))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Warn("WebSocket接続が切断されました", zap.Error(err))
			return errLost
		}
		if done := p.dispatch(message); done {
			return errFeedDone
		}
	}
}

// dispatch は受信したメッセージを型で振り分けます。
// 戻り値trueはフィードの終端（リダイレクト済みまたはルーム消滅）を表します。
func (p *pushFeed) dispatch(message []byte) bool {
	a := p.agent

	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		a.logger.Warn("メッセージの解析に失敗", zap.Error(err))
		return false
	}

	switch envelope.Type {
	case models.MessageTypeRoomUpdate:
		var snapshot models.RoomSnapshot
		if err := json.Unmarshal(envelope.Data, &snapshot); err != nil {
			a.logger.Warn("スナップショットの解析に失敗", zap.Error(err))
			return false
		}
		return a.handleSnapshot(&snapshot)

	case models.MessageTypeGameStarted:
		var data models.GameStartedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil || data.RedirectTo == "" {
			data.RedirectTo = fmt.Sprintf("/game/%d", a.roomID)
		}
		a.fireGameStart(data.RedirectTo)
		return true

	case models.MessageTypeError:
		var data models.ErrorMessageData
		if err := json.Unmarshal(envelope.Data, &data); err == nil {
			a.logger.Warn("サーバーからエラー通知", zap.String("message", data.Message))
		}
		return false

	default:
		a.logger.Info("未知のメッセージタイプ", zap.String("type", envelope.Type))
		return false
	}
}

// runWithReconnect は初回接続と、切断後の再接続を管理します。
// 初回のダイヤル失敗は即フォールバック、確立後の切断は
// 1秒から倍々のバックオフで最大 maxReconnectAttempts 回まで再試行します。
func (p *pushFeed) runWithReconnect(ctx context.Context) error {
	a := p.agent

	err := p.run(ctx)
	if err == errFeedDone || ctx.Err() != nil {
		return err
	}
	if err == errEstablish {
		// そもそも繋がらない環境では粘らずポーリングへ
		return errEstablish
	}

	delay := a.reconnectBase
	for attempt := 1; attempt <= a.maxReconnectAttempts; attempt++ {
		a.setState(StateConnecting)
		a.logger.Info("WebSocket再接続を試行",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2

		err = p.run(ctx)
		if err == errFeedDone || ctx.Err() != nil {
			return err
		}
		if err == errEstablish {
			break
		}
	}

	a.logger.Warn("WebSocket再接続を断念、ポーリングへ切り替え")
	return errEstablish
}
