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

// pollFeed は一定間隔でルーム状態エンドポイントを再取得するフィードです。
// プッシュ接続が確立できない場合の代替経路として動作します。
type pollFeed struct {
	agent *RoomSyncAgent
}

var _ liveFeed = (*pollFeed)(nil)

// run はポーリングループです。タブが非表示の間は取得を休止し、
// 再表示の合図（wakeチャネル）で即座に追い付き取得を行います。
func (p *pollFeed) run(ctx context.Context) error {
	a := p.agent

	a.setState(StateConnectedPoll)
	a.logger.Info("ポーリングを開始",
		zap.Uint("roomID", a.roomID),
		zap.Duration("interval", a.pollInterval))

	// 最初の1回は待たずに取得する
	if done := p.fetchOnce(ctx); done {
		return errFeedDone
	}

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !a.isVisible() {
				// 非表示中は取得しない。復帰時にwakeで追い付く。
				continue
			}
			if done := p.fetchOnce(ctx); done {
				return errFeedDone
			}
		case <-a.wake:
			if done := p.fetchOnce(ctx); done {
				return errFeedDone
			}
		}
	}
}

// fetchOnce は状態エンドポイントを1回取得します。
// 戻り値trueはフィードの終端（ルーム消滅またはゲーム開始）を表します。
func (p *pollFeed) fetchOnce(ctx context.Context) bool {
	a := p.agent

	url := fmt.Sprintf("%s/api/rooms/%d/state", a.baseURL, a.roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		a.logger.Error("リクエストの生成に失敗", zap.Error(err))
		return false
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// 一時的なネットワーク障害とみなして次の周期に任せる
		a.logger.Warn("状態の取得に失敗", zap.Error(err))
		a.fireError(err)
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// 下で処理する
	case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
		// ルームが消滅したか、メンバーでなくなった
		a.fireTerminated("Room not found or has been closed")
		return true
	default:
		a.logger.Warn("状態エンドポイントが異常応答", zap.Int("status", resp.StatusCode))
		return false
	}

	var snapshot models.RoomSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		a.logger.Warn("スナップショットの解析に失敗", zap.Error(err))
		return false
	}

	return a.handleSnapshot(&snapshot)
}
