package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"quizserver/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultPollInterval         = 2 * time.Second
	defaultReconnectBase        = 1 * time.Second
	defaultMaxReconnectAttempts = 5
	defaultDialTimeout          = 5 * time.Second
)

// RoomSyncAgent はロビー画面のためのルーム同期エージェントです。
// まずWebSocketでのプッシュ受信を試み、確立できない場合や
// 再接続の上限に達した場合はポーリングへ静かに切り替えます。
// どちらの経路でも受け取るスナップショットの形は同じです。
type RoomSyncAgent struct {
	// Token は各リクエストとWebSocketダイヤルに付与されるJWTです。
	Token string

	baseURL string
	roomID  uint
	events  Events
	logger  *zap.Logger

	httpClient *http.Client
	dialer     *websocket.Dialer

	pollInterval         time.Duration
	reconnectBase        time.Duration
	maxReconnectAttempts int
	dialTimeout          time.Duration

	mu             sync.Mutex
	state          FeedState
	cancel         context.CancelFunc
	visible        bool
	lastStatus     string
	gameRedirected bool

	wake chan struct{} // タブ復帰時の追い付き取得の合図
	wg   sync.WaitGroup
}

// NewRoomSyncAgent はエージェントを生成します。baseURLは
// "http://host:port" の形式で、WebSocketのURLはここから導出されます。
func NewRoomSyncAgent(baseURL string, roomID uint, token string, events Events, logger *zap.Logger) *RoomSyncAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomSyncAgent{
		Token:                token,
		baseURL:              strings.TrimRight(baseURL, "/"),
		roomID:               roomID,
		events:               events,
		logger:               logger,
		httpClient:           &http.Client{Timeout: 10 * time.Second},
		dialer:               websocket.DefaultDialer,
		pollInterval:         defaultPollInterval,
		reconnectBase:        defaultReconnectBase,
		maxReconnectAttempts: defaultMaxReconnectAttempts,
		dialTimeout:          defaultDialTimeout,
		state:                StateIdle,
		visible:              true,
		wake:                 make(chan struct{}, 1),
	}
}

// Connect は同期を開始します。すでに動作中の場合は何もしません。
func (a *RoomSyncAgent) Connect() {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.state = StateConnecting
	a.mu.Unlock()

	a.wg.Add(1)
	go a.run(ctx)
}

// Disconnect は同期を停止し、フィードのゴルーチンが終了するまで
// 待ちます。何度呼んでも安全です。
func (a *RoomSyncAgent) Disconnect() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.setState(StateDisconnected)
}

// Reconnect は既存のフィードを止めてから接続を最初からやり直します。
// 再接続の試行回数もリセットされます。
func (a *RoomSyncAgent) Reconnect() {
	a.Disconnect()
	a.Connect()
}

// SetVisible は画面の表示状態を通知します。非表示の間ポーリングは
// 休止し、再表示されると即座に1回取得して追い付きます。
func (a *RoomSyncAgent) SetVisible(visible bool) {
	a.mu.Lock()
	was := a.visible
	a.visible = visible
	a.mu.Unlock()

	if visible && !was {
		select {
		case a.wake <- struct{}{}:
		default:
		}
	}
}

// State は現在のフィード状態を返します。
func (a *RoomSyncAgent) State() FeedState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *RoomSyncAgent) run(ctx context.Context) {
	defer a.wg.Done()

	push := &pushFeed{agent: a}
	err := push.runWithReconnect(ctx)
	if err == errFeedDone || ctx.Err() != nil {
		a.setState(StateDisconnected)
		return
	}

	// プッシュ経路が使えないのでポーリングにフォールバックする
	poll := &pollFeed{agent: a}
	poll.run(ctx)
	a.setState(StateDisconnected)
}

// handleSnapshot は経路を問わず届いたスナップショットを処理します。
// 戻り値trueはフィードの終端（ルーム消滅またはゲーム開始）です。
func (a *RoomSyncAgent) handleSnapshot(snapshot *models.RoomSnapshot) bool {
	status := snapshot.Room.Status

	if status == models.RoomStatusClosed {
		a.fireTerminated("Room has been closed")
		return true
	}

	a.mu.Lock()
	last := a.lastStatus
	a.lastStatus = status
	a.mu.Unlock()

	// waiting→playingの遷移をポーリング側でも検出する
	if status == models.RoomStatusPlaying && last != models.RoomStatusPlaying {
		a.fireGameStart(fmt.Sprintf("/game/%d", snapshot.Room.RoomID))
		return true
	}

	if a.events.OnSnapshot != nil {
		a.events.OnSnapshot(snapshot)
	}
	return false
}

// fireGameStart はゲーム画面へのリダイレクトを一度だけ通知します。
// プッシュとポーリングの両方から届いても二重に遷移しません。
func (a *RoomSyncAgent) fireGameStart(redirectTo string) {
	a.mu.Lock()
	if a.gameRedirected {
		a.mu.Unlock()
		return
	}
	a.gameRedirected = true
	a.mu.Unlock()

	a.logger.Info("ゲーム開始を検出", zap.String("redirectTo", redirectTo))
	if a.events.OnGameStart != nil {
		a.events.OnGameStart(redirectTo)
	}
}

func (a *RoomSyncAgent) fireTerminated(reason string) {
	a.logger.Info("ルームの終端を検出", zap.String("reason", reason))
	if a.events.OnTerminated != nil {
		a.events.OnTerminated(reason)
	}
}

func (a *RoomSyncAgent) fireError(err error) {
	if a.events.OnError != nil {
		a.events.OnError(err)
	}
}

func (a *RoomSyncAgent) setState(s FeedState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *RoomSyncAgent) isVisible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible
}

// wsURL はHTTPのベースURLからWebSocketエンドポイントを導出します。
func (a *RoomSyncAgent) wsURL() string {
	url := a.baseURL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/ws"
}
