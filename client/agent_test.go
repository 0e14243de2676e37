package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"quizserver/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRoomServer はポーリング先の状態エンドポイントを演じます。
// statusCodeを変えることでルーム消滅などの応答を再現できます。
type fakeRoomServer struct {
	mu         sync.Mutex
	roomStatus string
	statusCode int
	fetches    chan struct{}
}

func newFakeRoomServer() *fakeRoomServer {
	return &fakeRoomServer{
		roomStatus: models.RoomStatusWaiting,
		statusCode: http.StatusOK,
		fetches:    make(chan struct{}, 64),
	}
}

func (f *fakeRoomServer) set(roomStatus string, statusCode int) {
	f.mu.Lock()
	f.roomStatus = roomStatus
	f.statusCode = statusCode
	f.mu.Unlock()
}

func (f *fakeRoomServer) handleState(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.roomStatus
	code := f.statusCode
	f.mu.Unlock()

	select {
	case f.fetches <- struct{}{}:
	default:
	}

	if code != http.StatusOK {
		w.WriteHeader(code)
		w.Write([]byte(`{"error":"Room not found"}`))
		return
	}

	snapshot := models.RoomSnapshot{
		Room: models.RoomDetails{
			RoomID:        1,
			RoomCode:      "ABCD2345",
			Status:        status,
			OwnerID:       1,
			OwnerUsername: "alice",
			PlayerCount:   1,
		},
		Players: []models.PlayerInfo{
			{UserID: 1, Username: "alice", JoinedAt: time.Now()},
		},
	}
	json.NewEncoder(w).Encode(snapshot)
}

// newPollAgent はWebSocketのない（＝即ポーリングに落ちる）サーバーと、
// テスト向けに間隔を詰めたエージェントを用意します。
func newPollAgent(t *testing.T, fake *fakeRoomServer, events Events) *RoomSyncAgent {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/rooms/1/state", fake.handleState)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	agent := NewRoomSyncAgent(srv.URL, 1, "test-token", events, zap.NewNop())
	agent.pollInterval = 20 * time.Millisecond
	agent.reconnectBase = 5 * time.Millisecond
	agent.dialTimeout = 200 * time.Millisecond
	return agent
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestFallsBackToPollingWhenPushUnavailable(t *testing.T) {
	fake := newFakeRoomServer()
	got := make(chan struct{}, 16)

	agent := newPollAgent(t, fake, Events{
		OnSnapshot: func(snapshot *models.RoomSnapshot) {
			assert.Equal(t, models.RoomStatusWaiting, snapshot.Room.Status)
			select {
			case got <- struct{}{}:
			default:
			}
		},
	})
	defer agent.Disconnect()

	agent.Connect()
	waitFor(t, got, "first snapshot")

	assert.Equal(t, StateConnectedPoll, agent.State())
}

func TestPollDetectsGameStartTransition(t *testing.T) {
	fake := newFakeRoomServer()
	started := make(chan string, 4)

	agent := newPollAgent(t, fake, Events{
		OnGameStart: func(redirectTo string) {
			started <- redirectTo
		},
	})
	defer agent.Disconnect()

	agent.Connect()
	waitFor(t, fake.fetches, "first fetch")

	// waiting→playingの遷移をポーリングで検出する
	fake.set(models.RoomStatusPlaying, http.StatusOK)

	select {
	case redirectTo := <-started:
		assert.Equal(t, "/game/1", redirectTo)
	case <-time.After(3 * time.Second):
		t.Fatal("game start was not detected")
	}

	// リダイレクトは一度きり
	select {
	case <-started:
		t.Fatal("game start fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollTerminatesWhenRoomGone(t *testing.T) {
	fake := newFakeRoomServer()
	terminated := make(chan string, 1)

	agent := newPollAgent(t, fake, Events{
		OnTerminated: func(reason string) {
			terminated <- reason
		},
	})
	defer agent.Disconnect()

	agent.Connect()
	waitFor(t, fake.fetches, "first fetch")

	fake.set("", http.StatusNotFound)

	select {
	case reason := <-terminated:
		assert.Contains(t, reason, "Room")
	case <-time.After(3 * time.Second):
		t.Fatal("termination was not detected")
	}
}

func TestPollPausesWhileHiddenAndCatchesUp(t *testing.T) {
	fake := newFakeRoomServer()

	agent := newPollAgent(t, fake, Events{})
	agent.pollInterval = 20 * time.Millisecond
	defer agent.Disconnect()

	agent.Connect()
	waitFor(t, fake.fetches, "first fetch")

	// 非表示の間は取得が止まる
	agent.SetVisible(false)
	time.Sleep(60 * time.Millisecond)
	drained := len(fake.fetches)
	for i := 0; i < drained; i++ {
		<-fake.fetches
	}
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fake.fetches, "fetches should pause while hidden")

	// 再表示で即座に追い付き取得が走る
	agent.SetVisible(true)
	waitFor(t, fake.fetches, "catch-up fetch after becoming visible")
}

func TestDisconnectIsIdempotent(t *testing.T) {
	fake := newFakeRoomServer()
	agent := newPollAgent(t, fake, Events{})

	agent.Connect()
	waitFor(t, fake.fetches, "first fetch")

	agent.Disconnect()
	agent.Disconnect() // 2回目も安全
	assert.Equal(t, StateDisconnected, agent.State())
}

func TestGameStartFiresOnlyOnce(t *testing.T) {
	agent := NewRoomSyncAgent("http://localhost", 1, "", Events{}, zap.NewNop())

	var count int
	agent.events.OnGameStart = func(string) { count++ }

	agent.fireGameStart("/game/1")
	agent.fireGameStart("/game/1")
	assert.Equal(t, 1, count)
}

func TestPushFeedReceivesUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// join_roomの購読宣言を待つ
		var join struct {
			Type   string `json:"type"`
			RoomID uint   `json:"roomId"`
		}
		if err := conn.ReadJSON(&join); err != nil || join.Type != "join_room" {
			return
		}

		snapshot := &models.RoomSnapshot{
			Room: models.RoomDetails{RoomID: join.RoomID, Status: models.RoomStatusWaiting, PlayerCount: 2},
		}
		conn.WriteJSON(models.NewRoomUpdateMessage(join.RoomID, snapshot))
		conn.WriteJSON(models.NewGameStartedMessage(join.RoomID, "/game/1"))

		// クライアントが読み終わるまで接続を保つ
		time.Sleep(500 * time.Millisecond)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	snapshots := make(chan *models.RoomSnapshot, 4)
	started := make(chan string, 1)

	agent := NewRoomSyncAgent(srv.URL, 1, "test-token", Events{
		OnSnapshot:  func(s *models.RoomSnapshot) { snapshots <- s },
		OnGameStart: func(redirectTo string) { started <- redirectTo },
	}, zap.NewNop())
	defer agent.Disconnect()

	agent.Connect()

	select {
	case s := <-snapshots:
		assert.Equal(t, 2, s.Room.PlayerCount)
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot was not received over push")
	}

	select {
	case redirectTo := <-started:
		assert.Equal(t, "/game/1", redirectTo)
	case <-time.After(3 * time.Second):
		t.Fatal("game start was not received over push")
	}
}

func TestWSURLDerivation(t *testing.T) {
	agent := NewRoomSyncAgent("http://example.com:8080/", 1, "", Events{}, nil)
	require.Equal(t, "ws://example.com:8080/ws", agent.wsURL())

	secure := NewRoomSyncAgent("https://example.com", 1, "", Events{}, nil)
	require.Equal(t, "wss://example.com/ws", secure.wsURL())
}
