package client

import (
	"context"
	"errors"

	"quizserver/models"
)

// FeedState はライブフィードの状態機械です。
// connecting → connected-push | connected-poll → disconnected と遷移します。
type FeedState int32

const (
	StateIdle FeedState = iota
	StateConnecting
	StateConnectedPush
	StateConnectedPoll
	StateDisconnected
)

func (s FeedState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnectedPush:
		return "connected-push"
	case StateConnectedPoll:
		return "connected-poll"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Events はエージェントからクライアント側への通知コールバックです。
// いずれも省略可能で、エージェントの読み取りゴルーチンから呼ばれます。
type Events struct {
	OnSnapshot   func(snapshot *models.RoomSnapshot)
	OnGameStart  func(redirectTo string) // ゲーム画面への遷移（一度だけ呼ばれる）
	OnTerminated func(reason string)     // ルーム消滅・closed → ルームからの離脱
	OnError      func(err error)
}

// liveFeed はスナップショットの入手手段の抽象です。
// WebSocketによるプッシュとポーリングの2実装があり、
// 接続時の戦略判断でどちらかが選ばれます。
type liveFeed interface {
	// run はフィードが終了するまでブロックします。戻り値で
	// フォールバック可能な失敗か、継続不能な終了かを区別します。
	run(ctx context.Context) error
}

var (
	// 接続の確立に失敗（即ポーリングへフォールバック）
	errEstablish = errors.New("failed to establish push channel")
	// 確立済みの接続が失われた（バックオフ付きで再接続を試みる）
	errLost = errors.New("push channel lost")
	// ルームが終端状態に達した、またはゲーム開始で遷移済み
	errFeedDone = errors.New("feed finished")
)
