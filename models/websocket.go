package models

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Websocketクライアントを定義
type Client struct {
	Conn   *websocket.Conn
	UserID uint // JWTから抽出したユーザーID

	roomMu sync.Mutex
	roomID uint // 現在購読しているルームID（未購読なら0）

	writeMu sync.Mutex
}

// Room は現在購読中のルームIDを返します。
// ハブと読み取りゴルーチンの両方から参照されるためロックで守ります。
func (c *Client) Room() uint {
	c.roomMu.Lock()
	defer c.roomMu.Unlock()
	return c.roomID
}

// SetRoom は購読中のルームIDを更新します。
func (c *Client) SetRoom(roomID uint) {
	c.roomMu.Lock()
	c.roomID = roomID
	c.roomMu.Unlock()
}

// WriteMessage は接続への書き込みを直列化します。
// ブロードキャストとPing送信が別ゴルーチンから同じ接続に書くためです。
func (c *Client) WriteMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}
