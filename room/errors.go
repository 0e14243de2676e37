package room

import "errors"

// サービス層が返すエラー。ハンドラー側でHTTPステータスに変換します。
var (
	ErrNotFound     = errors.New("room or user not found")
	ErrInvalidState = errors.New("room is not accepting this action")
	ErrFull         = errors.New("room is full")
	ErrConflict     = errors.New("user is already in this room")
	ErrForbidden    = errors.New("only the room owner can perform this action")
)
