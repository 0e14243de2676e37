package handlers

import (
	"errors"
	"net/http"

	"quizserver/room"
)

// サービス層のエラーをHTTPステータスに変換
func statusFromError(err error) int {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, room.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, room.ErrInvalidState), errors.Is(err, room.ErrFull):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// 内部エラーの詳細はクライアントに漏らさない
func errorMessage(err error, status int) string {
	if status == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
