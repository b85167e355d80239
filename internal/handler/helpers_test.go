package handler

import (
	"net/http"

	"github.com/ssato/atelier/internal/middleware"
)

// withUserID は認証済みリクエストを模すため、コンテキストにユーザーIDを注入する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}
