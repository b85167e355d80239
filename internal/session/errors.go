package session

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/ssato/atelier/internal/model"
)

// サインイン・サインアウト失敗の分類用センチネルエラー。
// IdentityProviderの実装はこれらをラップして返す。
var (
	// ErrSignInCancelled はユーザーがサインインを中断したことを表す。
	ErrSignInCancelled = errors.New("sign-in cancelled by user")
	// ErrCallbackBlocked は対話フローのコールバック受け口を開けなかったことを表す。
	ErrCallbackBlocked = errors.New("callback listener could not be started")
	// ErrUnauthorizedDomain はOAuthクライアント設定で許可されていないドメインを表す。
	ErrUnauthorizedDomain = errors.New("domain not authorized for oauth client")
)

// Classify はIdP操作のエラーを5種類のいずれかに分類し、
// ユーザーに表示できる文言を持つAuthErrorへ変換する。
// どの分類にも該当しない場合はIdPの生メッセージを保持するgenericになる。
func Classify(err error) *model.AuthError {
	switch {
	case errors.Is(err, ErrSignInCancelled), errors.Is(err, context.Canceled):
		return &model.AuthError{
			Kind:    model.AuthErrorCancelled,
			Message: "サインインがキャンセルされました。",
		}
	case errors.Is(err, ErrCallbackBlocked):
		return &model.AuthError{
			Kind:    model.AuthErrorCallbackBlocked,
			Message: "サインイン用のコールバック受け口を開けませんでした。他のプロセスによるポート使用やポップアップブロックを確認してください。",
		}
	case errors.Is(err, ErrUnauthorizedDomain):
		return &model.AuthError{
			Kind:    model.AuthErrorUnauthorizedDomain,
			Message: "このドメインからのサインインは許可されていません。OAuthクライアントの設定を確認してください。",
		}
	case isNetworkError(err):
		return &model.AuthError{
			Kind:    model.AuthErrorNetwork,
			Message: "ネットワークエラーが発生しました。接続を確認して再度お試しください。",
		}
	default:
		return &model.AuthError{
			Kind:    model.AuthErrorGeneric,
			Message: err.Error(),
		}
	}
}

// isNetworkError は通信レベルの失敗かを判定する。
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
