// Package model はドメインモデルを定義する。
package model

import "fmt"

// ValidationError は必須フィールドの欠落や不正な値を表す。
type ValidationError struct {
	Field  string // 対象フィールド名
	Reason string // 不正の内容
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError はValidationErrorを生成する。
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError はデータストア操作の失敗を表す。
// 元のエラーメッセージをそのまま保持し、リトライは行わない。
type StorageError struct {
	Op  string // 失敗した操作名
	Err error  // ストアが返した元のエラー
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError はStorageErrorを生成する。
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// AuthErrorKind はサインイン・サインアウト失敗の分類を表す。
type AuthErrorKind string

const (
	// AuthErrorCancelled はユーザーによるサインインの中断。
	AuthErrorCancelled AuthErrorKind = "cancelled"
	// AuthErrorCallbackBlocked は対話フローのコールバック受け口を開けなかった場合。
	AuthErrorCallbackBlocked AuthErrorKind = "callback-blocked"
	// AuthErrorNetwork はIdPへの通信失敗。
	AuthErrorNetwork AuthErrorKind = "network"
	// AuthErrorUnauthorizedDomain はOAuthクライアント設定で許可されていないドメイン。
	AuthErrorUnauthorizedDomain AuthErrorKind = "unauthorized-domain"
	// AuthErrorGeneric は上記以外。IdPの生メッセージを保持する。
	AuthErrorGeneric AuthErrorKind = "generic"
)

// AuthError は分類済みの認証エラーを表す。
// Messageはそのままユーザーに表示できる文言を保持する。
type AuthError struct {
	Kind    AuthErrorKind
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	return fmt.Sprintf("[auth:%s] %s", e.Kind, e.Message)
}

// UpstreamServiceError は外部生成APIの失敗を表す。
// ハンドラー層でHTTP 500として生メッセージ付きで返される。
type UpstreamServiceError struct {
	Service string // "replicate", "anthropic" 等
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamServiceError) Error() string {
	return fmt.Sprintf("upstream service %s failed: %v", e.Service, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *UpstreamServiceError) Unwrap() error {
	return e.Err
}

// ServiceDisabledError は必要な外部クレデンシャルが未設定で
// 機能が無効化されていることを表す。HTTP 503として返される。
type ServiceDisabledError struct {
	Service string
}

// Error はerrorインターフェースを実装する。
func (e *ServiceDisabledError) Error() string {
	return fmt.Sprintf("service %s is disabled", e.Service)
}
