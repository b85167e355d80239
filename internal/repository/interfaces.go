// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/ssato/atelier/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーの表示名とプロフィール画像URLを更新する。
	UpdateProfile(ctx context.Context, id, name, pictureURL string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、creations、saved_promptsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CreationRepository は生成物データの永続化インターフェース。
// タイムスタンプはストア側のクロック（now()）で刻印される。
type CreationRepository interface {
	// Insert は生成物を1件挿入し、ストアが刻印したタイムスタンプを
	// creationに書き戻す。
	Insert(ctx context.Context, creation *model.Creation) error

	// ListByUser は指定ユーザーの生成物を挿入順で返す。
	// kindが空文字列以外の場合はその種別のみに絞り込む。
	ListByUser(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error)

	// DeleteByID は指定IDの生成物を削除する。
	// 所有者の検証は行わない（呼び出し側で確認済みであることを前提とする）。
	DeleteByID(ctx context.Context, id string) error
}

// PromptRepository は保存プロンプトの永続化インターフェース。
type PromptRepository interface {
	// Insert は保存プロンプトを1件挿入し、ストアが刻印したタイムスタンプを
	// promptに書き戻す。
	Insert(ctx context.Context, prompt *model.SavedPrompt) error

	// ListByUser は指定ユーザーの保存プロンプトを挿入順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.SavedPrompt, error)

	// DeleteByID は指定IDの保存プロンプトを削除する。
	DeleteByID(ctx context.Context, id string) error
}
