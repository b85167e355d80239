// Package model はドメインモデルを定義する。
package model

import "time"

// CreationKind は生成物の種別を表す。
type CreationKind string

const (
	// CreationKindGeneratedImage はAI生成画像を表す。
	CreationKindGeneratedImage CreationKind = "generated-image"
	// CreationKindModel3D は3Dモデルを表す。
	CreationKindModel3D CreationKind = "3d-model"
	// CreationKindColoringBook は塗り絵変換画像を表す。
	CreationKindColoringBook CreationKind = "coloring-book-image"
	// CreationKindBackgroundRemoved は背景除去画像を表す。
	CreationKindBackgroundRemoved CreationKind = "background-removed-image"
)

// IsValid は定義済みの生成物種別かを判定する。
func (k CreationKind) IsValid() bool {
	switch k {
	case CreationKindGeneratedImage, CreationKindModel3D,
		CreationKindColoringBook, CreationKindBackgroundRemoved:
		return true
	}
	return false
}

// Creation は1件の生成物とその来歴を表す。
// 所有ユーザーIDは作成後に変更されない。
// 任意項目はnilで「値なし」を表し、ストアには明示的なNULLとして保存される。
type Creation struct {
	ID               string
	UserID           string
	Kind             CreationKind
	Prompt           string
	ImageURL         *string
	ModelURL         *string
	ProcessedURL     *string
	SourceCreationID *string
	AspectRatio      *string
	ModelName        *string
	Metadata         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SavedPrompt は再利用可能なプロンプトを表す。
type SavedPrompt struct {
	ID        string
	UserID    string
	Text      string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
