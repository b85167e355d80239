package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// PromptSanitizerService はプロンプト本文のサニタイズ機能のインターフェースを定義する。
// 保存プロンプトの永続化前に使用される。
type PromptSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
	// scriptタグやon*イベント属性を含むあらゆるマークアップが除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// promptSanitizer はPromptSanitizerServiceの実装。
// プロンプトはプレーンテキストとして扱うため、タグを一切許可しない
// bluemondayのStrictPolicyを使用する。
type promptSanitizer struct {
	policy *bluemonday.Policy
}

// NewPromptSanitizer はPromptSanitizerServiceの新しいインスタンスを生成する。
func NewPromptSanitizer() *promptSanitizer {
	return &promptSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを全て除去したプレーンテキストを返す。
func (s *promptSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
