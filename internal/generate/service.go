// Package generate はAI生成機能のビジネスロジックを提供する。
// 塗り絵変換、プロンプト下書き生成、音声文字起こしの各操作を束ねる。
package generate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ssato/atelier/internal/model"
	"github.com/ssato/atelier/internal/security"
)

// ColoringBookRunner は塗り絵変換モデルの実行インターフェース。
type ColoringBookRunner interface {
	Enabled() bool
	RunColoringBook(ctx context.Context, imageURL string) (string, error)
}

// PromptGenerator はプロンプト下書き生成のインターフェース。
type PromptGenerator interface {
	Enabled() bool
	GeneratePrompt(ctx context.Context, theme string) (string, error)
}

// Service はAI生成機能に関するビジネスロジックを提供する。
// 必要なクレデンシャルが未設定の機能はServiceDisabledErrorを返す。
type Service struct {
	coloring ColoringBookRunner
	prompter PromptGenerator
	guard    security.SSRFGuardService
}

// NewService はServiceを生成する。
func NewService(coloring ColoringBookRunner, prompter PromptGenerator, guard security.SSRFGuardService) *Service {
	return &Service{
		coloring: coloring,
		prompter: prompter,
		guard:    guard,
	}
}

// ColoringBook は入力画像URLを塗り絵変換し、出力画像URLを返す。
// 入力URLは外部取得と同じSSRF検証を通す。
func (s *Service) ColoringBook(ctx context.Context, imageURL string) (string, error) {
	if !s.coloring.Enabled() {
		return "", &model.ServiceDisabledError{Service: "replicate"}
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", model.NewValidationError("imageUrl", "画像URLは必須です")
	}
	if err := s.guard.ValidateURL(imageURL); err != nil {
		return "", model.NewValidationError("imageUrl", "許可されていないURLです: "+err.Error())
	}

	output, err := s.coloring.RunColoringBook(ctx, imageURL)
	if err != nil {
		return "", &model.UpstreamServiceError{Service: "replicate", Err: err}
	}

	slog.Info("coloring book generated", slog.String("output_url", output))
	return output, nil
}

// Prompt はテーマを受け取り、画像生成用のプロンプト文を生成する。
func (s *Service) Prompt(ctx context.Context, theme string) (string, error) {
	if !s.prompter.Enabled() {
		return "", &model.ServiceDisabledError{Service: "anthropic"}
	}

	text, err := s.prompter.GeneratePrompt(ctx, theme)
	if err != nil {
		return "", &model.UpstreamServiceError{Service: "anthropic", Err: err}
	}
	return text, nil
}

// Transcribe は音声の文字起こしを行う。
// 対応バックエンドが未提供のため、常にServiceDisabledErrorを返す。
func (s *Service) Transcribe(ctx context.Context) (string, error) {
	return "", &model.ServiceDisabledError{Service: "transcription"}
}
