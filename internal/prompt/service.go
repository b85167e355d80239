// Package prompt は保存プロンプトの管理を提供する。
package prompt

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ssato/atelier/internal/model"
	"github.com/ssato/atelier/internal/repository"
	"github.com/ssato/atelier/internal/security"
)

// プロンプト本文の最大長。
const maxPromptLength = 4000

// Service は保存プロンプトに関するビジネスロジックを提供する。
// 本文はHTMLタグを一切許容しないポリシーでサニタイズしてから保存する。
type Service struct {
	repo      repository.PromptRepository
	sanitizer security.PromptSanitizerService
}

// NewService はServiceを生成する。
func NewService(repo repository.PromptRepository, sanitizer security.PromptSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// Save はプロンプトを1件保存し、採番されたIDを返す。
func (s *Service) Save(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", model.NewValidationError("userId", "所有者IDは必須です")
	}

	sanitized := strings.TrimSpace(s.sanitizer.Sanitize(text))
	if sanitized == "" {
		return "", model.NewValidationError("text", "プロンプト本文は必須です")
	}
	if len(sanitized) > maxPromptLength {
		return "", model.NewValidationError("text", "プロンプト本文が長すぎます")
	}

	p := &model.SavedPrompt{
		ID:       uuid.New().String(),
		UserID:   userID,
		Text:     sanitized,
		Metadata: metadata,
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return "", model.NewStorageError("save_prompt", err)
	}

	slog.Info("prompt saved",
		slog.String("user_id", userID),
		slog.String("prompt_id", p.ID),
	)
	return p.ID, nil
}

// List は指定ユーザーの保存プロンプトを挿入順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.SavedPrompt, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewValidationError("userId", "所有者IDは必須です")
	}

	prompts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, model.NewStorageError("list_prompts", err)
	}

	if prompts == nil {
		prompts = []*model.SavedPrompt{}
	}
	return prompts, nil
}

// Delete は指定IDの保存プロンプトを削除する。
// 存在しないIDの削除はエラーにならない（冪等）。
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewValidationError("id", "プロンプトIDは必須です")
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return model.NewStorageError("delete_prompt", err)
	}

	slog.Info("prompt deleted", slog.String("prompt_id", id))
	return nil
}
