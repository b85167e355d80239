// Package creation は生成物の保存・一覧・削除のビジネスロジックを提供する。
package creation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/ssato/atelier/internal/model"
	"github.com/ssato/atelier/internal/repository"
)

// Input は保存リクエスト1件分の生成物を表す。
// IDは省略可能で、未指定の場合はサービス側で採番する。
// 任意項目のnilは「値なし」として明示的なNULLで保存される。
type Input struct {
	ID               string
	Kind             model.CreationKind
	Prompt           string
	ImageURL         *string
	ModelURL         *string
	ProcessedURL     *string
	SourceCreationID *string
	AspectRatio      *string
	ModelName        *string
	Metadata         map[string]any
}

// Service は生成物に関するビジネスロジックを提供する。
type Service struct {
	repo repository.CreationRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.CreationRepository) *Service {
	return &Service{repo: repo}
}

// List は指定ユーザーの生成物を挿入順で返す。
// kindが空文字列の場合は全種別を返す。
// 所有者IDが空の場合はValidationError、ストア失敗はStorageErrorになる。
func (s *Service) List(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewValidationError("userId", "所有者IDは必須です")
	}
	if kind != "" && !kind.IsValid() {
		return nil, model.NewValidationError("type", "未定義の生成物種別です: "+string(kind))
	}

	creations, err := s.repo.ListByUser(ctx, userID, kind)
	if err != nil {
		return nil, model.NewStorageError("list_creations", err)
	}

	// 1件もない場合も空スライスを返す（エラーではない）
	if creations == nil {
		creations = []*model.Creation{}
	}
	return creations, nil
}

// Save は複数の生成物を受け取った順に1件ずつ保存し、保存できたIDを返す。
//
// 途中で失敗した場合、それ以前に保存済みの分はそのまま残り、
// 保存済みIDとStorageErrorの両方を返す（部分成功）。
// リトライやロールバックは行わない。
func (s *Service) Save(ctx context.Context, userID string, inputs []Input) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, model.NewValidationError("userId", "所有者IDは必須です")
	}
	if len(inputs) == 0 {
		return nil, model.NewValidationError("creations", "保存する生成物が指定されていません")
	}
	for _, in := range inputs {
		if !in.Kind.IsValid() {
			return nil, model.NewValidationError("creations", "未定義の生成物種別です: "+string(in.Kind))
		}
	}

	savedIDs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}

		c := &model.Creation{
			ID:               id,
			UserID:           userID,
			Kind:             in.Kind,
			Prompt:           in.Prompt,
			ImageURL:         in.ImageURL,
			ModelURL:         in.ModelURL,
			ProcessedURL:     in.ProcessedURL,
			SourceCreationID: in.SourceCreationID,
			AspectRatio:      in.AspectRatio,
			ModelName:        in.ModelName,
			Metadata:         in.Metadata,
		}

		if err := s.repo.Insert(ctx, c); err != nil {
			slog.Error("creation save failed mid-batch",
				slog.String("user_id", userID),
				slog.Int("saved", len(savedIDs)),
				slog.Int("total", len(inputs)),
				slog.String("error", err.Error()),
			)
			return savedIDs, model.NewStorageError("save_creations", err)
		}
		savedIDs = append(savedIDs, id)
	}

	slog.Info("creations saved",
		slog.String("user_id", userID),
		slog.Int("count", len(savedIDs)),
	)
	return savedIDs, nil
}

// Delete は指定IDの生成物を削除する。
// 存在しないIDの削除はエラーにならない（冪等）。
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewValidationError("id", "生成物IDは必須です")
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return model.NewStorageError("delete_creation", err)
	}

	slog.Info("creation deleted", slog.String("creation_id", id))
	return nil
}
