package creation

import (
	"context"
	"errors"
	"testing"

	"github.com/ssato/atelier/internal/model"
)

// --- モック定義 ---

type mockCreationRepo struct {
	insertFn     func(ctx context.Context, creation *model.Creation) error
	listByUserFn func(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockCreationRepo) Insert(ctx context.Context, creation *model.Creation) error {
	return m.insertFn(ctx, creation)
}

func (m *mockCreationRepo) ListByUser(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
	return m.listByUserFn(ctx, userID, kind)
}

func (m *mockCreationRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

// --- テスト ---

func TestList_EmptyUserID_ValidationError(t *testing.T) {
	service := NewService(&mockCreationRepo{})

	_, err := service.List(context.Background(), "  ", "")

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
	if vErr.Field != "userId" {
		t.Errorf("Field: got %s, want userId", vErr.Field)
	}
}

func TestList_InvalidKind_ValidationError(t *testing.T) {
	service := NewService(&mockCreationRepo{})

	_, err := service.List(context.Background(), "user-1", "hologram")

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestList_RepoError_StorageError(t *testing.T) {
	repoErr := errors.New("connection refused")
	repo := &mockCreationRepo{
		listByUserFn: func(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
			return nil, repoErr
		},
	}
	service := NewService(repo)

	_, err := service.List(context.Background(), "user-1", "")

	var sErr *model.StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("StorageErrorが返されるべき: %v", err)
	}
	if !errors.Is(err, repoErr) {
		t.Error("元のエラーが保持されるべき")
	}
}

func TestList_NoResults_EmptySlice(t *testing.T) {
	repo := &mockCreationRepo{
		listByUserFn: func(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
			return nil, nil
		},
	}
	service := NewService(repo)

	creations, err := service.List(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if creations == nil {
		t.Error("0件の場合はnilではなく空スライスを返すべき")
	}
	if len(creations) != 0 {
		t.Errorf("件数: got %d, want 0", len(creations))
	}
}

func TestList_KindFilter_PassedToRepo(t *testing.T) {
	var gotKind model.CreationKind
	repo := &mockCreationRepo{
		listByUserFn: func(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error) {
			gotKind = kind
			return []*model.Creation{}, nil
		},
	}
	service := NewService(repo)

	if _, err := service.List(context.Background(), "user-1", model.CreationKindColoringBook); err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if gotKind != model.CreationKindColoringBook {
		t.Errorf("種別フィルタがリポジトリに渡されるべき: got %s", gotKind)
	}
}

func TestSave_EmptyUserID_ValidationError(t *testing.T) {
	service := NewService(&mockCreationRepo{})

	_, err := service.Save(context.Background(), "", []Input{
		{Kind: model.CreationKindGeneratedImage, Prompt: "夕焼けの街"},
	})

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestSave_EmptyInputs_ValidationError(t *testing.T) {
	service := NewService(&mockCreationRepo{})

	_, err := service.Save(context.Background(), "user-1", nil)

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestSave_InvalidKind_NothingSaved(t *testing.T) {
	inserted := 0
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			inserted++
			return nil
		},
	}
	service := NewService(repo)

	_, err := service.Save(context.Background(), "user-1", []Input{
		{Kind: model.CreationKindGeneratedImage, Prompt: "夕焼けの街"},
		{Kind: "hologram", Prompt: "立体映像"},
	})

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
	// バリデーションは保存前に全件行われ、1件も挿入されない
	if inserted != 0 {
		t.Errorf("バリデーション失敗時は何も保存されないべき: %d件挿入された", inserted)
	}
}

func TestSave_EmptyPrompt_IsSaved(t *testing.T) {
	var saved *model.Creation
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			saved = creation
			return nil
		},
	}
	service := NewService(repo)

	// プロンプトなしの画像（背景除去や外部保存など）も保存できる
	url := "https://cdn.example.com/upload.png"
	ids, err := service.Save(context.Background(), "user-1", []Input{
		{Kind: model.CreationKindBackgroundRemoved, Prompt: "", ImageURL: &url},
	})
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ID数: got %d, want 1", len(ids))
	}
	if saved == nil || saved.Prompt != "" {
		t.Error("空プロンプトはそのまま保存されるべき")
	}
}

func TestSave_AllSucceed_ReturnsAllIDs(t *testing.T) {
	var saved []*model.Creation
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			saved = append(saved, creation)
			return nil
		},
	}
	service := NewService(repo)

	url := "https://cdn.example.com/a.png"
	ids, err := service.Save(context.Background(), "user-1", []Input{
		{Kind: model.CreationKindGeneratedImage, Prompt: "夕焼けの街", ImageURL: &url},
		{Kind: model.CreationKindModel3D, Prompt: "木製の椅子"},
	})
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ID数: got %d, want 2", len(ids))
	}
	if len(saved) != 2 {
		t.Fatalf("挿入数: got %d, want 2", len(saved))
	}
	// 受け取った順に保存される
	if saved[0].Prompt != "夕焼けの街" || saved[1].Prompt != "木製の椅子" {
		t.Error("入力順に保存されるべき")
	}
	if saved[0].UserID != "user-1" {
		t.Errorf("所有者ID: got %s, want user-1", saved[0].UserID)
	}
	// 任意項目のnilはそのまま渡される
	if saved[1].ImageURL != nil {
		t.Error("未指定のImageURLはnilのままであるべき")
	}
	if saved[0].ImageURL == nil || *saved[0].ImageURL != url {
		t.Error("指定されたImageURLが保持されるべき")
	}
}

func TestSave_PartialFailure_ReturnsSavedIDsAndStorageError(t *testing.T) {
	// 2件目で失敗した場合、1件目のIDとStorageErrorの両方が返る。
	calls := 0
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			calls++
			if calls == 2 {
				return errors.New("disk full")
			}
			return nil
		},
	}
	service := NewService(repo)

	ids, err := service.Save(context.Background(), "user-1", []Input{
		{Kind: model.CreationKindGeneratedImage, Prompt: "一枚目"},
		{Kind: model.CreationKindGeneratedImage, Prompt: "二枚目"},
		{Kind: model.CreationKindGeneratedImage, Prompt: "三枚目"},
	})

	var sErr *model.StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("StorageErrorが返されるべき: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("保存済みID数: got %d, want 1", len(ids))
	}
	// 失敗後の残りは試行されない
	if calls != 2 {
		t.Errorf("挿入試行回数: got %d, want 2", calls)
	}
}

func TestSave_GeneratesIDWhenMissing(t *testing.T) {
	var saved *model.Creation
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			saved = creation
			return nil
		},
	}
	service := NewService(repo)

	ids, err := service.Save(context.Background(), "user-1", []Input{
		{Kind: model.CreationKindGeneratedImage, Prompt: "夕焼けの街"},
	})
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if saved.ID == "" {
		t.Error("ID未指定の場合は採番されるべき")
	}
	if ids[0] != saved.ID {
		t.Error("返却IDは保存されたIDと一致するべき")
	}
}

func TestSave_KeepsProvidedID(t *testing.T) {
	var saved *model.Creation
	repo := &mockCreationRepo{
		insertFn: func(ctx context.Context, creation *model.Creation) error {
			saved = creation
			return nil
		},
	}
	service := NewService(repo)

	ids, err := service.Save(context.Background(), "user-1", []Input{
		{ID: "client-id-1", Kind: model.CreationKindGeneratedImage, Prompt: "夕焼けの街"},
	})
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if saved.ID != "client-id-1" || ids[0] != "client-id-1" {
		t.Error("指定されたIDがそのまま使われるべき")
	}
}

func TestDelete_EmptyID_ValidationError(t *testing.T) {
	service := NewService(&mockCreationRepo{})

	err := service.Delete(context.Background(), "")

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestDelete_RepoError_StorageError(t *testing.T) {
	repo := &mockCreationRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			return errors.New("connection reset")
		},
	}
	service := NewService(repo)

	err := service.Delete(context.Background(), "creation-1")

	var sErr *model.StorageError
	if !errors.As(err, &sErr) {
		t.Fatalf("StorageErrorが返されるべき: %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	var gotID string
	repo := &mockCreationRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	service := NewService(repo)

	if err := service.Delete(context.Background(), "creation-1"); err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if gotID != "creation-1" {
		t.Errorf("削除対象ID: got %s, want creation-1", gotID)
	}
}
