package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssato/atelier/internal/model"
)

// --- モック定義 ---

type mockPromptService struct {
	saveFn   func(ctx context.Context, userID, text string, metadata map[string]any) (string, error)
	listFn   func(ctx context.Context, userID string) ([]*model.SavedPrompt, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockPromptService) Save(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, text, metadata)
	}
	return "", nil
}

func (m *mockPromptService) List(ctx context.Context, userID string) ([]*model.SavedPrompt, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*model.SavedPrompt{}, nil
}

func (m *mockPromptService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- テスト ---

func TestPromptHandler_List_ReturnsPrompts(t *testing.T) {
	svc := &mockPromptService{
		listFn: func(ctx context.Context, userID string) ([]*model.SavedPrompt, error) {
			return []*model.SavedPrompt{
				{
					ID:        "p-1",
					UserID:    userID,
					Text:      "夕暮れの港町",
					Metadata:  map[string]any{"style": "watercolor"},
					CreatedAt: time.Now(),
					UpdatedAt: time.Now(),
				},
			}, nil
		},
	}
	h := NewPromptHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ListPrompts(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body listPromptsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Prompts) != 1 {
		t.Fatalf("prompts count = %d, want 1", len(body.Prompts))
	}
	if body.Prompts[0].Text != "夕暮れの港町" {
		t.Errorf("text = %q, want 夕暮れの港町", body.Prompts[0].Text)
	}
}

func TestPromptHandler_List_Unauthenticated_ReturnsUnauthorized(t *testing.T) {
	h := NewPromptHandler(&mockPromptService{})

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	w := httptest.NewRecorder()

	h.ListPrompts(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestPromptHandler_Save_ReturnsID(t *testing.T) {
	var gotText string
	svc := &mockPromptService{
		saveFn: func(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
			gotText = text
			return "p-99", nil
		},
	}
	h := NewPromptHandler(svc)

	reqBody := `{"text":"雪原を走る列車","metadata":{"style":"oil"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader(reqBody))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.SavePrompt(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var body savePromptResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.ID != "p-99" {
		t.Errorf("id = %q, want p-99", body.ID)
	}
	if gotText != "雪原を走る列車" {
		t.Errorf("text = %q, want 雪原を走る列車", gotText)
	}
}

func TestPromptHandler_Save_EmptyText_ReturnsBadRequest(t *testing.T) {
	svc := &mockPromptService{
		saveFn: func(ctx context.Context, userID, text string, metadata map[string]any) (string, error) {
			return "", model.NewValidationError("text", "プロンプト本文は必須です")
		},
	}
	h := NewPromptHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader(`{"text":""}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.SavePrompt(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestPromptHandler_Save_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewPromptHandler(&mockPromptService{})

	req := httptest.NewRequest(http.MethodPost, "/api/prompts", strings.NewReader("not-json"))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.SavePrompt(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestPromptHandler_Delete_ReturnsNoContent(t *testing.T) {
	var deletedID string
	svc := &mockPromptService{
		deleteFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	h := NewPromptHandler(svc)

	r := chi.NewRouter()
	r.Delete("/api/prompts/{id}", h.DeletePrompt)

	req := httptest.NewRequest(http.MethodDelete, "/api/prompts/p-7", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
	if deletedID != "p-7" {
		t.Errorf("deleted id = %q, want p-7", deletedID)
	}
}

func TestPromptHandler_Delete_StorageError_ReturnsInternalError(t *testing.T) {
	svc := &mockPromptService{
		deleteFn: func(ctx context.Context, id string) error {
			return model.NewStorageError("delete_prompt", context.DeadlineExceeded)
		},
	}
	h := NewPromptHandler(svc)

	r := chi.NewRouter()
	r.Delete("/api/prompts/{id}", h.DeletePrompt)

	req := httptest.NewRequest(http.MethodDelete, "/api/prompts/p-7", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
