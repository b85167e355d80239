package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssato/atelier/internal/middleware"
	"github.com/ssato/atelier/internal/model"
)

// PromptServiceInterface はプロンプトハンドラーが必要とするサービスインターフェース。
type PromptServiceInterface interface {
	// Save はプロンプトをサニタイズして保存し、採番したIDを返す。
	Save(ctx context.Context, userID, text string, metadata map[string]any) (string, error)
	// List は指定ユーザーの保存済みプロンプトを挿入順で返す。
	List(ctx context.Context, userID string) ([]*model.SavedPrompt, error)
	// Delete は指定IDのプロンプトを削除する。
	Delete(ctx context.Context, id string) error
}

// PromptHandler は保存済みプロンプト管理のHTTPハンドラー。
type PromptHandler struct {
	service PromptServiceInterface
}

// NewPromptHandler はPromptHandlerを生成する。
func NewPromptHandler(service PromptServiceInterface) *PromptHandler {
	return &PromptHandler{service: service}
}

// savePromptRequest はプロンプト保存リクエストのボディ。
type savePromptRequest struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// savePromptResponse はプロンプト保存のAPIレスポンス。
type savePromptResponse struct {
	ID string `json:"id"`
}

// promptResponse は保存済みプロンプト1件のAPIレスポンス。
type promptResponse struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// listPromptsResponse は保存済みプロンプト一覧のAPIレスポンス。
type listPromptsResponse struct {
	Prompts []promptResponse `json:"prompts"`
}

// ListPrompts はログインユーザーの保存済みプロンプト一覧を返す。
// GET /api/prompts
func (h *PromptHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	prompts, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listPromptsResponse{Prompts: make([]promptResponse, len(prompts))}
	for i, p := range prompts {
		resp.Prompts[i] = promptResponse{
			ID:        p.ID,
			Text:      p.Text,
			Metadata:  p.Metadata,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SavePrompt はプロンプトを保存する。
// POST /api/prompts
func (h *PromptHandler) SavePrompt(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req savePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	id, err := h.service.Save(r.Context(), userID, req.Text, req.Metadata)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, savePromptResponse{ID: id})
}

// DeletePrompt は保存済みプロンプトを削除する。
// DELETE /api/prompts/{id}
func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
