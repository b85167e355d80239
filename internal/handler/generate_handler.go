package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ssato/atelier/internal/metrics"
	"github.com/ssato/atelier/internal/middleware"
	"github.com/ssato/atelier/internal/model"
)

// GenerateServiceInterface は生成ハンドラーが必要とするサービスインターフェース。
type GenerateServiceInterface interface {
	// ColoringBook は入力画像を塗り絵化し、出力画像のURLを返す。
	ColoringBook(ctx context.Context, imageURL string) (string, error)
	// Prompt はテーマから画像生成用プロンプトを生成する。
	Prompt(ctx context.Context, theme string) (string, error)
	// Transcribe は音声文字起こしを実行する。現在は常に無効。
	Transcribe(ctx context.Context) (string, error)
}

// GenerateHandler はAI生成系のHTTPハンドラー。
type GenerateHandler struct {
	service GenerateServiceInterface
	metrics metrics.MetricsCollector
}

// NewGenerateHandler はGenerateHandlerを生成する。
// collectorはnil可（メトリクスを記録しない）。
func NewGenerateHandler(service GenerateServiceInterface, collector metrics.MetricsCollector) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		metrics: collector,
	}
}

// coloringBookRequest は塗り絵変換リクエストのボディ。
type coloringBookRequest struct {
	ImageURL string `json:"imageUrl"`
}

// coloringBookResponse は塗り絵変換のAPIレスポンス。
type coloringBookResponse struct {
	OutputURL string `json:"outputUrl"`
}

// generatePromptRequest はプロンプト生成リクエストのボディ。
type generatePromptRequest struct {
	Theme string `json:"theme"`
}

// generatePromptResponse はプロンプト生成のAPIレスポンス。
type generatePromptResponse struct {
	Prompt string `json:"prompt"`
}

// ColoringBook は画像の塗り絵変換を実行する。
// POST /api/generate/coloring-book
func (h *GenerateHandler) ColoringBook(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req coloringBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	outputURL, err := h.service.ColoringBook(r.Context(), req.ImageURL)
	if err != nil {
		h.recordFailure(string(model.CreationKindColoringBook), err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordGenerationSuccess(string(model.CreationKindColoringBook))
	}
	writeJSON(w, http.StatusOK, coloringBookResponse{OutputURL: outputURL})
}

// GeneratePrompt はテーマから画像生成用プロンプトを生成する。
// POST /api/generate/prompt
func (h *GenerateHandler) GeneratePrompt(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req generatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	prompt, err := h.service.Prompt(r.Context(), req.Theme)
	if err != nil {
		h.recordFailure("prompt", err)
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordGenerationSuccess("prompt")
	}
	writeJSON(w, http.StatusOK, generatePromptResponse{Prompt: prompt})
}

// Transcribe は音声文字起こしを実行する。
// POST /api/transcribe
//
// 文字起こし基盤は未提供のため、常にサービス無効で応答する。
func (h *GenerateHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if _, err := h.service.Transcribe(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	// Transcribeが成功を返すことは現状ない
	w.WriteHeader(http.StatusOK)
}

// recordFailure は生成失敗をエラー種別ごとの理由ラベル付きで記録する。
func (h *GenerateHandler) recordFailure(kind string, err error) {
	if h.metrics == nil {
		return
	}

	reason := "internal"
	var valErr *model.ValidationError
	var upErr *model.UpstreamServiceError
	var disabledErr *model.ServiceDisabledError
	switch {
	case errors.As(err, &valErr):
		reason = "validation"
	case errors.As(err, &upErr):
		reason = "upstream"
	case errors.As(err, &disabledErr):
		reason = "disabled"
	}
	h.metrics.RecordGenerationFailure(kind, reason)
}
