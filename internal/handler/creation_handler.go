package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssato/atelier/internal/creation"
	"github.com/ssato/atelier/internal/metrics"
	"github.com/ssato/atelier/internal/middleware"
	"github.com/ssato/atelier/internal/model"
)

// CreationServiceInterface は生成物ハンドラーが必要とするサービスインターフェース。
type CreationServiceInterface interface {
	// List は指定ユーザーの生成物を挿入順で返す。kindが空の場合は全種別。
	List(ctx context.Context, userID string, kind model.CreationKind) ([]*model.Creation, error)
	// Save は複数の生成物を順に保存し、保存できたIDを返す（部分成功あり）。
	Save(ctx context.Context, userID string, inputs []creation.Input) ([]string, error)
	// Delete は指定IDの生成物を削除する。存在しないIDでもエラーにしない。
	Delete(ctx context.Context, id string) error
}

// CreationHandler は生成物管理のHTTPハンドラー。
type CreationHandler struct {
	service CreationServiceInterface
	metrics metrics.MetricsCollector
}

// NewCreationHandler はCreationHandlerを生成する。
// collectorはnil可（メトリクスを記録しない）。
func NewCreationHandler(service CreationServiceInterface, collector metrics.MetricsCollector) *CreationHandler {
	return &CreationHandler{
		service: service,
		metrics: collector,
	}
}

// creationInput は保存リクエスト1件分の生成物。
type creationInput struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Prompt           string         `json:"prompt"`
	ImageURL         *string        `json:"imageUrl"`
	ModelURL         *string        `json:"modelUrl"`
	ProcessedURL     *string        `json:"processedImageUrl"`
	SourceCreationID *string        `json:"sourceCreationId"`
	AspectRatio      *string        `json:"aspectRatio"`
	ModelName        *string        `json:"model"`
	Metadata         map[string]any `json:"metadata"`
}

// saveCreationsRequest は生成物保存リクエストのボディ。
type saveCreationsRequest struct {
	Creations []creationInput `json:"creations"`
}

// saveCreationsResponse は生成物保存のAPIレスポンス。
type saveCreationsResponse struct {
	SavedIDs []string `json:"savedIds"`
}

// saveCreationsPartialResponse は部分成功時のAPIレスポンス。
// エラー情報に加えて、失敗までに保存できたIDを返す。
type saveCreationsPartialResponse struct {
	apiErrorResponse
	SavedIDs []string `json:"savedIds"`
}

// creationResponse は生成物1件のAPIレスポンス。
type creationResponse struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	Prompt           string         `json:"prompt"`
	ImageURL         *string        `json:"imageUrl"`
	ModelURL         *string        `json:"modelUrl"`
	ProcessedURL     *string        `json:"processedImageUrl"`
	SourceCreationID *string        `json:"sourceCreationId"`
	AspectRatio      *string        `json:"aspectRatio"`
	ModelName        *string        `json:"model"`
	Metadata         map[string]any `json:"metadata"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// listCreationsResponse は生成物一覧のAPIレスポンス。
type listCreationsResponse struct {
	Creations []creationResponse `json:"creations"`
}

// ListCreations はログインユーザーの生成物一覧を返す。
// GET /api/creations?type=xxx
func (h *CreationHandler) ListCreations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	kind := model.CreationKind(r.URL.Query().Get("type"))
	if kind != "" && !kind.IsValid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidKindError(string(kind)))
		return
	}

	creations, err := h.service.List(r.Context(), userID, kind)
	if err != nil {
		h.recordStorageFailure(err)
		handleServiceError(w, err)
		return
	}

	resp := listCreationsResponse{Creations: make([]creationResponse, len(creations))}
	for i, c := range creations {
		resp.Creations[i] = toCreationResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveCreations は生成物を一括保存する。
// POST /api/creations
//
// 途中で保存に失敗した場合も、それまでに保存できたIDをレスポンスに含めて返す。
func (h *CreationHandler) SaveCreations(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req saveCreationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if len(req.Creations) == 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("creations"))
		return
	}

	inputs := make([]creation.Input, len(req.Creations))
	for i, in := range req.Creations {
		inputs[i] = creation.Input{
			ID:               in.ID,
			Kind:             model.CreationKind(in.Type),
			Prompt:           in.Prompt,
			ImageURL:         in.ImageURL,
			ModelURL:         in.ModelURL,
			ProcessedURL:     in.ProcessedURL,
			SourceCreationID: in.SourceCreationID,
			AspectRatio:      in.AspectRatio,
			ModelName:        in.ModelName,
			Metadata:         in.Metadata,
		}
	}

	savedIDs, err := h.service.Save(r.Context(), userID, inputs)
	if h.metrics != nil && len(savedIDs) > 0 {
		h.metrics.RecordCreationsSaved(len(savedIDs))
	}
	if err != nil {
		h.recordStorageFailure(err)

		// 部分成功: 保存済みIDをエラーレスポンスに含める
		var stErr *model.StorageError
		if errors.As(err, &stErr) && len(savedIDs) > 0 {
			apiErr := model.NewStorageFailedError()
			writeJSON(w, http.StatusInternalServerError, saveCreationsPartialResponse{
				apiErrorResponse: apiErrorResponse{
					Code:     apiErr.Code,
					Message:  apiErr.Message,
					Category: apiErr.Category,
					Action:   apiErr.Action,
				},
				SavedIDs: savedIDs,
			})
			return
		}

		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saveCreationsResponse{SavedIDs: savedIDs})
}

// DeleteCreation は生成物を削除する。
// DELETE /api/creations/{id}
func (h *CreationHandler) DeleteCreation(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.recordStorageFailure(err)
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recordStorageFailure はStorageErrorの場合のみ操作名付きで失敗を記録する。
func (h *CreationHandler) recordStorageFailure(err error) {
	if h.metrics == nil {
		return
	}
	var stErr *model.StorageError
	if errors.As(err, &stErr) {
		h.metrics.RecordStorageFailure(stErr.Op)
	}
}

// toCreationResponse はmodel.CreationからAPIレスポンスに変換する。
func toCreationResponse(c *model.Creation) creationResponse {
	return creationResponse{
		ID:               c.ID,
		Type:             string(c.Kind),
		Prompt:           c.Prompt,
		ImageURL:         c.ImageURL,
		ModelURL:         c.ModelURL,
		ProcessedURL:     c.ProcessedURL,
		SourceCreationID: c.SourceCreationID,
		AspectRatio:      c.AspectRatio,
		ModelName:        c.ModelName,
		Metadata:         c.Metadata,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
