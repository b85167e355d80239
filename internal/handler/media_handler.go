package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/ssato/atelier/internal/creation"
	"github.com/ssato/atelier/internal/media"
	"github.com/ssato/atelier/internal/metrics"
	"github.com/ssato/atelier/internal/middleware"
	"github.com/ssato/atelier/internal/model"
)

// MediaServiceInterface はメディアハンドラーが必要とするサービスインターフェース。
type MediaServiceInterface interface {
	// Fetch は外部URLの画像をSSRF防止付きで取得する。
	// 返されたDownload.Bodyは呼び出し側がCloseすること。
	Fetch(ctx context.Context, rawURL, filename string) (*media.Download, error)
}

// MediaHandler は外部画像のダウンロードプロキシと保存取り込みのHTTPハンドラー。
type MediaHandler struct {
	service  MediaServiceInterface
	creation CreationServiceInterface
	metrics  metrics.MetricsCollector
}

// NewMediaHandler はMediaHandlerを生成する。
// collectorはnil可（メトリクスを記録しない）。
func NewMediaHandler(service MediaServiceInterface, creationService CreationServiceInterface, collector metrics.MetricsCollector) *MediaHandler {
	return &MediaHandler{
		service:  service,
		creation: creationService,
		metrics:  collector,
	}
}

// saveImageRequest は画像保存リクエストのボディ。
type saveImageRequest struct {
	ImageURL string         `json:"imageUrl"`
	Prompt   string         `json:"prompt"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

// saveImageResponse は画像保存のAPIレスポンス。
type saveImageResponse struct {
	ID string `json:"id"`
}

// Download は外部画像を取得してそのままクライアントに転送する。
// GET /api/media/download?url=xxx&filename=yyy
//
// ブラウザのダウンロード保存を想定し、Content-Dispositionをattachmentにする。
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	rawURL := r.URL.Query().Get("url")
	filename := r.URL.Query().Get("filename")

	start := time.Now()
	dl, err := h.service.Fetch(r.Context(), rawURL, filename)
	if h.metrics != nil {
		h.metrics.RecordMediaFetchLatency(time.Since(start))
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordMediaFetchStatus(0)
		}
		handleServiceError(w, err)
		return
	}
	defer dl.Body.Close()

	if h.metrics != nil {
		h.metrics.RecordMediaFetchStatus(http.StatusOK)
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": dl.Filename,
	}))
	if dl.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.ContentLength, 10))
	}

	if _, err := io.Copy(w, dl.Body); err != nil {
		// ヘッダー送信後のため、ログのみ残して中断する
		slog.Warn("media download stream interrupted",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
	}
}

// SaveImage は生成済み画像のURLを検証付きで取り込み、生成物として記録する。
// POST /api/media/save
func (h *MediaHandler) SaveImage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req saveImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.ImageURL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("imageUrl"))
		return
	}

	kind := model.CreationKindGeneratedImage
	if req.Type != "" {
		kind = model.CreationKind(req.Type)
		if !kind.IsValid() {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidKindError(req.Type))
			return
		}
	}

	// 取り込み前にURLの到達性とSSRFガードを確認する
	dl, err := h.service.Fetch(r.Context(), req.ImageURL, "")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	dl.Body.Close()

	imageURL := req.ImageURL
	savedIDs, err := h.creation.Save(r.Context(), userID, []creation.Input{
		{
			Kind:     kind,
			Prompt:   req.Prompt,
			ImageURL: &imageURL,
			Metadata: req.Metadata,
		},
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCreationsSaved(len(savedIDs))
	}

	writeJSON(w, http.StatusCreated, saveImageResponse{ID: savedIDs[0]})
}
