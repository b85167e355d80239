package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ssato/atelier/internal/model"
)

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
//
// 変換規則:
//
//	ValidationError      → 400
//	ServiceDisabledError → 503
//	UpstreamServiceError → 500（外部APIの生メッセージを含める）
//	StorageError         → 500
//	APIError             → コードに応じたステータス
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var valErr *model.ValidationError
	if errors.As(err, &valErr) {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "VALIDATION_FAILED",
			Message:  "入力値が不正です（" + valErr.Field + "）: " + valErr.Reason,
			Category: "validation",
			Action:   "リクエスト内容を確認してください。",
		})
		return
	}

	var disabledErr *model.ServiceDisabledError
	if errors.As(err, &disabledErr) {
		writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewServiceDisabledError(disabledErr.Service))
		return
	}

	var upErr *model.UpstreamServiceError
	if errors.As(err, &upErr) {
		slog.Error("upstream service error",
			slog.String("service", upErr.Service),
			slog.String("error", upErr.Err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewUpstreamFailedError(upErr.Service, upErr.Err.Error()))
		return
	}

	var stErr *model.StorageError
	if errors.As(err, &stErr) {
		slog.Error("storage error",
			slog.String("op", stErr.Op),
			slog.String("error", stErr.Err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewStorageFailedError())
		return
	}

	// 型付けされていないエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeMissingField, model.ErrCodeInvalidKind, model.ErrCodeInvalidURL:
		return http.StatusBadRequest
	case model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeServiceDisabled:
		return http.StatusServiceUnavailable
	case model.ErrCodeStorageFailed, model.ErrCodeUpstreamFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
