package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssato/atelier/internal/metrics"
	"github.com/ssato/atelier/internal/model"
)

// --- モック定義 ---

type mockGenerateService struct {
	coloringBookFn func(ctx context.Context, imageURL string) (string, error)
	promptFn       func(ctx context.Context, theme string) (string, error)
	transcribeFn   func(ctx context.Context) (string, error)
}

func (m *mockGenerateService) ColoringBook(ctx context.Context, imageURL string) (string, error) {
	if m.coloringBookFn != nil {
		return m.coloringBookFn(ctx, imageURL)
	}
	return "", nil
}

func (m *mockGenerateService) Prompt(ctx context.Context, theme string) (string, error) {
	if m.promptFn != nil {
		return m.promptFn(ctx, theme)
	}
	return "", nil
}

func (m *mockGenerateService) Transcribe(ctx context.Context) (string, error) {
	if m.transcribeFn != nil {
		return m.transcribeFn(ctx)
	}
	return "", &model.ServiceDisabledError{Service: "transcription"}
}

// --- テスト ---

func TestGenerateHandler_ColoringBook_ReturnsOutputURL(t *testing.T) {
	svc := &mockGenerateService{
		coloringBookFn: func(ctx context.Context, imageURL string) (string, error) {
			if imageURL != "https://cdn.example.com/photo.png" {
				t.Errorf("imageURL = %q", imageURL)
			}
			return "https://replicate.delivery/out.png", nil
		},
	}
	h := NewGenerateHandler(svc, nil)

	reqBody := `{"imageUrl":"https://cdn.example.com/photo.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book", strings.NewReader(reqBody))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body coloringBookResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.OutputURL != "https://replicate.delivery/out.png" {
		t.Errorf("outputUrl = %q", body.OutputURL)
	}
}

func TestGenerateHandler_ColoringBook_Disabled_ReturnsServiceUnavailable(t *testing.T) {
	svc := &mockGenerateService{
		coloringBookFn: func(ctx context.Context, imageURL string) (string, error) {
			return "", &model.ServiceDisabledError{Service: "replicate"}
		},
	}
	h := NewGenerateHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book",
		strings.NewReader(`{"imageUrl":"https://cdn.example.com/a.png"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	var body apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != model.ErrCodeServiceDisabled {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeServiceDisabled)
	}
}

func TestGenerateHandler_ColoringBook_UpstreamError_ReturnsRawMessage(t *testing.T) {
	svc := &mockGenerateService{
		coloringBookFn: func(ctx context.Context, imageURL string) (string, error) {
			return "", &model.UpstreamServiceError{
				Service: "replicate",
				Err:     errors.New("NSFW content detected"),
			}
		},
	}
	h := NewGenerateHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book",
		strings.NewReader(`{"imageUrl":"https://cdn.example.com/a.png"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&body)
	// 外部APIの生メッセージが含まれること
	if !strings.Contains(body.Message, "NSFW content detected") {
		t.Errorf("message = %q, should contain raw upstream error", body.Message)
	}
}

func TestGenerateHandler_ColoringBook_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewGenerateHandler(&mockGenerateService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book", strings.NewReader("{"))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestGenerateHandler_GeneratePrompt_ReturnsPrompt(t *testing.T) {
	svc := &mockGenerateService{
		promptFn: func(ctx context.Context, theme string) (string, error) {
			if theme != "宇宙" {
				t.Errorf("theme = %q, want 宇宙", theme)
			}
			return "星雲の中を漂う古代の宇宙船", nil
		},
	}
	h := NewGenerateHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/prompt",
		strings.NewReader(`{"theme":"宇宙"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GeneratePrompt(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body generatePromptResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Prompt != "星雲の中を漂う古代の宇宙船" {
		t.Errorf("prompt = %q", body.Prompt)
	}
}

func TestGenerateHandler_GeneratePrompt_Disabled_ReturnsServiceUnavailable(t *testing.T) {
	svc := &mockGenerateService{
		promptFn: func(ctx context.Context, theme string) (string, error) {
			return "", &model.ServiceDisabledError{Service: "anthropic"}
		},
	}
	h := NewGenerateHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/prompt", strings.NewReader(`{}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.GeneratePrompt(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusServiceUnavailable)
	}
}

func TestGenerateHandler_Transcribe_AlwaysServiceUnavailable(t *testing.T) {
	h := NewGenerateHandler(&mockGenerateService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Transcribe(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	var body apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != model.ErrCodeServiceDisabled {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeServiceDisabled)
	}
}

func TestGenerateHandler_Unauthenticated_ReturnsUnauthorized(t *testing.T) {
	h := NewGenerateHandler(&mockGenerateService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book",
		strings.NewReader(`{"imageUrl":"https://cdn.example.com/a.png"}`))
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGenerateHandler_ColoringBook_RecordsSuccessMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	svc := &mockGenerateService{
		coloringBookFn: func(ctx context.Context, imageURL string) (string, error) {
			return "https://replicate.delivery/out.png", nil
		},
	}
	h := NewGenerateHandler(svc, collector)

	req := httptest.NewRequest(http.MethodPost, "/api/generate/coloring-book",
		strings.NewReader(`{"imageUrl":"https://cdn.example.com/a.png"}`))
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.ColoringBook(w, req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "atelier_generation_success_total" {
			found = true
			if v := mf.GetMetric()[0].GetCounter().GetValue(); v != 1 {
				t.Errorf("generation_success_total = %v, want 1", v)
			}
		}
	}
	if !found {
		t.Error("atelier_generation_success_total metric not found")
	}
}
