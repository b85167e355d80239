package generate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ssato/atelier/internal/model"
)

// --- モック定義 ---

type mockColoring struct {
	enabled bool
	runFn   func(ctx context.Context, imageURL string) (string, error)
}

func (m *mockColoring) Enabled() bool { return m.enabled }

func (m *mockColoring) RunColoringBook(ctx context.Context, imageURL string) (string, error) {
	return m.runFn(ctx, imageURL)
}

type mockPrompter struct {
	enabled    bool
	generateFn func(ctx context.Context, theme string) (string, error)
}

func (m *mockPrompter) Enabled() bool { return m.enabled }

func (m *mockPrompter) GeneratePrompt(ctx context.Context, theme string) (string, error) {
	return m.generateFn(ctx, theme)
}

type stubGuard struct {
	validateErr error
}

func (g *stubGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *stubGuard) ValidateURL(rawURL string) error {
	return g.validateErr
}

// --- テスト ---

func TestColoringBook_Disabled(t *testing.T) {
	service := NewService(&mockColoring{enabled: false}, &mockPrompter{}, &stubGuard{})

	_, err := service.ColoringBook(context.Background(), "https://cdn.example.com/a.png")

	var dErr *model.ServiceDisabledError
	if !errors.As(err, &dErr) {
		t.Fatalf("ServiceDisabledErrorが返されるべき: %v", err)
	}
	if dErr.Service != "replicate" {
		t.Errorf("Service: got %s, want replicate", dErr.Service)
	}
}

func TestColoringBook_EmptyURL_ValidationError(t *testing.T) {
	coloring := &mockColoring{enabled: true}
	service := NewService(coloring, &mockPrompter{}, &stubGuard{})

	_, err := service.ColoringBook(context.Background(), "")

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestColoringBook_BlockedURL_ValidationError(t *testing.T) {
	coloring := &mockColoring{enabled: true}
	service := NewService(coloring, &mockPrompter{}, &stubGuard{validateErr: errors.New("blocked host: localhost")})

	_, err := service.ColoringBook(context.Background(), "http://localhost/a.png")

	var vErr *model.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("ValidationErrorが返されるべき: %v", err)
	}
}

func TestColoringBook_Success(t *testing.T) {
	coloring := &mockColoring{
		enabled: true,
		runFn: func(ctx context.Context, imageURL string) (string, error) {
			return "https://replicate.delivery/out.png", nil
		},
	}
	service := NewService(coloring, &mockPrompter{}, &stubGuard{})

	out, err := service.ColoringBook(context.Background(), "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if out != "https://replicate.delivery/out.png" {
		t.Errorf("出力URL: got %s", out)
	}
}

func TestColoringBook_UpstreamFailure(t *testing.T) {
	coloring := &mockColoring{
		enabled: true,
		runFn: func(ctx context.Context, imageURL string) (string, error) {
			return "", errors.New("model timed out")
		},
	}
	service := NewService(coloring, &mockPrompter{}, &stubGuard{})

	_, err := service.ColoringBook(context.Background(), "https://cdn.example.com/a.png")

	var uErr *model.UpstreamServiceError
	if !errors.As(err, &uErr) {
		t.Fatalf("UpstreamServiceErrorが返されるべき: %v", err)
	}
	if uErr.Service != "replicate" {
		t.Errorf("Service: got %s, want replicate", uErr.Service)
	}
}

func TestPrompt_Disabled(t *testing.T) {
	service := NewService(&mockColoring{}, &mockPrompter{enabled: false}, &stubGuard{})

	_, err := service.Prompt(context.Background(), "海")

	var dErr *model.ServiceDisabledError
	if !errors.As(err, &dErr) {
		t.Fatalf("ServiceDisabledErrorが返されるべき: %v", err)
	}
	if dErr.Service != "anthropic" {
		t.Errorf("Service: got %s, want anthropic", dErr.Service)
	}
}

func TestPrompt_Success(t *testing.T) {
	prompter := &mockPrompter{
		enabled: true,
		generateFn: func(ctx context.Context, theme string) (string, error) {
			return "A lighthouse at dusk, warm light", nil
		},
	}
	service := NewService(&mockColoring{}, prompter, &stubGuard{})

	got, err := service.Prompt(context.Background(), "灯台")
	if err != nil {
		t.Fatalf("エラーは返されないべき: %v", err)
	}
	if got != "A lighthouse at dusk, warm light" {
		t.Errorf("生成文: got %q", got)
	}
}

func TestPrompt_UpstreamFailure(t *testing.T) {
	prompter := &mockPrompter{
		enabled: true,
		generateFn: func(ctx context.Context, theme string) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	service := NewService(&mockColoring{}, prompter, &stubGuard{})

	_, err := service.Prompt(context.Background(), "灯台")

	var uErr *model.UpstreamServiceError
	if !errors.As(err, &uErr) {
		t.Fatalf("UpstreamServiceErrorが返されるべき: %v", err)
	}
}

func TestTranscribe_AlwaysDisabled(t *testing.T) {
	service := NewService(&mockColoring{enabled: true}, &mockPrompter{enabled: true}, &stubGuard{})

	_, err := service.Transcribe(context.Background())

	var dErr *model.ServiceDisabledError
	if !errors.As(err, &dErr) {
		t.Fatalf("ServiceDisabledErrorが返されるべき: %v", err)
	}
	if dErr.Service != "transcription" {
		t.Errorf("Service: got %s, want transcription", dErr.Service)
	}
}
