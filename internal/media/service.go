// Package media は外部画像の安全な取得を提供する。
// ダウンロードプロキシと生成結果画像の取り込みを含む。
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ssato/atelier/internal/model"
	"github.com/ssato/atelier/internal/security"
)

// Download はプロキシ経由で取得した画像を表す。
// Bodyは呼び出し側がCloseすること。
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
}

// Service は外部URLからの画像取得を提供する。
// 全てのリクエストはSSRF防止付きクライアントを経由する。
type Service struct {
	guard   security.SSRFGuardService
	client  *http.Client
	logger  *slog.Logger
	maxSize int64
}

// NewService はServiceを生成する。
// timeoutは外部取得全体の上限、maxSizeはレスポンスボディの最大バイト数。
func NewService(guard security.SSRFGuardService, timeout time.Duration, maxSize int64, logger *slog.Logger) *Service {
	return &Service{
		guard:   guard,
		client:  guard.NewSafeClient(timeout, maxSize),
		logger:  logger,
		maxSize: maxSize,
	}
}

// Fetch は指定URLの画像を取得する。
// URLが空・不正・http/https以外・内部ネットワーク宛の場合はValidationError、
// 取得失敗はUpstreamServiceErrorになる。
func (s *Service) Fetch(ctx context.Context, rawURL, filename string) (*Download, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, model.NewValidationError("url", "画像URLは必須です")
	}

	if err := s.guard.ValidateURL(rawURL); err != nil {
		return nil, model.NewValidationError("url", "許可されていないURLです: "+err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewValidationError("url", "URLの形式が不正です")
	}
	req.Header.Set("User-Agent", "Atelier/1.0 Media Proxy")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("media fetch failed",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, &model.UpstreamServiceError{Service: "media", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		s.logger.Error("media fetch returned non-OK status",
			slog.String("url", rawURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &model.UpstreamServiceError{
			Service: "media",
			Err:     fmt.Errorf("取得先がステータス %d を返しました", resp.StatusCode),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if filename == "" {
		filename = "download"
	}

	return &Download{
		// 上限超過の読み取りを防ぐ
		Body:          newLimitedReadCloser(resp.Body, s.maxSize),
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
		Filename:      filename,
	}, nil
}

// limitedReadCloser はio.LimitReaderにCloseを付けたもの。
type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func newLimitedReadCloser(rc io.ReadCloser, limit int64) io.ReadCloser {
	return &limitedReadCloser{
		Reader: io.LimitReader(rc, limit),
		closer: rc,
	}
}

// Close は元のボディをクローズする。
func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}
