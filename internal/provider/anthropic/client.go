// Package anthropic はAnthropic Messages APIのクライアントを提供する。
// 画像生成用プロンプトの下書き生成に使用する。
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// defaultEndpoint はMessages APIのエンドポイント。
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	// defaultModel はプロンプト生成に使用するデフォルトモデル。
	defaultModel = "claude-3-5-haiku-latest"
	// apiVersion はAPIバージョンヘッダーの値。
	apiVersion = "2023-06-01"
	// maxTokens は生成するプロンプトの最大トークン数。
	maxTokens = 300
)

// systemPrompt はプロンプト生成時のシステム指示。
const systemPrompt = "あなたはAI画像生成のプロンプト作成を手伝うアシスタントです。" +
	"視覚的に具体的で、構図・光・画風の指定を含む1つの英語プロンプトだけを返してください。" +
	"説明や前置きは不要です。"

// Client はAnthropic Messages APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	model      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// apiKeyが空の場合もClientは生成されるが、Enabledがfalseを返す。
// modelが空の場合はデフォルトモデルを使用する。
func NewClient(httpClient *http.Client, apiKey, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		model:      model,
		endpoint:   defaultEndpoint,
	}
}

// Enabled はAPIキーが設定されているかを返す。
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// messagesRequest はMessages APIのリクエストボディ。
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse はMessages APIのレスポンスボディ。
type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// GeneratePrompt はテーマを受け取り、画像生成用のプロンプト文を生成する。
// themeが空の場合は自由なテーマで生成する。
func (c *Client) GeneratePrompt(ctx context.Context, theme string) (string, error) {
	userContent := "画像生成用のプロンプトを1つ作成してください。"
	if strings.TrimSpace(theme) != "" {
		userContent = fmt.Sprintf("「%s」をテーマに、画像生成用のプロンプトを1つ作成してください。", theme)
	}

	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: userContent}},
	})
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("anthropic request failed",
			slog.String("model", c.model),
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("anthropic returned error status",
			slog.String("model", c.model),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("Anthropic APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	for _, block := range msgResp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}

	return "", fmt.Errorf("レスポンスにテキストが含まれていません")
}
