// Package replicate はReplicate APIのクライアントを提供する。
// 塗り絵変換モデルの同期実行に使用する。
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultEndpoint はReplicateのモデル実行APIのベースURL。
	defaultEndpoint = "https://api.replicate.com/v1"
	// defaultColoringModel は塗り絵変換に使用するデフォルトモデル。
	defaultColoringModel = "qr2ai/outline"
)

// Client はReplicate APIのクライアント。
// Prefer: waitヘッダーによる同期実行を使用し、ポーリングは行わない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	model      string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// tokenが空の場合もClientは生成されるが、Enabledがfalseを返す。
// modelが空の場合はデフォルトモデルを使用する。
func NewClient(httpClient *http.Client, token, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = defaultColoringModel
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		model:      model,
		endpoint:   defaultEndpoint,
	}
}

// Enabled はAPIトークンが設定されているかを返す。
func (c *Client) Enabled() bool {
	return c.token != ""
}

// predictionRequest はモデル実行リクエストのボディ。
type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionInput struct {
	Image string `json:"image"`
}

// predictionResponse はモデル実行レスポンスのボディ。
// Outputはモデルにより文字列または文字列配列で返る。
type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

// RunColoringBook は入力画像URLを塗り絵変換し、出力画像URLを返す。
// 同期実行のため、モデルの処理完了までブロックする。
func (c *Client) RunColoringBook(ctx context.Context, imageURL string) (string, error) {
	reqBody, err := json.Marshal(predictionRequest{
		Input: predictionInput{Image: imageURL},
	})
	if err != nil {
		return "", fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	// 同期モード: 処理完了までレスポンスを保留させる
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("replicate request failed",
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("replicate returned error status",
			slog.String("model", c.model),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("Replicate APIがステータス %d を返しました: %s", resp.StatusCode, string(body))
	}

	var prediction predictionResponse
	if err := json.Unmarshal(body, &prediction); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if prediction.Error != nil && *prediction.Error != "" {
		return "", fmt.Errorf("モデル実行が失敗しました: %s", *prediction.Error)
	}

	output, err := extractOutputURL(prediction.Output)
	if err != nil {
		return "", err
	}

	c.logger.Info("coloring book conversion completed",
		slog.String("model", c.model),
		slog.String("prediction_id", prediction.ID),
	)
	return output, nil
}

// extractOutputURL はoutputフィールドから出力URLを取り出す。
// モデルにより文字列単体と文字列配列の両方の形式がある。
func extractOutputURL(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("モデル出力が空です")
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0], nil
	}

	return "", fmt.Errorf("モデル出力の形式を解釈できません: %s", string(raw))
}
