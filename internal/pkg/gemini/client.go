package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoAPIKey 未配置密钥时直接短路，调用方走正则兜底
var ErrNoAPIKey = errors.New("gemini api key not configured")

// Client 调用 Gemini generateContent 接口。
// 按 models 顺序逐个尝试，全部失败才返回错误。
type Client struct {
	apiKey     string
	models     []string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string, models []string) *Client {
	if len(models) == 0 {
		models = []string{"gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"}
	}
	return &Client{
		apiKey:  apiKey,
		models:  models,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL 测试用，指向本地 mock 服务
func NewClientWithBaseURL(apiKey string, models []string, baseURL string) *Client {
	c := NewClient(apiKey, models)
	c.baseURL = baseURL
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent 发送 prompt，返回首个候选的文本
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.generateWithModel(ctx, model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Printf("gemini: model %s failed: %v", model, err)
	}

	return "", fmt.Errorf("all gemini models failed: %w", lastErr)
}

func (c *Client) generateWithModel(ctx context.Context, model, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("gemini api error %d: %s", result.Error.Code, result.Error.Message)
		}
		return "", fmt.Errorf("gemini api returned status %d", resp.StatusCode)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
