package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client 封装 Chapa 支付网关的发起与核验接口
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.chapa.co/v1"
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// InitializeRequest 发起支付所需的全部参数
type InitializeRequest struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url,omitempty"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Customization map[string]string `json:"customization,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// Initialize 发起一笔支付，成功时返回收银台跳转地址
func (c *Client) Initialize(ctx context.Context, req *InitializeRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return "", err
	}

	var result initializeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "success" {
		return "", fmt.Errorf("chapa initialize failed: %s", result.Message)
	}
	if result.Data.CheckoutURL == "" {
		return "", fmt.Errorf("chapa returned empty checkout url")
	}

	return result.Data.CheckoutURL, nil
}

// VerifyResult 核验结果
type VerifyResult struct {
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	TxRef    string `json:"tx_ref"`
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status   string      `json:"status"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
		TxRef    string      `json:"tx_ref"`
	} `json:"data"`
}

// Verify 按流水号核验支付结果，只有 success 才算支付完成
func (c *Client) Verify(ctx context.Context, txRef string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, txRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result verifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("chapa verify failed: %s", result.Message)
	}

	return &VerifyResult{
		Status:   result.Data.Status,
		Amount:   result.Data.Amount.String(),
		Currency: result.Data.Currency,
		TxRef:    result.Data.TxRef,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
