package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"recipe-discovery/internal/infrastructure/config"
	"recipe-discovery/internal/pkg/common"
)

// ErrEmptyCompletion 模型沒有回傳任何內容
var ErrEmptyCompletion = errors.New("no choices in OpenRouter response")

// OpenRouterClient OpenRouter chat/completions 客戶端
type OpenRouterClient struct {
	client      *resty.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenRouterClient 創建 OpenRouter 客戶端
func NewOpenRouterClient(cfg config.OpenRouterConfig) *OpenRouterClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("HTTP-Referer", "https://recipe-discovery.local").
		SetHeader("X-Title", "Recipe Discovery").
		SetTimeout(cfg.Timeout)

	return &OpenRouterClient{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Complete 送出單一 user prompt，回傳第一個 choice 的內容
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "user", Content: strings.TrimSpace(prompt)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API returned error: status=%d body=%s", resp.StatusCode(), resp.String())
	}

	var result Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	common.LogDebug("OpenRouter 用量",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	return result.Choices[0].Message.Content, nil
}
