package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultDeepSeekURL   = "https://api.deepseek.com/chat/completions"
	defaultDeepSeekModel = "deepseek-chat"

	// DeepSeek rejects prompts that trip its moderation with this message.
	deepSeekRiskMessage = "Content Exists Risk"
)

type DeepSeekAdvisor struct {
	apiKey    string
	model     string
	client    *http.Client
	baseURL   string
	maxTokens int
}

func NewDeepSeekAdvisor(apiKey, model, baseURL string, timeout time.Duration, maxTokens int) *DeepSeekAdvisor {
	if model == "" {
		model = defaultDeepSeekModel
	}
	if baseURL == "" {
		baseURL = defaultDeepSeekURL
	}
	return &DeepSeekAdvisor{
		apiKey:    apiKey,
		model:     model,
		client:    &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		maxTokens: maxTokens,
	}
}

func (d *DeepSeekAdvisor) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody := deepSeekRequest{
		Model: d.model,
		Messages: []deepSeekMessage{{
			Role:    "user",
			Content: prompt,
		}},
		MaxTokens:   d.maxTokens,
		Temperature: 0.2,
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return "", providerError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", providerError(err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", d.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", providerError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr deepSeekErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			if resp.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Error.Message, deepSeekRiskMessage) {
				return "", &AdvisoryError{Kind: KindBlockedPrompt, Detail: apiErr.Error.Message}
			}
			return "", providerError(fmt.Errorf("deepseek api error: %s", apiErr.Error.Message))
		}
		return "", providerError(fmt.Errorf("deepseek api returned status %d", resp.StatusCode))
	}

	var apiResp deepSeekResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", providerError(err)
	}
	if len(apiResp.Choices) == 0 {
		return "", providerError(errors.New("deepseek api returned empty response"))
	}
	choice := apiResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", &AdvisoryError{Kind: KindBlockedResponse, Detail: choice.FinishReason}
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", providerError(errors.New("deepseek api returned an empty answer"))
	}
	return content, nil
}

type deepSeekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepSeekRequest struct {
	Model       string            `json:"model"`
	Messages    []deepSeekMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

type deepSeekResponse struct {
	Choices []struct {
		Message      deepSeekMessage `json:"message"`
		FinishReason string          `json:"finish_reason"`
	} `json:"choices"`
}

type deepSeekErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
