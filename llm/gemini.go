package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-pro"

// GeminiAdvisor answers prompts with Google's Gemini API.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
}

func NewGeminiAdvisor(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiAdvisor, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = defaultGeminiModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiAdvisor{client: client, model: model}, nil
}

func (g *GeminiAdvisor) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", providerError(err)
	}
	return classifyGeminiResponse(resp)
}

// classifyGeminiResponse extracts the answer text or reports why there is none.
func classifyGeminiResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", providerError(errors.New("gemini returned no response"))
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", &AdvisoryError{Kind: KindBlockedPrompt, Detail: string(fb.BlockReason)}
	}
	if len(resp.Candidates) == 0 {
		return "", providerError(errors.New("gemini returned no candidates"))
	}

	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist,
		genai.FinishReasonSPII:
		return "", &AdvisoryError{Kind: KindBlockedResponse, Detail: string(reason)}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", providerError(errors.New("gemini returned an empty answer"))
	}
	return text, nil
}
