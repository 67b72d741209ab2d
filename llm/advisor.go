package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderGemini   = "gemini"
	ProviderDeepSeek = "deepseek"
)

// Advisor generates free text for a prompt. Every error it returns is an
// *AdvisoryError.
type Advisor interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrorKind classifies advisory failures.
type ErrorKind int

const (
	// KindBlockedPrompt means the provider refused the prompt on safety grounds.
	KindBlockedPrompt ErrorKind = iota + 1
	// KindBlockedResponse means the provider withheld its answer on safety grounds.
	KindBlockedResponse
	// KindProvider covers transport failures and provider-side errors.
	KindProvider
	// KindNotConfigured means no credential was supplied.
	KindNotConfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindBlockedPrompt:
		return "blocked_prompt"
	case KindBlockedResponse:
		return "blocked_response"
	case KindProvider:
		return "provider_error"
	case KindNotConfigured:
		return "not_configured"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

type AdvisoryError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *AdvisoryError) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *AdvisoryError) Unwrap() error { return e.Err }

// ErrNotConfigured is returned by New when no API key is available.
var ErrNotConfigured = &AdvisoryError{Kind: KindNotConfigured, Detail: "advisory api key is not set"}

func providerError(err error) *AdvisoryError {
	return &AdvisoryError{Kind: KindProvider, Detail: err.Error(), Err: err}
}

// AsAdvisoryError unwraps err into an *AdvisoryError.
func AsAdvisoryError(err error) (*AdvisoryError, bool) {
	var advErr *AdvisoryError
	if errors.As(err, &advErr) {
		return advErr, true
	}
	return nil, false
}

type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// New builds the advisor for cfg.Provider. It fails closed with
// ErrNotConfigured when no API key is set.
func New(ctx context.Context, cfg Config) (Advisor, error) {
	key := CleanAPIKey(cfg.APIKey)
	if key == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		advisor, err := NewGeminiAdvisor(ctx, key, cfg.Model, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return advisor, nil
	case ProviderDeepSeek:
		return NewDeepSeekAdvisor(key, cfg.Model, cfg.BaseURL, cfg.Timeout, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported advisory provider %q", cfg.Provider)
	}
}

// CleanAPIKey strips whitespace and surrounding quotes that .env files often
// leave on secrets.
func CleanAPIKey(key string) string {
	return strings.Trim(strings.TrimSpace(key), `"'`)
}
