package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func answer(text string, reason genai.FinishReason) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: reason,
		}},
	}
}

func TestClassifyGeminiResponse(t *testing.T) {
	text, err := classifyGeminiResponse(answer("Irrigate at crown root initiation.", genai.FinishReasonStop))
	require.NoError(t, err)
	assert.Equal(t, "Irrigate at crown root initiation.", text)
}

func TestClassifyGeminiResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		kind ErrorKind
	}{
		{"nil response", nil, KindProvider},
		{"no candidates", &genai.GenerateContentResponse{}, KindProvider},
		{"empty text", answer("  ", genai.FinishReasonStop), KindProvider},
		{
			"blocked prompt",
			&genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			},
			KindBlockedPrompt,
		},
		{"safety stop", answer("", genai.FinishReasonSafety), KindBlockedResponse},
		{"prohibited", answer("partial", genai.FinishReasonProhibitedContent), KindBlockedResponse},
		{"blocklist", answer("", genai.FinishReasonBlocklist), KindBlockedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := classifyGeminiResponse(tt.resp)
			advErr, ok := AsAdvisoryError(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, advErr.Kind)
		})
	}
}

func TestClassifyGeminiIgnoresUnspecifiedBlockReason(t *testing.T) {
	resp := answer("ok", genai.FinishReasonStop)
	resp.PromptFeedback = &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonUnspecified}

	text, err := classifyGeminiResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
