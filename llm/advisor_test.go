package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFailsClosedWithoutKey(t *testing.T) {
	for _, key := range []string{"", "   ", `""`, `''`} {
		advisor, err := New(context.Background(), Config{Provider: ProviderGemini, APIKey: key})
		assert.Nil(t, advisor)
		require.Error(t, err)

		advErr, ok := AsAdvisoryError(err)
		require.True(t, ok)
		assert.Equal(t, KindNotConfigured, advErr.Kind)
	}
}

func TestNewProviders(t *testing.T) {
	advisor, err := New(context.Background(), Config{Provider: "DeepSeek", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &DeepSeekAdvisor{}, advisor)

	_, err = New(context.Background(), Config{Provider: "mystery", APIKey: "k"})
	assert.ErrorContains(t, err, "unsupported advisory provider")
}

func TestCleanAPIKey(t *testing.T) {
	assert.Equal(t, "abc", CleanAPIKey(` "abc" `))
	assert.Equal(t, "abc", CleanAPIKey(`'abc'`))
	assert.Equal(t, "", CleanAPIKey("  "))
}

func TestAdvisoryErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("ask: %w", providerError(cause))

	advErr, ok := AsAdvisoryError(err)
	require.True(t, ok)
	assert.Equal(t, KindProvider, advErr.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "provider_error: connection reset", advErr.Error())

	_, ok = AsAdvisoryError(cause)
	assert.False(t, ok)
}
