package providers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/providers/gemini"
)

func TestNewProviderClient(t *testing.T) {
	b, err := NewProviderClient(config.ModelConfig{Provider: "gemini", Model: "gemini-2.0-flash", APIKey: "k"}, http.DefaultClient, nil)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, b)
	_, streams := b.(core.StreamingBoundary)
	assert.True(t, streams)

	_, err = NewProviderClient(config.ModelConfig{Provider: "gemini", Model: "gemini-2.0-flash"}, nil, nil)
	require.ErrorIs(t, err, moderr.ErrMissingAPIKey)

	_, err = NewProviderClient(config.ModelConfig{Provider: "genai", Model: "gemini-2.0-flash"}, nil, nil)
	require.ErrorIs(t, err, moderr.ErrMissingAPIKey)

	_, err = NewProviderClient(config.ModelConfig{Provider: "openai", Model: "gpt-4o", APIKey: "k"}, nil, nil)
	require.ErrorIs(t, err, moderr.ErrUnknownProvider)
}
