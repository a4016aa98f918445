package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/providers/gemini"
	"github.com/lizzyg/toolflow/internal/providers/genai"
)

const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
)

// NewProviderClient builds the inference boundary for mc.Provider.
func NewProviderClient(mc config.ModelConfig, hc *http.Client, logger *slog.Logger) (core.Boundary, error) {
	switch mc.Provider {
	case ProviderGemini, "":
		if mc.APIKey == "" {
			return nil, fmt.Errorf("%w: model %s", moderr.ErrMissingAPIKey, mc.Model)
		}
		return gemini.New(mc, hc, logger), nil
	case ProviderGenAI:
		return genai.New(context.Background(), mc, logger)
	default:
		return nil, fmt.Errorf("%w: %q", moderr.ErrUnknownProvider, mc.Provider)
	}
}
