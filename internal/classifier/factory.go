package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nweremizu/helm/internal/config"
)

// NewFromConfig builds the classifier selected by cfg.Provider.
// It is called once at startup and the result injected where needed.
func NewFromConfig(ctx context.Context, cfg config.AIConfig, log zerolog.Logger) (Classifier, error) {
	log = log.With().Str("component", "classifier").Logger()

	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return NewOllama(cfg.OllamaHost, cfg.OllamaModel, &http.Client{Timeout: cfg.Timeout}, log)
	case "gemini":
		return NewGemini(ctx, cfg.GeminiModel, log)
	default:
		return nil, fmt.Errorf("NewFromConfig: unknown AI provider %q", cfg.Provider)
	}
}
