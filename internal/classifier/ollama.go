package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2:3b"
)

// Ollama classifies transactions through a local Ollama server's chat API.
type Ollama struct {
	client *api.Client
	model  string
	log    zerolog.Logger
}

// NewOllama creates an Ollama classifier. A nil client uses http.DefaultClient.
func NewOllama(host, model string, client *http.Client, log zerolog.Logger) (*Ollama, error) {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if client == nil {
		client = http.DefaultClient
	}

	base, err := url.Parse(strings.TrimRight(host, "/"))
	if err != nil {
		return nil, fmt.Errorf("NewOllama: parse host %q: %w", host, err)
	}

	return &Ollama{
		client: api.NewClient(base, client),
		model:  model,
		log:    log,
	}, nil
}

// Name implements Classifier.
func (o *Ollama) Name() string {
	return "ollama:" + o.model
}

// CategorizeBatch implements Classifier.
func (o *Ollama) CategorizeBatch(ctx context.Context, inputs []Input) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	prompt, err := userPrompt(inputs)
	if err != nil {
		return nil, err
	}

	stream := false
	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: prompt},
		},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.1,
			"num_predict": 4096,
		},
	}

	o.log.Debug().Int("count", len(inputs)).Str("model", o.model).Msg("Sending transactions to Ollama")

	var content strings.Builder
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama.CategorizeBatch: chat: %w", err)
	}

	results, err := parseResults(content.String(), inputs)
	if err != nil {
		return nil, fmt.Errorf("Ollama.CategorizeBatch: %w", err)
	}
	return results, nil
}

var _ Classifier = (*Ollama)(nil)
