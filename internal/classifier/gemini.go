package classifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the Gemini model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of *genai.Models used by Gemini.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies transactions with a Gemini model.
type Gemini struct {
	models contentGenerator
	model  string
	log    zerolog.Logger
}

// NewGemini creates a Gemini classifier. Credentials are read by the genai
// client from the environment (GOOGLE_API_KEY or Vertex AI settings).
func NewGemini(ctx context.Context, model string, log zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGemini: create genai client: %w", err)
	}
	return newGemini(client.Models, model, log), nil
}

func newGemini(models contentGenerator, model string, log zerolog.Logger) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model, log: log}
}

// Name implements Classifier.
func (g *Gemini) Name() string {
	return "gemini:" + g.model
}

// CategorizeBatch implements Classifier.
func (g *Gemini) CategorizeBatch(ctx context.Context, inputs []Input) ([]Result, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	prompt, err := userPrompt(inputs)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt() + "\n\n" + prompt},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 4096,
	}

	g.log.Debug().Int("count", len(inputs)).Str("model", g.model).Msg("Sending transactions to Gemini")

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini.CategorizeBatch: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("Gemini.CategorizeBatch: %w: empty response", ErrMalformedResponse)
	}

	results, err := parseResults(rawText, inputs)
	if err != nil {
		return nil, fmt.Errorf("Gemini.CategorizeBatch: %w", err)
	}
	return results, nil
}

var _ Classifier = (*Gemini)(nil)
