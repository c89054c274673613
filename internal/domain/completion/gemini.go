package completion

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini generates stories with Google's Generative Language API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	if cfg.APIKey == "" {
		// Generation is still wired up so every call reports the missing key.
		return &Gemini{name: name}, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, failure("create gemini client: %v", err)
	}

	model := client.GenerativeModel(name)
	model.SystemInstruction = genai.NewUserContent(genai.Text(SystemPrompt))
	model.SetTemperature(cfg.Temperature)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))

	return &Gemini{client: client, model: model, name: name}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	if g.model == nil {
		return "", failure("gemini api key is not configured")
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		logrus.WithError(err).WithField("model", g.name).Error("gemini request failed")
		return "", failure("%v", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text.WriteString(string(txt))
			}
		}
	}
	return text.String()
}
