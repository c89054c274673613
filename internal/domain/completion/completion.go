package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// SystemPrompt frames the model as a family-friendly story writer.
const SystemPrompt = "You are a creative story writer. Generate engaging, family-friendly stories based on the given prompt."

// ErrGenerationFailure is returned for any transport, status or credential
// problem while generating a story.
var ErrGenerationFailure = errors.New("failed to generate story")

type ProviderType string

const (
	ProviderGroq   ProviderType = "groq"
	ProviderGemini ProviderType = "gemini"
)

func (p ProviderType) String() string {
	return string(p)
}

// Generator produces story text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds the provider selection and sampling parameters.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// NewGenerator builds the Generator for the configured provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	switch ProviderType(cfg.Provider) {
	case ProviderGroq, "":
		return NewGroq(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported completion provider: %s", cfg.Provider)
	}
}

func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGenerationFailure, fmt.Sprintf(format, args...))
}
