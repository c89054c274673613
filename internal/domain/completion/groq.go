package completion

import (
	"context"
	"errors"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const defaultGroqModel = "llama-3.1-70b-versatile"

// Groq talks to an OpenAI-compatible chat completions endpoint.
type Groq struct {
	client      *openai.Client
	hasKey      bool
	model       string
	temperature float32
	maxTokens   int
}

func NewGroq(cfg Config) *Groq {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}

	return &Groq{
		client:      openai.NewClientWithConfig(oc),
		hasKey:      cfg.APIKey != "",
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (g *Groq) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.hasKey {
		return "", failure("groq api key is not configured")
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			logrus.WithFields(logrus.Fields{
				"status": apiErr.HTTPStatusCode,
				"model":  g.model,
			}).WithError(err).Error("completion request rejected")
			return "", failure("completion endpoint returned %d", apiErr.HTTPStatusCode)
		}
		logrus.WithError(err).WithField("model", g.model).Error("completion request failed")
		return "", failure("%v", err)
	}

	if len(resp.Choices) == 0 {
		logrus.WithField("model", g.model).Warn("completion response had no choices")
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
