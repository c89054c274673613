package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newCompletionServer(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestGroqGenerate(t *testing.T) {
	var req chatRequest
	srv := newCompletionServer(t, http.StatusOK,
		`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Once upon a time."}}]}`,
		&req)
	defer srv.Close()

	g := NewGroq(Config{APIKey: "test-key", BaseURL: srv.URL, Temperature: 0.7, MaxTokens: 1000})
	text, err := g.Generate(context.Background(), "A brave mouse")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Once upon a time." {
		t.Errorf("unexpected text %q", text)
	}

	if req.Model != defaultGroqModel {
		t.Errorf("unexpected model %q", req.Model)
	}
	if req.Temperature != 0.7 || req.MaxTokens != 1000 {
		t.Errorf("unexpected sampling params: %+v", req)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != SystemPrompt {
		t.Errorf("unexpected system message %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "A brave mouse" {
		t.Errorf("unexpected user message %+v", req.Messages[1])
	}
}

func TestGroqNoChoicesReturnsEmpty(t *testing.T) {
	srv := newCompletionServer(t, http.StatusOK, `{"id":"1","choices":[]}`, nil)
	defer srv.Close()

	g := NewGroq(Config{APIKey: "test-key", BaseURL: srv.URL})
	text, err := g.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestGroqNon2xxIsGenerationFailure(t *testing.T) {
	srv := newCompletionServer(t, http.StatusInternalServerError,
		`{"error":{"message":"boom","type":"server_error"}}`, nil)
	defer srv.Close()

	g := NewGroq(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := g.Generate(context.Background(), "prompt"); !errors.Is(err, ErrGenerationFailure) {
		t.Errorf("expected ErrGenerationFailure, got %v", err)
	}
}

func TestGroqMissingKey(t *testing.T) {
	g := NewGroq(Config{BaseURL: "http://127.0.0.1:0"})
	if _, err := g.Generate(context.Background(), "prompt"); !errors.Is(err, ErrGenerationFailure) {
		t.Errorf("expected ErrGenerationFailure, got %v", err)
	}
}

func TestGeminiMissingKey(t *testing.T) {
	g, err := NewGemini(context.Background(), Config{})
	if err != nil {
		t.Fatalf("new gemini: %v", err)
	}
	if _, err := g.Generate(context.Background(), "prompt"); !errors.Is(err, ErrGenerationFailure) {
		t.Errorf("expected ErrGenerationFailure, got %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}},
		}},
	}
	if got := responseText(resp); got != "Hello world" {
		t.Errorf("unexpected text %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Errorf("expected empty text for nil response, got %q", got)
	}
}

func TestNewGeneratorRejectsUnknownProvider(t *testing.T) {
	if _, err := NewGenerator(context.Background(), Config{Provider: "parrot"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	g, err := NewGenerator(context.Background(), Config{Provider: "groq", APIKey: "k"})
	if err != nil {
		t.Fatalf("groq provider: %v", err)
	}
	if _, ok := g.(*Groq); !ok {
		t.Errorf("expected *Groq, got %T", g)
	}
}
