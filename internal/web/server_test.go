package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"storyteller/internal/domain/completion"
	"storyteller/internal/domain/story"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/studio"
	"storyteller/internal/story/tts"

	"github.com/gofiber/fiber/v2"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.text, g.err
}

type stubFinder struct{}

func (stubFinder) Find(ctx context.Context, query string) (*story.Image, error) {
	return &story.Image{URL: "https://images.pexels.com/photos/1/a.jpg", Alt: "An illustration"}, nil
}

const threeParagraphs = "Once upon a time.\nThe middle.\n\nThe end."

func newTestApp(t *testing.T, gen completion.Generator) *fiber.App {
	t.Helper()
	device := tts.NewMockDevice(tts.DeviceVoice{ID: "v1", Name: "Victoria Female", Lang: "en-US"})
	catalog := tts.NewCatalog(device, "")
	catalog.Load(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := catalog.Wait(ctx); err != nil {
		t.Fatalf("voices: %v", err)
	}

	controller := speech.NewController(device, catalog, 1)
	s := studio.New(gen, stubFinder{}, story.NewStore(), controller, catalog)
	return NewApp(NewHandler(s, gen))
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			// arrays are checked by the caller through the raw body
			out["_raw"] = string(data)
		}
	}
	return resp, out
}

func TestGenerateEndpoint(t *testing.T) {
	app := newTestApp(t, stubGenerator{text: threeParagraphs})

	resp, body := do(t, app, http.MethodPost, "/api/generate", map[string]string{"prompt": "a fox"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["story"] != threeParagraphs {
		t.Errorf("unexpected story %v", body["story"])
	}

	resp, body = do(t, app, http.MethodPost, "/api/generate", map[string]string{"prompt": "  "})
	if resp.StatusCode != http.StatusBadRequest || body["error"] == nil {
		t.Errorf("expected 400 with an error body, got %d %v", resp.StatusCode, body)
	}
}

func TestGenerateEndpointFailure(t *testing.T) {
	gen := stubGenerator{err: fmt.Errorf("%w: status 401", completion.ErrGenerationFailure)}
	app := newTestApp(t, gen)

	resp, body := do(t, app, http.MethodPost, "/api/generate", map[string]string{"prompt": "a fox"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "Failed to generate story" {
		t.Errorf("unexpected error body %v", body)
	}

	resp, body = do(t, app, http.MethodPost, "/api/stories", map[string]string{"prompt": "a fox"})
	if resp.StatusCode != http.StatusInternalServerError || body["error"] != "Failed to generate story" {
		t.Errorf("expected 500 from create, got %d %v", resp.StatusCode, body)
	}
}

func TestStoryLifecycle(t *testing.T) {
	app := newTestApp(t, stubGenerator{text: threeParagraphs})

	resp, created := do(t, app, http.MethodPost, "/api/stories", map[string]string{"prompt": "A dragon who is afraid of heights"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" || created["title"] != "A dragon who is afraid of heig..." || created["imageUrl"] == "" {
		t.Fatalf("unexpected story %v", created)
	}

	resp, renamed := do(t, app, http.MethodPatch, "/api/stories/"+id, map[string]string{"title": "Ember"})
	if resp.StatusCode != http.StatusOK || renamed["title"] != "Ember" {
		t.Errorf("rename: %d %v", resp.StatusCode, renamed)
	}

	if resp, _ := do(t, app, http.MethodPost, "/api/stories/"+id+"/delete-request", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete request: %d", resp.StatusCode)
	}
	resp, deleted := do(t, app, http.MethodPost, "/api/delete/confirm", nil)
	if resp.StatusCode != http.StatusOK || deleted["deleted"] != id {
		t.Errorf("confirm: %d %v", resp.StatusCode, deleted)
	}

	if resp, _ := do(t, app, http.MethodGet, "/api/stories/"+id, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/delete/confirm", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 without a pending delete, got %d", resp.StatusCode)
	}
}

func TestSpeechEndpoints(t *testing.T) {
	app := newTestApp(t, stubGenerator{text: threeParagraphs})

	if resp, _ := do(t, app, http.MethodPost, "/api/speech/toggle", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("toggle without a story: expected 409, got %d", resp.StatusCode)
	}

	do(t, app, http.MethodPost, "/api/stories", map[string]string{"prompt": "a fox"})

	resp, snap := do(t, app, http.MethodPost, "/api/speech/toggle", nil)
	if resp.StatusCode != http.StatusOK || snap["state"] != "playing" || snap["paragraph"] != float64(0) {
		t.Fatalf("toggle: %d %v", resp.StatusCode, snap)
	}

	_, snap = do(t, app, http.MethodPost, "/api/speech/paragraphs/2", nil)
	if snap["state"] != "playing" || snap["paragraph"] != float64(2) {
		t.Errorf("paragraph: %v", snap)
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/speech/paragraphs/9", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a missing paragraph, got %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/speech/paragraphs/x", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad index, got %d", resp.StatusCode)
	}

	_, rate := do(t, app, http.MethodPut, "/api/speech/rate", map[string]float64{"rate": 3})
	if rate["rate"] != 2.0 {
		t.Errorf("expected clamped rate 2, got %v", rate["rate"])
	}
	_, rate = do(t, app, http.MethodPost, "/api/speech/rate/down", nil)
	if rate["rate"] != 1.9 {
		t.Errorf("expected 1.9, got %v", rate["rate"])
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/speech/rate/sideways", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad direction, got %d", resp.StatusCode)
	}

	resp, snap = do(t, app, http.MethodPost, "/api/speech/stop", nil)
	if resp.StatusCode != http.StatusOK || snap["state"] != "stopped" || snap["paragraph"] != float64(-1) {
		t.Errorf("stop: %d %v", resp.StatusCode, snap)
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/speech/stop", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("stop while stopped: expected 409, got %d", resp.StatusCode)
	}
}

func TestVoiceAndThemeEndpoints(t *testing.T) {
	app := newTestApp(t, stubGenerator{text: threeParagraphs})

	_, voices := do(t, app, http.MethodGet, "/api/voices", nil)
	if voices["current"] != "Victoria Female" {
		t.Errorf("unexpected voices %v", voices)
	}

	resp, voice := do(t, app, http.MethodPut, "/api/voices/current", map[string]string{"name": "Victoria Female"})
	if resp.StatusCode != http.StatusOK || voice["gender"] != "female" {
		t.Errorf("select voice: %d %v", resp.StatusCode, voice)
	}
	if resp, _ := do(t, app, http.MethodPut, "/api/voices/current", map[string]string{"name": "Nobody"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown voice, got %d", resp.StatusCode)
	}

	_, theme := do(t, app, http.MethodPost, "/api/theme", nil)
	if theme["theme"] != "light" {
		t.Errorf("expected light theme, got %v", theme)
	}
}

func TestIndexPage(t *testing.T) {
	app := newTestApp(t, stubGenerator{text: threeParagraphs})
	do(t, app, http.MethodPost, "/api/stories", map[string]string{"prompt": "a fox in the snow"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	defer resp.Body.Close()

	page, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, page)
	}
	for _, want := range []string{"a fox in the snow...", "The middle.", "Victoria Female", `class="dark"`} {
		if !strings.Contains(string(page), want) {
			t.Errorf("page is missing %q", want)
		}
	}

	if resp, _ := do(t, app, http.MethodGet, "/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: %d", resp.StatusCode)
	}
}

type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
}

func (g blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	close(g.started)
	<-g.release
	return threeParagraphs, nil
}

func TestGeneratingIsReportedWhileOutstanding(t *testing.T) {
	gen := blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	app := newTestApp(t, gen)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/stories", strings.NewReader(`{"prompt":"a fox"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("generation never started")
	}

	_, status := do(t, app, http.MethodGet, "/api/speech", nil)
	if status["generating"] != true || status["state"] != "stopped" {
		t.Errorf("expected generating while the request is outstanding, got %v", status)
	}
	if resp, _ := do(t, app, http.MethodPost, "/api/stories", map[string]string{"prompt": "a second fox"}); resp.StatusCode != http.StatusConflict {
		t.Errorf("second prompt: expected 409, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{`id="prompt" placeholder="Enter a story prompt..." size="50" disabled`, "Generating..."} {
		if !strings.Contains(string(page), want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if !regexp.MustCompile(`renderedGenerating =\s*true`).Match(page) {
		t.Error("page should know a story is being generated")
	}

	close(gen.release)
	select {
	case code := <-done:
		if code != http.StatusCreated {
			t.Fatalf("first prompt: expected 201, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generation never finished")
	}

	_, status = do(t, app, http.MethodGet, "/api/speech", nil)
	if status["generating"] != false {
		t.Errorf("expected generating to clear, got %v", status)
	}
}
