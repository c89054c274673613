package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"storyteller/internal/domain/story"
	"strings"
	"time"
)

// ErrLookupFailure is returned when the photo search could not be completed.
var ErrLookupFailure = errors.New("image lookup failed")

// Finder looks up an illustration for a query. A nil image with a nil error
// means the search found nothing.
type Finder interface {
	Find(ctx context.Context, query string) (*story.Image, error)
}

// PexelsResponse represents the search API response structure
type PexelsResponse struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Photos       []PexelsPhoto `json:"photos"`
}

// PexelsPhoto is a single search hit.
type PexelsPhoto struct {
	ID  int `json:"id"`
	Src struct {
		Original string `json:"original"`
		Large2x  string `json:"large2x"`
		Large    string `json:"large"`
	} `json:"src"`
	Alt string `json:"alt"`
}

// Pexels searches the Pexels photo API.
type Pexels struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewPexels(endpoint, apiKey string, httpClient *http.Client) *Pexels {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pexels{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (p *Pexels) Find(ctx context.Context, query string) (*story.Image, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: pexels api key is not configured", ErrLookupFailure)
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailure, err)
	}
	req.Header.Set("Authorization", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrLookupFailure, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var result PexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrLookupFailure, err)
	}

	if len(result.Photos) == 0 {
		return nil, nil
	}
	photo := result.Photos[0]
	return &story.Image{URL: photo.Src.Large2x, Alt: photo.Alt}, nil
}
