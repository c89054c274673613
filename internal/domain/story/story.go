package story

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// titleLength is how many characters of the prompt become the story title.
const titleLength = 30

// Story is a generated story held in memory for the lifetime of the process.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	ImageAlt  string    `json:"imageAlt,omitempty"`
}

// Image is an illustration attached to a story.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Paragraphs splits the content on line breaks and drops blank segments.
func (s Story) Paragraphs() []string {
	return SplitParagraphs(s.Content)
}

// HasImage reports whether an illustration is attached.
func (s Story) HasImage() bool {
	return s.ImageURL != ""
}

// SplitParagraphs splits text on "\n", keeping only segments with
// non-whitespace content. Segments are returned untrimmed.
func SplitParagraphs(content string) []string {
	paragraphs := make([]string, 0)
	for _, p := range strings.Split(content, "\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

// DeriveTitle returns the first 30 characters of the prompt followed by "...".
func DeriveTitle(prompt string) string {
	if utf8.RuneCountInString(prompt) > titleLength {
		prompt = string([]rune(prompt)[:titleLength])
	}
	return prompt + "..."
}

// NewID returns a short random token.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
