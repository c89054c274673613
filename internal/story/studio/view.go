package studio

import (
	"storyteller/internal/domain/story"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/tts"
)

// View is everything the page needs to render.
type View struct {
	Stories         []story.Story   `json:"stories"`
	Selected        *SelectedStory  `json:"selected,omitempty"`
	Generating      bool            `json:"generating"`
	EditingID       string          `json:"editingId,omitempty"`
	PendingDeleteID string          `json:"pendingDeleteId,omitempty"`
	Theme           Theme           `json:"theme"`
	Speech          speech.Snapshot `json:"speech"`
	Voices          []tts.Voice     `json:"voices"`
	MinRate         float64         `json:"minRate"`
	MaxRate         float64         `json:"maxRate"`
}

type SelectedStory struct {
	story.Story
	Paragraphs []Paragraph `json:"paragraphs"`
}

type Paragraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	// Active marks the paragraph being read.
	Active bool `json:"active"`
}

func (s *Studio) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.speech.Snapshot()
	v := View{
		Stories:         s.store.List(),
		Generating:      s.generating,
		EditingID:       s.editingID,
		PendingDeleteID: s.pendingDeleteID,
		Theme:           s.theme,
		Speech:          snap,
		Voices:          s.voices.Voices(),
		MinRate:         speech.MinRate,
		MaxRate:         speech.MaxRate,
	}

	if st, ok := s.selectedLocked(); ok {
		sel := &SelectedStory{Story: st}
		for i, p := range st.Paragraphs() {
			sel.Paragraphs = append(sel.Paragraphs, Paragraph{
				Index:  i,
				Text:   p,
				Active: i == snap.Paragraph && snap.State != speech.Stopped,
			})
		}
		v.Selected = sel
	}
	return v
}

// IsDark is used by the page template.
func (v View) IsDark() bool {
	return v.Theme == ThemeDark
}
