package studio

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"

	"storyteller/internal/domain/completion"
	"storyteller/internal/domain/imagery"
	"storyteller/internal/domain/story"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/tts"

	"github.com/sirupsen/logrus"
)

var (
	ErrBlankPrompt     = errors.New("prompt is blank")
	ErrGenerating      = errors.New("a story is already being generated")
	ErrNoSelection     = errors.New("no story selected")
	ErrNoPendingDelete = errors.New("no delete awaiting confirmation")
)

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// VoiceCatalog lists the voices the user can pick from.
type VoiceCatalog interface {
	Voices() []tts.Voice
	Select(name string) (tts.Voice, error)
}

// Studio holds the state behind the page: the stories, which one is
// selected, the transient edit and delete-confirmation state and the theme.
// User actions are dispatched from here to the clients and the speech
// controller.
type Studio struct {
	generator completion.Generator
	images    imagery.Finder
	store     *story.Store
	speech    *speech.Controller
	voices    VoiceCatalog

	mu              sync.Mutex
	selectedID      string
	generating      bool
	editingID       string
	pendingDeleteID string
	theme           Theme
}

// New creates a Studio. images may be nil when lookups are disabled.
func New(generator completion.Generator, images imagery.Finder, store *story.Store, controller *speech.Controller, voices VoiceCatalog) *Studio {
	return &Studio{
		generator: generator,
		images:    images,
		store:     store,
		speech:    controller,
		voices:    voices,
		theme:     ThemeDark,
	}
}

// Generate asks the completion service for a story, looks up an
// illustration, stores the result and selects it. Nothing is stored when the
// completion fails.
func (s *Studio) Generate(ctx context.Context, prompt string) (story.Story, error) {
	if strings.TrimSpace(prompt) == "" {
		return story.Story{}, ErrBlankPrompt
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return story.Story{}, ErrGenerating
	}
	s.generating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	content, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logrus.WithError(err).Error("story generation failed")
		return story.Story{}, err
	}

	image := s.findImage(ctx, prompt)
	st := s.store.Create(story.DeriveTitle(prompt), content, image)

	s.mu.Lock()
	s.selectLocked(st.ID)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"id":         st.ID,
		"paragraphs": len(st.Paragraphs()),
		"image":      st.HasImage(),
	}).Info("story generated")
	return st, nil
}

func (s *Studio) findImage(ctx context.Context, prompt string) *story.Image {
	if s.images == nil {
		return nil
	}
	image, err := s.images.Find(ctx, prompt)
	if err != nil {
		logrus.WithError(err).Warn("continuing without an illustration")
		return nil
	}
	return image
}

func (s *Studio) Generating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *Studio) Stories() []story.Story {
	return s.store.List()
}

func (s *Studio) Story(id string) (story.Story, error) {
	st, ok := s.store.Get(id)
	if !ok {
		return story.Story{}, story.ErrNotFound
	}
	return st, nil
}

// Selected returns the selected story, if any.
func (s *Studio) Selected() (story.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Studio) selectedLocked() (story.Story, bool) {
	if s.selectedID == "" {
		return story.Story{}, false
	}
	return s.store.Get(s.selectedID)
}

// Select makes id the selected story. Changing the selection stops speech.
func (s *Studio) Select(id string) (story.Story, error) {
	st, ok := s.store.Get(id)
	if !ok {
		return story.Story{}, story.ErrNotFound
	}

	s.mu.Lock()
	s.selectLocked(id)
	s.mu.Unlock()
	return st, nil
}

func (s *Studio) selectLocked(id string) {
	if s.selectedID == id {
		return
	}
	s.speech.SelectionChanged()
	s.selectedID = id
}

func (s *Studio) Rename(id, title string) (story.Story, error) {
	if err := s.store.Rename(id, title); err != nil {
		return story.Story{}, err
	}
	return s.Story(id)
}

// BeginEdit puts the title of id into edit mode, replacing any other edit.
func (s *Studio) BeginEdit(id string) error {
	if _, ok := s.store.Get(id); !ok {
		return story.ErrNotFound
	}
	s.mu.Lock()
	s.editingID = id
	s.mu.Unlock()
	return nil
}

// CommitEdit renames id and leaves edit mode. A blank title keeps the old one.
func (s *Studio) CommitEdit(id, title string) (story.Story, error) {
	st, err := s.Rename(id, title)

	s.mu.Lock()
	if s.editingID == id {
		s.editingID = ""
	}
	s.mu.Unlock()
	return st, err
}

func (s *Studio) CancelEdit() {
	s.mu.Lock()
	s.editingID = ""
	s.mu.Unlock()
}

// RequestDelete asks for confirmation before deleting id.
func (s *Studio) RequestDelete(id string) error {
	if _, ok := s.store.Get(id); !ok {
		return story.ErrNotFound
	}
	s.mu.Lock()
	s.pendingDeleteID = id
	s.mu.Unlock()
	return nil
}

func (s *Studio) CancelDelete() {
	s.mu.Lock()
	s.pendingDeleteID = ""
	s.mu.Unlock()
}

// ConfirmDelete deletes the story awaiting confirmation and returns its id.
func (s *Studio) ConfirmDelete() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.pendingDeleteID
	if id == "" {
		return "", ErrNoPendingDelete
	}
	s.pendingDeleteID = ""
	return id, s.deleteLocked(id)
}

// Delete removes id. Deleting the selected story clears the selection and
// stops speech.
func (s *Studio) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Studio) deleteLocked(id string) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if s.selectedID == id {
		s.selectedID = ""
		s.speech.SelectionChanged()
	}
	if s.editingID == id {
		s.editingID = ""
	}
	if s.pendingDeleteID == id {
		s.pendingDeleteID = ""
	}
	return nil
}

func (s *Studio) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == ThemeDark {
		s.theme = ThemeLight
	} else {
		s.theme = ThemeDark
	}
	return s.theme
}

// ToggleSpeech plays, pauses or resumes the selected story.
func (s *Studio) ToggleSpeech() (speech.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.selectedLocked()
	if !ok {
		return s.speech.Snapshot(), ErrNoSelection
	}
	err := s.speech.Toggle(st.Content)
	return s.speech.Snapshot(), err
}

func (s *Studio) StopSpeech() (speech.Snapshot, error) {
	err := s.speech.Stop()
	return s.speech.Snapshot(), err
}

// PlayParagraph reads one paragraph of the selected story.
func (s *Studio) PlayParagraph(index int) (speech.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.selectedLocked()
	if !ok {
		return s.speech.Snapshot(), ErrNoSelection
	}
	err := s.speech.PlayParagraph(st.Content, index)
	return s.speech.Snapshot(), err
}

func (s *Studio) SetRate(rate float64) (float64, error) {
	return s.speech.SetRate(rate)
}

// ChangeRate nudges the rate by delta, keeping it on one decimal place.
func (s *Studio) ChangeRate(delta float64) (float64, error) {
	rate := math.Round((s.speech.Rate()+delta)*10) / 10
	return s.speech.SetRate(rate)
}

func (s *Studio) Speech() speech.Snapshot {
	return s.speech.Snapshot()
}

func (s *Studio) Voices() []tts.Voice {
	return s.voices.Voices()
}

func (s *Studio) SelectVoice(name string) (tts.Voice, error) {
	return s.voices.Select(name)
}
