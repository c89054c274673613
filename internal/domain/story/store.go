package story

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when no story has the requested identifier.
var ErrNotFound = errors.New("story not found")

// Store is an in-memory, insertion-ordered list of stories.
type Store struct {
	mu      sync.RWMutex
	stories []Story
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Create appends a new story and returns a copy of it.
func (s *Store) Create(title, content string, image *Image) Story {
	st := Story{
		ID:        NewID(),
		Title:     title,
		Content:   content,
		CreatedAt: s.now(),
	}
	if image != nil {
		st.ImageURL = image.URL
		st.ImageAlt = image.Alt
	}

	s.mu.Lock()
	s.stories = append(s.stories, st)
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"id":    st.ID,
		"title": st.Title,
		"image": st.HasImage(),
	}).Debug("story created")
	return st
}

// Get returns the story with the given id.
func (s *Store) Get(id string) (Story, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.stories[i], true
	}
	return Story{}, false
}

// List returns a copy of all stories in insertion order.
func (s *Store) List() []Story {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Story, len(s.stories))
	copy(out, s.stories)
	return out
}

// Len returns the number of stories.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stories)
}

// Rename sets a trimmed title. A title that trims to empty leaves the story
// unchanged.
func (s *Store) Rename(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	s.stories[i].Title = title
	return nil
}

// Delete removes the story with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.stories = append(s.stories[:i], s.stories[i+1:]...)
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.stories {
		if s.stories[i].ID == id {
			return i
		}
	}
	return -1
}
