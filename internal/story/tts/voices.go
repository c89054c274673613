package tts

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrUnknownVoice = errors.New("unknown voice")

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Voice is an English device voice offered to the user.
type Voice struct {
	Name   string `json:"name"`
	Lang   string `json:"lang"`
	Handle string `json:"-"`
	Gender Gender `json:"gender"`
}

// InferGender guesses a voice's gender from its name.
func InferGender(name string) Gender {
	if strings.Contains(strings.ToLower(name), "female") {
		return GenderFemale
	}
	return GenderMale
}

func IsEnglish(lang string) bool {
	lang = strings.ToLower(lang)
	return lang == "en" || strings.HasPrefix(lang, "en-") || strings.HasPrefix(lang, "en_")
}

// Catalog is the process-wide list of voices. Voices are enumerated once,
// asynchronously, after Load; consumers either Wait for readiness or
// Subscribe to be called back once the list is available.
type Catalog struct {
	device    Device
	preferred string

	once  sync.Once
	ready chan struct{}

	mu          sync.RWMutex
	voices      []Voice
	current     int
	err         error
	subscribers []func([]Voice)
}

// NewCatalog creates an unloaded catalog. preferred names the voice (by name
// or device handle) to select once loaded; otherwise the first English voice
// is current.
func NewCatalog(device Device, preferred string) *Catalog {
	return &Catalog{
		device:    device,
		preferred: preferred,
		ready:     make(chan struct{}),
		current:   -1,
	}
}

// Load starts enumerating voices in the background. Only the first call has
// any effect.
func (c *Catalog) Load(ctx context.Context) {
	c.once.Do(func() {
		go c.load(ctx)
	})
}

func (c *Catalog) load(ctx context.Context) {
	deviceVoices, err := c.device.Voices(ctx)

	voices := make([]Voice, 0, len(deviceVoices))
	for _, dv := range deviceVoices {
		if !IsEnglish(dv.Lang) {
			continue
		}
		voices = append(voices, Voice{
			Name:   dv.Name,
			Lang:   dv.Lang,
			Handle: dv.ID,
			Gender: InferGender(dv.Name),
		})
	}

	c.mu.Lock()
	c.voices = voices
	c.err = err
	c.current = c.initialIndex()
	subscribers := c.subscribers
	c.subscribers = nil
	close(c.ready)
	c.mu.Unlock()

	if err != nil {
		logrus.WithError(err).Warn("could not enumerate speech voices")
	} else {
		logrus.WithFields(logrus.Fields{
			"device_voices":  len(deviceVoices),
			"english_voices": len(voices),
		}).Debug("speech voices loaded")
	}

	for _, fn := range subscribers {
		fn(c.Voices())
	}
}

func (c *Catalog) initialIndex() int {
	if len(c.voices) == 0 {
		return -1
	}
	if c.preferred != "" {
		if i := c.indexOf(c.preferred); i >= 0 {
			return i
		}
		logrus.WithField("voice", c.preferred).Warn("preferred voice not available")
	}
	return 0
}

func (c *Catalog) indexOf(name string) int {
	for i, v := range c.voices {
		if v.Name == name || v.Handle == name {
			return i
		}
	}
	return -1
}

// Ready is closed once the voice list is available.
func (c *Catalog) Ready() <-chan struct{} {
	return c.ready
}

// Wait blocks until the catalog is loaded and returns the load error, if any.
func (c *Catalog) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Catalog) isReady() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Subscribe registers fn to be called once with the loaded voices. When the
// catalog is already loaded fn runs immediately on the caller's goroutine.
func (c *Catalog) Subscribe(fn func([]Voice)) {
	c.mu.Lock()
	if !c.isReady() {
		c.subscribers = append(c.subscribers, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn(c.Voices())
}

func (c *Catalog) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Voice(nil), c.voices...)
}

// Current returns the selected voice; false until a voice is available.
func (c *Catalog) Current() (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current < 0 {
		return Voice{}, false
	}
	return c.voices[c.current], true
}

// Select makes the named voice current.
func (c *Catalog) Select(name string) (Voice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(name)
	if i < 0 {
		return Voice{}, ErrUnknownVoice
	}
	c.current = i
	return c.voices[i], nil
}

func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}
