package speech

import (
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"storyteller/internal/domain/story"
	"storyteller/internal/story/tts"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoVoice             = errors.New("no voice selected")
	ErrNothingToSpeak      = errors.New("nothing to speak")
	ErrParagraphOutOfRange = errors.New("paragraph index out of range")
)

const (
	MinRate = 0.5
	MaxRate = 2.0
)

// ClampRate bounds a playback rate to [MinRate, MaxRate].
func ClampRate(rate float64) float64 {
	if rate < MinRate {
		return MinRate
	}
	if rate > MaxRate {
		return MaxRate
	}
	return rate
}

// VoiceSource supplies the voice new utterances are spoken with.
type VoiceSource interface {
	Current() (tts.Voice, bool)
}

type Snapshot struct {
	State     State   `json:"state"`
	Paragraph int     `json:"paragraph"`
	Rate      float64 `json:"rate"`
	Voice     string  `json:"voice,omitempty"`
}

// Controller drives a speech device through the playback state machine and
// tracks which paragraph is being read.
type Controller struct {
	device tts.Device
	voices VoiceSource

	mu     sync.Mutex
	state  State
	cursor int
	rate   float64
	seq    uint64
	active *playback
}

// playback is the utterance currently owned by the controller.
type playback struct {
	seq   uint64
	text  string
	voice tts.Voice

	// whole-story utterances track the cursor from boundary events
	whole      bool
	paragraphs []string
	first      int

	charCount int
	next      int
}

func NewController(device tts.Device, voices VoiceSource, rate float64) *Controller {
	if rate == 0 {
		rate = 1
	}
	return &Controller{
		device: device,
		voices: voices,
		cursor: -1,
		rate:   ClampRate(rate),
	}
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{State: c.state, Paragraph: c.cursor, Rate: c.rate}
	if v, ok := c.voices.Current(); ok {
		s.Voice = v.Name
	}
	return s
}

// Toggle starts the whole story when stopped, pauses when playing and
// resumes when paused.
func (c *Controller) Toggle(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Playing:
		return c.pauseLocked()
	case Paused:
		return c.resumeLocked()
	default:
		return c.startStoryLocked(content)
	}
}

// StartStory reads content from the first paragraph.
func (c *Controller) StartStory(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startStoryLocked(content)
}

func (c *Controller) startStoryLocked(content string) error {
	if _, err := Next(c.state, StartStory); err != nil {
		return err
	}
	paragraphs := story.SplitParagraphs(content)
	if len(paragraphs) == 0 {
		return ErrNothingToSpeak
	}
	voice, ok := c.voices.Current()
	if !ok {
		return ErrNoVoice
	}

	p := &playback{
		text:       content,
		voice:      voice,
		whole:      true,
		paragraphs: paragraphs,
		first:      0,
	}
	return c.startLocked(p, StartStory)
}

// PlayParagraph stops whatever is playing and reads a single paragraph.
func (c *Controller) PlayParagraph(content string, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	paragraphs := story.SplitParagraphs(content)
	if index < 0 || index >= len(paragraphs) {
		return fmt.Errorf("%w: %d of %d", ErrParagraphOutOfRange, index, len(paragraphs))
	}
	voice, ok := c.voices.Current()
	if !ok {
		return ErrNoVoice
	}

	if c.state.Active() {
		c.stopLocked(StopRequest)
	}

	p := &playback{
		text:  paragraphs[index],
		voice: voice,
		first: index,
	}
	return c.startLocked(p, StartParagraph)
}

func (c *Controller) startLocked(p *playback, trigger Trigger) error {
	to, err := Next(c.state, trigger)
	if err != nil {
		return err
	}

	c.device.Cancel()
	if err := c.speakLocked(p); err != nil {
		c.resetLocked()
		return err
	}

	c.state = to
	c.cursor = p.first
	logrus.WithFields(logrus.Fields{
		"trigger":   trigger.String(),
		"paragraph": p.first,
		"voice":     p.voice.Name,
		"rate":      c.rate,
	}).Debug("speech started")
	return nil
}

// speakLocked hands p to the device as a fresh utterance.
func (c *Controller) speakLocked(p *playback) error {
	c.seq++
	p.seq = c.seq
	p.charCount, p.next = 0, 0
	c.active = p

	seq := p.seq
	u := &tts.Utterance{
		Text:   p.text,
		Voice:  p.voice.Handle,
		Lang:   p.voice.Lang,
		Rate:   c.rate,
		Pitch:  1.0,
		Volume: 1.0,
		OnEvent: func(e tts.Event) {
			c.handleEvent(seq, e)
		},
	}
	if err := c.device.Speak(u); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}

func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseLocked()
}

func (c *Controller) pauseLocked() error {
	to, err := Next(c.state, PauseRequest)
	if err != nil {
		return err
	}
	if err := c.device.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	c.state = to
	return nil
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumeLocked()
}

func (c *Controller) resumeLocked() error {
	to, err := Next(c.state, ResumeRequest)
	if err != nil {
		return err
	}
	if err := c.device.Resume(); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	c.state = to
	return nil
}

// Stop cancels the active utterance. Stopping while already stopped is
// rejected but leaves the controller stopped.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := Next(c.state, StopRequest); err != nil {
		c.cursor = -1
		return err
	}
	c.stopLocked(StopRequest)
	return nil
}

// SelectionChanged force-stops playback from any state.
func (c *Controller) SelectionChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked(SelectionChange)
}

func (c *Controller) stopLocked(trigger Trigger) {
	if c.active != nil || c.state.Active() {
		c.device.Cancel()
		logrus.WithField("trigger", trigger.String()).Debug("speech stopped")
	}
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.state = Stopped
	c.cursor = -1
	c.active = nil
}

// SetRate clamps and stores the playback rate. Active speech is restarted
// with the new rate and paused again if it was paused.
func (c *Controller) SetRate(rate float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rate = ClampRate(rate)
	if !c.state.Active() || c.active == nil {
		return c.rate, nil
	}

	wasPaused := c.state == Paused
	p := *c.active
	if v, ok := c.voices.Current(); ok {
		p.voice = v
	}

	c.device.Cancel()
	if err := c.speakLocked(&p); err != nil {
		c.resetLocked()
		return c.rate, err
	}
	if wasPaused {
		if err := c.device.Pause(); err != nil {
			logrus.WithError(err).Warn("could not pause restarted utterance")
			c.state = Playing
		}
	}
	logrus.WithField("rate", c.rate).Debug("speech restarted with new rate")
	return c.rate, nil
}

func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Controller) handleEvent(seq uint64, e tts.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.active
	if p == nil || p.seq != seq {
		logrus.WithFields(logrus.Fields{
			"event": e.Type.String(),
			"seq":   seq,
		}).Trace("dropping event for superseded utterance")
		return
	}

	switch e.Type {
	case tts.EventStart:
		c.cursor = p.first
		p.charCount, p.next = 0, 0

	case tts.EventBoundary:
		if p.whole && e.Name == tts.BoundarySentence {
			c.trackBoundary(p, e.CharIndex)
		}

	case tts.EventEnd:
		if _, err := Next(c.state, UtteranceEnd); err != nil {
			logrus.WithError(err).Debug("ignoring utterance end")
			return
		}
		c.resetLocked()
		logrus.Debug("speech finished")

	case tts.EventError:
		if _, err := Next(c.state, DeviceError); err != nil {
			return
		}
		logrus.WithError(e.Err).Warn("speech device error")
		c.device.Cancel()
		c.resetLocked()

	case tts.EventPause, tts.EventResume:
		logrus.WithFields(logrus.Fields{
			"event": e.Type.String(),
			"state": c.state.String(),
		}).Trace("device acknowledged")
	}
}

// trackBoundary moves the cursor to the last paragraph whose start lies
// before offset. Paragraph lengths plus one separator are summed; blank lines
// dropped from the paragraph list make this approximate.
func (c *Controller) trackBoundary(p *playback, offset int) {
	for p.charCount < offset && p.next < len(p.paragraphs) {
		p.charCount += utf8.RuneCountInString(p.paragraphs[p.next]) + 1
		p.next++
	}
	if p.next > 0 {
		c.cursor = p.next - 1
	}
}
