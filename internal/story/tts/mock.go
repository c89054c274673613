package tts

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// MockDevice records what it is asked to do. Built with NewMockDevice it
// never emits anything on its own; tests drive it through Emit and Finish.
// The simulated variant used for the "mock" device type plays each sentence
// for a time proportional to its word count.
type MockDevice struct {
	mu      sync.Mutex
	voices  []DeviceVoice
	current *Utterance
	spoken  []*Utterance
	paused  bool

	pauses, resumes, cancels int

	simulate    bool
	wordTime    time.Duration
	defaultRate float64
	run         *simRun
	voicesErr   error
	voicesDelay time.Duration
}

type simRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	events *eventQueue
	resume chan struct{}
}

func NewMockDevice(voices ...DeviceVoice) *MockDevice {
	return &MockDevice{voices: voices}
}

func newSimulatedDevice(config Config) *MockDevice {
	rate := config.Rate
	if rate <= 0 {
		rate = 1
	}
	return &MockDevice{
		voices: []DeviceVoice{
			{ID: "mock-female", Name: "Mock Female", Lang: "en-US"},
			{ID: "mock-voice", Name: "Mock Voice", Lang: "en-GB"},
		},
		simulate: true,
		// 150 words per minute at normal rate
		wordTime:    400 * time.Millisecond,
		defaultRate: rate,
	}
}

// wordDuration is the simulated time to read one word of u.
func (m *MockDevice) wordDuration(u *Utterance) time.Duration {
	rate := u.Rate
	if rate <= 0 {
		rate = m.defaultRate
	}
	if rate <= 0 {
		rate = 1
	}
	return time.Duration(float64(m.wordTime) / rate)
}

// SetVoicesError makes Voices fail with err after an optional delay.
func (m *MockDevice) SetVoicesError(err error, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voicesErr = err
	m.voicesDelay = delay
}

func (m *MockDevice) Speak(u *Utterance) error {
	m.mu.Lock()
	prev := m.run
	m.run = nil
	m.current = u
	m.spoken = append(m.spoken, u)
	m.paused = false

	var r *simRun
	if m.simulate {
		ctx, cancel := context.WithCancel(context.Background())
		r = &simRun{ctx: ctx, cancel: cancel, events: newEventQueue(u)}
		m.run = r
	}
	m.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
	if r != nil {
		words := len(strings.Fields(u.Text))
		color.Yellow("🔊 Reading aloud... (simulated for %v)", time.Duration(words)*m.wordDuration(u))
		go m.simulateRun(r, u, SplitSentences(u.Text))
	}
	return nil
}

func (m *MockDevice) simulateRun(r *simRun, u *Utterance, segments []Segment) {
	r.events.push(Event{Type: EventStart})
	for _, seg := range segments {
		if !m.waitWhilePaused(r) {
			return
		}
		r.events.push(Event{Type: EventBoundary, CharIndex: seg.Offset, Name: BoundarySentence})

		words := len(strings.Fields(seg.Text))
		select {
		case <-time.After(time.Duration(words) * m.wordDuration(u)):
		case <-r.ctx.Done():
			return
		}
	}
	if !m.waitWhilePaused(r) {
		return
	}

	m.mu.Lock()
	if m.run != r {
		m.mu.Unlock()
		return
	}
	m.run = nil
	m.current = nil
	m.mu.Unlock()

	r.cancel()
	r.events.finish(Event{Type: EventEnd})
}

func (m *MockDevice) waitWhilePaused(r *simRun) bool {
	m.mu.Lock()
	ch := r.resume
	m.mu.Unlock()

	if ch == nil {
		return r.ctx.Err() == nil
	}
	select {
	case <-ch:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *simRun) stop() {
	r.events.discard()
	r.cancel()
}

func (m *MockDevice) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauses++
	if m.current == nil || m.paused {
		return nil
	}
	m.paused = true
	if m.run != nil {
		m.run.resume = make(chan struct{})
		m.run.events.push(Event{Type: EventPause})
	}
	return nil
}

func (m *MockDevice) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumes++
	if !m.paused {
		return nil
	}
	m.paused = false
	if m.run != nil && m.run.resume != nil {
		close(m.run.resume)
		m.run.resume = nil
		m.run.events.push(Event{Type: EventResume})
	}
	return nil
}

func (m *MockDevice) Cancel() error {
	m.mu.Lock()
	r := m.run
	m.run = nil
	m.current = nil
	m.paused = false
	m.cancels++
	m.mu.Unlock()

	if r != nil {
		r.stop()
	}
	return nil
}

func (m *MockDevice) Voices(ctx context.Context) ([]DeviceVoice, error) {
	m.mu.Lock()
	delay, err := m.voicesDelay, m.voicesErr
	voices := append([]DeviceVoice(nil), m.voices...)
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return voices, nil
}

// Current returns the utterance being spoken, or nil.
func (m *MockDevice) Current() *Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Spoken returns every utterance passed to Speak, oldest first.
func (m *MockDevice) Spoken() []*Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Utterance(nil), m.spoken...)
}

func (m *MockDevice) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Counts reports how often Pause, Resume and Cancel were called.
func (m *MockDevice) Counts() (pauses, resumes, cancels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauses, m.resumes, m.cancels
}

// Emit delivers e to the current utterance on the caller's goroutine.
func (m *MockDevice) Emit(e Event) {
	m.EmitTo(m.Current(), e)
}

// EmitTo delivers e to u regardless of whether u is still current.
func (m *MockDevice) EmitTo(u *Utterance, e Event) {
	u.emit(e)
}

// Finish ends the current utterance as if it had been spoken to the end.
func (m *MockDevice) Finish() {
	m.mu.Lock()
	u := m.current
	m.current = nil
	m.paused = false
	m.mu.Unlock()

	u.emit(Event{Type: EventEnd})
}
