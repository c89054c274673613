// internal/story/tts/tts.go
package tts

import (
	"context"
	"errors"
)

// ErrPauseUnsupported is returned by devices that cannot suspend playback.
var ErrPauseUnsupported = errors.New("pause not supported by speech device")

type Config struct {
	Type      string
	Rate      float64
	Volume    float64
	Voice     string
	CachePath string
}

type EventType int

const (
	EventStart EventType = iota
	EventEnd
	EventError
	EventPause
	EventResume
	EventBoundary
)

func (e EventType) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventBoundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// BoundarySentence is the Name of boundary events emitted at sentence starts.
const BoundarySentence = "sentence"

// Event is a notification delivered by a Device about the utterance it is
// speaking.
type Event struct {
	Type EventType
	// CharIndex is the rune offset into Utterance.Text (boundary events).
	CharIndex int
	// Name is the boundary kind, e.g. BoundarySentence.
	Name string
	Err  error
}

// Utterance is one unit of text submitted to a Device.
type Utterance struct {
	Text   string
	Voice  string // device voice handle
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64

	// OnEvent receives every event for this utterance. Devices call it from
	// their own goroutines, never from inside Speak, Pause, Resume or Cancel,
	// and never while holding their own locks.
	OnEvent func(Event)
}

func (u *Utterance) emit(e Event) {
	if u != nil && u.OnEvent != nil {
		u.OnEvent(e)
	}
}

// Device is a speech-synthesis output. At most one utterance is active at a
// time; Speak replaces whatever was playing.
type Device interface {
	Speak(u *Utterance) error
	Pause() error
	Resume() error
	Cancel() error
	Voices(ctx context.Context) ([]DeviceVoice, error)
}

// DeviceVoice is a voice as reported by a device.
type DeviceVoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
}
