package speech

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid playback transition")

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether an utterance belongs to this state.
func (s State) Active() bool {
	return s == Playing || s == Paused
}

type Trigger int

const (
	StartStory Trigger = iota
	StartParagraph
	PauseRequest
	ResumeRequest
	StopRequest
	UtteranceEnd
	DeviceError
	SelectionChange
)

func (t Trigger) String() string {
	switch t {
	case StartStory:
		return "start story"
	case StartParagraph:
		return "start paragraph"
	case PauseRequest:
		return "pause"
	case ResumeRequest:
		return "resume"
	case StopRequest:
		return "stop"
	case UtteranceEnd:
		return "utterance end"
	case DeviceError:
		return "device error"
	case SelectionChange:
		return "selection change"
	default:
		return "unknown"
	}
}

// Next returns the state reached by applying t in from. Pairs missing from
// the transition table are rejected with ErrInvalidTransition.
func Next(from State, t Trigger) (State, error) {
	switch t {
	case SelectionChange:
		return Stopped, nil
	case StartStory, StartParagraph:
		if from == Stopped {
			return Playing, nil
		}
	case PauseRequest:
		if from == Playing {
			return Paused, nil
		}
	case ResumeRequest:
		if from == Paused {
			return Playing, nil
		}
	case StopRequest, UtteranceEnd, DeviceError:
		if from.Active() {
			return Stopped, nil
		}
	}
	return from, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, t, from)
}
