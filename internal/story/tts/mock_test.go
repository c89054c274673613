package tts

import (
	"testing"
	"time"
)

func collect(u *Utterance) <-chan Event {
	ch := make(chan Event, 32)
	u.OnEvent = func(e Event) { ch <- e }
	return ch
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSimulatedDevicePlaysSentences(t *testing.T) {
	d := newSimulatedDevice(Config{Rate: 1})
	d.wordTime = time.Millisecond

	u := &Utterance{Text: "One two. Three four.\nFive."}
	events := collect(u)
	if err := d.Speak(u); err != nil {
		t.Fatalf("speak: %v", err)
	}

	if e := next(t, events); e.Type != EventStart {
		t.Fatalf("expected start, got %s", e.Type)
	}
	for _, offset := range []int{0, 8, 21} {
		e := next(t, events)
		if e.Type != EventBoundary || e.Name != BoundarySentence || e.CharIndex != offset {
			t.Fatalf("expected sentence boundary at %d, got %+v", offset, e)
		}
	}
	if e := next(t, events); e.Type != EventEnd {
		t.Fatalf("expected end, got %s", e.Type)
	}
	if d.Current() != nil {
		t.Error("no utterance should be current after the end")
	}
}

func TestSimulatedDevicePauseAndCancel(t *testing.T) {
	d := newSimulatedDevice(Config{Rate: 1})
	d.wordTime = 20 * time.Millisecond

	u := &Utterance{Text: "One. Two. Three."}
	events := collect(u)
	d.Speak(u)
	next(t, events) // start

	d.Pause()
	d.Pause()
	sawPause := false
	for !sawPause {
		if e := next(t, events); e.Type == EventPause {
			sawPause = true
		}
	}

	d.Cancel()
	select {
	case e := <-events:
		t.Errorf("no events expected after cancel, got %s", e.Type)
	case <-time.After(100 * time.Millisecond):
	}

	pauses, resumes, cancels := d.Counts()
	if pauses != 2 || resumes != 0 || cancels != 1 {
		t.Errorf("unexpected counts %d/%d/%d", pauses, resumes, cancels)
	}
}

func TestMockDeviceManualEvents(t *testing.T) {
	d := NewMockDevice()
	first := &Utterance{Text: "a"}
	second := &Utterance{Text: "b"}
	firstEvents := collect(first)
	secondEvents := collect(second)

	d.Speak(first)
	d.Speak(second)
	if d.Current() != second {
		t.Fatal("second utterance should be current")
	}
	if n := len(d.Spoken()); n != 2 {
		t.Fatalf("expected 2 spoken utterances, got %d", n)
	}

	d.EmitTo(first, Event{Type: EventEnd})
	if e := <-firstEvents; e.Type != EventEnd {
		t.Errorf("expected end on first, got %s", e.Type)
	}

	d.Finish()
	if e := <-secondEvents; e.Type != EventEnd {
		t.Errorf("expected end on second, got %s", e.Type)
	}
	if d.Current() != nil {
		t.Error("finish should clear the current utterance")
	}
}

func TestSimulatedDeviceFollowsUtteranceRate(t *testing.T) {
	d := newSimulatedDevice(Config{Rate: 1})

	tests := []struct {
		rate float64
		want time.Duration
	}{
		{rate: 1, want: 400 * time.Millisecond},
		{rate: 2, want: 200 * time.Millisecond},
		{rate: 0.5, want: 800 * time.Millisecond},
		{rate: 0, want: 400 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := d.wordDuration(&Utterance{Rate: tt.rate}); got != tt.want {
			t.Errorf("rate %v: expected %v per word, got %v", tt.rate, tt.want, got)
		}
	}

	slow := newSimulatedDevice(Config{Rate: 0.5})
	if got := slow.wordDuration(&Utterance{}); got != 800*time.Millisecond {
		t.Errorf("utterance without a rate should use the device default, got %v", got)
	}
}
