package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// commandDevice speaks by running a local synthesiser binary once per
// sentence. Boundary events are emitted as each sentence starts.
type commandDevice struct {
	name   string
	binary string
	args   func(u *Utterance, text string) []string
	voices func(ctx context.Context, binary string) ([]DeviceVoice, error)

	mu     sync.Mutex
	active *commandRun
}

type commandRun struct {
	u      *Utterance
	ctx    context.Context
	cancel context.CancelFunc
	events *eventQueue

	proc   *os.Process
	paused bool
	resume chan struct{}
}

func findExecutable(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("none of %v found in PATH", candidates)
}

func (d *commandDevice) Speak(u *Utterance) error {
	segments := SplitSentences(u.Text)

	ctx, cancel := context.WithCancel(context.Background())
	r := &commandRun{u: u, ctx: ctx, cancel: cancel, events: newEventQueue(u)}

	d.mu.Lock()
	prev := d.active
	d.active = r
	d.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go d.play(r, segments)
	return nil
}

func (d *commandDevice) play(r *commandRun, segments []Segment) {
	r.events.push(Event{Type: EventStart})

	for _, seg := range segments {
		if !d.waitWhilePaused(r) {
			return
		}
		r.events.push(Event{Type: EventBoundary, CharIndex: seg.Offset, Name: BoundarySentence})

		cmd := exec.CommandContext(r.ctx, d.binary, d.args(r.u, seg.Text)...)
		if err := cmd.Start(); err != nil {
			d.finish(r, fmt.Errorf("%s: %w", d.name, err))
			return
		}

		d.mu.Lock()
		if d.active != r {
			d.mu.Unlock()
			cmd.Process.Kill()
			cmd.Wait()
			return
		}
		r.proc = cmd.Process
		if r.paused {
			if err := suspendProcess(cmd.Process); err != nil && !errors.Is(err, ErrPauseUnsupported) {
				logrus.WithError(err).Warnf("%s: could not suspend process", d.name)
			}
		}
		d.mu.Unlock()

		err := cmd.Wait()

		d.mu.Lock()
		r.proc = nil
		stale := d.active != r
		d.mu.Unlock()

		if stale || r.ctx.Err() != nil {
			return
		}
		if err != nil {
			d.finish(r, fmt.Errorf("%s: %w", d.name, err))
			return
		}
	}
	d.finish(r, nil)
}

// waitWhilePaused blocks until the run is resumed. It reports false when the
// run was cancelled instead.
func (d *commandDevice) waitWhilePaused(r *commandRun) bool {
	d.mu.Lock()
	ch := r.resume
	d.mu.Unlock()

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

func (d *commandDevice) finish(r *commandRun, err error) {
	d.mu.Lock()
	if d.active != r {
		d.mu.Unlock()
		return
	}
	d.active = nil
	d.mu.Unlock()

	r.cancel()
	if err != nil {
		r.events.finish(Event{Type: EventError, Err: err})
		return
	}
	r.events.finish(Event{Type: EventEnd})
}

func (r *commandRun) stop() {
	r.events.discard()
	r.cancel()
}

func (d *commandDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.active
	if r == nil || r.paused {
		return nil
	}
	if r.proc != nil {
		if err := suspendProcess(r.proc); err != nil && !errors.Is(err, ErrPauseUnsupported) {
			return err
		}
	}
	r.paused = true
	r.resume = make(chan struct{})
	r.events.push(Event{Type: EventPause})
	return nil
}

func (d *commandDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := d.active
	if r == nil || !r.paused {
		return nil
	}
	if r.proc != nil {
		if err := resumeProcess(r.proc); err != nil {
			return err
		}
	}
	r.paused = false
	close(r.resume)
	r.resume = nil
	r.events.push(Event{Type: EventResume})
	return nil
}

// Cancel stops the active utterance without waiting for the process to exit.
// No further events are delivered for it.
func (d *commandDevice) Cancel() error {
	d.mu.Lock()
	r := d.active
	d.active = nil
	d.mu.Unlock()

	if r != nil {
		r.stop()
	}
	return nil
}

func (d *commandDevice) Voices(ctx context.Context) ([]DeviceVoice, error) {
	return d.voices(ctx, d.binary)
}
