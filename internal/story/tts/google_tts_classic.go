package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// a little under the 5000 byte request limit
const googleChunkLimit = 4800

// googleClassicDevice synthesises sentences with Google Cloud Text-to-Speech,
// caches the MP3s on disk and plays them through the local speaker.
type googleClassicDevice struct {
	client   *texttospeech.Client
	cacheDir string
	volume   float64

	mu         sync.Mutex
	active     *googleRun
	sampleRate beep.SampleRate
}

type googleRun struct {
	u      *Utterance
	ctx    context.Context
	cancel context.CancelFunc
	events *eventQueue

	ctrl   *beep.Ctrl
	paused bool
	resume chan struct{}
}

func newGoogleClassicDevice(config Config) (*googleClassicDevice, error) {
	client, err := texttospeech.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &googleClassicDevice{
		client:   client,
		cacheDir: config.CachePath,
		volume:   config.Volume,
	}, nil
}

func (g *googleClassicDevice) Speak(u *Utterance) error {
	ctx, cancel := context.WithCancel(context.Background())
	r := &googleRun{u: u, ctx: ctx, cancel: cancel, events: newEventQueue(u)}

	g.mu.Lock()
	prev := g.active
	g.active = r
	g.mu.Unlock()

	if prev != nil {
		prev.stop()
	}

	go g.play(r, limitSegments(SplitSentences(u.Text), googleChunkLimit))
	return nil
}

func (g *googleClassicDevice) play(r *googleRun, segments []Segment) {
	r.events.push(Event{Type: EventStart})

	for i, seg := range segments {
		if !g.waitWhilePaused(r) {
			return
		}

		path, err := g.synthesize(r.ctx, r.u, seg.Text)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			g.finish(r, fmt.Errorf("failed to synthesize chunk %d: %w", i, err))
			return
		}

		r.events.push(Event{Type: EventBoundary, CharIndex: seg.Offset, Name: BoundarySentence})

		if err := g.playFile(r, path); err != nil {
			if r.ctx.Err() != nil {
				return
			}
			g.finish(r, err)
			return
		}
		if r.ctx.Err() != nil {
			return
		}
	}
	g.finish(r, nil)
}

// synthesize returns the path of the cached MP3 for text, generating it on a
// cache miss.
func (g *googleClassicDevice) synthesize(ctx context.Context, u *Utterance, text string) (string, error) {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	contentHash := md5Sum(fmt.Sprintf("%s|%s|%.1f", text, u.Voice, rate))
	path := filepath.Join(g.cacheDir, contentHash+".mp3")

	if _, err := os.Stat(path); err == nil {
		logrus.WithField("file", path).Debug("using cached audio")
		return path, nil
	}

	lang := u.Lang
	if lang == "" {
		lang = "en-US"
	}
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices often don't support speakingRate/pitch/SSML, skip them
	if !strings.Contains(strings.ToLower(u.Voice), "chirp") {
		audioCfg.SpeakingRate = rate
		if gain := volumeGainDb(g.volume); gain != 0 {
			audioCfg.VolumeGainDb = gain
		}
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         u.Voice,
		},
		AudioConfig: audioCfg,
	}
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, resp.AudioContent, 0644); err != nil {
		return "", fmt.Errorf("failed to write MP3 to %s: %w", path, err)
	}
	logrus.WithField("file", path).Debug("cached audio chunk")
	return path, nil
}

// playFile plays one MP3 to completion. It returns early when the run is
// cancelled.
func (g *googleClassicDevice) playFile(r *googleRun, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	done := make(chan struct{})

	g.mu.Lock()
	if g.active != r {
		g.mu.Unlock()
		return nil
	}
	if g.sampleRate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			g.mu.Unlock()
			return err
		}
		g.sampleRate = format.SampleRate
	} else if g.sampleRate != format.SampleRate {
		source = beep.Resample(4, format.SampleRate, g.sampleRate, streamer)
	}
	ctrl := &beep.Ctrl{Streamer: source, Paused: r.paused}
	r.ctrl = ctrl
	g.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
	case <-r.ctx.Done():
	}

	g.mu.Lock()
	r.ctrl = nil
	g.mu.Unlock()
	return nil
}

func (g *googleClassicDevice) waitWhilePaused(r *googleRun) bool {
	g.mu.Lock()
	ch := r.resume
	g.mu.Unlock()

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

func (g *googleClassicDevice) finish(r *googleRun, err error) {
	g.mu.Lock()
	if g.active != r {
		g.mu.Unlock()
		return
	}
	g.active = nil
	g.mu.Unlock()

	r.cancel()
	if err != nil {
		r.events.finish(Event{Type: EventError, Err: err})
		return
	}
	r.events.finish(Event{Type: EventEnd})
}

func (r *googleRun) stop() {
	r.events.discard()
	r.cancel()
	speaker.Clear()
}

func (g *googleClassicDevice) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.active
	if r == nil || r.paused {
		return nil
	}
	if r.ctrl != nil {
		speaker.Lock()
		r.ctrl.Paused = true
		speaker.Unlock()
	}
	r.paused = true
	r.resume = make(chan struct{})
	r.events.push(Event{Type: EventPause})
	return nil
}

func (g *googleClassicDevice) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r := g.active
	if r == nil || !r.paused {
		return nil
	}
	if r.ctrl != nil {
		speaker.Lock()
		r.ctrl.Paused = false
		speaker.Unlock()
	}
	r.paused = false
	close(r.resume)
	r.resume = nil
	r.events.push(Event{Type: EventResume})
	return nil
}

func (g *googleClassicDevice) Cancel() error {
	g.mu.Lock()
	r := g.active
	g.active = nil
	g.mu.Unlock()

	if r != nil {
		r.stop()
	}
	return nil
}

func (g *googleClassicDevice) Voices(ctx context.Context) ([]DeviceVoice, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []DeviceVoice{}
	for _, v := range resp.Voices {
		for _, lang := range v.LanguageCodes {
			voices = append(voices, DeviceVoice{ID: v.Name, Name: googleVoiceName(v), Lang: lang})
		}
	}
	return voices, nil
}

// googleVoiceName appends the SSML gender so names carry it the way local
// synthesiser voices usually do.
func googleVoiceName(v *texttospeechpb.Voice) string {
	switch v.SsmlGender {
	case texttospeechpb.SsmlVoiceGender_FEMALE:
		return v.Name + " (Female)"
	case texttospeechpb.SsmlVoiceGender_MALE:
		return v.Name + " (Male)"
	default:
		return v.Name
	}
}

// Close releases the API client.
func (g *googleClassicDevice) Close() error {
	g.Cancel()
	return g.client.Close()
}

func volumeGainDb(volume float64) float64 {
	if volume <= 0 || volume == 1 {
		return 0
	}
	return math.Max(-96, math.Min(16, 20*math.Log10(volume)))
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
