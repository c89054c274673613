package teller

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"storyteller/internal/cli/scheme/colours"
	"storyteller/internal/config"
	"storyteller/internal/domain/completion"
	"storyteller/internal/domain/imagery"
	"storyteller/internal/domain/story"
	"storyteller/internal/httpclient"
	"storyteller/internal/story/speech"
	"storyteller/internal/story/studio"
	"storyteller/internal/story/tts"
	"storyteller/internal/web"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const voiceWait = 10 * time.Second

// StoryTeller main application structure
type StoryTeller struct {
	cfg       *config.Config
	generator completion.Generator
	device    tts.Device

	Voices *tts.Catalog
	Speech *speech.Controller
	Studio *studio.Studio

	ctx    context.Context
	Cancel context.CancelFunc
}

func NewStoryTeller(cfg *config.Config) (*StoryTeller, error) {
	ctx, cancel := context.WithCancel(context.Background())

	device, err := tts.NewDevice(tts.Config{
		Type:      cfg.TTS.Type,
		Rate:      cfg.TTS.Rate,
		Volume:    cfg.TTS.Volume,
		Voice:     cfg.TTS.Voice,
		CachePath: cfg.TTS.CachePath,
	})
	if err != nil {
		logrus.WithError(err).Warn("speech device unavailable, using the simulated device")
		device, _ = tts.NewDevice(tts.Config{Type: tts.DeviceTypeMock.String(), Rate: cfg.TTS.Rate})
	}

	catalog := tts.NewCatalog(device, cfg.TTS.Voice)
	catalog.Load(ctx)

	generator, err := completion.NewGenerator(ctx, completion.Config{
		Provider:    cfg.Completion.Provider,
		Model:       cfg.Completion.Model,
		BaseURL:     cfg.Completion.BaseURL,
		APIKey:      cfg.Completion.APIKey,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		HTTPClient:  httpclient.New("completion", cfg.HTTP.Timeout),
	})
	if err != nil {
		cancel()
		return nil, err
	}
	if cfg.Completion.APIKey == "" {
		logrus.WithField("provider", cfg.Completion.Provider).Warn("no completion API key configured, generation will fail")
	}

	var finder imagery.Finder
	if cfg.Image.Enabled {
		pexels := imagery.NewPexels(cfg.Image.Endpoint, cfg.Image.APIKey, httpclient.New("pexels", cfg.HTTP.Timeout))
		finder = imagery.NewCache(pexels, cfg.Image.CacheTTL)
	}

	controller := speech.NewController(device, catalog, cfg.TTS.Rate)

	return &StoryTeller{
		cfg:       cfg,
		generator: generator,
		device:    device,
		Voices:    catalog,
		Speech:    controller,
		Studio:    studio.New(generator, finder, story.NewStore(), controller, catalog),
		ctx:       ctx,
		Cancel:    cancel,
	}, nil
}

// Close stops speech and releases the device and completion clients.
func (st *StoryTeller) Close() {
	st.Cancel()
	st.device.Cancel()
	for _, c := range []any{st.device, st.generator} {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logrus.WithError(err).Debug("close")
			}
		}
	}
}

func (st *StoryTeller) ShowWelcome() {
	fmt.Println()
	colours.Title.Println("🌟 Welcome to Storyteller! 🌟")
	fmt.Println()
	colours.Info.Println("📚 Available commands:")
	fmt.Println("  • storyteller serve             - Open the story studio in your browser")
	fmt.Println("  • storyteller generate <prompt> - Write a new story from a prompt")
	fmt.Println("  • storyteller voices            - List the voices available for reading")
	fmt.Println()
	colours.Prompt.Println("✨ Ready for a magical story adventure? ✨")
}

func (st *StoryTeller) Serve(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = st.cfg.Server.Addr
	}

	app := web.NewApp(web.NewHandler(st.Studio, st.generator))
	colours.Success.Printf("✨ Story studio running at http://%s\n", displayAddr(addr))
	return web.Serve(st.ctx, app, addr)
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

func (st *StoryTeller) Generate(cmd *cobra.Command, args []string) error {
	read, _ := cmd.Flags().GetBool("read")
	prompt := strings.Join(args, " ")

	colours.Info.Println("🪄 Writing your story...")
	s, err := st.Studio.Generate(st.ctx, prompt)
	if err != nil {
		colours.Error.Printf("❌ Failed to generate story: %v\n", err)
		return err
	}

	st.displayStory(s)
	if read {
		st.readAloud(s)
	}
	return nil
}

func (st *StoryTeller) displayStory(s story.Story) {
	fmt.Println()
	colours.Title.Printf("📖 %s\n", s.Title)
	if s.HasImage() {
		colours.Image.Printf("🖼️  %s\n", s.ImageURL)
		if s.ImageAlt != "" {
			colours.Caption.Printf("   %s\n", s.ImageAlt)
		}
	}
	fmt.Println()
	for i, p := range s.Paragraphs() {
		colours.Info.Printf("%d. ", i+1)
		fmt.Println(p)
		fmt.Println()
	}
}

func (st *StoryTeller) waitForVoices() bool {
	ctx, cancel := context.WithTimeout(st.ctx, voiceWait)
	defer cancel()

	if err := st.Voices.Wait(ctx); err != nil {
		colours.Error.Printf("❌ Could not load voices: %v\n", err)
		return false
	}
	return true
}

func (st *StoryTeller) readAloud(s story.Story) {
	if !st.waitForVoices() {
		return
	}
	if _, err := st.Studio.ToggleSpeech(); err != nil {
		colours.Error.Printf("❌ TTS Error: %v\n", err)
		return
	}

	colours.Playback.Println("🎵 Starting story playback... 🎵")
	fmt.Println("💡 Press Ctrl+C to stop anytime")

	st.waitForUserInput(len(s.Paragraphs()))
}

// waitForUserInput handles playback keys until the story ends, the user
// stops it or the context is cancelled.
func (st *StoryTeller) waitForUserInput(paragraphs int) {
	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			input, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(strings.ToLower(input))
		}
	}()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	prompt := func() {
		fmt.Printf("\n⏸️  'p' pause/resume, 's' stop, 1-%d play a paragraph, '+'/'-' speed: ", paragraphs)
	}
	prompt()

	for {
		select {
		case <-st.ctx.Done():
			return

		case <-ticker.C:
			if st.Speech.Snapshot().State == speech.Stopped {
				fmt.Println()
				colours.Success.Println("✅ Story finished! 🌟")
				colours.Prompt.Println("😴 Sleep tight! 🌙")
				return
			}

		case input, ok := <-lines:
			if !ok {
				return
			}
			if st.handleKey(input) {
				return
			}
			prompt()
		}
	}
}

// handleKey applies one line of input and reports whether playback ended.
func (st *StoryTeller) handleKey(input string) bool {
	switch input {
	case "p", "pause":
		snap, err := st.Studio.ToggleSpeech()
		switch {
		case err != nil:
			colours.Error.Printf("❌ %v\n", err)
		case snap.State == speech.Paused:
			colours.Playback.Println("⏸️  Paused")
		default:
			colours.Playback.Println("▶️  Resumed")
		}
	case "s", "stop":
		st.Studio.StopSpeech()
		colours.Warning.Println("⏹️  Stopped")
		return true
	case "+", "-":
		delta := 0.1
		if input == "-" {
			delta = -delta
		}
		rate, err := st.Studio.ChangeRate(delta)
		if err != nil {
			colours.Error.Printf("❌ %v\n", err)
		} else {
			colours.Info.Printf("🐢 Speed %.1fx\n", rate)
		}
	case "":
	default:
		n, err := strconv.Atoi(input)
		if err != nil {
			colours.Info.Println("ℹ️  Use 'p' for pause/resume, 's' to stop")
			return false
		}
		if _, err := st.Studio.PlayParagraph(n - 1); err != nil {
			colours.Error.Printf("❌ %v\n", err)
		} else {
			colours.Playback.Printf("▶️  Paragraph %d\n", n)
		}
	}
	return false
}

func (st *StoryTeller) ListVoices(cmd *cobra.Command, args []string) error {
	if !st.waitForVoices() {
		return st.Voices.Err()
	}

	fmt.Println()
	colours.Title.Println("🎤 Available Voices 🎤")
	fmt.Println()

	voices := st.Voices.Voices()
	if len(voices) == 0 {
		colours.Warning.Println("🔍 No English voices found on this device.")
		return nil
	}

	current, _ := st.Voices.Current()
	for i, v := range voices {
		fmt.Printf("  %d. ", i+1)
		colours.Title.Printf("%s", v.Name)
		fmt.Printf(" (%s, %s)", v.Lang, v.Gender)
		if v.Name == current.Name {
			colours.Success.Print("  ← current")
		}
		fmt.Println()
	}
	fmt.Println()
	colours.Info.Println("💡 Set tts.voice in storyteller.yaml or STORYTELLER_TTS_VOICE to choose one")
	return nil
}
