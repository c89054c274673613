package main

import (
	"fmt"
	"os"
	"os/signal"
	"storyteller/internal/cli/scheme/colours"
	"storyteller/internal/config"
	"storyteller/internal/story/teller"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {

	config.Init()
	cfg := config.Load()
	config.SetupLogging(cfg.Log)

	app, err := teller.NewStoryTeller(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to start storyteller")
	}
	defer app.Close()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Speech.SelectionChanged()
		app.Cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
	}()

	rootCmd := &cobra.Command{
		Use:   "storyteller",
		Short: "🪄 AI bedtime stories, read aloud",
		Long: `
┌─────────────────────────────────────┐
│  📚 Welcome to Storyteller! 🪄      │
│  Stories written from your prompts  │
│  and read aloud 👶✨                │
└─────────────────────────────────────┘

Storyteller writes short family-friendly stories from a prompt, finds a
matching picture and reads them aloud. Perfect for bedtime! 🌙
		`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			noColor, _ := cmd.Flags().GetBool("no-color")
			colours.Plain(noColor)
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
		SilenceUsage: true,
	}

	// Serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "🌐 Run the story studio",
		Long:  "Serve the story studio page and API on the local machine",
		RunE:  app.Serve,
	}

	// Generate command
	generateCmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "🪄 Write a story from a prompt",
		Long:  "Ask the completion service for a new story and optionally read it aloud",
		Args:  cobra.MinimumNArgs(1),
		RunE:  app.Generate,
	}

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List available voices",
		Long:  "Show the English voices offered by the speech device",
		RunE:  app.ListVoices,
	}

	// Add flags
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")
	serveCmd.Flags().String("addr", "", "Listen address (default from server.addr)")
	generateCmd.Flags().BoolP("read", "r", false, "Read the story aloud once generated")

	rootCmd.AddCommand(serveCmd, generateCmd, voicesCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
}
