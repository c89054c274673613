// Cross-platform eSpeak implementation
package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// espeak's default speaking speed in words per minute.
const espeakBaseWPM = 175

// newESpeakDevice creates a device backed by espeak-ng or espeak.
func newESpeakDevice(config Config) (Device, error) {
	espeakPath, err := findExecutable("espeak-ng", "espeak")
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	// Test the installation
	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &commandDevice{
		name:   "espeak",
		binary: espeakPath,
		args: func(u *Utterance, text string) []string {
			return espeakArgs(u, text, config.Volume)
		},
		voices: listESpeakVoices,
	}, nil
}

func espeakArgs(u *Utterance, text string, defaultVolume float64) []string {
	args := []string{}

	if u.Voice != "" && u.Voice != "default" {
		args = append(args, "-v", u.Voice)
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-s", strconv.Itoa(int(espeakBaseWPM*rate)))

	// Amplitude is 0-200 with 100 as default
	volume := u.Volume
	if volume <= 0 {
		volume = defaultVolume
	}
	if volume > 0 {
		args = append(args, "-a", strconv.Itoa(int(100*volume)))
	}

	if u.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(int(50*u.Pitch)))
	}

	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "--", text)
}

func listESpeakVoices(ctx context.Context, binary string) ([]DeviceVoice, error) {
	output, err := exec.CommandContext(ctx, binary, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []DeviceVoice {
	lines := strings.Split(output, "\n")
	voices := make([]DeviceVoice, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName          File          Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, DeviceVoice{
				ID:   fields[1],
				Name: fields[3],
				Lang: fields[1],
			})
		}
	}

	return voices
}
