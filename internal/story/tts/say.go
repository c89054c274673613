package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// say's default speaking speed in words per minute.
const sayBaseWPM = 175

// newSayDevice creates a device backed by the macOS say command.
func newSayDevice(config Config) (Device, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("say device only supports macOS")
	}
	sayPath, err := findExecutable("say")
	if err != nil {
		return nil, err
	}

	return &commandDevice{
		name:   "say",
		binary: sayPath,
		args:   sayArgs,
		voices: listSayVoices,
	}, nil
}

func sayArgs(u *Utterance, text string) []string {
	args := []string{}
	if u.Voice != "" && u.Voice != "default" {
		args = append(args, "-v", u.Voice)
	}
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	args = append(args, "-r", strconv.Itoa(int(sayBaseWPM*rate)))
	return append(args, "--", text)
}

func listSayVoices(ctx context.Context, binary string) ([]DeviceVoice, error) {
	output, err := exec.CommandContext(ctx, binary, "-v", "?").Output()
	if err != nil {
		return nil, err
	}
	return parseSayVoices(string(output)), nil
}

// parseSayVoices reads lines such as
//
//	Bad News            en_US    # The light you see at the end of the tunnel...
//
// where the name may contain spaces and the locale is the last token before '#'.
func parseSayVoices(output string) []DeviceVoice {
	voices := make([]DeviceVoice, 0)
	for _, line := range strings.Split(output, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		locale := fields[len(fields)-1]
		name := strings.Join(fields[:len(fields)-1], " ")
		voices = append(voices, DeviceVoice{
			ID:   name,
			Name: name,
			Lang: strings.ReplaceAll(locale, "_", "-"),
		})
	}
	return voices
}
