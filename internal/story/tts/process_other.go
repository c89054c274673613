//go:build !unix

package tts

import "os"

// Synthesiser processes cannot be suspended here; pausing still holds back
// the next sentence.
func suspendProcess(p *os.Process) error {
	return ErrPauseUnsupported
}

func resumeProcess(p *os.Process) error {
	return nil
}
