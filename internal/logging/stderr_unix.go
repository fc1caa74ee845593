//go:build !windows

package logging

import (
	"bufio"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

// CaptureStderr redirects file descriptor 2 into logger so that messages
// written by C audio libraries (ALSA) do not corrupt the terminal UI. The
// returned func restores the original stderr.
func CaptureStderr(logger zerolog.Logger) (restore func(), err error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				logger.Warn().Str("source", "stderr").Msg(line)
			}
		}
	}()

	return func() {
		_ = syscall.Dup2(orig, int(os.Stderr.Fd()))
		_ = syscall.Close(orig)
		w.Close()
		<-done
		r.Close()
	}, nil
}
