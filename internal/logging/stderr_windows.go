//go:build windows

package logging

import "github.com/rs/zerolog"

// CaptureStderr is a no-op on Windows.
func CaptureStderr(zerolog.Logger) (func(), error) {
	return func() {}, nil
}
