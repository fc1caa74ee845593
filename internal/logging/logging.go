// Package logging configures zerolog for the process. Output goes to a file
// since the terminal belongs to the UI.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFile is the log path relative to the XDG state directory.
const DefaultFile = "wavestream/wavestream.log"

// Setup builds the process logger at the named level, writing JSON lines to
// path (or DefaultFile under the XDG state directory when empty). When the
// file cannot be opened logs are discarded. The returned func closes the
// file.
func Setup(level, path string) (zerolog.Logger, func() error) {
	lvl, lvlErr := zerolog.ParseLevel(level)
	if lvlErr != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = io.Discard
	closeFn := func() error { return nil }
	f, openErr := openLogFile(path)
	if openErr == nil {
		out = f
		closeFn = f.Close
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger

	if lvlErr != nil {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return logger, closeFn
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		p, err := xdg.StateFile(DefaultFile)
		if err != nil {
			return nil, err
		}
		path = p
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
