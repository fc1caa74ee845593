//go:build linux

package mpris

import (
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/rs/zerolog"
)

const busSuffix = "wavestream"

// Adapter publishes the controller as org.mpris.MediaPlayer2.wavestream.
type Adapter struct {
	srv    *server.Server
	logger zerolog.Logger
}

// New registers the player on the session bus and serves it until Close.
func New(ctrl Controller, logger zerolog.Logger) (*Adapter, error) {
	logger = logger.With().Str("component", "mpris").Logger()
	a := &Adapter{
		srv:    server.NewServer(busSuffix, &rootAdapter{}, &playerAdapter{ctrl: ctrl}),
		logger: logger,
	}
	go a.serve()
	return a, nil
}

func (a *Adapter) serve() {
	if err := a.srv.Listen(); err != nil {
		a.logger.Warn().Err(err).Msg("listen stopped")
	}
}

// Close releases the bus name.
func (a *Adapter) Close() error {
	return a.srv.Stop()
}
