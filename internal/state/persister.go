package state

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/errmsg"
	"github.com/llehouerou/wavestream/internal/playback"
)

// SessionSource is the part of the playback controller the persister needs.
type SessionSource interface {
	Subscribe() *playback.Subscription
	SessionState() playback.SessionState
}

// Persister saves the session whenever the controller reports a change.
type Persister struct {
	store  SessionStore
	src    SessionSource
	logger zerolog.Logger
}

func NewPersister(store SessionStore, src SessionSource, logger zerolog.Logger) *Persister {
	return &Persister{
		store:  store,
		src:    src,
		logger: logger.With().Str("component", "persister").Logger(),
	}
}

// Run saves until ctx is done or the controller closes, then flushes.
func (p *Persister) Run(ctx context.Context) error {
	sub := p.src.Subscribe()
	defer func() {
		if err := p.store.Flush(); err != nil {
			p.logger.Warn().Err(err).Str("op", string(errmsg.OpSessionSave)).Msg("flush session")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			p.store.SaveSession(p.src.SessionState())
			return ctx.Err()
		case <-sub.Done:
			return nil
		case <-sub.StateChanged:
		case <-sub.TrackChanged:
		case <-sub.QueueChanged:
		case <-sub.ModeChanged:
		case <-sub.VolumeChanged:
		case <-sub.PositionChanged:
		}
		p.store.SaveSession(p.src.SessionState())
	}
}
