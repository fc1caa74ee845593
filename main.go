package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/config"
	"github.com/llehouerou/wavestream/internal/crossfade"
	"github.com/llehouerou/wavestream/internal/errmsg"
	"github.com/llehouerou/wavestream/internal/lastfm"
	"github.com/llehouerou/wavestream/internal/logging"
	"github.com/llehouerou/wavestream/internal/mpris"
	"github.com/llehouerou/wavestream/internal/notify"
	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/player"
	"github.com/llehouerou/wavestream/internal/playlist"
	"github.com/llehouerou/wavestream/internal/refresh"
	"github.com/llehouerou/wavestream/internal/state"
)

const historyRetention = 30 * 24 * time.Hour

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%s: %w", errmsg.OpConfigLoad, err)
	}

	logger, closeLog := logging.Setup(cfg.GetLogLevel(), cfg.Log.File)
	defer closeLog() //nolint:errcheck // nothing left to report to

	store, err := state.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()
	if err := store.PruneHistory(historyRetention); err != nil {
		logger.Warn().Err(err).Msg("prune listening history")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := refresh.NewClient(cfg.GetRefreshTimeout(), logger)
	tracks, err := resolveArgs(ctx, args, refresher)
	if err != nil {
		return err
	}

	pb := cfg.GetPlaybackConfig()
	a := player.New("a", player.WithLogger(logger))
	defer a.Close()
	b := player.New("b", player.WithLogger(logger))
	defer b.Close()
	xf := crossfade.New(a, b, crossfade.Config{Duration: pb.Crossfade}, logger)

	var wg sync.WaitGroup
	opts := []playback.Option{
		playback.WithLogger(logger),
		playback.WithRefresher(refresher),
	}
	if reporter := newReporter(cfg, store, logger); reporter != nil {
		wg.Go(func() { _ = reporter.Run(ctx) })
		opts = append(opts, playback.WithReporter(reporter))
	}

	ctrl := playback.New(xf, playlist.NewQueue(), playback.Config{
		CrossfadeLead:    pb.CrossfadeLead,
		EndTolerance:     pb.EndTolerance,
		PauseGuard:       pb.PauseGuard,
		RestoreTolerance: pb.RestoreTolerance,
		RefreshTimeout:   cfg.GetRefreshTimeout(),
		MaxAttempts:      pb.MaxLoadAttempts,
		RetryBackoff:     pb.RetryBackoff,
	}, opts...)

	session := playback.SessionState{Volume: pb.Volume, Repeat: pb.Repeat}
	if saved, err := store.LoadSession(); err != nil {
		logger.Warn().Err(err).Str("op", string(errmsg.OpSessionRestore)).Msg("load saved session")
	} else if saved != nil {
		session = *saved
	}
	if len(tracks) > 0 {
		session.Tracks, session.Index = tracks, 0
		session.TrackID, session.Position = "", 0
	}

	// Subscribe before anything can fail so the UI sees every error.
	uiSub := ctrl.Subscribe()
	persister := state.NewPersister(store, ctrl, logger)
	wg.Go(func() { _ = persister.Run(ctx) })
	wg.Go(func() { _ = ctrl.Run(ctx) })
	if cfg.Notifications {
		startTrackNotifications(ctx, &wg, ctrl, logger)
	}

	ctrl.Restore(session)
	if len(tracks) > 0 {
		ctrl.Play()
	}

	if mp, err := mpris.New(ctrl, logger); err != nil {
		logger.Warn().Err(err).Msg("mpris unavailable")
	} else {
		defer mp.Close()
	}

	restoreStderr, err := logging.CaptureStderr(logger)
	if err != nil {
		logger.Warn().Err(err).Msg("stderr capture unavailable")
	} else {
		defer restoreStderr()
	}

	p := tea.NewProgram(newModel(ctrl, uiSub.Error), tea.WithAltScreen())
	_, runErr := p.Run()

	// Close first so the reporter sees the final stop before shutdown.
	_ = ctrl.Close()
	cancel()
	wg.Wait()
	return runErr
}

func newReporter(cfg *config.Config, store *state.Manager, logger zerolog.Logger) *lastfm.Reporter {
	if !cfg.HasLastfmConfig() {
		return nil
	}
	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)

	sessionKey := cfg.Lastfm.SessionKey
	if sessionKey != "" {
		if err := store.SaveLastfmSession(cfg.Lastfm.Username, sessionKey); err != nil {
			logger.Warn().Err(err).Msg("save lastfm session")
		}
	} else if s, err := store.GetLastfmSession(); err != nil {
		logger.Warn().Err(err).Msg("load lastfm session")
	} else if s != nil {
		sessionKey = s.SessionKey
	}
	if sessionKey == "" {
		logger.Info().Msg("lastfm configured without a session key, scrobbles are queued")
	}
	client.SetSessionKey(sessionKey)
	return lastfm.NewReporter(client, store, logger)
}

func startTrackNotifications(ctx context.Context, wg *sync.WaitGroup, ctrl *playback.Controller, logger zerolog.Logger) {
	n, err := notify.New()
	if err != nil {
		logger.Warn().Err(err).Msg("notifications unavailable")
		return
	}
	sub := ctrl.Subscribe()
	w := notify.NewTrackWatcher(n, logger)
	wg.Go(func() { w.Run(ctx, sub.TrackChanged, sub.Done) })
}
