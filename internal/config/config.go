package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/wavestream/internal/playlist"
)

type Config struct {
	Database string `koanf:"database"` // SQLite path; empty means the XDG data dir

	Playback PlaybackSection `koanf:"playback"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Refresh RefreshSection `koanf:"refresh"`

	Log LogConfig `koanf:"log"`

	// Desktop notification on track change (Linux only)
	Notifications bool `koanf:"notifications"`
}

// PlaybackSection is the raw [playback] table.
type PlaybackSection struct {
	CrossfadeSeconds     float64  `koanf:"crossfade_seconds"`      // 0 disables crossfade
	CrossfadeLeadSeconds float64  `koanf:"crossfade_lead_seconds"` // default: crossfade_seconds
	EndToleranceMs       int      `koanf:"end_tolerance_ms"`       // default: 500
	PauseGuardMs         int      `koanf:"pause_guard_ms"`         // default: 2000
	RestoreToleranceMs   int      `koanf:"restore_tolerance_ms"`   // default: 500
	MaxLoadAttempts      int      `koanf:"max_load_attempts"`      // default: 2
	RetryBackoffMs       int      `koanf:"retry_backoff_ms"`       // default: 750
	Volume               *float64 `koanf:"volume"`                 // 0.0-1.0, default: 1.0
	Repeat               string   `koanf:"repeat"`                 // off, all, track; default: off
}

// PlaybackConfig is the [playback] table with defaults applied.
type PlaybackConfig struct {
	Crossfade        time.Duration
	CrossfadeLead    time.Duration
	EndTolerance     time.Duration
	PauseGuard       time.Duration
	RestoreTolerance time.Duration
	MaxLoadAttempts  int
	RetryBackoff     time.Duration
	Volume           float64
	Repeat           playlist.RepeatMode // used when no session was saved
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
	Username   string `koanf:"username"`
}

// RefreshSection holds stream URL refresh settings.
type RefreshSection struct {
	TimeoutSeconds int `koanf:"timeout_seconds"` // default: 15
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // zerolog level name, default: info
	File  string `koanf:"file"`  // default: $XDG_STATE_HOME/wavestream/wavestream.log
}

func Load() (*Config, error) {
	return loadFrom(getConfigPaths())
}

func loadFrom(paths []string) (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Database = expandPath(cfg.Database)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/wavestream/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wavestream", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	raw := c.Playback
	cfg := PlaybackConfig{
		Crossfade:        seconds(raw.CrossfadeSeconds),
		CrossfadeLead:    seconds(raw.CrossfadeLeadSeconds),
		EndTolerance:     millis(raw.EndToleranceMs, 500),
		PauseGuard:       millis(raw.PauseGuardMs, 2000),
		RestoreTolerance: millis(raw.RestoreToleranceMs, 500),
		MaxLoadAttempts:  raw.MaxLoadAttempts,
		RetryBackoff:     millis(raw.RetryBackoffMs, 750),
		Volume:           1,
		Repeat:           playlist.ParseRepeatMode(raw.Repeat),
	}

	// Apply defaults
	if cfg.Crossfade > 0 && cfg.CrossfadeLead <= 0 {
		cfg.CrossfadeLead = cfg.Crossfade
	}
	if cfg.MaxLoadAttempts <= 0 || cfg.MaxLoadAttempts > 10 {
		cfg.MaxLoadAttempts = 2
	}
	if raw.Volume != nil && *raw.Volume >= 0 && *raw.Volume <= 1 {
		cfg.Volume = *raw.Volume
	}

	return cfg
}

// GetRefreshTimeout returns the refresh request timeout.
func (c *Config) GetRefreshTimeout() time.Duration {
	if c.Refresh.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Refresh.TimeoutSeconds) * time.Second
}

// GetLogLevel returns the configured log level name, "info" by default.
func (c *Config) GetLogLevel() string {
	if c.Log.Level == "" {
		return "info"
	}
	return c.Log.Level
}
