package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/llehouerou/wavestream/internal/playback"
	"github.com/llehouerou/wavestream/internal/playlist"
)

const albumPrefix = "album:"

type albumSource interface {
	Album(ctx context.Context, albumURL string) ([]playlist.Track, error)
}

// resolveArgs turns command line arguments into queue entries. An
// "album:<url>" argument expands to the album's tracks; anything else is a
// stream URL or a local file.
func resolveArgs(ctx context.Context, args []string, albums albumSource) ([]playback.Track, error) {
	var tracks []playback.Track
	for _, arg := range args {
		if albumURL, ok := strings.CutPrefix(arg, albumPrefix); ok {
			ts, err := albums.Album(ctx, albumURL)
			if err != nil {
				return nil, fmt.Errorf("album %s: %w", albumURL, err)
			}
			tracks = append(tracks, ts...)
			continue
		}
		t, err := trackFromArg(arg)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// trackFromArg builds an ad-hoc track. Its id is derived from the URL so
// the same source keeps the same id across runs.
func trackFromArg(arg string) (playback.Track, error) {
	u := arg
	if !strings.Contains(arg, "://") {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return playback.Track{}, err
		}
		if _, err := os.Stat(abs); err != nil {
			return playback.Track{}, err
		}
		u = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return playback.Track{}, fmt.Errorf("invalid source %q: %w", arg, err)
	}
	title := path.Base(parsed.Path)
	title = strings.TrimSuffix(title, path.Ext(title))
	if title == "." || title == "/" {
		title = ""
	}

	return playback.Track{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(u)).String(),
		StreamURL: u,
		Title:     title,
	}, nil
}
