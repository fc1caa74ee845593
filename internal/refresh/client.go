// Package refresh fetches fresh stream URLs from album reference documents.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavestream/internal/playlist"
)

const (
	userAgent      = "Wavestream/0.1 (https://github.com/llehouerou/wavestream)"
	defaultTimeout = 15 * time.Second

	// Retry configuration
	maxRetries   = 2
	initialDelay = 500 * time.Millisecond
	maxDelay     = 5 * time.Second
)

// ErrNotFound is returned when the album document itself is gone.
var ErrNotFound = errors.New("album not found")

// preferredFormats lists file keys in order of preference when a track
// carries several encodings.
var preferredFormats = []string{"mp3-v0", "mp3-320", "mp3-128", "flac", "wav"}

// Client resolves track ids to stream URLs by fetching the album document.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
	retryDelay time.Duration
}

// NewClient creates a refresh client. A zero timeout uses the default.
func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "refresh").Logger(),
		retryDelay: initialDelay,
	}
}

// Refresh fetches albumURL and returns the current stream URL of trackID.
// It returns an empty URL and no error when the album no longer lists the
// track.
func (c *Client) Refresh(ctx context.Context, trackID, albumURL string) (string, error) {
	if albumURL == "" {
		return "", errors.New("no album reference")
	}
	doc, err := c.fetch(ctx, albumURL)
	if err != nil {
		return "", err
	}
	for i := range doc.Tracks {
		t := &doc.Tracks[i]
		if t.ID != trackID {
			continue
		}
		u := t.streamURL()
		c.logger.Debug().Str("track", trackID).Bool("found", u != "").Msg("album document fetched")
		return u, nil
	}
	c.logger.Info().Str("track", trackID).Str("album", albumURL).Msg("track no longer listed")
	return "", nil
}

// Album fetches albumURL and returns its playable tracks in order.
func (c *Client) Album(ctx context.Context, albumURL string) ([]playlist.Track, error) {
	doc, err := c.fetch(ctx, albumURL)
	if err != nil {
		return nil, err
	}
	tracks := doc.tracks(albumURL)
	c.logger.Debug().Str("album", albumURL).Int("tracks", len(tracks)).Msg("album loaded")
	return tracks, nil
}

func (c *Client) fetch(ctx context.Context, albumURL string) (*albumDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, albumURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	var doc albumDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &doc, nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff.
// Retries on 5xx errors and network errors.
func (c *Client) doRequestWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = min(delay*2, maxDelay)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if resp.StatusCode < 500 {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries+1, lastErr)
}
