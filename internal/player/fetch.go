package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxSourceSize bounds a single buffered source (a long FLAC is ~100MB).
const maxSourceSize = 512 << 20

const userAgent = "wavestream/0.1"

type fetched struct {
	data        []byte
	contentType string
}

// fetch downloads a source fully into memory. file:// URLs and bare paths
// are read from disk.
func fetch(ctx context.Context, client *http.Client, rawURL string) (*fetched, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, client, rawURL)
	case "file", "":
		p := u.Path
		if u.Scheme == "" {
			p = rawURL
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &LoadError{URL: rawURL, Err: err}
		}
		return &fetched{data: data}, nil
	default:
		return nil, &LoadError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func fetchHTTP(ctx context.Context, client *http.Client, rawURL string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "audio/*")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrAborted
		}
		return nil, &LoadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, &LoadError{URL: rawURL, Status: resp.StatusCode, Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrAborted
		}
		return nil, &LoadError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return &fetched{data: data, contentType: resp.Header.Get("Content-Type")}, nil
}

// classifyStatus maps an HTTP status to a load error. Signed stream URLs
// answer 410 or 403 once they expire.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusGone, code == http.StatusForbidden:
		return ErrExpired
	default:
		return errors.New(strings.ToLower(http.StatusText(code)))
	}
}
