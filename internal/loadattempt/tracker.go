// Package loadattempt keeps per-track load failure bookkeeping and decides
// whether a failed load is retried, refreshed or given up on.
package loadattempt

import (
	"errors"
	"sync"
	"time"

	"github.com/llehouerou/wavestream/internal/player"
)

// Defaults used when a Policy field is zero.
const (
	DefaultMaxAttempts = 2
	DefaultBackoff     = 750 * time.Millisecond
	maxBackoff         = 30 * time.Second
)

// Action is what the caller should do after a failure.
type Action int

const (
	// Ignore means the failure belongs to a superseded load.
	Ignore Action = iota
	// Retry means load the same URL again after Delay.
	Retry
	// Refresh means fetch a fresh stream URL, then load it.
	Refresh
	// GiveUp means the track failed too often; wait for a manual retry.
	GiveUp
	// Reject means the output refused to start; nothing is counted.
	Reject
)

func (a Action) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case Retry:
		return "retry"
	case Refresh:
		return "refresh"
	case GiveUp:
		return "give up"
	case Reject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Decide.
type Decision struct {
	Action   Action
	Attempts int
	Delay    time.Duration
}

// Policy bounds retries.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

type attempt struct {
	count     int
	lastErr   error
	refreshed bool
}

// Tracker holds attempt state per track id. It is safe for concurrent use.
type Tracker struct {
	policy Policy

	mu       sync.Mutex
	attempts map[string]*attempt
}

// New creates a tracker; zero policy fields take the defaults.
func New(p Policy) *Tracker {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultBackoff
	}
	return &Tracker{policy: p, attempts: make(map[string]*attempt)}
}

// MaxAttempts returns the configured cap.
func (t *Tracker) MaxAttempts() int { return t.policy.MaxAttempts }

func (t *Tracker) entryLocked(id string) *attempt {
	a, ok := t.attempts[id]
	if !ok {
		a = &attempt{}
		t.attempts[id] = a
	}
	return a
}

// RecordFailure counts a failed attempt and returns the new count.
func (t *Tracker) RecordFailure(id string, err error) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	a := t.entryLocked(id)
	a.count++
	a.lastErr = err
	return a.count
}

// Attempts returns the failed attempt count for id.
func (t *Tracker) Attempts(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.attempts[id]; ok {
		return a.count
	}
	return 0
}

// LastError returns the last recorded failure for id.
func (t *Tracker) LastError(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.attempts[id]; ok {
		return a.lastErr
	}
	return nil
}

// Reset forgets everything about id, including the refresh marker.
func (t *Tracker) Reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attempts, id)
}

// Retain drops every entry except id. Called when a different track
// becomes current.
func (t *Tracker) Retain(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.attempts {
		if k != id {
			delete(t.attempts, k)
		}
	}
}

// Exhausted reports whether id reached the attempt cap.
func (t *Tracker) Exhausted(id string) bool {
	return t.Attempts(id) >= t.policy.MaxAttempts
}

// CanRefresh reports whether id has not been refreshed yet.
func (t *Tracker) CanRefresh(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.attempts[id]
	return !ok || !a.refreshed
}

// MarkRefreshed records that a fresh URL was requested for id.
func (t *Tracker) MarkRefreshed(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entryLocked(id).refreshed = true
}

// Backoff returns the delay before the next retry of id, doubling with
// each recorded failure.
func (t *Tracker) Backoff(id string) time.Duration {
	d := t.policy.Backoff
	for i := 1; i < t.Attempts(id) && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

// Decide records err against id and returns what to do next.
//
// Aborted loads are ignored and rejected starts are not counted. Every
// other failure consumes an attempt. An expired URL on a refreshable track
// that was not refreshed yet asks for a refresh; otherwise the load is
// retried with backoff until the cap is reached.
func (t *Tracker) Decide(id string, err error, refreshable bool) Decision {
	switch {
	case errors.Is(err, player.ErrAborted):
		return Decision{Action: Ignore, Attempts: t.Attempts(id)}
	case errors.Is(err, player.ErrRejected):
		return Decision{Action: Reject, Attempts: t.Attempts(id)}
	}

	n := t.RecordFailure(id, err)
	if n >= t.policy.MaxAttempts {
		return Decision{Action: GiveUp, Attempts: n}
	}
	if errors.Is(err, player.ErrExpired) && refreshable && t.CanRefresh(id) {
		t.MarkRefreshed(id)
		return Decision{Action: Refresh, Attempts: n}
	}
	return Decision{Action: Retry, Attempts: n, Delay: t.Backoff(id)}
}
