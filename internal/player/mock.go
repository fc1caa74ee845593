package player

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is a test double for Output. Loads succeed immediately unless a
// result is queued with FailNext or the load is held with Hold.
type Mock struct {
	name   string
	events chan Event

	mu       sync.Mutex
	state    State
	source   string
	loading  bool
	loadSeq  uint64
	position time.Duration
	duration time.Duration
	gain     float64
	meta     *Metadata
	failures map[string][]error
	gate     chan struct{}
	playErr  error
	playErrs []error
	calls    []string
	gains    []float64
}

// NewMock creates a stopped mock output.
func NewMock(name string) *Mock {
	return &Mock{
		name:     name,
		events:   make(chan Event, 64),
		gain:     1,
		failures: make(map[string][]error),
	}
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Events() <-chan Event { return m.events }

func (m *Mock) Load(ctx context.Context, url string) error {
	m.mu.Lock()
	m.loadSeq++
	seq := m.loadSeq
	m.loading = true
	m.source = url
	m.state = Stopped
	m.position = 0
	m.calls = append(m.calls, "load:"+url)
	gate := m.gate
	var err error
	if q := m.failures[url]; len(q) > 0 {
		err = q[0]
		m.failures[url] = q[1:]
	}
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			m.finishLoad(seq, ErrAborted)
			return ErrAborted
		}
	}
	return m.finishLoad(seq, err)
}

func (m *Mock) finishLoad(seq uint64, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.loadSeq {
		return ErrAborted
	}
	m.loading = false
	if err != nil {
		m.source = ""
		return err
	}
	m.state = Paused
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "play")
	if len(m.playErrs) > 0 {
		err := m.playErrs[0]
		m.playErrs = m.playErrs[1:]
		return err
	}
	if m.playErr != nil {
		return m.playErr
	}
	if m.source == "" || m.loading {
		return ErrNoSource
	}
	m.state = Playing
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "pause")
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Seek(pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("seek:%s", pos))
	if m.source == "" || m.loading {
		return ErrNoSource
	}
	m.position = pos
	return nil
}

func (m *Mock) SetGain(gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gain = clampGain(gain)
	m.gains = append(m.gains, m.gain)
}

func (m *Mock) Gain() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gain
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "stop")
	if m.loading {
		m.loadSeq++
		m.loading = false
	}
	m.state = Stopped
	m.source = ""
	m.position = 0
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

func (m *Mock) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Mock) Metadata() *Metadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

func (m *Mock) Size() int64 { return 0 }

// Test helpers

// FailNext queues errors returned by the next loads of url, in order.
func (m *Mock) FailNext(url string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[url] = append(m.failures[url], errs...)
}

// Hold makes subsequent loads block until Release.
func (m *Mock) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gate = make(chan struct{})
}

// Release unblocks held loads.
func (m *Mock) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gate != nil {
		close(m.gate)
		m.gate = nil
	}
}

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

// FailNextPlay makes the next Play calls return errs, in order.
func (m *Mock) FailNextPlay(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErrs = append(m.playErrs, errs...)
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetMetadata(md *Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = md
}

// SetSource pretends url is loaded and ready.
func (m *Mock) SetSource(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = url
	m.loading = false
	if !m.state.Loaded() {
		m.state = Paused
	}
}

// Calls returns the recorded transport calls.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Gains returns every gain set, in order.
func (m *Mock) Gains() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.gains...)
}

func (m *Mock) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.gains = nil
}

// Emit sends an event as if produced by the output.
func (m *Mock) Emit(e Event) {
	e.Unit = m.name
	m.events <- e
}

// Verify Mock implements Output at compile time.
var _ Output = (*Mock)(nil)
