package metrics

import "sync/atomic"

// Store maintains in-memory counters for console telemetry.
type Store struct {
	requests             atomic.Uint64
	requestFailures      atomic.Uint64
	sessionInvalidations atomic.Uint64
	pollTicks            atomic.Uint64
	pollDiscards         atomic.Uint64
	toggleRollbacks      atomic.Uint64
}

// NewStore constructs a Store with zeroed counters.
func NewStore() *Store {
	return &Store{}
}

// Snapshot captures the current counter values in a plain struct.
type Snapshot struct {
	RequestsTotal        uint64
	RequestFailures      uint64
	SessionInvalidations uint64
	PollTicks            uint64
	PollDiscards         uint64
	ToggleRollbacks      uint64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		RequestsTotal:        s.requests.Load(),
		RequestFailures:      s.requestFailures.Load(),
		SessionInvalidations: s.sessionInvalidations.Load(),
		PollTicks:            s.pollTicks.Load(),
		PollDiscards:         s.pollDiscards.Load(),
		ToggleRollbacks:      s.toggleRollbacks.Load(),
	}
}

// RequestRecorder returns an implementation of RequestRecorder backed by the store.
func (s *Store) RequestRecorder() RequestRecorder {
	return requestRecorder{store: s}
}

// PollRecorder returns an implementation of PollRecorder backed by the store.
func (s *Store) PollRecorder() PollRecorder {
	return pollRecorder{store: s}
}

// ToggleRecorder returns an implementation of ToggleRecorder backed by the store.
func (s *Store) ToggleRecorder() ToggleRecorder {
	return toggleRecorder{store: s}
}

type requestRecorder struct {
	store *Store
}

func (r requestRecorder) IncRequests()             { r.store.requests.Add(1) }
func (r requestRecorder) IncRequestFailures()      { r.store.requestFailures.Add(1) }
func (r requestRecorder) IncSessionInvalidations() { r.store.sessionInvalidations.Add(1) }

type pollRecorder struct {
	store *Store
}

func (r pollRecorder) IncPollTicks()    { r.store.pollTicks.Add(1) }
func (r pollRecorder) IncPollDiscards() { r.store.pollDiscards.Add(1) }

type toggleRecorder struct {
	store *Store
}

func (r toggleRecorder) IncToggleRollbacks() { r.store.toggleRollbacks.Add(1) }
