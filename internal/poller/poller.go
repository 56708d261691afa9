// Package poller periodically fetches recent failure history. The
// poller never assumes the transport cancels an in-flight request:
// every result is checked against a generation counter at resolution
// time, so a fetch that resolves after Stop is discarded instead of
// applied.
package poller

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/easygomonitor/console/internal/metrics"
	"github.com/easygomonitor/console/pkg/types"
)

const defaultInterval = 30 * time.Second

// FetchFunc retrieves the current failure window.
type FetchFunc func(ctx context.Context) ([]types.HistoryEntry, error)

// Dependencies allow test overrides for logging and telemetry.
type Dependencies struct {
	Logger  *log.Logger
	Metrics metrics.PollRecorder
}

type Poller struct {
	fetch   FetchFunc
	logger  *log.Logger
	metrics metrics.PollRecorder

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	entries []types.HistoryEntry
}

func New(fetch FetchFunc, deps Dependencies) *Poller {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NoopPollRecorder{}
	}
	return &Poller{
		fetch:   fetch,
		logger:  logger,
		metrics: recorder,
	}
}

// Start begins polling at the given interval, fetching once
// immediately. Calling Start again supersedes the previous run: its
// generation is retired and any of its still-in-flight results are
// discarded on arrival.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	if p.cancel != nil {
		p.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.loop(runCtx, gen, interval)
}

// Stop retires the current generation. No state mutation can occur
// after Stop returns, including from requests already in flight.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()
}

// Snapshot returns a copy of the last applied result set.
func (p *Poller) Snapshot() []types.HistoryEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.HistoryEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Poller) loop(ctx context.Context, gen uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.tick(ctx, gen)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, gen)
		}
	}
}

func (p *Poller) tick(ctx context.Context, gen uint64) {
	p.metrics.IncPollTicks()

	entries, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		p.metrics.IncPollDiscards()
		return
	}
	if err != nil {
		// Prior snapshot stays; the next tick retries.
		p.logger.Printf("history poll failed: %v", err)
		return
	}
	p.entries = entries
}
