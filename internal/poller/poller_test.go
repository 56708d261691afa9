package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easygomonitor/console/internal/metrics"
	"github.com/easygomonitor/console/pkg/types"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestStartFetchesImmediately(t *testing.T) {
	entries := []types.HistoryEntry{{ID: "h1", RunnerID: "r1", Status: types.HistoryError}}
	p := New(func(ctx context.Context) ([]types.HistoryEntry, error) {
		return entries, nil
	}, Dependencies{})
	defer p.Stop()

	p.Start(context.Background(), time.Hour)

	waitFor(t, func() bool { return len(p.Snapshot()) == 1 })
	if got := p.Snapshot(); got[0].ID != "h1" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	store := metrics.NewStore()

	p := New(func(ctx context.Context) ([]types.HistoryEntry, error) {
		<-release
		return []types.HistoryEntry{{ID: "late"}}, nil
	}, Dependencies{Metrics: store.PollRecorder()})

	p.Start(context.Background(), time.Hour)

	// The first tick is now blocked inside fetch. Stop before it
	// resolves; the result must be discarded, not applied.
	p.Stop()
	close(release)

	waitFor(t, func() bool { return store.Snapshot().PollDiscards == 1 })
	if got := p.Snapshot(); len(got) != 0 {
		t.Fatalf("expected pre-start snapshot (empty), got %+v", got)
	}
}

func TestRestartRetiresPreviousGeneration(t *testing.T) {
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)

	p := New(func(ctx context.Context) ([]types.HistoryEntry, error) {
		if first.CompareAndSwap(true, false) {
			<-release
			return []types.HistoryEntry{{ID: "stale"}}, nil
		}
		return []types.HistoryEntry{{ID: "fresh"}}, nil
	}, Dependencies{})
	defer p.Stop()

	p.Start(context.Background(), time.Hour)
	p.Start(context.Background(), time.Hour)

	waitFor(t, func() bool {
		snap := p.Snapshot()
		return len(snap) == 1 && snap[0].ID == "fresh"
	})

	// Let the first generation's fetch resolve; it must not clobber
	// the second generation's snapshot.
	close(release)
	time.Sleep(20 * time.Millisecond)

	if got := p.Snapshot(); len(got) != 1 || got[0].ID != "fresh" {
		t.Fatalf("stale generation overwrote snapshot: %+v", got)
	}
}

func TestFetchErrorKeepsPriorSnapshot(t *testing.T) {
	var calls atomic.Int32
	p := New(func(ctx context.Context) ([]types.HistoryEntry, error) {
		if calls.Add(1) == 1 {
			return []types.HistoryEntry{{ID: "h1"}}, nil
		}
		return nil, errors.New("connection refused")
	}, Dependencies{})
	defer p.Stop()

	p.Start(context.Background(), 10*time.Millisecond)

	waitFor(t, func() bool { return calls.Load() >= 2 })
	waitFor(t, func() bool {
		snap := p.Snapshot()
		return len(snap) == 1 && snap[0].ID == "h1"
	})
}
