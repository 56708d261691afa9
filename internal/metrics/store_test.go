package metrics

import "testing"

func TestSnapshotReflectsRecorders(t *testing.T) {
	store := NewStore()

	req := store.RequestRecorder()
	req.IncRequests()
	req.IncRequests()
	req.IncRequestFailures()
	req.IncSessionInvalidations()

	poll := store.PollRecorder()
	poll.IncPollTicks()
	poll.IncPollDiscards()

	store.ToggleRecorder().IncToggleRollbacks()

	snap := store.Snapshot()
	if snap.RequestsTotal != 2 || snap.RequestFailures != 1 {
		t.Fatalf("unexpected request counters: %+v", snap)
	}
	if snap.SessionInvalidations != 1 {
		t.Fatalf("unexpected session invalidations: %+v", snap)
	}
	if snap.PollTicks != 1 || snap.PollDiscards != 1 {
		t.Fatalf("unexpected poll counters: %+v", snap)
	}
	if snap.ToggleRollbacks != 1 {
		t.Fatalf("unexpected rollback counter: %+v", snap)
	}
}
