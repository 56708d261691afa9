package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/easygomonitor/console/internal/config"
	"github.com/easygomonitor/console/internal/schema"
	"github.com/easygomonitor/console/pkg/types"
)

func configRate(enabled bool, rps float64, burst int) config.RateConfig {
	return config.RateConfig{Enabled: enabled, RequestsPerSecond: rps, Burst: burst}
}

type fakeService struct {
	createdMonitor types.MonitorCreateInput
	updatedRunner  types.RunnerUpdateInput
	updatedID      string
	enabledID      string
	enabledValue   bool
	listedUser     string
}

func (f *fakeService) SearchMonitors(ctx context.Context, userID string) ([]types.Monitor, error) {
	f.listedUser = userID
	return nil, nil
}

func (f *fakeService) CreateMonitor(ctx context.Context, in types.MonitorCreateInput) (types.Monitor, error) {
	f.createdMonitor = in
	return types.Monitor{ID: "m1"}, nil
}

func (f *fakeService) UpdateMonitor(ctx context.Context, id string, in types.MonitorUpdateInput) (types.Monitor, error) {
	return types.Monitor{ID: id}, nil
}

func (f *fakeService) SetMonitorEnabled(ctx context.Context, id string, enabled bool) error {
	f.enabledID = id
	f.enabledValue = enabled
	return nil
}

func (f *fakeService) DeleteMonitor(ctx context.Context, id string) error { return nil }

func (f *fakeService) ListRunners(ctx context.Context, userID string) ([]types.Runner, error) {
	f.listedUser = userID
	return nil, nil
}

func (f *fakeService) CreateRunner(ctx context.Context, in types.RunnerCreateInput) (types.Runner, error) {
	return types.Runner{ID: "r1"}, nil
}

func (f *fakeService) UpdateRunner(ctx context.Context, id string, in types.RunnerUpdateInput) (types.Runner, error) {
	f.updatedID = id
	f.updatedRunner = in
	return types.Runner{ID: id}, nil
}

func (f *fakeService) DeleteRunner(ctx context.Context, id string) error { return nil }

func TestMonitorOpsSeedsSettingsDefaults(t *testing.T) {
	svc := &fakeService{}
	ops := monitorOps(svc, schema.NewRegistry(), func() string { return "usr-1" })

	_, err := ops.Create(context.Background(), types.MonitorCreateInput{
		Name: "api",
		URL:  "https://example.com",
		Type: "http",
		Settings: map[string]any{
			"timeout": 30,
			"region":  "ap-northeast-1",
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	settings := svc.createdMonitor.Settings
	if settings["timeout"] != 30 {
		t.Fatalf("explicit timeout overwritten: %v", settings["timeout"])
	}
	if settings["region"] != "ap-northeast-1" {
		t.Fatalf("unknown key dropped: %v", settings["region"])
	}
	if settings["method"] != "GET" {
		t.Fatalf("missing key not seeded from defaults: %v", settings["method"])
	}
}

func TestMonitorOpsListsByOwner(t *testing.T) {
	svc := &fakeService{}
	ops := monitorOps(svc, schema.NewRegistry(), func() string { return "usr-9" })

	if _, err := ops.List(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if svc.listedUser != "usr-9" {
		t.Fatalf("expected owner filter usr-9, got %q", svc.listedUser)
	}
}

func TestMonitorOpsToggleTargetsFlagEndpoint(t *testing.T) {
	svc := &fakeService{}
	ops := monitorOps(svc, schema.NewRegistry(), func() string { return "usr-1" })

	err := ops.SetEnabled(context.Background(), types.Monitor{ID: "m3", IsEnabled: false}, true)
	if err != nil {
		t.Fatalf("set enabled: %v", err)
	}
	if svc.enabledID != "m3" || !svc.enabledValue {
		t.Fatalf("unexpected toggle call: id=%q enabled=%t", svc.enabledID, svc.enabledValue)
	}
}

func TestRunnerOpsToggleSendsFullPayload(t *testing.T) {
	svc := &fakeService{}
	ops := runnerOps(svc, func() string { return "usr-1" })

	item := types.Runner{
		ID:             "r7",
		Name:           "tokyo probe",
		Region:         "ap-northeast-1",
		IntervalSecond: 60,
		MonitorID:      "m2",
		IsEnabled:      true,
	}
	if err := ops.SetEnabled(context.Background(), item, false); err != nil {
		t.Fatalf("set enabled: %v", err)
	}

	if svc.updatedID != "r7" {
		t.Fatalf("unexpected update id %q", svc.updatedID)
	}
	want := types.RunnerUpdateInput{
		Name:           "tokyo probe",
		Region:         "ap-northeast-1",
		IntervalSecond: 60,
		MonitorID:      "m2",
		IsEnabled:      false,
	}
	if svc.updatedRunner != want {
		t.Fatalf("unexpected payload: %+v", svc.updatedRunner)
	}
}

func TestGroupFailuresOrdersNewestFirstPerRunner(t *testing.T) {
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	entries := []types.HistoryEntry{
		{ID: "h1", RunnerID: "r2", Status: types.HistoryError, StartedAt: base},
		{ID: "h2", RunnerID: "r1", Status: types.HistoryTimeout, StartedAt: base.Add(time.Minute)},
		{ID: "h3", RunnerID: "r2", Status: types.HistoryError, StartedAt: base.Add(2 * time.Minute)},
	}

	groups := groupFailures(entries)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0].RunnerID != "r1" {
		t.Fatalf("expected r1 group first, got %s", groups[0][0].RunnerID)
	}
	if groups[1][0].ID != "h3" || groups[1][1].ID != "h1" {
		t.Fatalf("expected newest first within group: %+v", groups[1])
	}
}

func TestRenderConsoleShowsPlaceholderForMissingMonitor(t *testing.T) {
	runners := []types.Runner{
		{ID: "r1", Name: "probe", Region: "ap", IntervalSecond: 60, MonitorID: "gone"},
	}

	var buf bytes.Buffer
	renderConsole(&buf, nil, runners, nil)

	out := buf.String()
	if !strings.Contains(out, "未設定") {
		t.Fatalf("expected placeholder monitor name, got:\n%s", out)
	}
	if !strings.Contains(out, "no recent failures") {
		t.Fatalf("expected empty failure note, got:\n%s", out)
	}
}

func TestNewLimiterDisabled(t *testing.T) {
	if lim := newLimiter(configRate(false, 0, 0)); lim != nil {
		t.Fatalf("expected nil limiter when disabled")
	}
}

func TestNewLimiterDefaults(t *testing.T) {
	lim := newLimiter(configRate(true, 0, 0))
	if lim == nil {
		t.Fatal("expected limiter")
	}
	if float64(lim.Limit()) != defaultRateLimit {
		t.Fatalf("expected default rate, got %v", lim.Limit())
	}
	if lim.Burst() != defaultRateBurst {
		t.Fatalf("expected default burst, got %d", lim.Burst())
	}
}
