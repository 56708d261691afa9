package types

import "time"

// Runner is a scheduled execution agent bound to a monitor.
type Runner struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Region         string    `json:"region"`
	IntervalSecond int       `json:"interval_second"`
	IsEnabled      bool      `json:"is_enabled"`
	MonitorID      string    `json:"monitor_id"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// MinIntervalSeconds is the lowest interval the service accepts for a runner.
const MinIntervalSeconds = 10

type RunnerCreateInput struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	IntervalSecond int    `json:"interval_second"`
	MonitorID      string `json:"monitor_id"`
}

type RunnerUpdateInput struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	IntervalSecond int    `json:"interval_second"`
	MonitorID      string `json:"monitor_id"`
	IsEnabled      bool   `json:"is_enabled"`
}

// RunnerView is a runner joined with its owning monitor for display.
// It is derived from the two source snapshots and never sent back to
// the service.
type RunnerView struct {
	Runner
	MonitorName      string         `json:"monitor_name"`
	MonitorURL       string         `json:"monitor_url"`
	MonitorType      string         `json:"monitor_type"`
	MonitorIsEnabled bool           `json:"monitor_is_enabled"`
	MonitorSettings  map[string]any `json:"settings,omitempty"`
}
