package types

import "time"

// Monitor is a watched endpoint as returned by the service. Settings is
// the raw per-type settings payload; keys the client does not know about
// are preserved untouched.
type Monitor struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id,omitempty"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	Type         string         `json:"type"`
	Settings     map[string]any `json:"settings"`
	IsEnabled    bool           `json:"is_enabled"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	RunnersCount int            `json:"runners_count,omitempty"`
}

// MonitorCreateInput is the construction payload for a new monitor.
// Settings may be nil, in which case the client seeds the registered
// defaults for the chosen type before submitting.
type MonitorCreateInput struct {
	Name     string         `json:"name"`
	URL      string         `json:"url"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

// MonitorUpdateInput is the full update payload for an existing monitor.
type MonitorUpdateInput struct {
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	Type      string         `json:"type"`
	Settings  map[string]any `json:"settings"`
	IsEnabled bool           `json:"is_enabled"`
}
