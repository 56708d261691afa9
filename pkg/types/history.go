package types

import "time"

type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistoryError   HistoryStatus = "error"
	HistoryTimeout HistoryStatus = "timeout"
)

// HistoryStatusFail is the filter value the recent-failures query
// expects; it covers both error and timeout entries server-side.
const HistoryStatusFail = "FAIL"

// HistoryEntry is one recorded runner execution. Entries are read-only
// and append-only from the client's perspective.
type HistoryEntry struct {
	ID             string        `json:"id"`
	RunnerID       string        `json:"runner_id"`
	Status         HistoryStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	ResponseTimeMs *int          `json:"response_time_ms,omitempty"`
}
