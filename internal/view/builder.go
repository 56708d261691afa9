// Package view derives display-ready runner records by joining runners
// against their owning monitor. The join is recomputed from the source
// snapshots on every call; nothing here is cached or mutated.
package view

import "github.com/easygomonitor/console/pkg/types"

// Placeholders shown when a runner's monitor is missing from the
// monitor snapshot (deleted server-side, or not yet fetched).
const (
	PlaceholderName = "未設定"
	PlaceholderURL  = "-"
	PlaceholderType = "-"
)

// Build joins each runner with its monitor by monitor_id. Runners keep
// their server order; a runner whose monitor cannot be found gets the
// placeholder fields and a disabled monitor flag rather than being
// dropped.
func Build(runners []types.Runner, monitors []types.Monitor) []types.RunnerView {
	byID := make(map[string]types.Monitor, len(monitors))
	for _, m := range monitors {
		byID[m.ID] = m
	}

	views := make([]types.RunnerView, 0, len(runners))
	for _, r := range runners {
		v := types.RunnerView{Runner: r}
		if m, ok := byID[r.MonitorID]; ok {
			v.MonitorName = m.Name
			v.MonitorURL = m.URL
			v.MonitorType = m.Type
			v.MonitorIsEnabled = m.IsEnabled
			v.MonitorSettings = m.Settings
		} else {
			v.MonitorName = PlaceholderName
			v.MonitorURL = PlaceholderURL
			v.MonitorType = PlaceholderType
			v.MonitorIsEnabled = false
		}
		views = append(views, v)
	}
	return views
}
