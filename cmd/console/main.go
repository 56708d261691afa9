package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/easygomonitor/console/internal/api"
	"github.com/easygomonitor/console/internal/config"
	"github.com/easygomonitor/console/internal/logging"
	"github.com/easygomonitor/console/internal/metrics"
	"github.com/easygomonitor/console/internal/poller"
	"github.com/easygomonitor/console/internal/schema"
	"github.com/easygomonitor/console/internal/session"
	"github.com/easygomonitor/console/internal/store"
	"github.com/easygomonitor/console/internal/syncer"
	"github.com/easygomonitor/console/internal/view"
	"github.com/easygomonitor/console/pkg/types"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultRateLimit       = 5.0
	defaultRateBurst       = 10
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "login":
		err = login(ctx, os.Args[2:])
	case "run":
		err = run(ctx, os.Args[2:])
	case "logout":
		err = logout(ctx, os.Args[2:])
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Easy Go Monitor Console")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  easymon-console login [--config path] [--server URL] [--email addr]")
	fmt.Println("  easymon-console run [--config path]")
	fmt.Println("  easymon-console logout [--config path]")
}

// serviceAPI is the slice of the client the store wiring needs.
type serviceAPI interface {
	SearchMonitors(ctx context.Context, userID string) ([]types.Monitor, error)
	CreateMonitor(ctx context.Context, in types.MonitorCreateInput) (types.Monitor, error)
	UpdateMonitor(ctx context.Context, id string, in types.MonitorUpdateInput) (types.Monitor, error)
	SetMonitorEnabled(ctx context.Context, id string, enabled bool) error
	DeleteMonitor(ctx context.Context, id string) error
	ListRunners(ctx context.Context, userID string) ([]types.Runner, error)
	CreateRunner(ctx context.Context, in types.RunnerCreateInput) (types.Runner, error)
	UpdateRunner(ctx context.Context, id string, in types.RunnerUpdateInput) (types.Runner, error)
	DeleteRunner(ctx context.Context, id string) error
}

// monitorOps binds a store to the monitor endpoints. Creation seeds the
// registered defaults for the chosen type into any missing settings keys
// before the payload leaves the client.
func monitorOps(client serviceAPI, registry *schema.Registry, userID func() string) store.Ops[types.Monitor, types.MonitorCreateInput, types.MonitorUpdateInput] {
	return store.Ops[types.Monitor, types.MonitorCreateInput, types.MonitorUpdateInput]{
		List: func(ctx context.Context) ([]types.Monitor, error) {
			return client.SearchMonitors(ctx, userID())
		},
		Create: func(ctx context.Context, in types.MonitorCreateInput) (types.Monitor, error) {
			in.Settings = registry.ApplyDefaults(in.Type, in.Settings)
			return client.CreateMonitor(ctx, in)
		},
		Update: client.UpdateMonitor,
		Remove: client.DeleteMonitor,
		SetEnabled: func(ctx context.Context, item types.Monitor, enabled bool) error {
			return client.SetMonitorEnabled(ctx, item.ID, enabled)
		},
		Key:     func(m types.Monitor) string { return m.ID },
		Enabled: func(m types.Monitor) bool { return m.IsEnabled },
		WithEnabled: func(m types.Monitor, enabled bool) types.Monitor {
			m.IsEnabled = enabled
			return m
		},
	}
}

// runnerOps binds a store to the runner endpoints. The service exposes
// no flag-only endpoint for runners, so a toggle is sent as a full
// update built from the item as it stood before the flip.
func runnerOps(client serviceAPI, userID func() string) store.Ops[types.Runner, types.RunnerCreateInput, types.RunnerUpdateInput] {
	return store.Ops[types.Runner, types.RunnerCreateInput, types.RunnerUpdateInput]{
		List: func(ctx context.Context) ([]types.Runner, error) {
			return client.ListRunners(ctx, userID())
		},
		Create: client.CreateRunner,
		Update: client.UpdateRunner,
		Remove: client.DeleteRunner,
		SetEnabled: func(ctx context.Context, item types.Runner, enabled bool) error {
			_, err := client.UpdateRunner(ctx, item.ID, types.RunnerUpdateInput{
				Name:           item.Name,
				Region:         item.Region,
				IntervalSecond: item.IntervalSecond,
				MonitorID:      item.MonitorID,
				IsEnabled:      enabled,
			})
			return err
		},
		Key:     func(r types.Runner) string { return r.ID },
		Enabled: func(r types.Runner) bool { return r.IsEnabled },
		WithEnabled: func(r types.Runner, enabled bool) types.Runner {
			r.IsEnabled = enabled
			return r
		},
	}
}

func newLimiter(cfg config.RateConfig) *rate.Limiter {
	if !cfg.Enabled {
		return nil
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func loadConfig(ctx context.Context, path string) (config.Config, error) {
	if path != "" {
		return config.Load(ctx, path)
	}
	return config.LoadFromEnv(ctx)
}

// buildClient wires the API client and session manager together. The
// client asks the manager for the current token on every request and
// invalidates the session on any 401; the manager uses the same client
// to log in and resolve identity.
func buildClient(cfg config.Config, logger *log.Logger, metricsStore *metrics.Store, dataDir string) (*api.Client, *session.Manager, error) {
	server := cfg.Console.Server
	if server == "" {
		return nil, nil, fmt.Errorf("console server must be configured")
	}

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			ForceAttemptHTTP2:   true,
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 10,
		},
	}

	var mgr *session.Manager
	client, err := api.NewClient(
		api.Config{ServerURL: server, BasePath: cfg.Console.BasePath},
		api.Dependencies{
			HTTPClient: httpClient,
			Logger:     logger,
			Limiter:    newLimiter(cfg.Rate),
			Metrics:    metricsStore.RequestRecorder(),
			Token: func() string {
				if mgr == nil {
					return ""
				}
				return mgr.Token()
			},
			OnUnauthorized: func() {
				if mgr != nil {
					mgr.Invalidate()
				}
			},
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init API client: %w", err)
	}

	mgr, err = session.NewManager(session.Dependencies{
		API:     client,
		DataDir: dataDir,
		Server:  server,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init session manager: %w", err)
	}
	return client, mgr, nil
}

func resolveDataDir(cfg config.Config) string {
	if cfg.Console.DataDir != "" {
		return cfg.Console.DataDir
	}
	return config.DefaultDataDir()
}

func login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to console configuration file")
	server := fs.String("server", "", "Service URL (overrides config)")
	email := fs.String("email", "", "Account email address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *server != "" {
		cfg.Console.Server = *server
	}

	dataDir := resolveDataDir(cfg)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	logger := logging.New()
	metricsStore := metrics.NewStore()

	_, mgr, err := buildClient(cfg, logger, metricsStore, dataDir)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	addr := *email
	if addr == "" {
		fmt.Print("email: ")
		addr, err = readLine(reader)
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}
	fmt.Print("password: ")
	password, err := readLine(reader)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	user, err := mgr.Login(ctx, types.Credentials{Email: addr, Password: password})
	if err != nil {
		return err
	}

	fmt.Printf("logged in as %s (%s)\n", user.Name, user.Email)
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func logout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to console configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.ClearState(ctx, resolveDataDir(cfg)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("logged out")
	return nil
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to console configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := resolveDataDir(cfg)
	logger := logging.New()
	metricsStore := metrics.NewStore()

	client, mgr, err := buildClient(cfg, logger, metricsStore, dataDir)
	if err != nil {
		return err
	}

	if err := mgr.RestoreFromStorage(ctx); err != nil {
		return fmt.Errorf("no usable session, run login first: %w", err)
	}
	if mgr.State() != session.StateAuthenticated {
		return fmt.Errorf("not logged in, run login first")
	}
	user, err := mgr.ResolveUser(ctx)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}
	logger.Printf("console starting (server=%s, user=%s)", cfg.Console.Server, user.Email)

	registry := schema.NewRegistry()

	monitors, err := store.New(monitorOps(client, registry, mgr.UserID), store.Dependencies{
		Logger:  logger,
		Metrics: metricsStore.ToggleRecorder(),
	})
	if err != nil {
		return fmt.Errorf("init monitor store: %w", err)
	}
	runners, err := store.New(runnerOps(client, mgr.UserID), store.Dependencies{
		Logger:  logger,
		Metrics: metricsStore.ToggleRecorder(),
	})
	if err != nil {
		return fmt.Errorf("init runner store: %w", err)
	}

	ctrl, err := syncer.New(syncer.Dependencies{
		Monitors: monitors,
		RefreshMonitors: func(ctx context.Context) error {
			_, err := monitors.Refresh(ctx)
			return err
		},
		RefreshRunners: func(ctx context.Context) error {
			_, err := runners.Refresh(ctx)
			return err
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("init sync controller: %w", err)
	}

	failures := poller.New(func(ctx context.Context) ([]types.HistoryEntry, error) {
		return client.RecentFailures(ctx, cfg.Poll.Status, cfg.PollWindow())
	}, poller.Dependencies{
		Logger:  logger,
		Metrics: metricsStore.PollRecorder(),
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctrl.Start(runCtx)
	failures.Start(runCtx, cfg.PollInterval())
	defer failures.Stop()

	if err := ctrl.RefreshAll(runCtx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	refreshInterval := defaultRefreshInterval
	if cfg.Console.RefreshSec > 0 {
		refreshInterval = time.Duration(cfg.Console.RefreshSec) * time.Second
	}

	grp, groupCtx := errgroup.WithContext(runCtx)

	grp.Go(func() error {
		renderConsole(os.Stdout, monitors.Snapshot(), runners.Snapshot(), failures.Snapshot())

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				if err := ctrl.RefreshAll(groupCtx); err != nil {
					logger.Printf("refresh failed: %v", err)
					continue
				}
				renderConsole(os.Stdout, monitors.Snapshot(), runners.Snapshot(), failures.Snapshot())
			}
		}
	})

	grp.Go(func() error {
		<-groupCtx.Done()
		failures.Stop()
		ctrl.Wait()
		return nil
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	snap := metricsStore.Snapshot()
	logger.Printf("console stopped (requests=%d failures=%d invalidations=%d poll_ticks=%d poll_discards=%d rollbacks=%d)",
		snap.RequestsTotal, snap.RequestFailures, snap.SessionInvalidations, snap.PollTicks, snap.PollDiscards, snap.ToggleRollbacks)
	return nil
}

// renderConsole writes the joined runner table and the recent failure
// list. Failures are grouped per runner, newest first within a group.
func renderConsole(w io.Writer, monitors []types.Monitor, runners []types.Runner, failures []types.HistoryEntry) {
	views := view.Build(runners, monitors)

	fmt.Fprintf(w, "\n=== runners (%s) ===\n", time.Now().UTC().Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUNNER\tREGION\tINTERVAL\tENABLED\tMONITOR\tURL\tTYPE\tMONITOR ON")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%ds\t%t\t%s\t%s\t%s\t%t\n",
			v.Name, v.Region, v.IntervalSecond, v.IsEnabled,
			v.MonitorName, v.MonitorURL, v.MonitorType, v.MonitorIsEnabled)
	}
	tw.Flush()

	if len(failures) == 0 {
		fmt.Fprintln(w, "no recent failures")
		return
	}
	fmt.Fprintf(w, "recent failures: %d\n", len(failures))
	for _, group := range groupFailures(failures) {
		for _, entry := range group {
			rt := "-"
			if entry.ResponseTimeMs != nil {
				rt = fmt.Sprintf("%dms", *entry.ResponseTimeMs)
			}
			fmt.Fprintf(w, "  %s %s %s %s\n", entry.StartedAt.Format(time.RFC3339), entry.RunnerID, entry.Status, rt)
		}
	}
}

// groupFailures partitions entries by runner id, groups ordered by
// runner id, entries within a group newest first.
func groupFailures(entries []types.HistoryEntry) [][]types.HistoryEntry {
	byRunner := make(map[string][]types.HistoryEntry)
	order := make([]string, 0)
	for _, entry := range entries {
		if _, seen := byRunner[entry.RunnerID]; !seen {
			order = append(order, entry.RunnerID)
		}
		byRunner[entry.RunnerID] = append(byRunner[entry.RunnerID], entry)
	}
	sort.Strings(order)

	groups := make([][]types.HistoryEntry, 0, len(order))
	for _, id := range order {
		group := byRunner[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].StartedAt.After(group[j].StartedAt)
		})
		groups = append(groups, group)
	}
	return groups
}
