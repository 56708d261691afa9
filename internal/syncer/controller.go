// Package syncer couples the two resource stores at their one point of
// dependency: a monitor removal or toggle changes what the runner join
// view must show, so the runner list is refreshed after those
// mutations. This is a single hardwired edge, not an event bus.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easygomonitor/console/internal/apierr"
	"github.com/easygomonitor/console/internal/store"
)

const defaultRefreshTimeout = 10 * time.Second

// MutationSource is the slice of a store the controller subscribes to.
type MutationSource interface {
	SubscribeMutations(fn func(store.Mutation))
}

// Dependencies wire the controller to the monitor store's mutation feed
// and the refresh operations it triggers.
type Dependencies struct {
	Monitors        MutationSource
	RefreshMonitors func(ctx context.Context) error
	RefreshRunners  func(ctx context.Context) error
	Logger          *log.Logger
	RefreshTimeout  time.Duration
}

type Controller struct {
	refreshMonitors func(ctx context.Context) error
	refreshRunners  func(ctx context.Context) error
	logger          *log.Logger
	timeout         time.Duration

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

func New(deps Dependencies) (*Controller, error) {
	if deps.Monitors == nil {
		return nil, fmt.Errorf("monitor mutation source is required")
	}
	if deps.RefreshMonitors == nil || deps.RefreshRunners == nil {
		return nil, fmt.Errorf("refresh operations are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := deps.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}

	c := &Controller{
		refreshMonitors: deps.RefreshMonitors,
		refreshRunners:  deps.RefreshRunners,
		logger:          logger,
		timeout:         timeout,
		baseCtx:         context.Background(),
	}
	deps.Monitors.SubscribeMutations(c.onMonitorMutation)
	return c, nil
}

// Start binds dependent refreshes to the given context. Before Start
// they run against the background context.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()
}

// Wait blocks until all in-flight dependent refreshes have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// RefreshAll refreshes both collections concurrently. Used after login
// and restore to prime the snapshots.
func (c *Controller) RefreshAll(ctx context.Context) error {
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error { return c.refreshMonitors(grpCtx) })
	grp.Go(func() error { return c.refreshRunners(grpCtx) })
	return grp.Wait()
}

// onMonitorMutation reacts to completed monitor mutations. Only remove
// and toggle affect the runner join; a stale remove still changed the
// local snapshot, so it counts.
func (c *Controller) onMonitorMutation(m store.Mutation) {
	if m.Op != store.OpRemove && m.Op != store.OpToggle {
		return
	}
	if m.Err != nil && !errors.Is(m.Err, apierr.Stale) {
		return
	}

	c.mu.Lock()
	base := c.baseCtx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(base, c.timeout)
		defer cancel()
		if err := c.refreshRunners(ctx); err != nil {
			c.logger.Printf("runner refresh after monitor %s %s: %v", m.Op, m.ID, err)
		}
	}()
}
