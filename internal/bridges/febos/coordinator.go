package febos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Cycle names passed to the Recorder.
const (
	CycleDiscovery = "discovery"
	CycleRefresh   = "refresh"
)

// DiscoveryReport describes one finished discovery pass.
type DiscoveryReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Model      *Model // nil when Err is set
	Err        error
}

// Observer is notified after each cycle. Callbacks run synchronously on
// the cycle's goroutine and must not call Discover or Refresh.
type Observer interface {
	Discovered(ctx context.Context, report DiscoveryReport)
	Refreshed(ctx context.Context, changes []Change)
}

// Recorder receives operational measurements.
type Recorder interface {
	CycleCompleted(cycle string, duration time.Duration, err error)
	Reauthenticated()
	ModelDiscovered(counts Counts)
}

type noopRecorder struct{}

func (noopRecorder) CycleCompleted(string, time.Duration, error) {}
func (noopRecorder) Reauthenticated()                            {}
func (noopRecorder) ModelDiscovered(Counts)                      {}

// Options configures a Coordinator.
type Options struct {
	Backend Backend
	Logger  Logger

	// Installations restricts discovery to these ids. Empty means all.
	Installations []string

	Recorder  Recorder
	Observers []Observer
}

// Status is a snapshot of the coordinator's progress.
type Status struct {
	Discovered        bool       `json:"discovered"`
	DiscoveredAt      *time.Time `json:"discovered_at,omitempty"`
	LastRefreshAt     *time.Time `json:"last_refresh_at,omitempty"`
	LastSuccessAt     *time.Time `json:"last_success_at,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	Refreshes         uint64     `json:"refreshes"`
	Failures          uint64     `json:"failures"`
	Reauthentications uint64     `json:"reauthentications"`
	CycleRunning      bool       `json:"cycle_running"`
	RetryState        string     `json:"retry_state"`
	Counts            Counts     `json:"counts"`
}

// Coordinator owns the resource tree and runs discovery and refresh
// cycles against the cloud.
//
// Lifecycle:
//  1. New() - wires the collaborators
//  2. Discover() - builds the tree (fatal on any error)
//  3. Run() or Refresh() - keeps values current
//
// Thread Safety:
//   - At most one cycle runs at a time. A request arriving while a cycle
//     is running fails fast with ErrCycleInProgress.
//   - Queries (Model, Entities, Resource, Status) may run concurrently
//     with a cycle.
type Coordinator struct {
	backend   Backend
	builder   *topologyBuilder
	refresher *refresher
	retry     *SessionRetryPolicy
	logger    Logger
	recorder  Recorder
	allow     map[string]bool

	cycleMu sync.Mutex
	running atomic.Bool

	mu        sync.RWMutex
	model     *Model
	status    Status
	observers []Observer
}

// New creates a coordinator. Backend is required.
func New(opts Options) (*Coordinator, error) {
	if opts.Backend == nil {
		return nil, errors.New("febos: backend is required")
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}

	c := &Coordinator{
		backend:   opts.Backend,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		observers: append([]Observer(nil), opts.Observers...),
		builder: &topologyBuilder{
			backend:    opts.Backend,
			normalizer: NewNormalizer(opts.Logger),
			logger:     opts.Logger,
		},
		refresher: &refresher{backend: opts.Backend, logger: opts.Logger},
	}
	c.retry = NewSessionRetryPolicy(c.reauthenticate, opts.Logger)

	if len(opts.Installations) > 0 {
		c.allow = make(map[string]bool, len(opts.Installations))
		for _, id := range opts.Installations {
			c.allow[id] = true
		}
	}
	return c, nil
}

// AddObserver registers an observer for subsequent cycles.
func (c *Coordinator) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Discover logs in and rebuilds the whole tree. On failure the previous
// tree, if any, stays in place.
func (c *Coordinator) Discover(ctx context.Context) (*Model, error) {
	if !c.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	c.running.Store(true)
	defer func() {
		c.running.Store(false)
		c.cycleMu.Unlock()
	}()

	started := time.Now()
	model, err := c.builder.discoverAll(ctx, c.allow)
	finished := time.Now()
	c.recorder.CycleCompleted(CycleDiscovery, finished.Sub(started), err)

	report := DiscoveryReport{StartedAt: started, FinishedAt: finished, Model: model, Err: err}
	if err != nil {
		report.Model = nil
		c.logger.Error("discovery failed", "error", err)
		c.mu.Lock()
		c.status.LastError = err.Error()
		c.mu.Unlock()
		c.notifyDiscovered(ctx, report)
		return nil, err
	}

	counts := model.Counts()
	c.mu.Lock()
	c.model = model
	c.status.Discovered = true
	c.status.DiscoveredAt = &finished
	c.status.LastError = ""
	c.status.Counts = counts
	c.mu.Unlock()

	c.recorder.ModelDiscovered(counts)
	c.logger.Info("discovery complete",
		"installations", counts.Installations,
		"devices", counts.Devices,
		"resources", counts.Resources,
		"duration", finished.Sub(started),
	)
	c.notifyDiscovered(ctx, report)
	return model, nil
}

// Refresh updates every resource value from the cloud. An expired session
// is recovered once; any other failure fails the cycle and leaves the
// remaining values stale. It returns the resources whose value changed,
// including those written before a failure, and observers see them either way.
func (c *Coordinator) Refresh(ctx context.Context) ([]Change, error) {
	if !c.cycleMu.TryLock() {
		return nil, ErrCycleInProgress
	}
	c.running.Store(true)
	defer func() {
		c.running.Store(false)
		c.cycleMu.Unlock()
	}()

	model := c.Model()
	if model == nil {
		return nil, ErrNotDiscovered
	}

	started := time.Now()
	var changes []Change
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		next, err := c.refresher.refresh(ctx, model)
		changes = mergeChanges(changes, next)
		return err
	})
	finished := time.Now()
	c.recorder.CycleCompleted(CycleRefresh, finished.Sub(started), err)

	c.mu.Lock()
	c.status.Refreshes++
	c.status.LastRefreshAt = &finished
	if err != nil {
		c.status.Failures++
		c.status.LastError = err.Error()
	} else {
		c.status.LastSuccessAt = &finished
		c.status.LastError = ""
	}
	c.mu.Unlock()

	// Applied values stay in the model even when the cycle fails.
	c.notifyRefreshed(ctx, changes)

	if err != nil {
		return changes, fmt.Errorf("refresh cycle: %w", err)
	}

	c.logger.Debug("refresh complete", "changed", len(changes), "duration", finished.Sub(started))
	return changes, nil
}

// Run refreshes once immediately and then on every tick until ctx is
// cancelled. Failed cycles are logged and the next tick is awaited. It
// returns ctx.Err().
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("febos: invalid refresh interval %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := c.runCycle(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle performs one scheduled refresh. Only cancellation is returned.
func (c *Coordinator) runCycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	_, err := c.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		c.logger.Debug("previous cycle still running, skipping tick")
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		c.logger.Warn("refresh failed, values left stale", "error", err)
	}
	return nil
}

// Model returns the current tree, or nil before the first discovery.
func (c *Coordinator) Model() *Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Entities lists the resources of a kind that have a value.
func (c *Coordinator) Entities(kind Kind) []Entity {
	model := c.Model()
	if model == nil {
		return nil
	}
	return model.Entities(kind)
}

// Resource looks up a resource by identity key.
func (c *Coordinator) Resource(key string) (*Resource, error) {
	model := c.Model()
	if model == nil {
		return nil, ErrNotDiscovered
	}
	r, ok := model.Resource(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, key)
	}
	return r, nil
}

// Status returns a snapshot of the coordinator's progress.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	s := c.status
	c.mu.RUnlock()

	s.CycleRunning = c.running.Load()
	s.RetryState = c.retry.State().String()
	return s
}

func (c *Coordinator) reauthenticate(ctx context.Context) error {
	if _, err := c.backend.Login(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.status.Reauthentications++
	c.mu.Unlock()
	c.recorder.Reauthenticated()
	return nil
}

func (c *Coordinator) snapshotObservers() []Observer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Observer(nil), c.observers...)
}

func (c *Coordinator) notifyDiscovered(ctx context.Context, report DiscoveryReport) {
	for _, o := range c.snapshotObservers() {
		o.Discovered(ctx, report)
	}
}

func (c *Coordinator) notifyRefreshed(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, o := range c.snapshotObservers() {
		o.Refreshed(ctx, changes)
	}
}
