package febos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/febos-bridge/internal/bridges/febos/api"
)

type recordingObserver struct {
	mu         sync.Mutex
	discovered []DiscoveryReport
	refreshed  [][]Change
}

func (o *recordingObserver) Discovered(_ context.Context, r DiscoveryReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discovered = append(o.discovered, r)
}

func (o *recordingObserver) Refreshed(_ context.Context, changes []Change) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshed = append(o.refreshed, changes)
}

// seen returns every key delivered so far with its last value.
func (o *recordingObserver) seen() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	keys := make(map[string]any)
	for _, batch := range o.refreshed {
		for _, ch := range batch {
			keys[ch.Entity.Resource.Key] = ch.Value
		}
	}
	return keys
}

type recordingRecorder struct {
	mu      sync.Mutex
	cycles  map[string]int
	failed  int
	reauths int
	counts  Counts
}

func (r *recordingRecorder) CycleCompleted(cycle string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cycles == nil {
		r.cycles = make(map[string]int)
	}
	r.cycles[cycle]++
	if err != nil {
		r.failed++
	}
}

func (r *recordingRecorder) Reauthenticated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reauths++
}

func (r *recordingRecorder) ModelDiscovered(c Counts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = c
}

func TestNew_RequiresBackend(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without backend should fail")
	}
}

func TestRefresh_BeforeDiscover(t *testing.T) {
	c := newTestCoordinator(t, NewMockBackend(t))
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrNotDiscovered) {
		t.Errorf("Refresh() error = %v, want ErrNotDiscovered", err)
	}
	if _, err := c.Resource("febos_1_10_100_r8684"); !errors.Is(err, ErrNotDiscovered) {
		t.Errorf("Resource() error = %v, want ErrNotDiscovered", err)
	}
	if c.Entities(KindMeasurement) != nil {
		t.Error("Entities() before discovery should be nil")
	}
}

func TestEntities(t *testing.T) {
	backend := NewMockBackend(t)
	c := discovered(t, backend)

	if got := c.Entities(KindMeasurement); len(got) != 0 {
		t.Errorf("Entities() before refresh = %d, want 0", len(got))
	}
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	sensors := c.Entities(KindMeasurement)
	var keys []string
	for _, e := range sensors {
		keys = append(keys, e.Resource.Key)
	}
	want := []string{"febos_1_10_100_r7000", "febos_1_10_100_r8684", "febos_1_10_3_humid", "febos_1_10_3_temp"}
	if len(keys) != len(want) {
		t.Fatalf("Entities(sensor) = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Entities(sensor)[%d] = %s, want %s", i, keys[i], want[i])
		}
	}

	binaries := c.Entities(KindBinary)
	if len(binaries) != 2 {
		t.Fatalf("Entities(binary_sensor) = %d, want 2", len(binaries))
	}
	if binaries[1].ParentKind != ParentSlave || binaries[1].ParentName != "Febos Slave 3" {
		t.Errorf("slave entity = %+v", binaries[1])
	}
}

func TestCoordinator_RejectsOverlappingCycles(t *testing.T) {
	backend := NewMockBackend(t)
	c := discovered(t, backend)

	backend.mu.Lock()
	backend.block = make(chan struct{})
	backend.entered = make(chan struct{}, 1)
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()
	<-backend.entered

	if !c.Status().CycleRunning {
		t.Error("Status().CycleRunning = false during a cycle")
	}
	if _, err := c.Refresh(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("concurrent Refresh() error = %v, want ErrCycleInProgress", err)
	}
	if _, err := c.Discover(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("concurrent Discover() error = %v, want ErrCycleInProgress", err)
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("blocked Refresh() error = %v", err)
	}
	if c.Status().CycleRunning {
		t.Error("Status().CycleRunning = true after the cycle")
	}
}

func TestCoordinator_NotifiesObservers(t *testing.T) {
	backend := NewMockBackend(t)
	obs := &recordingObserver{}
	rec := &recordingRecorder{}
	c := newTestCoordinator(t, backend, func(o *Options) {
		o.Observers = []Observer{obs}
		o.Recorder = rec
	})

	ctx := context.Background()
	if _, err := c.Discover(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	if len(obs.discovered) != 1 || obs.discovered[0].Model == nil || obs.discovered[0].Err != nil {
		t.Errorf("discovery reports = %+v", obs.discovered)
	}
	if len(obs.refreshed) != 1 || len(obs.refreshed[0]) != 6 {
		t.Errorf("refresh notifications = %d, want one with 6 changes", len(obs.refreshed))
	}
	if rec.cycles[CycleDiscovery] != 1 || rec.cycles[CycleRefresh] != 2 || rec.failed != 0 {
		t.Errorf("recorder cycles = %v failed = %d", rec.cycles, rec.failed)
	}
	if rec.counts.Resources != 6 {
		t.Errorf("recorded counts = %+v", rec.counts)
	}
}

func TestCoordinator_PartialRefreshReachesObservers(t *testing.T) {
	backend := NewMockBackend(t)
	obs := &recordingObserver{}
	c := discovered(t, backend)
	c.AddObserver(obs)

	backend.mu.Lock()
	backend.slavesErrs = []error{api.ErrTransport}
	backend.mu.Unlock()

	ctx := context.Background()
	changes, err := c.Refresh(ctx)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Refresh() error = %v, want ErrTransport", err)
	}
	if len(changes) != 3 {
		t.Errorf("Refresh() returned %d changes on failure, want the 3 realtime ones", len(changes))
	}
	if got := obs.seen()["febos_1_10_100_r8684"]; got != 12.34 {
		t.Errorf("observer value for r8684 after failed cycle = %v, want 12.34", got)
	}
	if _, ok := obs.seen()["febos_1_10_3_temp"]; ok {
		t.Error("slave value delivered before the slaves were fetched")
	}

	if _, err := c.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	seen := obs.seen()
	for _, key := range []string{"febos_1_10_100_r8684", "febos_1_10_100_r8673", "febos_1_10_3_temp", "febos_1_10_3_humid"} {
		if _, ok := seen[key]; !ok {
			t.Errorf("observer never saw %s", key)
		}
	}
	if s := c.Status(); s.Failures != 1 || s.LastSuccessAt == nil {
		t.Errorf("Status() = %+v", s)
	}
}

func TestRefresh_UsesModelFromCompletedDiscovery(t *testing.T) {
	backend := NewMockBackend(t)
	c := discovered(t, backend)

	block, entered := make(chan struct{}), make(chan struct{}, 1)
	backend.mu.Lock()
	backend.block, backend.entered = block, entered
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()
	<-entered
	backend.mu.Lock()
	backend.block, backend.entered = nil, nil
	backend.mu.Unlock()

	// A rediscovery cannot swap the tree underneath a running cycle.
	if _, err := c.Discover(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("Discover() during refresh error = %v, want ErrCycleInProgress", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if _, err := c.Discover(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	r, err := c.Resource("febos_1_10_100_r8684")
	if err != nil {
		t.Fatal(err)
	}
	if !r.HasValue() {
		t.Error("refresh after rediscovery did not fill the new tree")
	}
}

func TestCoordinator_FailedDiscoveryKeepsModel(t *testing.T) {
	backend := NewMockBackend(t)
	obs := &recordingObserver{}
	c := discovered(t, backend)
	c.AddObserver(obs)
	model := c.Model()

	backend.mu.Lock()
	backend.pages["1"] = decodePage(t, `{"deviceMap": {}, "thingMap": {"1": {"id": 1, "deviceId": 2}}, "pageMap": {}}`)
	backend.mu.Unlock()

	if _, err := c.Discover(context.Background()); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("Discover() error = %v", err)
	}
	if c.Model() != model {
		t.Error("failed rediscovery replaced the model")
	}
	if len(obs.discovered) != 1 || obs.discovered[0].Err == nil || obs.discovered[0].Model != nil {
		t.Errorf("failure report = %+v", obs.discovered)
	}
}

func TestCoordinator_Run(t *testing.T) {
	backend := NewMockBackend(t)
	c := discovered(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, calls := backend.counts(); calls >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Run() did not refresh")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if s := c.Status(); s.Refreshes < 2 || s.LastSuccessAt == nil {
		t.Errorf("Status() = %+v", s)
	}
}

func TestCoordinator_RunRefreshesImmediately(t *testing.T) {
	backend := NewMockBackend(t)
	c := discovered(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for len(c.Entities(KindMeasurement)) == 0 {
		select {
		case <-deadline:
			t.Fatal("Run() did not refresh before the first tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if _, calls := backend.counts(); calls != 1 {
		t.Errorf("realtime calls = %d, want 1", calls)
	}
}

func TestCoordinator_RunInvalidInterval(t *testing.T) {
	c := discovered(t, NewMockBackend(t))
	if err := c.Run(context.Background(), 0); err == nil {
		t.Error("Run() with zero interval should fail")
	}
}
