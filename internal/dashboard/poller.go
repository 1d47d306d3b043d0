package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clinicai/gateway/internal/demo"
	"github.com/clinicai/gateway/internal/observability/metrics"
	"github.com/clinicai/gateway/pkg/logging"
)

// MinPollInterval is the floor for the refresh cadence; faster configs are
// clamped to it.
const MinPollInterval = 2 * time.Second

// DefaultPollInterval is used when no cadence is configured.
const DefaultPollInterval = 10 * time.Second

// DefaultIdleAfter is how long without viewer activity before polling pauses.
const DefaultIdleAfter = 2 * time.Minute

// Snapshot is the last known dashboard state. A failed refresh keeps the
// previous data and records the error alongside it.
type Snapshot struct {
	Stats        demo.StatsSnapshot  `json:"stats"`
	Appointments []demo.Appointment  `json:"appointments"`
	Activity     []demo.ActivityItem `json:"activity"`
	UpdatedAt    time.Time           `json:"updatedAt"`
	Error        string              `json:"error,omitempty"`
}

// Poller refreshes the dashboard snapshot on a fixed cadence while viewers
// are active. One refresh runs at a time; a viewer-triggered refresh
// supersedes a slow in-flight cycle by cancelling it.
type Poller struct {
	source    Source
	interval  time.Duration
	idleAfter time.Duration
	now       func() time.Time
	logger    *logging.Logger
	metrics   *metrics.GatewayMetrics

	kick chan struct{}

	mu          sync.Mutex
	snap        Snapshot
	lastTouch   time.Time
	inFlight    bool
	cycleGen    uint64
	cancelCycle context.CancelFunc
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the refresh cadence, clamped to MinPollInterval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d <= 0 {
			return
		}
		if d < MinPollInterval {
			d = MinPollInterval
		}
		p.interval = d
	}
}

// WithIdleAfter sets how long without viewer activity before polling pauses.
func WithIdleAfter(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.idleAfter = d
		}
	}
}

// WithPollerLogger sets a custom logger.
func WithPollerLogger(logger *logging.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// WithPollerMetrics attaches gateway metrics.
func WithPollerMetrics(m *metrics.GatewayMetrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// WithPollerClock replaces the wall clock, mainly for tests.
func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates a poller over source.
func NewPoller(source Source, opts ...PollerOption) *Poller {
	p := &Poller{
		source:    source,
		interval:  DefaultPollInterval,
		idleAfter: DefaultIdleAfter,
		now:       time.Now,
		logger:    logging.Default(),
		kick:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastTouch = p.now()
	return p
}

// Run refreshes immediately, then on every interval tick while a viewer is
// active, until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.Refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.cancelInFlight()
			return
		case <-p.kick:
			p.refresh(ctx, true)
		case <-ticker.C:
			if p.idle() {
				p.metrics.ObservePollCycle("idle")
				continue
			}
			p.refresh(ctx, false)
		}
	}
}

// Refresh runs one synchronous refresh cycle, superseding any in-flight one.
func (p *Poller) Refresh(ctx context.Context) {
	p.refresh(ctx, true)
}

// Touch records viewer activity and requests an immediate refresh, the
// server-side analog of the page becoming visible again.
func (p *Poller) Touch() {
	p.mu.Lock()
	p.lastTouch = p.now()
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the last known dashboard state.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *Poller) idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Sub(p.lastTouch) > p.idleAfter
}

func (p *Poller) cancelInFlight() {
	p.mu.Lock()
	cancel := p.cancelCycle
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// refresh fetches all three panels concurrently and publishes the result.
// Timer cycles skip when one is already running; forced cycles cancel the
// running one and take over.
func (p *Poller) refresh(ctx context.Context, force bool) {
	p.mu.Lock()
	if p.inFlight {
		if !force {
			p.mu.Unlock()
			p.metrics.ObservePollCycle("skipped")
			return
		}
		if p.cancelCycle != nil {
			p.cancelCycle()
		}
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	p.inFlight = true
	p.cycleGen++
	gen := p.cycleGen
	p.cancelCycle = cancel
	p.mu.Unlock()

	defer func() {
		cancel()
		p.mu.Lock()
		// A superseding cycle may already own the in-flight slot.
		if p.cycleGen == gen {
			p.inFlight = false
			p.cancelCycle = nil
		}
		p.mu.Unlock()
	}()

	var (
		wg       sync.WaitGroup
		stats    demo.StatsSnapshot
		appts    []demo.Appointment
		activity []demo.ActivityItem
	)
	var errStats, errAppts, errActivity error

	wg.Add(3)
	go func() { defer wg.Done(); stats, errStats = p.source.Stats(cycleCtx) }()
	go func() { defer wg.Done(); appts, errAppts = p.source.Appointments(cycleCtx) }()
	go func() { defer wg.Done(); activity, errActivity = p.source.Activity(cycleCtx) }()
	wg.Wait()

	err := errors.Join(errStats, errAppts, errActivity)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case cycleCtx.Err() != nil:
		// Superseded or shutting down; discard without touching the snapshot.
		p.metrics.ObservePollCycle("canceled")
	case err != nil:
		// Keep the stale data, surface the failure next to it.
		first := firstError(errStats, errAppts, errActivity)
		p.snap.Error = first.Error()
		p.logger.Warn("dashboard refresh failed", "error", first)
		p.metrics.ObservePollCycle("error")
	default:
		updatedAt := stats.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = p.now()
		}
		p.snap = Snapshot{
			Stats:        stats,
			Appointments: appts,
			Activity:     activity,
			UpdatedAt:    updatedAt,
		}
		p.metrics.ObservePollCycle("ok")
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
