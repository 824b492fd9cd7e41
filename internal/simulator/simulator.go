package simulator

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Simulator owns the in-flight counter shared by every simulated endpoint
// and decides, per request, whether to fail and how long to delay.
type Simulator struct {
	inflight InFlight

	srcMu sync.Mutex
	src   Source

	sleep     func(ctx context.Context, d time.Duration) error
	observers []Observer
	logger    *zap.Logger

	startedAt     time.Time
	total         atomic.Int64
	succeeded     atomic.Int64
	failed        atomic.Int64
	abandoned     atomic.Int64
	lastFailureAt atomic.Int64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSource replaces the random source. Calls to it are serialized.
func WithSource(src Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithSleeper replaces the suspension used for delays. It must return a
// non-nil error when ctx ends before d elapses.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Simulator) { s.sleep = sleep }
}

// WithObserver registers observers for terminal decisions.
func WithObserver(obs ...Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, obs...) }
}

// WithLogger sets the logger. Decisions are only logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// New creates a simulator with a zero counter.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		src:       SourceFunc(rand.Float64),
		sleep:     sleepContext,
		logger:    zap.NewNop(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin marks the start of a request. It returns the counter value after the
// increment and the release func that must run exactly once when the request
// ends, whatever the exit path.
func (s *Simulator) Begin() (int64, func()) {
	s.total.Add(1)
	return s.inflight.Acquire()
}

// InFlight returns the current counter value.
func (s *Simulator) InFlight() int64 { return s.inflight.Load() }

// Handle decides the outcome of one request against profile p using the
// counter value at decision time. A failure returns immediately; otherwise
// the call is suspended for delay(n). If ctx ends during the suspension the
// request is Abandoned. Observers are not called; see Notify.
func (s *Simulator) Handle(ctx context.Context, p Profile) Decision {
	n := s.inflight.Load()
	d := Decision{
		Profile:     p.Name,
		InFlight:    n,
		ErrorChance: p.ErrorChance(n),
		Sample:      s.sample(),
	}
	s.logger.Debug("concurrent requests",
		zap.String("profile", p.Name),
		zap.Int64("in_flight", n),
		zap.Float64("error_chance", d.ErrorChance))

	if d.Sample < d.ErrorChance {
		d.Outcome = Failed
		s.record(d)
		return d
	}

	d.Delay = p.Delay(n)
	s.logger.Debug("delaying response",
		zap.String("profile", p.Name),
		zap.Duration("delay", d.Delay))

	if err := s.sleep(ctx, d.Delay); err != nil {
		d.Outcome = Abandoned
	} else {
		d.Outcome = Succeeded
	}
	s.record(d)
	return d
}

// Do runs Begin, Handle and release. The counter is already released when
// it returns.
func (s *Simulator) Do(ctx context.Context, p Profile) Decision {
	_, release := s.Begin()
	defer release()
	return s.Handle(ctx, p)
}

// Notify hands d to every registered observer. Call it once the request no
// longer counts as in flight so a slow observer cannot raise n.
func (s *Simulator) Notify(ctx context.Context, d Decision) {
	for _, o := range s.observers {
		o.Observe(ctx, d)
	}
}

// Stats returns a snapshot of the counters.
func (s *Simulator) Stats() Stats {
	st := Stats{
		TotalRequests:     s.total.Load(),
		SucceededRequests: s.succeeded.Load(),
		FailedRequests:    s.failed.Load(),
		AbandonedRequests: s.abandoned.Load(),
		InFlight:          s.inflight.Load(),
		PeakInFlight:      s.inflight.Peak(),
		StartedAt:         s.startedAt,
	}
	if ns := s.lastFailureAt.Load(); ns != 0 {
		t := time.Unix(0, ns)
		st.LastFailureAt = &t
	}
	return st
}

func (s *Simulator) sample() float64 {
	s.srcMu.Lock()
	defer s.srcMu.Unlock()
	return s.src.Float64()
}

func (s *Simulator) record(d Decision) {
	switch d.Outcome {
	case Succeeded:
		s.succeeded.Add(1)
	case Failed:
		s.failed.Add(1)
		s.lastFailureAt.Store(time.Now().UnixNano())
		s.logger.Debug("synthetic failure",
			zap.String("profile", d.Profile),
			zap.Int64("in_flight", d.InFlight),
			zap.Float64("error_chance", d.ErrorChance))
	case Abandoned:
		s.abandoned.Add(1)
		s.logger.Debug("client went away during delay",
			zap.String("profile", d.Profile),
			zap.Duration("delay", d.Delay))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
