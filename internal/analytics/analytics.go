package analytics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

const keyPrefix = "simulator:"

// Store is the subset of the redis client used here.
type Store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
}

// Analytics keeps per-profile outcome counters in Redis. It is reporting
// only and never influences a decision. Increments are applied by a single
// background worker so Redis latency never reaches the request path.
type Analytics struct {
	redis   Store
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan simulator.Decision
	done    chan struct{}
	dropped atomic.Int64
}

// QueueSize bounds the decisions waiting to be written to Redis.
const QueueSize = 4096

func NewAnalytics(r Store, logger *zap.Logger) *Analytics {
	a := &Analytics{
		redis:   r,
		logger:  logger,
		timeout: 250 * time.Millisecond,
		queue:   make(chan simulator.Decision, QueueSize),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func key(kind, profile string) string {
	return keyPrefix + kind + ":" + profile
}

// Observe implements simulator.Observer. It never blocks: when the queue is
// full the decision is dropped and counted.
func (a *Analytics) Observe(_ context.Context, d simulator.Decision) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}

	select {
	case a.queue <- d:
	default:
		if a.dropped.Add(1) == 1 {
			a.logger.Warn("analytics queue full, dropping decisions", zap.Int("queue_size", QueueSize))
		}
	}
}

// Dropped returns how many decisions were discarded because the queue was full.
func (a *Analytics) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting decisions and waits until the queued ones are written.
func (a *Analytics) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
}

func (a *Analytics) run() {
	defer close(a.done)
	for d := range a.queue {
		a.record(d)
	}
}

func (a *Analytics) record(d simulator.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	keys := []string{key("req", d.Profile)}
	switch d.Outcome {
	case simulator.Failed:
		keys = append(keys, key("err", d.Profile))
	case simulator.Abandoned:
		keys = append(keys, key("abandoned", d.Profile))
	}

	for _, k := range keys {
		if err := a.redis.Incr(ctx, k).Err(); err != nil {
			a.logger.Warn("analytics increment failed", zap.String("key", k), zap.Error(err))
			return
		}
	}
}

// Counts holds the counters of one profile.
type Counts struct {
	Requests  int64 `json:"requests"`
	Errors    int64 `json:"errors"`
	Abandoned int64 `json:"abandoned"`
}

// FetchProfile returns the counters recorded for one profile.
func (a *Analytics) FetchProfile(ctx context.Context, profile string) (Counts, error) {
	var c Counts
	var err error
	if c.Requests, err = a.get(ctx, key("req", profile)); err != nil {
		return c, err
	}
	if c.Errors, err = a.get(ctx, key("err", profile)); err != nil {
		return c, err
	}
	if c.Abandoned, err = a.get(ctx, key("abandoned", profile)); err != nil {
		return c, err
	}
	return c, nil
}

// FetchAll returns counters for every profile that has seen traffic.
func (a *Analytics) FetchAll(ctx context.Context) (map[string]Counts, error) {
	prefix := key("req", "")
	keys, err := a.redis.Keys(ctx, prefix+"*").Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]Counts, len(keys))
	for _, k := range keys {
		profile := strings.TrimPrefix(k, prefix)
		c, err := a.FetchProfile(ctx, profile)
		if err != nil {
			return nil, err
		}
		result[profile] = c
	}
	return result, nil
}

func (a *Analytics) get(ctx context.Context, k string) (int64, error) {
	val, err := a.redis.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}
