package loadgen

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Check is evaluated against every response.
type Check struct {
	Name string
	Fn   func(*http.Response) bool
}

// StatusIs passes when the response has the given status code.
func StatusIs(name string, code int) Check {
	return Check{Name: name, Fn: func(r *http.Response) bool { return r.StatusCode == code }}
}

// Config describes a run.
type Config struct {
	URL          string
	Stages       []Stage
	ThinkTime    time.Duration // pause after each iteration
	Timeout      time.Duration // per request
	GracefulStop time.Duration // time left to running VUs after the last stage
	Tick         time.Duration // how often the VU count is adjusted
	BucketWidth  time.Duration
	Checks       []Check
	Client       *http.Client
	Logger       *slog.Logger
}

// DefaultConfig mirrors the classic k6 script: one second of think time and
// a single "request succeeded" check on status 200.
func DefaultConfig(target string, stages ...Stage) Config {
	return Config{
		URL:          target,
		Stages:       stages,
		ThinkTime:    time.Second,
		Timeout:      60 * time.Second,
		GracefulStop: 30 * time.Second,
		Tick:         100 * time.Millisecond,
		BucketWidth:  time.Second,
		Checks:       []Check{StatusIs("request succeeded", http.StatusOK)},
	}
}

// Runner executes a Config.
type Runner struct {
	cfg Config
	rec *recorder
	log *slog.Logger
}

type vu struct {
	id   int
	stop chan struct{}
}

func New(cfg Config) (*Runner, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("loadgen: invalid url %q", cfg.URL)
	}
	if err := ValidateStages(cfg.Stages); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 100 * time.Millisecond
	}
	if cfg.BucketWidth <= 0 {
		cfg.BucketWidth = time.Second
	}
	if cfg.GracefulStop < 0 {
		cfg.GracefulStop = 0
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Transport: &http.Transport{
			MaxIdleConnsPerHost: 1024,
			IdleConnTimeout:     30 * time.Second,
		}}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Runner{cfg: cfg, rec: newRecorder(cfg.BucketWidth), log: logger}, nil
}

// Run executes every stage and returns the summary. If ctx ends early the
// partial summary is returned with ctx's error.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg     sync.WaitGroup
		active []*vu
		nextID int
	)
	adjust := func(elapsed time.Duration, target int) {
		if target != len(active) {
			r.log.Debug("adjusting vus", "from", len(active), "to", target, "elapsed", elapsed.Round(time.Millisecond))
		}
		for len(active) < target {
			nextID++
			v := &vu{id: nextID, stop: make(chan struct{})}
			active = append(active, v)
			wg.Add(1)
			go r.loop(runCtx, start, v, &wg)
		}
		for len(active) > target {
			last := active[len(active)-1]
			close(last.stop)
			active = active[:len(active)-1]
		}
		r.rec.vus(elapsed, len(active))
	}

	r.log.Info("load test starting",
		"url", r.cfg.URL,
		"stages", len(r.cfg.Stages),
		"duration", TotalDuration(r.cfg.Stages))

	target, _ := TargetAt(r.cfg.Stages, 0)
	adjust(0, target)

	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			target, ok := TargetAt(r.cfg.Stages, elapsed)
			if !ok {
				break loop
			}
			adjust(elapsed, target)
		}
	}

	for _, v := range active {
		close(v.stop)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	grace := time.NewTimer(r.cfg.GracefulStop)
	defer grace.Stop()
	select {
	case <-done:
	case <-grace.C:
		r.log.Warn("graceful stop expired, interrupting vus", "vus", len(active))
		cancel()
		<-done
	}

	summary := r.rec.summary(time.Since(start))
	r.log.Info("load test finished",
		"requests", summary.Requests,
		"failed", summary.Failed,
		"max_vus", summary.MaxVUs)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) loop(ctx context.Context, start time.Time, v *vu, wg *sync.WaitGroup) {
	defer wg.Done()

	var think *time.Timer
	if r.cfg.ThinkTime > 0 {
		think = time.NewTimer(r.cfg.ThinkTime)
		think.Stop()
		defer think.Stop()
	}

	for {
		select {
		case <-v.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		r.iterate(ctx, start)

		if think == nil {
			continue
		}
		think.Reset(r.cfg.ThinkTime)
		select {
		case <-v.stop:
			return
		case <-ctx.Done():
			return
		case <-think.C:
		}
	}
}

func (r *Runner) iterate(ctx context.Context, start time.Time) {
	reqCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, r.cfg.URL, nil)
	if err != nil {
		return
	}

	began := time.Now()
	at := began.Sub(start)
	resp, err := r.cfg.Client.Do(req)
	if err != nil {
		// interrupted by a hard stop; the request never completed
		if ctx.Err() != nil {
			return
		}
		r.log.Debug("request error", "error", err)
		r.rec.transportError(at, time.Since(began), r.checkNames())
		return
	}
	_, copyErr := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	dur := time.Since(began)
	if copyErr != nil && ctx.Err() != nil {
		return
	}

	results := make(map[string]bool, len(r.cfg.Checks))
	for _, c := range r.cfg.Checks {
		results[c.Name] = c.Fn(resp)
	}
	r.rec.response(at, dur, resp.StatusCode, results)
}

func (r *Runner) checkNames() []string {
	names := make([]string, len(r.cfg.Checks))
	for i, c := range r.cfg.Checks {
		names[i] = c.Name
	}
	return names
}
