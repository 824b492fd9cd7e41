package loadgen

import (
	"math"
	"sort"
	"sync"
	"time"
)

// CheckResult counts how often a check held.
type CheckResult struct {
	Passes int64 `json:"passes"`
	Fails  int64 `json:"fails"`
}

// Latency summarizes request durations.
type Latency struct {
	Avg time.Duration `json:"avg"`
	Min time.Duration `json:"min"`
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

// Bucket aggregates the requests that started inside one time slice.
type Bucket struct {
	Start    time.Duration `json:"start"`
	VUs      int           `json:"vus"` // highest VU count seen in the slice
	Requests int64         `json:"requests"`
	Failures int64         `json:"failures"`
}

// FailureRate is Failures/Requests, 0 for an empty bucket.
func (b Bucket) FailureRate() float64 {
	if b.Requests == 0 {
		return 0
	}
	return float64(b.Failures) / float64(b.Requests)
}

// Summary is the result of a run.
type Summary struct {
	Duration        time.Duration          `json:"duration"`
	Requests        int64                  `json:"requests"`
	Failed          int64                  `json:"failed"` // transport errors and non-2xx/3xx
	TransportErrors int64                  `json:"transport_errors"`
	StatusCodes     map[int]int64          `json:"status_codes"`
	Checks          map[string]CheckResult `json:"checks"`
	Latency         Latency                `json:"latency"`
	MaxVUs          int                    `json:"max_vus"`
	Buckets         []Bucket               `json:"buckets"`
}

// FailureRate is Failed/Requests.
func (s *Summary) FailureRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Requests)
}

// RequestsPerSec is the achieved throughput.
func (s *Summary) RequestsPerSec() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Requests) / s.Duration.Seconds()
}

// ChecksPassed reports whether every check held on every response.
func (s *Summary) ChecksPassed() bool {
	for _, c := range s.Checks {
		if c.Fails > 0 {
			return false
		}
	}
	return true
}

type recorder struct {
	mu          sync.Mutex
	width       time.Duration
	requests    int64
	failed      int64
	transport   int64
	statusCodes map[int]int64
	checks      map[string]CheckResult
	durations   []time.Duration
	maxVUs      int
	buckets     map[int]*Bucket
}

func newRecorder(width time.Duration) *recorder {
	return &recorder{
		width:       width,
		statusCodes: make(map[int]int64),
		checks:      make(map[string]CheckResult),
		buckets:     make(map[int]*Bucket),
	}
}

func (r *recorder) bucket(at time.Duration) *Bucket {
	i := int(at / r.width)
	b, ok := r.buckets[i]
	if !ok {
		b = &Bucket{Start: time.Duration(i) * r.width}
		r.buckets[i] = b
	}
	return b
}

func (r *recorder) vus(at time.Duration, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.maxVUs {
		r.maxVUs = n
	}
	if b := r.bucket(at); n > b.VUs {
		b.VUs = n
	}
}

func (r *recorder) response(at, dur time.Duration, status int, checks map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := status < 200 || status >= 400
	r.requests++
	r.statusCodes[status]++
	r.durations = append(r.durations, dur)
	b := r.bucket(at)
	b.Requests++
	if failed {
		r.failed++
		b.Failures++
	}

	for name, ok := range checks {
		c := r.checks[name]
		if ok {
			c.Passes++
		} else {
			c.Fails++
		}
		r.checks[name] = c
	}
}

func (r *recorder) transportError(at, dur time.Duration, checkNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requests++
	r.failed++
	r.transport++
	r.durations = append(r.durations, dur)
	b := r.bucket(at)
	b.Requests++
	b.Failures++

	for _, name := range checkNames {
		c := r.checks[name]
		c.Fails++
		r.checks[name] = c
	}
}

func (r *recorder) summary(total time.Duration) *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &Summary{
		Duration:        total,
		Requests:        r.requests,
		Failed:          r.failed,
		TransportErrors: r.transport,
		StatusCodes:     make(map[int]int64, len(r.statusCodes)),
		Checks:          make(map[string]CheckResult, len(r.checks)),
		Latency:         latency(r.durations),
		MaxVUs:          r.maxVUs,
		Buckets:         make([]Bucket, 0, len(r.buckets)),
	}
	for k, v := range r.statusCodes {
		s.StatusCodes[k] = v
	}
	for k, v := range r.checks {
		s.Checks[k] = v
	}
	for _, b := range r.buckets {
		s.Buckets = append(s.Buckets, *b)
	}
	sort.Slice(s.Buckets, func(i, j int) bool { return s.Buckets[i].Start < s.Buckets[j].Start })
	return s
}

func latency(durations []time.Duration) Latency {
	if len(durations) == 0 {
		return Latency{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	return Latency{
		Avg: sum / time.Duration(len(sorted)),
		Min: sorted[0],
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
		Max: sorted[len(sorted)-1],
	}
}

// percentile uses the nearest-rank method on a sorted slice.
func percentile(sorted []time.Duration, q float64) time.Duration {
	rank := int(math.Ceil(q * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
