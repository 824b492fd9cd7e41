package simulator

import (
	"context"
	"time"
)

// Outcome is the terminal state of a simulated request.
type Outcome int

const (
	Pending Outcome = iota
	Succeeded
	Failed    // synthetic failure, answered with 500
	Abandoned // client went away while the response was delayed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Abandoned:
		return "abandoned"
	default:
		return "pending"
	}
}

// Decision records how one request was handled.
type Decision struct {
	Profile     string
	Outcome     Outcome
	InFlight    int64         // counter value the decision was made with
	ErrorChance float64       // errorChance(InFlight)
	Sample      float64       // uniform draw compared against ErrorChance
	Delay       time.Duration // zero for failures
}

// Source yields uniform samples in [0, 1).
type Source interface {
	Float64() float64
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func() float64

func (f SourceFunc) Float64() float64 { return f() }

// Observer is told about every terminal decision. Observers run on the
// request goroutine after the response is flushed and the counter released,
// so they cannot change the outcome or the load seen by other requests.
type Observer interface {
	Observe(ctx context.Context, d Decision)
}

// ObserverFunc adapts a plain function to an Observer.
type ObserverFunc func(ctx context.Context, d Decision)

func (f ObserverFunc) Observe(ctx context.Context, d Decision) { f(ctx, d) }

// Stats is a point-in-time view of the simulator counters.
type Stats struct {
	TotalRequests     int64      `json:"total_requests"`
	SucceededRequests int64      `json:"succeeded_requests"`
	FailedRequests    int64      `json:"failed_requests"`
	AbandonedRequests int64      `json:"abandoned_requests"`
	InFlight          int64      `json:"in_flight"`
	PeakInFlight      int64      `json:"peak_in_flight"`
	StartedAt         time.Time  `json:"started_at"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty"`
}
