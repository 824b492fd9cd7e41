package simulator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidProfile is returned when profile constants fall outside the
// ranges that keep errorChance below 1 and delay increasing.
var ErrInvalidProfile = errors.New("invalid route profile")

// MaxErrorChance is the ceiling for ErrorChance. 1 - k*e^(-λn) rounds to
// exactly 1.0 once n is large enough, so the curve is clamped just below it.
var MaxErrorChance = math.Nextafter(1, 0)

// Profile binds an endpoint to its error and delay curves:
//
//	errorChance(n) = max(0, 1 - K*e^(-Lambda*n))
//	delay(n)       = BaseMs + C*n^P  milliseconds
type Profile struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	K      float64 `json:"k"`
	Lambda float64 `json:"lambda"`
	BaseMs float64 `json:"base_ms"`
	C      float64 `json:"c"`
	P      float64 `json:"p"`
}

// Validate checks the curve constants.
func (p Profile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	case p.Path == "" || p.Path[0] != '/':
		return fmt.Errorf("%w: %s: path %q must start with /", ErrInvalidProfile, p.Name, p.Path)
	case !(p.K > 1):
		return fmt.Errorf("%w: %s: k must be > 1, got %v", ErrInvalidProfile, p.Name, p.K)
	case !(p.Lambda > 0):
		return fmt.Errorf("%w: %s: lambda must be > 0, got %v", ErrInvalidProfile, p.Name, p.Lambda)
	case !(p.BaseMs >= 0):
		return fmt.Errorf("%w: %s: base must be >= 0, got %v", ErrInvalidProfile, p.Name, p.BaseMs)
	case !(p.C > 0):
		return fmt.Errorf("%w: %s: c must be > 0, got %v", ErrInvalidProfile, p.Name, p.C)
	case !(p.P > 1):
		return fmt.Errorf("%w: %s: p must be > 1, got %v", ErrInvalidProfile, p.Name, p.P)
	}
	return nil
}

// ErrorChance returns the probability that a request handled while n
// requests are in flight fails.
func (p Profile) ErrorChance(n int64) float64 {
	if n < 0 {
		n = 0
	}
	chance := 1 - p.K*math.Exp(-p.Lambda*float64(n))
	return math.Min(math.Max(0, chance), MaxErrorChance)
}

// DelayMillis returns delay(n) in milliseconds.
func (p Profile) DelayMillis(n int64) float64 {
	if n < 0 {
		n = 0
	}
	return p.BaseMs + p.C*math.Pow(float64(n), p.P)
}

// Delay returns delay(n) as a duration.
func (p Profile) Delay(n int64) time.Duration {
	return time.Duration(p.DelayMillis(n) * float64(time.Millisecond))
}

// DefaultProfiles returns the built-in endpoints. The root profile stays
// stable up to roughly 30 concurrent requests and degrades slowly after
// that; the others react sooner and harder.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "default", Path: "/", K: 1.5, Lambda: 0.01, BaseMs: 150, C: 0.5, P: 1.3},
		{Name: "sensitive", Path: "/sensitive", K: 1.5, Lambda: 0.02, BaseMs: 100, C: 0.8, P: 1.6},
		{Name: "steep", Path: "/steep", K: 1.5, Lambda: 0.015, BaseMs: 50, C: 0.2, P: 2.0},
	}
}

// ValidateProfiles checks every profile and rejects duplicate names or paths.
func ValidateProfiles(profiles []Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("%w: no profiles", ErrInvalidProfile)
	}
	names := make(map[string]bool, len(profiles))
	paths := make(map[string]bool, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
		if names[p.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidProfile, p.Name)
		}
		if paths[p.Path] {
			return fmt.Errorf("%w: duplicate path %q", ErrInvalidProfile, p.Path)
		}
		names[p.Name] = true
		paths[p.Path] = true
	}
	return nil
}
