package loadgen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidStage = errors.New("invalid stage")

// Stage ramps the active VU count to Target over Duration.
type Stage struct {
	Duration time.Duration
	Target   int
}

func (s Stage) String() string {
	return s.Duration.String() + ":" + strconv.Itoa(s.Target)
}

// ParseStages parses a comma separated list of duration:target pairs, for
// example "30s:20,1m:20".
func ParseStages(list string) ([]Stage, error) {
	var stages []Stage
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dur, target, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q: want duration:target", ErrInvalidStage, part)
		}
		d, err := time.ParseDuration(dur)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidStage, part, err)
		}
		n, err := strconv.Atoi(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidStage, part, err)
		}
		stages = append(stages, Stage{Duration: d, Target: n})
	}
	if err := ValidateStages(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// ValidateStages rejects empty lists, negative targets and non-positive
// durations.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: no stages", ErrInvalidStage)
	}
	for i, s := range stages {
		if s.Duration <= 0 {
			return fmt.Errorf("%w: stage %d: duration must be positive", ErrInvalidStage, i)
		}
		if s.Target < 0 {
			return fmt.Errorf("%w: stage %d: negative target", ErrInvalidStage, i)
		}
	}
	return nil
}

// TotalDuration is the sum of the stage durations.
func TotalDuration(stages []Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Duration
	}
	return total
}

// TargetAt returns the VU count wanted at elapsed. The second result is
// false once every stage has ended.
func TargetAt(stages []Stage, elapsed time.Duration) (int, bool) {
	from := 0
	for _, s := range stages {
		if elapsed < s.Duration {
			frac := float64(elapsed) / float64(s.Duration)
			return from + int(float64(s.Target-from)*frac), true
		}
		elapsed -= s.Duration
		from = s.Target
	}
	return from, false
}
