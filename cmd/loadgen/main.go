package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/CSroseX/load-degradation-simulator/internal/loadgen"
)

func main() {
	var (
		target    = flag.String("url", "http://localhost:8000", "endpoint to request")
		stages    = flag.String("stages", "5s:500,10s:500", "comma separated duration:vus stages")
		think     = flag.Duration("think", time.Second, "pause between iterations of a VU")
		timeout   = flag.Duration("timeout", 60*time.Second, "per request timeout")
		grace     = flag.Duration("graceful-stop", 30*time.Second, "time given to running VUs after the last stage")
		threshold = flag.Float64("max-failure-rate", 1, "exit non-zero when the failure rate exceeds this")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))

	st, err := loadgen.ParseStages(*stages)
	if err != nil {
		logger.Error("bad stages", "error", err)
		os.Exit(2)
	}

	cfg := loadgen.DefaultConfig(*target, st...)
	cfg.ThinkTime = *think
	cfg.Timeout = *timeout
	cfg.GracefulStop = *grace
	cfg.Logger = logger

	runner, err := loadgen.New(cfg)
	if err != nil {
		logger.Error("bad configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx)
	if err != nil {
		logger.Warn("run interrupted", "error", err)
	}
	report(summary)

	if summary.FailureRate() > *threshold {
		logger.Error("failure rate above threshold",
			"rate", fmt.Sprintf("%.2f%%", summary.FailureRate()*100),
			"threshold", fmt.Sprintf("%.2f%%", *threshold*100))
		os.Exit(99)
	}
}

func report(s *loadgen.Summary) {
	names := make([]string, 0, len(s.Checks))
	for name := range s.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := s.Checks[name]
		total := c.Passes + c.Fails
		pct := 0.0
		if total > 0 {
			pct = float64(c.Passes) / float64(total) * 100
		}
		fmt.Printf("  ✓ %-28s %6.2f%%  ✓ %d ✗ %d\n", name, pct, c.Passes, c.Fails)
	}

	fmt.Printf("  http_reqs..................: %d  %.1f/s\n", s.Requests, s.RequestsPerSec())
	fmt.Printf("  http_req_failed............: %.2f%%  (%d)\n", s.FailureRate()*100, s.Failed)
	fmt.Printf("  http_req_duration..........: avg=%s min=%s p(50)=%s p(95)=%s p(99)=%s max=%s\n",
		s.Latency.Avg.Round(time.Microsecond), s.Latency.Min.Round(time.Microsecond),
		s.Latency.P50.Round(time.Microsecond), s.Latency.P95.Round(time.Microsecond),
		s.Latency.P99.Round(time.Microsecond), s.Latency.Max.Round(time.Microsecond))
	fmt.Printf("  vus_max....................: %d\n", s.MaxVUs)

	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  status %d %-19s %d\n", code, http.StatusText(code), s.StatusCodes[code])
	}

	fmt.Println()
	fmt.Printf("  %-10s %6s %9s %9s %8s\n", "t", "vus", "reqs", "failed", "rate")
	for _, b := range s.Buckets {
		fmt.Printf("  %-10s %6d %9d %9d %7.1f%%\n", b.Start, b.VUs, b.Requests, b.Failures, b.FailureRate()*100)
	}
}
