package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CheckTimeout bounds each component ping.
const CheckTimeout = 2 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Search still answers from whatever is up.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checks map[string]Pinger
}

// New creates a Service. Nil pingers are skipped, so optional components
// (the curated database, a remote cache) only show up when configured.
func New(checks map[string]Pinger) *Service {
	active := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			active[name] = p
		}
	}
	return &Service{checks: active}
}

// Names returns the checked component names in sorted order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check pings all components concurrently, each bounded by CheckTimeout.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed int
	)
	checks := make(map[string]CheckResult, len(s.checks))
	for name, p := range s.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, CheckTimeout)
			defer cancel()
			err := p.Ping(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = CheckError
				failed++
				return
			}
			checks[name] = CheckOK
		}()
	}
	wg.Wait()

	status := Healthy
	switch {
	case failed > 0 && failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
