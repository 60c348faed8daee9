// Package health implements liveness and readiness reports.
package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical component failed.
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

// DefaultTimeout bounds each probe.
const DefaultTimeout = 2 * time.Second

// Check is a named probe. A failing critical check makes the service Unhealthy.
type Check struct {
	Name     string
	Critical bool
	Probe    CheckFunc
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Ready reports whether the service should receive traffic.
func (r Report) Ready() bool { return r.Status != Unhealthy }

// Service coordinates health checks.
type Service struct {
	checks  []Check
	timeout time.Duration
}

// New creates a Service. Checks with a nil probe are skipped.
func New(timeout time.Duration, checks ...Check) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	kept := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Probe != nil {
			kept = append(kept, c)
		}
	}
	return &Service{checks: kept, timeout: timeout}
}

// Live is the liveness report. The process answering is enough.
func (s *Service) Live() Report {
	return Report{Status: Healthy, Checks: map[string]CheckResult{}}
}

// Check runs all readiness probes concurrently.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checks))

	var g errgroup.Group
	for i, c := range s.checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.Probe(probeCtx); err != nil {
				results[i] = CheckError
			} else {
				results[i] = CheckOK
			}
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy
	for i, c := range s.checks {
		checks[c.Name] = results[i]
		if results[i] != CheckError {
			continue
		}
		if c.Critical {
			status = Unhealthy
		} else if status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}
