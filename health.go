package nest

import (
	"context"
	"sync"
	"time"
)

type HealthStatus string

const (
	HealthStatusUp      HealthStatus = "up"
	HealthStatusDown    HealthStatus = "down"
	HealthStatusUnknown HealthStatus = "unknown"
)

type HealthReport struct {
	Name    string        `json:"name"`
	Scope   string        `json:"scope"`
	Status  HealthStatus  `json:"status"`
	Error   error         `json:"-"`
	Latency time.Duration `json:"latency"`
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type ReadinessChecker interface {
	ReadinessCheck(ctx context.Context) error
}

// Live fails when any component in any scope fails its health check.
func (h *Hierarchy) Live(ctx context.Context) error {
	for _, r := range h.Health(ctx) {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}

// Ready fails while the hierarchy is not operational, or when any component
// fails its readiness check.
func (h *Hierarchy) Ready(ctx context.Context) error {
	if status := h.status.Status(); !status.Operational() {
		return errHealthCheckFailed("hierarchy", errNotOperational(status))
	}
	for _, r := range h.check(ctx, readinessProbe) {
		if r.Status == HealthStatusDown {
			return errHealthCheckFailed(r.Name, r.Error)
		}
	}
	return nil
}

func (h *Hierarchy) Health(ctx context.Context) []HealthReport {
	return h.check(ctx, healthProbe)
}

type probe func(instance any) (func(context.Context) error, bool)

func healthProbe(instance any) (func(context.Context) error, bool) {
	hc, ok := instance.(HealthChecker)
	if !ok {
		return nil, false
	}
	return hc.HealthCheck, true
}

func readinessProbe(instance any) (func(context.Context) error, bool) {
	rc, ok := instance.(ReadinessChecker)
	if !ok {
		return nil, false
	}
	return rc.ReadinessCheck, true
}

// check runs every matching probe concurrently. Reports come back outermost
// scope first, in registration order within a scope.
func (h *Hierarchy) check(ctx context.Context, p probe) []HealthReport {
	if h.State() != StateStarted {
		return nil
	}

	type job struct {
		report HealthReport
		fn     func(context.Context) error
	}

	var jobs []*job
	for _, c := range h.Containers() {
		for _, entry := range c.entries() {
			fn, ok := p(entry.Instance)
			if !ok {
				continue
			}
			jobs = append(jobs, &job{
				report: HealthReport{Name: entry.Key, Scope: c.Scope().String()},
				fn:     fn,
			})
		}
	}

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()

			start := time.Now()
			err := j.fn(ctx)
			j.report.Latency = time.Since(start)

			if err != nil {
				j.report.Status = HealthStatusDown
				j.report.Error = err
			} else {
				j.report.Status = HealthStatusUp
			}
		}(j)
	}
	wg.Wait()

	reports := make([]HealthReport, len(jobs))
	for i, j := range jobs {
		reports[i] = j.report
	}
	return reports
}
