package health

import (
	"context"
	"sync"
	"time"
)

// Status is the overall client health.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of probing one dependency.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names reported by Check.
const (
	ComponentSearchAPI    = "search_api"
	ComponentContentCache = "content_cache"
)

const defaultProbeTimeout = 2 * time.Second

// Report is what Check returns; Checks is keyed by component name.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the remote search API and, when configured, the shared content cache.
type Service struct {
	probes  map[string]Pinger
	timeout time.Duration
}

// New creates a Service. A nil cache means no shared content cache is in use
// and it is left out of reports. A nil api always reports as failing.
func New(api, cache Pinger) *Service {
	probes := map[string]Pinger{ComponentSearchAPI: api}
	if cache != nil {
		probes[ComponentContentCache] = cache
	}
	return &Service{probes: probes, timeout: defaultProbeTimeout}
}

// WithTimeout bounds each probe.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check probes all components in parallel. Losing the search API makes the
// client Unhealthy; a failing content cache only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]CheckResult, len(s.probes))
	)
	for name, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.probe(ctx, p)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func aggregate(checks map[string]CheckResult) Status {
	if checks[ComponentSearchAPI] != CheckOK {
		return Unhealthy
	}
	for _, res := range checks {
		if res != CheckOK {
			return Degraded
		}
	}
	return Healthy
}

func (s *Service) probe(ctx context.Context, p Pinger) CheckResult {
	if p == nil {
		return CheckError
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
