// Package health runs dependency checks for the liveness and readiness
// probes.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// rank orders statuses from best to worst.
func (s Status) rank() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// PingCheck turns a ping (Redis, Postgres) into a Check that is down while
// the ping fails.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

type registration struct {
	check    Check
	optional bool
}

type Checker struct {
	mu      sync.RWMutex
	checks  map[string]registration
	timeout time.Duration
	started time.Time
	logger  *slog.Logger
}

// NewChecker returns a Checker that gives each check up to 2s.
func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]registration),
		timeout: 2 * time.Second,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// Register adds a check whose failure makes the service not ready.
func (c *Checker) Register(name string, check Check) {
	c.register(name, registration{check: check})
}

// RegisterOptional adds a check for a dependency the bot can run without;
// when it is down the report is only degraded.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.register(name, registration{check: check, optional: true})
}

func (c *Checker) register(name string, r registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = r
}

// Run executes every check concurrently. The report status is the worst
// component status, with optional components capped at degraded.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]registration, len(c.checks))
	for name, r := range c.checks {
		checks[name] = r
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]ComponentHealth, len(checks))
		g       errgroup.Group
	)
	for name, r := range checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			start := time.Now()
			res := r.check(checkCtx)
			res.Latency = time.Since(start).Round(time.Microsecond).String()
			res.Optional = r.optional
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	report := Report{Status: StatusUp, Components: results, CheckedAt: time.Now().UTC()}
	for name, res := range results {
		effective := res.Status
		if res.Optional && effective == StatusDown {
			effective = StatusDegraded
		}
		if res.Status != StatusUp {
			c.logger.Warn("health check not up", "check", name, "status", res.Status, "message", res.Message)
		}
		if effective.rank() > report.Status.rank() {
			report.Status = effective
		}
	}
	return report
}

// LiveHandler answers as long as the process can serve HTTP.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers 503 only when the report is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
