// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package health provides health check and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/absmach/mcoap/pkg/resource"
)

// Status represents the health status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

const probeTimeout = 5 * time.Second

// Check represents the last result of a single health check.
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) error

// Checker runs registered checks and caches their results for a TTL.
type Checker struct {
	mu     sync.Mutex
	checks map[string]CheckFunc
	cache  map[string]Check
	ttl    time.Duration
	now    func() time.Time
}

// NewChecker creates a new health checker. A zero cacheTTL defaults to
// ten seconds.
func NewChecker(cacheTTL time.Duration) *Checker {
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Second
	}
	return &Checker{
		checks: make(map[string]CheckFunc),
		cache:  make(map[string]Check),
		ttl:    cacheTTL,
		now:    time.Now,
	}
}

// Register adds or replaces a named check.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
	delete(c.cache, name)
}

// Health runs the checks whose cached result expired and returns the
// overall status with every check result, sorted by name. The overall
// status is unhealthy as soon as one check fails.
func (c *Checker) Health(ctx context.Context) (Status, []Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := StatusHealthy
	checks := make([]Check, 0, len(names))
	for _, name := range names {
		check, ok := c.cache[name]
		if !ok || c.now().Sub(check.LastChecked) >= c.ttl {
			check = c.run(ctx, name, c.checks[name])
			c.cache[name] = check
		}
		if check.Status != StatusHealthy {
			overall = StatusUnhealthy
		}
		checks = append(checks, check)
	}

	return overall, checks
}

func (c *Checker) run(ctx context.Context, name string, fn CheckFunc) Check {
	start := c.now()
	err := fn(ctx)

	check := Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: c.now(),
		Duration:    c.now().Sub(start),
	}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// HTTPHandler returns an HTTP handler reporting every check. It answers
// 503 when any check fails.
func (c *Checker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		status, checks := c.Health(ctx)

		code := http.StatusOK
		if status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

// LivenessHandler returns a simple liveness probe.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenerCheck fails while addr reports no bound socket, i.e. before the
// transport is started or after it is stopped.
func ListenerCheck(addr func() netip.AddrPort) CheckFunc {
	return func(ctx context.Context) error {
		if !addr().IsValid() {
			return fmt.Errorf("transport is not listening")
		}
		return nil
	}
}

// ResourcesCheck fails while no resource is registered, which leaves the
// server answering 4.04 to everything but discovery.
func ResourcesCheck(list func() []resource.Resource) CheckFunc {
	return func(ctx context.Context) error {
		if len(list()) == 0 {
			return fmt.Errorf("no resources registered")
		}
		return nil
	}
}
