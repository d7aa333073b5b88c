package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ClaudioParedesArbeloDev/GLD-Services/internal/platform/httpx"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"
)

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// ReadinessCheck reports whether one dependency is able to serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	clock  func() time.Time
	build  BuildInfo
	checks []ReadinessCheck
}

// HealthOption customises health handlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs probes. Without readiness checks the service reports ready as
// soon as it is serving.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

// WithHealthClock overrides the time source.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthBuildInfo sets the metadata echoed by /healthz.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithReadinessCheck registers a named check evaluated by /readyz.
func WithReadinessCheck(name string, check func(ctx context.Context) error) HealthOption {
	return func(h *HealthHandlers) {
		if check == nil {
			return
		}
		h.checks = append(h.checks, ReadinessCheck{Name: strings.TrimSpace(name), Check: check})
	}
}

// Healthz responds with a liveness payload.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":    healthStatusOK,
		"uptime":    now.Sub(h.build.StartedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

type readinessCheckPayload struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latencyMs"`
	Error     string  `json:"error,omitempty"`
}

type readinessPayload struct {
	Status    string                           `json:"status"`
	Timestamp string                           `json:"timestamp"`
	Checks    map[string]readinessCheckPayload `json:"checks"`
	Details   []string                         `json:"details,omitempty"`
}

// Readyz evaluates every readiness check and answers 503 when any of them fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload := readinessPayload{
		Status:    healthStatusOK,
		Timestamp: h.clock().UTC().Format(time.RFC3339),
		Checks:    make(map[string]readinessCheckPayload, len(h.checks)),
	}

	for _, check := range h.checks {
		started := h.clock()
		err := check.Check(ctx)
		result := readinessCheckPayload{
			Status:    healthStatusOK,
			LatencyMS: float64(h.clock().Sub(started)) / float64(time.Millisecond),
		}
		if err != nil {
			result.Status = healthStatusDegraded
			result.Error = err.Error()
			payload.Status = healthStatusDegraded
			payload.Details = append(payload.Details, fmt.Sprintf("%s: %s", check.Name, err.Error()))
		}
		payload.Checks[check.Name] = result
	}
	sort.Strings(payload.Details)

	status := http.StatusOK
	if payload.Status != healthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, payload)
}
