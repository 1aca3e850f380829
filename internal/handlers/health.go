package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/services"
)

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	system services.SystemService
	build  services.BuildInfo
	clock  func() time.Time
}

// HealthOption customises health handler construction.
type HealthOption func(*HealthHandlers)

// WithHealthSystemService wires the system service used for readiness checks.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthBuildInfo sets the build metadata reported by the probes.
func WithHealthBuildInfo(build services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthClock overrides the clock, used by tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs the health probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz reports process liveness with build metadata. It never consults
// downstream dependencies.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":    domain.HealthStatusOK,
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
	if !h.build.StartedAt.IsZero() {
		payload["uptime"] = now.Sub(h.build.StartedAt).String()
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type readinessCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	CheckedAt string `json:"checked_at,omitempty"`
}

type readinessPayload struct {
	Status      string                           `json:"status"`
	Checks      map[string]readinessCheckPayload `json:"checks,omitempty"`
	Details     []string                         `json:"details"`
	Version     string                           `json:"version,omitempty"`
	Environment string                           `json:"environment,omitempty"`
	GeneratedAt string                           `json:"generated_at,omitempty"`
}

// Readyz aggregates dependency probes via the system service.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		h.Healthz(w, r)
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, readinessPayload{
			Status:  domain.HealthStatusError,
			Details: []string{err.Error()},
		})
		return
	}

	payload := readinessPayload{
		Status:      report.Status,
		Details:     []string{},
		Version:     report.Version,
		Environment: report.Environment,
	}
	if !report.GeneratedAt.IsZero() {
		payload.GeneratedAt = formatTime(report.GeneratedAt)
	}
	if len(report.Checks) > 0 {
		payload.Checks = make(map[string]readinessCheckPayload, len(report.Checks))
		names := make([]string, 0, len(report.Checks))
		for name := range report.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check := report.Checks[name]
			entry := readinessCheckPayload{
				Status: check.Status,
				Detail: check.Detail,
				Error:  check.Error,
			}
			if check.Latency > 0 {
				entry.LatencyMS = check.Latency.Milliseconds()
			}
			if !check.CheckedAt.IsZero() {
				entry.CheckedAt = formatTime(check.CheckedAt)
			}
			payload.Checks[name] = entry
			if check.Error != "" {
				payload.Details = append(payload.Details, fmt.Sprintf("%s: %s", name, check.Error))
			}
		}
	}

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
