package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

var (
	// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrCounterExhausted indicates the counter reached its configured maximum.
	ErrCounterExhausted = errors.New("counter: exhausted")
)

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Counters         repositories.CounterRepository
	Audit            AuditLogService
	Clock            func() time.Time
	Build            BuildInfo
}

type systemService struct {
	healthRepo repositories.HealthRepository
	counters   repositories.CounterRepository
	audit      AuditLogService
	clock      func() time.Time
	build      BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the utility service behind health, audit log, and
// counter admin endpoints.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("system service: counter repository is required")
	}
	if deps.Audit == nil {
		return nil, errors.New("system service: audit log service is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}

	return &systemService{
		healthRepo: deps.HealthRepository,
		counters:   deps.Counters,
		audit:      deps.Audit,
		clock:      func() time.Time { return clock().UTC() },
		build:      build,
	}, nil
}

func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	report, err := s.healthRepo.Collect(ctx)
	if err != nil {
		return SystemHealthReport{}, err
	}

	now := s.clock()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	} else {
		report.GeneratedAt = report.GeneratedAt.UTC()
	}
	report.Version = firstNonEmpty(report.Version, s.build.Version)
	report.CommitSHA = firstNonEmpty(report.CommitSHA, s.build.CommitSHA)
	report.Environment = firstNonEmpty(report.Environment, s.build.Environment)

	if report.Uptime <= 0 && !s.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	if len(report.Checks) == 0 {
		report.Checks = map[string]domain.SystemHealthCheck{}
	}
	if strings.TrimSpace(report.Status) == "" {
		report.Status = deriveHealthStatus(report.Checks)
	}
	return report, nil
}

func (s *systemService) ListAuditLogs(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	return s.audit.List(ctx, filter)
}

// NextCounterValue increments the named sequence. Counter IDs are scoped as
// "scope:name", e.g. "invoices:202608".
func (s *systemService) NextCounterValue(ctx context.Context, cmd CounterCommand) (int64, error) {
	counterID, err := normalizeCounterID(cmd.CounterID)
	if err != nil {
		return 0, err
	}
	step := cmd.Step
	if step < 0 {
		return 0, fmt.Errorf("%w: step must not be negative", ErrCounterInvalidInput)
	}

	value, err := s.counters.Next(ctx, counterID, step)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			switch counterErr.Code {
			case repositories.CounterErrorInvalidInput:
				return 0, fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
			case repositories.CounterErrorExhausted:
				return 0, fmt.Errorf("%w: %s", ErrCounterExhausted, counterErr.Message)
			}
		}
		return 0, err
	}
	return value, nil
}

func normalizeCounterID(counterID string) (string, error) {
	id := strings.TrimSpace(counterID)
	if id == "" {
		return "", fmt.Errorf("%w: counter id is required", ErrCounterInvalidInput)
	}
	parts := strings.SplitN(id, ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: counter id must be in scope:name format", ErrCounterInvalidInput)
	}
	return strings.TrimSpace(parts[0]) + ":" + strings.TrimSpace(parts[1]), nil
}

func deriveHealthStatus(checks map[string]domain.SystemHealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusOK, "":
			continue
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
