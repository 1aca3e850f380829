package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

type stubHealthRepository struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubHealthRepository) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

type stubAuditService struct {
	filter AuditLogFilter
	result domain.CursorPage[domain.AuditLogEntry]
	err    error
}

func (s *stubAuditService) Record(context.Context, AuditLogRecord) {}

func (s *stubAuditService) List(_ context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	s.filter = filter
	return s.result, s.err
}

type stubCounterRepository struct {
	nextFn      func(context.Context, string, int64) (int64, error)
	configureFn func(context.Context, string, repositories.CounterConfig) error
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

func (s *stubCounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	if s.configureFn != nil {
		return s.configureFn(ctx, counterID, cfg)
	}
	return nil
}

func newTestSystemService(t *testing.T, health *stubHealthRepository, counters *stubCounterRepository, audit *stubAuditService) SystemService {
	t.Helper()

	if health == nil {
		health = &stubHealthRepository{}
	}
	if counters == nil {
		counters = &stubCounterRepository{}
	}
	if audit == nil {
		audit = &stubAuditService{}
	}
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: health,
		Counters:         counters,
		Audit:            audit,
		Clock:            func() time.Time { return testClockTime },
		Build: BuildInfo{
			Version:     "1.4.0",
			CommitSHA:   "abc1234",
			Environment: "test",
			StartedAt:   testClockTime.Add(-2 * time.Hour),
		},
	})
	if err != nil {
		t.Fatalf("new system service: %v", err)
	}
	return svc
}

func TestSystemServiceHealthReportFillsDefaults(t *testing.T) {
	health := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"pubsub":    {Status: domain.HealthStatusOK},
			},
		},
	}
	svc := newTestSystemService(t, health, nil, nil)

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("health report: %v", err)
	}

	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected derived status ok, got %q", report.Status)
	}
	if report.Version != "1.4.0" || report.Environment != "test" {
		t.Fatalf("expected build metadata filled, got %+v", report)
	}
	if report.Uptime != 2*time.Hour {
		t.Fatalf("expected uptime 2h, got %v", report.Uptime)
	}
	if !report.GeneratedAt.Equal(testClockTime) {
		t.Fatalf("expected generated at from clock, got %v", report.GeneratedAt)
	}
}

func TestSystemServiceHealthReportDerivesWorstStatus(t *testing.T) {
	health := &stubHealthRepository{
		report: domain.SystemHealthReport{
			Checks: map[string]domain.SystemHealthCheck{
				"firestore": {Status: domain.HealthStatusOK},
				"stripe":    {Status: domain.HealthStatusError, Error: "timeout"},
			},
		},
	}
	svc := newTestSystemService(t, health, nil, nil)

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("health report: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %q", report.Status)
	}
}

func TestSystemServiceListAuditLogsDelegates(t *testing.T) {
	audit := &stubAuditService{
		result: domain.CursorPage[domain.AuditLogEntry]{
			Items: []domain.AuditLogEntry{{ID: "log_1", Action: "order.refund.settle"}},
		},
	}
	svc := newTestSystemService(t, nil, nil, audit)

	page, err := svc.ListAuditLogs(context.Background(), AuditLogFilter{Action: "order.refund.settle"})
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "log_1" {
		t.Fatalf("unexpected page %#v", page)
	}
	if audit.filter.Action != "order.refund.settle" {
		t.Fatalf("expected filter forwarded, got %#v", audit.filter)
	}
}

func TestSystemServiceNextCounterValue(t *testing.T) {
	counters := &stubCounterRepository{
		nextFn: func(_ context.Context, counterID string, step int64) (int64, error) {
			if counterID != "invoices:202608" {
				t.Fatalf("unexpected counter id %q", counterID)
			}
			if step != 1 {
				t.Fatalf("unexpected step %d", step)
			}
			return 42, nil
		},
	}
	svc := newTestSystemService(t, nil, counters, nil)

	value, err := svc.NextCounterValue(context.Background(), CounterCommand{CounterID: " invoices : 202608 ", Step: 1})
	if err != nil {
		t.Fatalf("next counter value: %v", err)
	}
	if value != 42 {
		t.Fatalf("expected 42, got %d", value)
	}
}

func TestSystemServiceNextCounterValueRejectsBadID(t *testing.T) {
	svc := newTestSystemService(t, nil, nil, nil)

	for _, id := range []string{"", "no-scope", ":name", "scope:"} {
		_, err := svc.NextCounterValue(context.Background(), CounterCommand{CounterID: id})
		if !errors.Is(err, ErrCounterInvalidInput) {
			t.Fatalf("id %q: expected invalid input, got %v", id, err)
		}
	}
}

func TestSystemServiceNextCounterValueTranslatesExhausted(t *testing.T) {
	counters := &stubCounterRepository{
		nextFn: func(context.Context, string, int64) (int64, error) {
			return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, "counter at max", nil)
		},
	}
	svc := newTestSystemService(t, nil, counters, nil)

	_, err := svc.NextCounterValue(context.Background(), CounterCommand{CounterID: "invoices:202608"})
	if !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
}
