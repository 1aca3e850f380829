package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

type stubAuditRepo struct {
	entries   []domain.AuditLogEntry
	appendErr error

	listFilter repositories.AuditLogFilter
	listResp   domain.CursorPage[domain.AuditLogEntry]
	listErr    error
}

func (s *stubAuditRepo) Append(_ context.Context, entry domain.AuditLogEntry) error {
	s.entries = append(s.entries, entry)
	return s.appendErr
}

func (s *stubAuditRepo) List(_ context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	s.listFilter = filter
	return s.listResp, s.listErr
}

func newTestAuditLogService(t *testing.T, repo *stubAuditRepo, events *[]string) AuditLogService {
	t.Helper()

	svc, err := NewAuditLogService(AuditLogServiceDeps{
		Repository: repo,
		Clock:      func() time.Time { return testClockTime },
		Logger: func(_ context.Context, event string, _ map[string]any) {
			if events != nil {
				*events = append(*events, event)
			}
		},
		HashSalt: "pepper:",
	})
	if err != nil {
		t.Fatalf("new audit log service: %v", err)
	}
	return svc
}

func TestAuditLogServiceRecordSanitizesAndHashes(t *testing.T) {
	repo := &stubAuditRepo{}
	var events []string
	svc := newTestAuditLogService(t, repo, &events)

	svc.Record(context.Background(), AuditLogRecord{
		Actor:                 "  staff_9  ",
		Action:                " order.refund.settle ",
		TargetRef:             " ord_42 ",
		Severity:              "Warn",
		RequestID:             " req-123 ",
		Metadata:              map[string]any{"email": "Asha@example.com", "amount": int64(238820)},
		SensitiveMetadataKeys: []string{"email"},
		IPAddress:             "203.0.113.42 ",
		UserAgent:             "TestAgent\r\n",
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]

	if entry.Actor != "staff_9" || entry.ActorType != "staff" {
		t.Fatalf("unexpected actor %q type %q", entry.Actor, entry.ActorType)
	}
	if entry.Action != "order.refund.settle" || entry.TargetRef != "ord_42" {
		t.Fatalf("unexpected action %q target %q", entry.Action, entry.TargetRef)
	}
	if entry.Severity != "warn" {
		t.Fatalf("unexpected severity %q", entry.Severity)
	}
	if entry.UserAgent != "TestAgent" {
		t.Fatalf("expected control characters stripped, got %q", entry.UserAgent)
	}
	if !entry.CreatedAt.Equal(testClockTime) {
		t.Fatalf("expected CreatedAt stamped from clock, got %v", entry.CreatedAt)
	}
	if !strings.HasPrefix(entry.IPHash, auditHashPrefix) {
		t.Fatalf("expected hashed ip, got %q", entry.IPHash)
	}

	email, ok := entry.Metadata["email"].(string)
	if !ok || !strings.HasPrefix(email, auditHashPrefix) || strings.Contains(email, "example.com") {
		t.Fatalf("expected hashed email, got %#v", entry.Metadata["email"])
	}
	if amount, ok := entry.Metadata["amount"].(int64); !ok || amount != 238820 {
		t.Fatalf("expected non-sensitive metadata preserved, got %#v", entry.Metadata["amount"])
	}
	if len(events) != 0 {
		t.Fatalf("expected no failure events, got %v", events)
	}
}

func TestAuditLogServiceRecordKeepsExplicitTimestamp(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := newTestAuditLogService(t, repo, nil)

	occurred := testClockTime.Add(-time.Minute)
	svc.Record(context.Background(), AuditLogRecord{
		Actor:      "usr_1",
		Action:     "order.cancel",
		TargetRef:  "ord_1",
		OccurredAt: occurred,
	})

	if len(repo.entries) != 1 || !repo.entries[0].CreatedAt.Equal(occurred) {
		t.Fatalf("expected explicit timestamp kept, got %#v", repo.entries)
	}
	if repo.entries[0].ActorType != "user" {
		t.Fatalf("expected actor type inferred from usr_ prefix, got %q", repo.entries[0].ActorType)
	}
	if repo.entries[0].Severity != "info" {
		t.Fatalf("expected default severity info, got %q", repo.entries[0].Severity)
	}
}

func TestAuditLogServiceRecordSwallowsAppendFailure(t *testing.T) {
	repo := &stubAuditRepo{appendErr: errors.New("boom")}
	var events []string
	svc := newTestAuditLogService(t, repo, &events)

	svc.Record(context.Background(), AuditLogRecord{
		Actor:     "system",
		Action:    "coupon.expire",
		TargetRef: "cpn_1",
	})

	if len(events) != 1 || events[0] != "audit.append_failed" {
		t.Fatalf("expected append failure logged, got %v", events)
	}
}

func TestAuditLogServiceListDelegates(t *testing.T) {
	repo := &stubAuditRepo{
		listResp: domain.CursorPage[domain.AuditLogEntry]{
			Items:         []domain.AuditLogEntry{{ID: "log_1"}},
			NextPageToken: "next-token",
		},
	}
	svc := newTestAuditLogService(t, repo, nil)

	page, err := svc.List(context.Background(), AuditLogFilter{
		TargetRef:  " ord_123 ",
		Actor:      " staff_1 ",
		Action:     " order.status.update ",
		Pagination: Pagination{PageSize: 25, PageToken: "token"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if page.NextPageToken != "next-token" || len(page.Items) != 1 || page.Items[0].ID != "log_1" {
		t.Fatalf("unexpected page: %#v", page)
	}
	if repo.listFilter.TargetRef != "ord_123" || repo.listFilter.Actor != "staff_1" {
		t.Fatalf("expected trimmed filter, got %#v", repo.listFilter)
	}
	if repo.listFilter.Pagination.PageSize != 25 {
		t.Fatalf("expected page size forwarded, got %d", repo.listFilter.Pagination.PageSize)
	}
}

func TestAuditLogServiceListTranslatesUnavailable(t *testing.T) {
	repo := &stubAuditRepo{listErr: fakeRepoError{unavailable: true}}
	svc := newTestAuditLogService(t, repo, nil)

	_, err := svc.List(context.Background(), AuditLogFilter{})
	if !errors.Is(err, ErrAuditLogUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
