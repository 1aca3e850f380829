package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

type stubNewsletterRepository struct {
	upsertFn func(context.Context, domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error)
	deleteFn func(context.Context, string) error
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.NewsletterSubscriber], error)
}

func (s *stubNewsletterRepository) Upsert(ctx context.Context, subscriber domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, subscriber)
	}
	return subscriber, true, nil
}

func (s *stubNewsletterRepository) Delete(ctx context.Context, email string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, email)
	}
	return nil
}

func (s *stubNewsletterRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.NewsletterSubscriber], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.NewsletterSubscriber]{}, nil
}

func newTestNewsletterService(t *testing.T, repo *stubNewsletterRepository) NewsletterService {
	t.Helper()

	svc, err := NewNewsletterService(NewsletterServiceDeps{
		Subscribers: repo,
		Clock:       func() time.Time { return testClockTime },
	})
	if err != nil {
		t.Fatalf("new newsletter service: %v", err)
	}
	return svc
}

func TestNewsletterServiceSubscribeNormalizesEmail(t *testing.T) {
	var upserted domain.NewsletterSubscriber
	repo := &stubNewsletterRepository{
		upsertFn: func(_ context.Context, subscriber domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error) {
			upserted = subscriber
			return subscriber, true, nil
		},
	}
	svc := newTestNewsletterService(t, repo)

	subscriber, created, err := svc.Subscribe(context.Background(), SubscribeNewsletterCommand{
		Email:  " Asha.Rao@Example.COM ",
		Source: "footer",
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if !created {
		t.Fatal("expected new subscription")
	}
	if subscriber.Email != "asha.rao@example.com" {
		t.Fatalf("unexpected email %q", subscriber.Email)
	}
	if !subscriber.SubscribedAt.Equal(testClockTime) {
		t.Fatalf("unexpected timestamp %v", subscriber.SubscribedAt)
	}
	if upserted.Source != "footer" {
		t.Fatalf("unexpected source %q", upserted.Source)
	}
}

func TestNewsletterServiceSubscribeRepeatReportsExisting(t *testing.T) {
	existing := domain.NewsletterSubscriber{
		Email:        "asha.rao@example.com",
		SubscribedAt: testClockTime.Add(-30 * 24 * time.Hour),
	}
	repo := &stubNewsletterRepository{
		upsertFn: func(context.Context, domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error) {
			return existing, false, nil
		},
	}
	svc := newTestNewsletterService(t, repo)

	subscriber, created, err := svc.Subscribe(context.Background(), SubscribeNewsletterCommand{
		Email: "asha.rao@example.com",
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if created {
		t.Fatal("expected existing subscription")
	}
	if !subscriber.SubscribedAt.Equal(existing.SubscribedAt) {
		t.Fatalf("expected original timestamp, got %v", subscriber.SubscribedAt)
	}
}

func TestNewsletterServiceSubscribeRejectsInvalidEmail(t *testing.T) {
	svc := newTestNewsletterService(t, &stubNewsletterRepository{})

	for _, email := range []string{"", "not-an-email", "@missing-local.example"} {
		_, _, err := svc.Subscribe(context.Background(), SubscribeNewsletterCommand{Email: email})
		if !errors.Is(err, ErrNewsletterInvalidInput) {
			t.Fatalf("email %q: expected invalid input, got %v", email, err)
		}
	}
}

func TestNewsletterServiceUnsubscribeIdempotent(t *testing.T) {
	repo := &stubNewsletterRepository{
		deleteFn: func(_ context.Context, email string) error {
			if email != "asha.rao@example.com" {
				t.Fatalf("unexpected email %q", email)
			}
			return repoNotFound("subscriber not found")
		},
	}
	svc := newTestNewsletterService(t, repo)

	if err := svc.Unsubscribe(context.Background(), " Asha.Rao@example.com "); err != nil {
		t.Fatalf("expected idempotent unsubscribe, got %v", err)
	}
}

func TestNewsletterServiceUnavailableTranslated(t *testing.T) {
	repo := &stubNewsletterRepository{
		upsertFn: func(context.Context, domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error) {
			return domain.NewsletterSubscriber{}, false, fakeRepoError{msg: "deadline exceeded", unavailable: true}
		},
	}
	svc := newTestNewsletterService(t, repo)

	_, _, err := svc.Subscribe(context.Background(), SubscribeNewsletterCommand{Email: "asha@example.com"})
	if !errors.Is(err, ErrNewsletterUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
