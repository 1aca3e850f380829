package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

type stubBannerRepository struct {
	insertFn     func(context.Context, domain.Banner) error
	updateFn     func(context.Context, domain.Banner) error
	deleteFn     func(context.Context, string) error
	findFn       func(context.Context, string) (domain.Banner, error)
	listActiveFn func(context.Context, time.Time) ([]domain.Banner, error)
	listFn       func(context.Context, domain.Pagination) (domain.CursorPage[domain.Banner], error)
	viewsFn      func(context.Context, string, int64) error
	clicksFn     func(context.Context, string, int64) error
}

func (s *stubBannerRepository) Insert(ctx context.Context, banner domain.Banner) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, banner)
	}
	return nil
}

func (s *stubBannerRepository) Update(ctx context.Context, banner domain.Banner) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, banner)
	}
	return nil
}

func (s *stubBannerRepository) Delete(ctx context.Context, bannerID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, bannerID)
	}
	return nil
}

func (s *stubBannerRepository) FindByID(ctx context.Context, bannerID string) (domain.Banner, error) {
	if s.findFn != nil {
		return s.findFn(ctx, bannerID)
	}
	return domain.Banner{}, repoNotFound("banner not found")
}

func (s *stubBannerRepository) ListActive(ctx context.Context, now time.Time) ([]domain.Banner, error) {
	if s.listActiveFn != nil {
		return s.listActiveFn(ctx, now)
	}
	return nil, nil
}

func (s *stubBannerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Banner], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Banner]{}, nil
}

func (s *stubBannerRepository) IncrementViews(ctx context.Context, bannerID string, delta int64) error {
	if s.viewsFn != nil {
		return s.viewsFn(ctx, bannerID, delta)
	}
	return nil
}

func (s *stubBannerRepository) IncrementClicks(ctx context.Context, bannerID string, delta int64) error {
	if s.clicksFn != nil {
		return s.clicksFn(ctx, bannerID, delta)
	}
	return nil
}

func newTestBannerService(t *testing.T, repo *stubBannerRepository) BannerService {
	t.Helper()

	svc, err := NewBannerService(BannerServiceDeps{
		Banners:     repo,
		Clock:       func() time.Time { return testClockTime },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("new banner service: %v", err)
	}
	return svc
}

func TestBannerServiceListActiveFiltersSchedule(t *testing.T) {
	past := testClockTime.Add(-time.Hour)
	expired := testClockTime.Add(-time.Minute)
	repo := &stubBannerRepository{
		listActiveFn: func(_ context.Context, now time.Time) ([]domain.Banner, error) {
			if !now.Equal(testClockTime) {
				t.Fatalf("unexpected now %v", now)
			}
			return []domain.Banner{
				{ID: "ban_live", Active: true, StartsAt: &past},
				{ID: "ban_expired", Active: true, StartsAt: &past, EndsAt: &expired},
				{ID: "ban_disabled", Active: false},
			}, nil
		},
	}
	svc := newTestBannerService(t, repo)

	banners, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(banners) != 1 || banners[0].ID != "ban_live" {
		t.Fatalf("unexpected banners %+v", banners)
	}
}

func TestBannerServiceRecordViewIncrements(t *testing.T) {
	var got string
	repo := &stubBannerRepository{
		viewsFn: func(_ context.Context, bannerID string, delta int64) error {
			got = bannerID
			if delta != 1 {
				t.Fatalf("unexpected delta %d", delta)
			}
			return nil
		},
	}
	svc := newTestBannerService(t, repo)

	if err := svc.RecordView(context.Background(), "ban_1"); err != nil {
		t.Fatalf("record view: %v", err)
	}
	if got != "ban_1" {
		t.Fatalf("unexpected banner id %s", got)
	}
}

func TestBannerServiceRecordViewUnknownBanner(t *testing.T) {
	repo := &stubBannerRepository{
		viewsFn: func(context.Context, string, int64) error {
			return repoNotFound("banner not found")
		},
	}
	svc := newTestBannerService(t, repo)

	if err := svc.RecordView(context.Background(), "ban_missing"); !errors.Is(err, ErrBannerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBannerServiceRecordClickSwallowsTransientFailure(t *testing.T) {
	repo := &stubBannerRepository{
		clicksFn: func(context.Context, string, int64) error {
			return fakeRepoError{msg: "deadline exceeded", unavailable: true}
		},
	}
	svc := newTestBannerService(t, repo)

	if err := svc.RecordClick(context.Background(), "ban_1"); err != nil {
		t.Fatalf("expected transient failure swallowed, got %v", err)
	}
}

func TestBannerServiceCreateAssignsIDAndResetsCounters(t *testing.T) {
	var inserted domain.Banner
	repo := &stubBannerRepository{
		insertFn: func(_ context.Context, banner domain.Banner) error {
			inserted = banner
			return nil
		},
	}
	svc := newTestBannerService(t, repo)

	banner, err := svc.Create(context.Background(), UpsertBannerCommand{
		Banner: domain.Banner{
			Title:    " Summer Sale ",
			ImageURL: "https://cdn.example/summer.jpg",
			Active:   true,
			Views:    99,
			Clicks:   12,
		},
		ActorID: "staff_1",
	})
	if err != nil {
		t.Fatalf("create banner: %v", err)
	}

	if banner.ID != "ban_01TESTULID" {
		t.Fatalf("unexpected id %s", banner.ID)
	}
	if banner.Title != "Summer Sale" {
		t.Fatalf("unexpected title %q", banner.Title)
	}
	if banner.Views != 0 || banner.Clicks != 0 {
		t.Fatalf("expected counters reset, got %d/%d", banner.Views, banner.Clicks)
	}
	if !banner.CreatedAt.Equal(testClockTime) || !banner.UpdatedAt.Equal(testClockTime) {
		t.Fatalf("unexpected timestamps %+v", banner)
	}
	if inserted.ID != banner.ID {
		t.Fatal("expected banner persisted")
	}
}

func TestBannerServiceCreateValidatesSchedule(t *testing.T) {
	svc := newTestBannerService(t, &stubBannerRepository{})

	start := testClockTime
	end := testClockTime.Add(-time.Hour)
	_, err := svc.Create(context.Background(), UpsertBannerCommand{
		Banner: domain.Banner{
			Title:    "Flash",
			ImageURL: "https://cdn.example/flash.jpg",
			StartsAt: &start,
			EndsAt:   &end,
		},
	})
	if !errors.Is(err, ErrBannerInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBannerServiceUpdatePreservesCounters(t *testing.T) {
	created := testClockTime.Add(-48 * time.Hour)
	repo := &stubBannerRepository{
		findFn: func(context.Context, string) (domain.Banner, error) {
			return domain.Banner{
				ID:        "ban_1",
				Title:     "Old",
				ImageURL:  "https://cdn.example/old.jpg",
				Views:     450,
				Clicks:    32,
				CreatedAt: created,
			}, nil
		},
	}
	svc := newTestBannerService(t, repo)

	banner, err := svc.Update(context.Background(), UpsertBannerCommand{
		Banner: domain.Banner{
			ID:       "ban_1",
			Title:    "New Title",
			ImageURL: "https://cdn.example/new.jpg",
			Active:   true,
		},
	})
	if err != nil {
		t.Fatalf("update banner: %v", err)
	}

	if banner.Views != 450 || banner.Clicks != 32 {
		t.Fatalf("expected counters preserved, got %d/%d", banner.Views, banner.Clicks)
	}
	if !banner.CreatedAt.Equal(created) {
		t.Fatalf("expected created at preserved, got %v", banner.CreatedAt)
	}
	if !banner.UpdatedAt.Equal(testClockTime) {
		t.Fatalf("expected updated at bumped, got %v", banner.UpdatedAt)
	}
}

func TestBannerServiceUpdateUnknownBanner(t *testing.T) {
	svc := newTestBannerService(t, &stubBannerRepository{})

	_, err := svc.Update(context.Background(), UpsertBannerCommand{
		Banner: domain.Banner{
			ID:       "ban_missing",
			Title:    "New",
			ImageURL: "https://cdn.example/new.jpg",
		},
	})
	if !errors.Is(err, ErrBannerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
