package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const couponIDPrefix = "cpn_"

var (
	// ErrCouponInvalidInput indicates malformed coupon data.
	ErrCouponInvalidInput = errors.New("coupon: invalid input")
	// ErrCouponNotFound indicates no coupon exists for the code.
	ErrCouponNotFound = errors.New("coupon: not found")
	// ErrCouponInactive indicates the coupon is disabled.
	ErrCouponInactive = errors.New("coupon: inactive")
	// ErrCouponExpired indicates the coupon expiry has passed.
	ErrCouponExpired = errors.New("coupon: expired")
	// ErrCouponMinSubtotal indicates the cart subtotal is below the coupon minimum.
	ErrCouponMinSubtotal = errors.New("coupon: minimum subtotal not met")
	// ErrCouponUnavailable indicates the coupon backend cannot be reached.
	ErrCouponUnavailable = errors.New("coupon: unavailable")
)

// CouponServiceDeps bundles dependencies required to construct a CouponService.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Clock       func() time.Time
	IDGenerator func() string
}

type couponService struct {
	repo  repositories.CouponRepository
	clock func() time.Time
	newID func() string
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errors.New("coupon service: coupon repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &couponService{
		repo:  deps.Coupons,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

// Resolve validates the code against the given subtotal at the given time and
// returns the coupon when every guard passes.
func (s *couponService) Resolve(ctx context.Context, code string, subtotal int64, now time.Time) (Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	if now.IsZero() {
		now = s.clock()
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}

	if !coupon.Active {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponInactive, normalized)
	}
	if coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt) {
		return Coupon{}, fmt.Errorf("%w: %s", ErrCouponExpired, normalized)
	}
	if coupon.MinSubtotal > 0 && subtotal < coupon.MinSubtotal {
		return Coupon{}, fmt.Errorf("%w: need %d, have %d", ErrCouponMinSubtotal, coupon.MinSubtotal, subtotal)
	}

	return coupon, nil
}

func (s *couponService) List(ctx context.Context, pager Pagination) (domain.CursorPage[Coupon], error) {
	page, err := s.repo.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Coupon]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *couponService) Upsert(ctx context.Context, cmd UpsertCouponCommand) (Coupon, error) {
	coupon := cmd.Coupon
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))
	if coupon.Code == "" {
		return Coupon{}, fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	switch coupon.Type {
	case domain.DiscountTypePercentage:
		if coupon.Value < 0 || coupon.Value > 100 {
			return Coupon{}, fmt.Errorf("%w: percentage value out of range", ErrCouponInvalidInput)
		}
	case domain.DiscountTypeFixed:
		if coupon.Value < 0 {
			return Coupon{}, fmt.Errorf("%w: fixed value is negative", ErrCouponInvalidInput)
		}
	default:
		return Coupon{}, fmt.Errorf("%w: unknown discount type %q", ErrCouponInvalidInput, coupon.Type)
	}
	if coupon.MinSubtotal < 0 {
		return Coupon{}, fmt.Errorf("%w: minimum subtotal is negative", ErrCouponInvalidInput)
	}

	now := s.clock()
	if coupon.ID == "" {
		coupon.ID = couponIDPrefix + s.newID()
		coupon.CreatedAt = now
	}
	coupon.UpdatedAt = now

	saved, err := s.repo.Upsert(ctx, coupon)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *couponService) Delete(ctx context.Context, couponID string) error {
	id := strings.TrimSpace(couponID)
	if id == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *couponService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCouponNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCouponUnavailable, err)
		}
	}
	return err
}
