package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const reviewIDPrefix = "rev_"

var (
	// ErrReviewInvalidInput indicates validation failures for review operations.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewNotFound indicates a review could not be located.
	ErrReviewNotFound = errors.New("review: not found")
	// ErrReviewNotEligible indicates the order does not qualify for a review.
	ErrReviewNotEligible = errors.New("review: order not eligible")
	// ErrReviewConflict signals duplicate submissions or conflicting updates.
	ErrReviewConflict = errors.New("review: conflict")
	// ErrReviewInvalidState is returned when an invalid status transition is attempted.
	ErrReviewInvalidState = errors.New("review: invalid state transition")
)

// reviewableOrderStatuses are statuses in which the buyer has received the
// goods and may leave feedback. Returns and refunds keep that right.
var reviewableOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusDelivered: {},
	domain.OrderStatusReturned:  {},
	domain.OrderStatusRefunded:  {},
}

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews          repositories.ReviewRepository
	Orders           repositories.OrderRepository
	Clock            func() time.Time
	IDGenerator      func() string
	Sanitizer        func(string) string
	ProfanityChecker func(string) bool
}

type reviewService struct {
	reviews   repositories.ReviewRepository
	orders    repositories.OrderRepository
	clock     func() time.Time
	newID     func() string
	sanitize  func(string) string
	isProfane func(string) bool
}

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("review service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = sanitizeReviewText
	}
	profanity := deps.ProfanityChecker
	if profanity == nil {
		profanity = basicProfanityChecker
	}

	return &reviewService{
		reviews: deps.Reviews,
		orders:  deps.Orders,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:     idGen,
		sanitize:  sanitize,
		isProfane: profanity,
	}, nil
}

// Create records a pending review after checking that the order belongs to
// the user, has been delivered, and contains the reviewed product.
func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	if err := s.validateCreateCommand(cmd); err != nil {
		return Review{}, err
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return Review{}, s.mapOrderError(err)
	}

	if order.UserID != cmd.UserID {
		return Review{}, fmt.Errorf("%w: order not found", ErrReviewNotFound)
	}
	if _, ok := reviewableOrderStatuses[order.Status]; !ok {
		return Review{}, fmt.Errorf("%w: order must be delivered before review submission", ErrReviewNotEligible)
	}
	if !orderContainsProduct(order, cmd.ProductID) {
		return Review{}, fmt.Errorf("%w: product %s is not part of the order", ErrReviewNotEligible, cmd.ProductID)
	}

	if err := s.ensureNoExistingReview(ctx, cmd.OrderID, cmd.ProductID); err != nil {
		return Review{}, err
	}

	now := s.clock()
	review := domain.Review{
		ID:        reviewIDPrefix + s.newID(),
		ProductID: cmd.ProductID,
		OrderID:   cmd.OrderID,
		UserID:    cmd.UserID,
		Rating:    cmd.Rating,
		Title:     s.sanitize(cmd.Title),
		Body:      s.sanitize(cmd.Body),
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.reviews.Insert(ctx, review)
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}
	return created, nil
}

// ListByProduct returns published reviews only; pending and rejected reviews
// never reach the storefront.
func (s *reviewService) ListByProduct(ctx context.Context, cmd ListProductReviewsCommand) (domain.CursorPage[Review], error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.CursorPage[Review]{}, fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}

	page, err := s.reviews.ListByProduct(ctx, productID, repositories.ReviewListFilter{
		Status:     []domain.ReviewStatus{domain.ReviewStatusPublished},
		Pagination: cmd.Pagination,
	})
	if err != nil {
		return domain.CursorPage[Review]{}, s.mapReviewError(err)
	}
	return page, nil
}

func (s *reviewService) ListPending(ctx context.Context, pager Pagination) (domain.CursorPage[Review], error) {
	page, err := s.reviews.ListByStatus(ctx, domain.ReviewStatusPending, pager)
	if err != nil {
		return domain.CursorPage[Review]{}, s.mapReviewError(err)
	}
	return page, nil
}

// Moderate publishes or rejects a pending review. Repeating a decision is a
// no-op; reversing one is not allowed.
func (s *reviewService) Moderate(ctx context.Context, cmd ModerateReviewCommand) (Review, error) {
	if err := s.validateModerationCommand(cmd); err != nil {
		return Review{}, err
	}

	review, err := s.reviews.FindByID(ctx, cmd.ReviewID)
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}

	if review.Status == cmd.Status {
		return review, nil
	}
	if review.Status != domain.ReviewStatusPending {
		return Review{}, fmt.Errorf("%w: cannot transition from %s to %s", ErrReviewInvalidState, review.Status, cmd.Status)
	}

	updated, err := s.reviews.UpdateStatus(ctx, cmd.ReviewID, cmd.Status, repositories.ReviewModerationUpdate{
		ModeratedBy: cmd.ActorID,
		ModeratedAt: s.clock(),
	})
	if err != nil {
		return Review{}, s.mapReviewError(err)
	}
	return updated, nil
}

func (s *reviewService) validateCreateCommand(cmd CreateReviewCommand) error {
	if strings.TrimSpace(cmd.OrderID) == "" {
		return fmt.Errorf("%w: order id is required", ErrReviewInvalidInput)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrReviewInvalidInput)
	}
	if strings.TrimSpace(cmd.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}

	body := s.sanitize(cmd.Body)
	if body == "" {
		return fmt.Errorf("%w: review body is required", ErrReviewInvalidInput)
	}
	if s.isProfane(body) || s.isProfane(s.sanitize(cmd.Title)) {
		return fmt.Errorf("%w: review contains profanity", ErrReviewInvalidInput)
	}
	return nil
}

func (s *reviewService) validateModerationCommand(cmd ModerateReviewCommand) error {
	if strings.TrimSpace(cmd.ReviewID) == "" {
		return fmt.Errorf("%w: review id is required", ErrReviewInvalidInput)
	}
	if strings.TrimSpace(cmd.ActorID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrReviewInvalidInput)
	}
	switch cmd.Status {
	case domain.ReviewStatusPublished, domain.ReviewStatusRejected:
		return nil
	default:
		return fmt.Errorf("%w: unsupported moderation status %s", ErrReviewInvalidInput, cmd.Status)
	}
}

func (s *reviewService) ensureNoExistingReview(ctx context.Context, orderID, productID string) error {
	_, err := s.reviews.FindByOrderProduct(ctx, orderID, productID)
	if err == nil {
		return fmt.Errorf("%w: review already exists for this order item", ErrReviewConflict)
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return nil
	}
	return s.mapReviewError(err)
}

func orderContainsProduct(order domain.Order, productID string) bool {
	for _, item := range order.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *reviewService) mapReviewError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrReviewNotFound
		case repoErr.IsConflict():
			return ErrReviewConflict
		}
	}
	return err
}

func (s *reviewService) mapOrderError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: order not found", ErrReviewNotFound)
	}
	return err
}

var defaultProfanityTerms = map[string]struct{}{
	"ass":     {},
	"asshole": {},
	"bastard": {},
	"bitch":   {},
	"bloody":  {},
	"damn":    {},
	"fuck":    {},
	"fucker":  {},
	"fucking": {},
	"shit":    {},
	"shitty":  {},
	"slut":    {},
	"whore":   {},
}

func basicProfanityChecker(input string) bool {
	if input == "" {
		return false
	}

	normalized := strings.ToLower(input)
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})

	for _, word := range words {
		if _, ok := defaultProfanityTerms[word]; ok {
			return true
		}
	}
	return false
}

// sanitizeReviewText trims whitespace, strips unsafe control characters, and normalises spacing while
// preserving intentional newlines for readability.
func sanitizeReviewText(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\r", "\n")
	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		line = strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\n' {
				return -1
			}
			return r
		}, line)
		lines[i] = strings.Join(strings.Fields(line), " ")
	}

	result := strings.Join(lines, "\n")
	return strings.TrimSpace(result)
}
