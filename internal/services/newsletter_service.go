package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

var (
	// ErrNewsletterInvalidInput indicates the email address failed validation.
	ErrNewsletterInvalidInput = errors.New("newsletter: invalid input")
	// ErrNewsletterUnavailable indicates the subscriber store is unreachable.
	ErrNewsletterUnavailable = errors.New("newsletter: unavailable")
)

// NewsletterServiceDeps wires the dependencies required by the newsletter service.
type NewsletterServiceDeps struct {
	Subscribers repositories.NewsletterRepository
	Clock       func() time.Time
}

type newsletterService struct {
	subscribers repositories.NewsletterRepository
	clock       func() time.Time
}

// NewNewsletterService constructs a NewsletterService validating required dependencies.
func NewNewsletterService(deps NewsletterServiceDeps) (NewsletterService, error) {
	if deps.Subscribers == nil {
		return nil, errors.New("newsletter service: subscriber repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &newsletterService{
		subscribers: deps.Subscribers,
		clock:       func() time.Time { return clock().UTC() },
	}, nil
}

// Subscribe registers the address and reports whether it was newly created.
// Repeated subscriptions are idempotent and keep the original timestamp.
func (s *newsletterService) Subscribe(ctx context.Context, cmd SubscribeNewsletterCommand) (NewsletterSubscriber, bool, error) {
	email, err := normalizeNewsletterEmail(cmd.Email)
	if err != nil {
		return NewsletterSubscriber{}, false, err
	}

	subscriber := domain.NewsletterSubscriber{
		Email:        email,
		Source:       strings.TrimSpace(cmd.Source),
		SubscribedAt: s.clock(),
	}

	saved, created, err := s.subscribers.Upsert(ctx, subscriber)
	if err != nil {
		return NewsletterSubscriber{}, false, s.translateRepoError(err)
	}
	return saved, created, nil
}

// Unsubscribe removes the address. Unknown addresses are treated as already
// unsubscribed.
func (s *newsletterService) Unsubscribe(ctx context.Context, email string) error {
	normalized, err := normalizeNewsletterEmail(email)
	if err != nil {
		return err
	}
	if err := s.subscribers.Delete(ctx, normalized); err != nil && !isRepoNotFound(err) {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *newsletterService) List(ctx context.Context, pager Pagination) (domain.CursorPage[NewsletterSubscriber], error) {
	page, err := s.subscribers.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[NewsletterSubscriber]{}, s.translateRepoError(err)
	}
	return page, nil
}

func normalizeNewsletterEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrNewsletterInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email address", ErrNewsletterInvalidInput)
	}
	return email, nil
}

func (s *newsletterService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %s", ErrNewsletterUnavailable, repoErr.Error())
	}
	return err
}
