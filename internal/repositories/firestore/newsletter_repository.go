package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const newsletterCollection = "newsletterSubscribers"

type newsletterDocument struct {
	Email        string    `firestore:"email"`
	Source       string    `firestore:"source,omitempty"`
	SubscribedAt time.Time `firestore:"subscribedAt"`
}

// NewsletterRepository stores subscribers keyed by their normalised email so
// repeat signups collapse into a single document.
type NewsletterRepository struct {
	base *pfirestore.BaseRepository[newsletterDocument]
}

// NewNewsletterRepository constructs a Firestore-backed newsletter repository.
func NewNewsletterRepository(provider *pfirestore.Provider) (*NewsletterRepository, error) {
	if provider == nil {
		return nil, errors.New("newsletter repository requires firestore provider")
	}
	return &NewsletterRepository{
		base: pfirestore.NewBaseRepository[newsletterDocument](provider, newsletterCollection, nil, nil),
	}, nil
}

// Upsert stores the subscriber and reports whether the document was newly
// created, preserving the original SubscribedAt on repeat signups.
func (r *NewsletterRepository) Upsert(ctx context.Context, subscriber domain.NewsletterSubscriber) (domain.NewsletterSubscriber, bool, error) {
	email := normalizeEmail(subscriber.Email)
	id, err := requireID("newsletter.upsert", email)
	if err != nil {
		return domain.NewsletterSubscriber{}, false, err
	}
	subscriber.Email = email

	existing, err := r.base.Get(ctx, id)
	switch {
	case err == nil:
		subscriber.SubscribedAt = existing.Data.SubscribedAt
		if subscriber.Source == "" {
			subscriber.Source = existing.Data.Source
		}
		if _, err := r.base.Set(ctx, id, fromDomainSubscriber(subscriber)); err != nil {
			return domain.NewsletterSubscriber{}, false, err
		}
		return subscriber, false, nil
	case isNotFoundRepoError(err):
		subscriber.SubscribedAt = subscriber.SubscribedAt.UTC()
		if _, err := r.base.Set(ctx, id, fromDomainSubscriber(subscriber)); err != nil {
			return domain.NewsletterSubscriber{}, false, err
		}
		return subscriber, true, nil
	default:
		return domain.NewsletterSubscriber{}, false, err
	}
}

func (r *NewsletterRepository) Delete(ctx context.Context, email string) error {
	id, err := requireID("newsletter.delete", normalizeEmail(email))
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("newsletter.delete", err)
	}
	return nil
}

func (r *NewsletterRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.NewsletterSubscriber], error) {
	startAfter, err := decodeCursor("newsletter.list", pager.PageToken)
	if err != nil {
		return domain.CursorPage[domain.NewsletterSubscriber]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		q = q.OrderBy("subscribedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			if t, ok := parseCursorTime(startAfter[0]); ok {
				if id, ok := startAfter[1].(string); ok {
					q = q.StartAfter(t, id)
				}
			}
		}
		return q
	}

	return queryPage(ctx, r.base, pager.PageSize, build,
		func(_ string, doc newsletterDocument) domain.NewsletterSubscriber {
			return domain.NewsletterSubscriber(doc)
		},
		func(id string, doc newsletterDocument) []any {
			return []any{doc.SubscribedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func fromDomainSubscriber(subscriber domain.NewsletterSubscriber) newsletterDocument {
	return newsletterDocument(subscriber)
}
