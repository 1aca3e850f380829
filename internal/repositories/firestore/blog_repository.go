package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
	"github.com/glowcart/api/internal/repositories"
)

const blogCollection = "blogPosts"

type blogPostDocument struct {
	Slug        string     `firestore:"slug"`
	Title       string     `firestore:"title"`
	Excerpt     string     `firestore:"excerpt,omitempty"`
	BodyHTML    string     `firestore:"bodyHtml"`
	CoverImage  string     `firestore:"coverImage,omitempty"`
	Author      string     `firestore:"author,omitempty"`
	Tags        []string   `firestore:"tags,omitempty"`
	Status      string     `firestore:"status"`
	PublishedAt *time.Time `firestore:"publishedAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

// BlogRepository persists editorial posts with unique slugs.
type BlogRepository struct {
	base *pfirestore.BaseRepository[blogPostDocument]
}

// NewBlogRepository constructs a Firestore-backed blog repository.
func NewBlogRepository(provider *pfirestore.Provider) (*BlogRepository, error) {
	if provider == nil {
		return nil, errors.New("blog repository requires firestore provider")
	}
	return &BlogRepository{
		base: pfirestore.NewBaseRepository[blogPostDocument](provider, blogCollection, nil, nil),
	}, nil
}

func (r *BlogRepository) Insert(ctx context.Context, post domain.BlogPost) error {
	id, err := requireID("blog.insert", post.ID)
	if err != nil {
		return err
	}
	if err := r.ensureUniqueSlug(ctx, "blog.insert", id, post.Slug); err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainBlogPost(post)); err != nil {
		return pfirestore.WrapError("blog.insert", err)
	}
	return nil
}

func (r *BlogRepository) Update(ctx context.Context, post domain.BlogPost) error {
	id, err := requireID("blog.update", post.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	if err := r.ensureUniqueSlug(ctx, "blog.update", id, post.Slug); err != nil {
		return err
	}
	_, err = r.base.Set(ctx, id, fromDomainBlogPost(post))
	return err
}

func (r *BlogRepository) Delete(ctx context.Context, postID string) error {
	id, err := requireID("blog.delete", postID)
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
		return pfirestore.WrapError("blog.delete", err)
	}
	return nil
}

func (r *BlogRepository) FindByID(ctx context.Context, postID string) (domain.BlogPost, error) {
	id, err := requireID("blog.get", postID)
	if err != nil {
		return domain.BlogPost{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.BlogPost{}, err
	}
	return toDomainBlogPost(doc.ID, doc.Data), nil
}

func (r *BlogRepository) FindBySlug(ctx context.Context, slug string) (domain.BlogPost, error) {
	slug = normalizeSlug(slug)
	if slug == "" {
		return domain.BlogPost{}, pfirestore.WrapError("blog.get_by_slug", invalidArgumentErr("slug is required"))
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.BlogPost{}, err
	}
	if len(docs) == 0 {
		return domain.BlogPost{}, notFoundError("blog.get_by_slug", "blog post not found for slug")
	}
	return toDomainBlogPost(docs[0].ID, docs[0].Data), nil
}

func (r *BlogRepository) List(ctx context.Context, filter repositories.BlogListFilter) (domain.CursorPage[domain.BlogPost], error) {
	startAfter, err := decodeCursor("blog.list", filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.BlogPost]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", filter.Status)
		} else if filter.OnlyPublished {
			q = q.Where("status", "==", string(domain.BlogStatusPublished))
		}
		if filter.Tag != nil && *filter.Tag != "" {
			q = q.Where("tags", "array-contains", *filter.Tag)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, filter.Pagination.PageSize, build,
		toDomainBlogPost,
		func(id string, doc blogPostDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func (r *BlogRepository) ensureUniqueSlug(ctx context.Context, op string, id string, slug string) error {
	slug = normalizeSlug(slug)
	if slug == "" {
		return pfirestore.WrapError(op, invalidArgumentErr("slug is required"))
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return err
	}
	if len(docs) > 0 && docs[0].ID != id {
		return conflictError(op, "slug already in use")
	}
	return nil
}

func fromDomainBlogPost(post domain.BlogPost) blogPostDocument {
	return blogPostDocument{
		Slug:        normalizeSlug(post.Slug),
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		BodyHTML:    post.BodyHTML,
		CoverImage:  post.CoverImage,
		Author:      post.Author,
		Tags:        post.Tags,
		Status:      string(post.Status),
		PublishedAt: post.PublishedAt,
		CreatedAt:   post.CreatedAt.UTC(),
		UpdatedAt:   post.UpdatedAt.UTC(),
	}
}

func toDomainBlogPost(id string, doc blogPostDocument) domain.BlogPost {
	return domain.BlogPost{
		ID:          id,
		Slug:        doc.Slug,
		Title:       doc.Title,
		Excerpt:     doc.Excerpt,
		BodyHTML:    doc.BodyHTML,
		CoverImage:  doc.CoverImage,
		Author:      doc.Author,
		Tags:        doc.Tags,
		Status:      domain.BlogStatus(doc.Status),
		PublishedAt: doc.PublishedAt,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
