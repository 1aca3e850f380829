package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const blogPostIDPrefix = "post_"

var blogSlugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

var (
	// ErrBlogInvalidInput indicates validation failures for blog operations.
	ErrBlogInvalidInput = errors.New("blog: invalid input")
	// ErrBlogPostNotFound indicates the post does not exist or is not visible.
	ErrBlogPostNotFound = errors.New("blog: post not found")
	// ErrBlogConflict signals a slug collision.
	ErrBlogConflict = errors.New("blog: conflict")
	// ErrBlogUnavailable indicates the blog store is unreachable.
	ErrBlogUnavailable = errors.New("blog: unavailable")
)

// BlogServiceDeps wires the dependencies required by the blog service.
type BlogServiceDeps struct {
	Posts       repositories.BlogRepository
	Clock       func() time.Time
	IDGenerator func() string
	Sanitizer   *bluemonday.Policy
}

type blogService struct {
	posts    repositories.BlogRepository
	clock    func() time.Time
	newID    func() string
	sanitize *bluemonday.Policy
}

// NewBlogService constructs a BlogService validating required dependencies.
// Post bodies are sanitized with a UGC policy so stored HTML is safe to
// render without further escaping.
func NewBlogService(deps BlogServiceDeps) (BlogService, error) {
	if deps.Posts == nil {
		return nil, errors.New("blog service: blog repository is required")
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
		sanitize = bluemonday.UGCPolicy()
	}

	return &blogService{
		posts: deps.Posts,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		sanitize: sanitize,
	}, nil
}

func (s *blogService) ListPublished(ctx context.Context, filter BlogListFilter) (domain.CursorPage[BlogPost], error) {
	filter.OnlyPublished = true
	filter.Status = []string{string(domain.BlogStatusPublished)}

	page, err := s.posts.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[BlogPost]{}, s.translateRepoError(err)
	}
	return page, nil
}

// GetBySlug serves a single published post; drafts stay invisible even when
// the slug is guessed.
func (s *blogService) GetBySlug(ctx context.Context, slug string) (BlogPost, error) {
	slug = normalizeBlogSlug(slug)
	if slug == "" {
		return BlogPost{}, fmt.Errorf("%w: slug is required", ErrBlogInvalidInput)
	}

	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return BlogPost{}, s.translateRepoError(err)
	}
	if post.Status != domain.BlogStatusPublished {
		return BlogPost{}, fmt.Errorf("%w: %s", ErrBlogPostNotFound, slug)
	}
	return post, nil
}

func (s *blogService) List(ctx context.Context, filter BlogListFilter) (domain.CursorPage[BlogPost], error) {
	page, err := s.posts.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[BlogPost]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *blogService) Create(ctx context.Context, cmd UpsertBlogPostCommand) (BlogPost, error) {
	post, err := s.normalizePost(cmd.Post)
	if err != nil {
		return BlogPost{}, err
	}

	now := s.clock()
	post.ID = blogPostIDPrefix + s.newID()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Status == domain.BlogStatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}

	if err := s.posts.Insert(ctx, post); err != nil {
		return BlogPost{}, s.translateRepoError(err)
	}
	return post, nil
}

func (s *blogService) Update(ctx context.Context, cmd UpsertBlogPostCommand) (BlogPost, error) {
	if strings.TrimSpace(cmd.Post.ID) == "" {
		return BlogPost{}, fmt.Errorf("%w: post id is required", ErrBlogInvalidInput)
	}

	post, err := s.normalizePost(cmd.Post)
	if err != nil {
		return BlogPost{}, err
	}

	existing, err := s.posts.FindByID(ctx, post.ID)
	if err != nil {
		return BlogPost{}, s.translateRepoError(err)
	}

	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = s.clock()

	// First publication stamps PublishedAt; re-publishing keeps the original date.
	switch {
	case post.Status != domain.BlogStatusPublished:
		post.PublishedAt = nil
	case existing.PublishedAt != nil:
		post.PublishedAt = existing.PublishedAt
	case post.PublishedAt == nil:
		publishedAt := post.UpdatedAt
		post.PublishedAt = &publishedAt
	}

	if err := s.posts.Update(ctx, post); err != nil {
		return BlogPost{}, s.translateRepoError(err)
	}
	return post, nil
}

func (s *blogService) Delete(ctx context.Context, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("%w: post id is required", ErrBlogInvalidInput)
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *blogService) normalizePost(post BlogPost) (BlogPost, error) {
	post.Title = strings.TrimSpace(post.Title)
	post.Excerpt = strings.TrimSpace(post.Excerpt)
	post.Author = strings.TrimSpace(post.Author)
	post.CoverImage = strings.TrimSpace(post.CoverImage)
	post.Slug = normalizeBlogSlug(post.Slug)

	if post.Title == "" {
		return BlogPost{}, fmt.Errorf("%w: title is required", ErrBlogInvalidInput)
	}
	if post.Slug == "" {
		post.Slug = normalizeBlogSlug(post.Title)
	}
	if post.Slug == "" {
		return BlogPost{}, fmt.Errorf("%w: slug could not be derived", ErrBlogInvalidInput)
	}

	post.BodyHTML = strings.TrimSpace(s.sanitize.Sanitize(post.BodyHTML))
	if post.BodyHTML == "" {
		return BlogPost{}, fmt.Errorf("%w: body is required", ErrBlogInvalidInput)
	}

	switch post.Status {
	case "":
		post.Status = domain.BlogStatusDraft
	case domain.BlogStatusDraft, domain.BlogStatusPublished:
	default:
		return BlogPost{}, fmt.Errorf("%w: unsupported status %q", ErrBlogInvalidInput, post.Status)
	}

	tags := make([]string, 0, len(post.Tags))
	for _, tag := range post.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	post.Tags = tags

	return post, nil
}

func normalizeBlogSlug(slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	slug = blogSlugSanitizer.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func (s *blogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %s", ErrBlogPostNotFound, repoErr.Error())
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %s", ErrBlogConflict, repoErr.Error())
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %s", ErrBlogUnavailable, repoErr.Error())
		}
	}
	return err
}
