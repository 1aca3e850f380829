package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/platform/pagination"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePageSize(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// decodeCursor parses a page token into startAfter values for the query's
// order-by fields. An empty token yields nil.
func decodeCursor(op string, token string) ([]any, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return nil, pfirestore.WrapError(op, status.Error(codes.InvalidArgument, err.Error()))
	}
	return cursor.StartAfter, nil
}

func encodeCursor(values ...any) string {
	token, err := pagination.EncodeToken(pagination.Cursor{StartAfter: values})
	if err != nil {
		return ""
	}
	return token
}

// queryPage runs a limit+1 sized query and splits the overflow into a next
// page token derived from the last returned document.
func queryPage[T any, D any](
	ctx context.Context,
	base *pfirestore.BaseRepository[D],
	pageSize int,
	build pfirestore.QueryBuilder,
	toDomain func(id string, doc D) T,
	cursorValues func(id string, doc D) []any,
) (domain.CursorPage[T], error) {
	limit := normalizePageSize(pageSize)

	docs, err := base.Query(ctx, func(q firestore.Query) firestore.Query {
		if build != nil {
			q = build(q)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[T]{}, err
	}

	page := domain.CursorPage[T]{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			page.NextPageToken = encodeCursor(cursorValues(last.ID, last.Data)...)
			break
		}
		page.Items = append(page.Items, toDomain(doc.ID, doc.Data))
	}
	return page, nil
}

// parseCursorTime recovers a timestamp cursor value that round-tripped
// through the JSON page token as a string.
func parseCursorTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// startAfterCreated applies a [createdAt, docID] cursor to a query ordered by
// those same fields.
func startAfterCreated(q firestore.Query, startAfter []any) firestore.Query {
	if len(startAfter) != 2 {
		return q
	}
	t, ok := parseCursorTime(startAfter[0])
	if !ok {
		return q
	}
	id, ok := startAfter[1].(string)
	if !ok {
		return q
	}
	return q.StartAfter(t, id)
}

func isNotFoundRepoError(err error) bool {
	var ferr *pfirestore.Error
	return errors.As(err, &ferr) && ferr.IsNotFound()
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

func invalidArgumentErr(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

func requireID(op string, id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", pfirestore.WrapError(op, status.Error(codes.InvalidArgument, "document id is required"))
	}
	return trimmed, nil
}

func notFoundError(op string, msg string) error {
	return pfirestore.WrapError(op, status.Error(codes.NotFound, msg))
}

func conflictError(op string, msg string) error {
	return pfirestore.WrapError(op, status.Error(codes.AlreadyExists, msg))
}
