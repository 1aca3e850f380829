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

const auditLogCollection = "auditLogs"

type auditLogDocument struct {
	Actor     string         `firestore:"actor"`
	ActorType string         `firestore:"actorType"`
	Action    string         `firestore:"action"`
	TargetRef string         `firestore:"targetRef,omitempty"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	IPHash    string         `firestore:"ipHash,omitempty"`
	UserAgent string         `firestore:"userAgent,omitempty"`
	Severity  string         `firestore:"severity"`
	RequestID string         `firestore:"requestId,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

// AuditLogRepository appends immutable audit trail entries.
type AuditLogRepository struct {
	base *pfirestore.BaseRepository[auditLogDocument]
}

// NewAuditLogRepository constructs a Firestore-backed audit log repository.
func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	return &AuditLogRepository{
		base: pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogCollection, nil, nil),
	}, nil
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	id, err := requireID("audit.append", entry.ID)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainAuditEntry(entry)); err != nil {
		return pfirestore.WrapError("audit.append", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	startAfter, err := decodeCursor("audit.list", filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.AuditLogEntry]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		if filter.TargetRef != "" {
			q = q.Where("targetRef", "==", filter.TargetRef)
		}
		if filter.Actor != "" {
			q = q.Where("actor", "==", filter.Actor)
		}
		if filter.ActorType != "" {
			q = q.Where("actorType", "==", filter.ActorType)
		}
		if filter.Action != "" {
			q = q.Where("action", "==", filter.Action)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, filter.Pagination.PageSize, build,
		toDomainAuditEntry,
		func(id string, doc auditLogDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func fromDomainAuditEntry(entry domain.AuditLogEntry) auditLogDocument {
	return auditLogDocument{
		Actor:     entry.Actor,
		ActorType: entry.ActorType,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		IPHash:    entry.IPHash,
		UserAgent: entry.UserAgent,
		Severity:  entry.Severity,
		RequestID: entry.RequestID,
		CreatedAt: entry.CreatedAt.UTC(),
	}
}

func toDomainAuditEntry(id string, doc auditLogDocument) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:        id,
		Actor:     doc.Actor,
		ActorType: doc.ActorType,
		Action:    doc.Action,
		TargetRef: doc.TargetRef,
		Metadata:  doc.Metadata,
		IPHash:    doc.IPHash,
		UserAgent: doc.UserAgent,
		Severity:  doc.Severity,
		RequestID: doc.RequestID,
		CreatedAt: doc.CreatedAt,
	}
}
