package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const (
	defaultAuditSeverity = "info"
	defaultActorType     = "system"
	auditHashPrefix      = "sha256:"

	maxAuditActorLength  = 160
	maxAuditActionLength = 120
	maxAuditTargetLength = 200
	maxAuditValueLength  = 512
)

// ErrAuditLogUnavailable indicates the audit store cannot serve reads.
var ErrAuditLogUnavailable = errors.New("audit: unavailable")

// AuditLogServiceDeps bundles constructor inputs for the audit writer.
type AuditLogServiceDeps struct {
	Repository repositories.AuditLogRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
	HashSalt   string
}

type auditLogService struct {
	repo     repositories.AuditLogRepository
	clock    func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
	hashSalt string
}

// NewAuditLogService creates an audit log writer backed by the supplied repository.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.Repository == nil {
		return nil, errors.New("audit log service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &auditLogService{
		repo:     deps.Repository,
		clock:    func() time.Time { return clock().UTC() },
		logger:   logger,
		hashSalt: deps.HashSalt,
	}, nil
}

// Record persists an audit entry after sanitising free-form fields and hashing
// anything marked sensitive. Append failures are logged, never surfaced: audit
// writes must not abort the admin mutation they describe.
func (s *auditLogService) Record(ctx context.Context, record AuditLogRecord) {
	entry := s.buildEntry(record)
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger(ctx, "audit.append_failed", map[string]any{
			"action": entry.Action,
			"target": entry.TargetRef,
			"error":  err.Error(),
		})
	}
}

func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error) {
	page, err := s.repo.List(ctx, repositories.AuditLogFilter{
		TargetRef:  strings.TrimSpace(filter.TargetRef),
		Actor:      strings.TrimSpace(filter.Actor),
		ActorType:  strings.TrimSpace(filter.ActorType),
		Action:     strings.TrimSpace(filter.Action),
		DateRange:  filter.DateRange,
		Pagination: domain.Pagination{PageSize: filter.Pagination.PageSize, PageToken: filter.Pagination.PageToken},
	})
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
			return domain.CursorPage[AuditLogEntry]{}, fmt.Errorf("%w: %s", ErrAuditLogUnavailable, repoErr.Error())
		}
		return domain.CursorPage[AuditLogEntry]{}, err
	}
	return page, nil
}

func (s *auditLogService) buildEntry(record AuditLogRecord) domain.AuditLogEntry {
	occurred := record.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock()
	} else {
		occurred = occurred.UTC()
	}

	entry := domain.AuditLogEntry{
		Actor:     clipAuditText(record.Actor, maxAuditActorLength),
		ActorType: normalizeActorType(record.ActorType, record.Actor),
		Action:    clipAuditText(record.Action, maxAuditActionLength),
		TargetRef: clipAuditText(record.TargetRef, maxAuditTargetLength),
		Severity:  normalizeAuditSeverity(record.Severity),
		RequestID: clipAuditText(record.RequestID, 128),
		UserAgent: clipAuditText(record.UserAgent, 256),
		CreatedAt: occurred,
	}

	if meta := s.prepareMetadata(record.Metadata, record.SensitiveMetadataKeys); len(meta) > 0 {
		entry.Metadata = meta
	}
	if ip := strings.TrimSpace(record.IPAddress); ip != "" {
		entry.IPHash = auditHashPrefix + s.hashString(ip)
	}
	return entry
}

func (s *auditLogService) prepareMetadata(metadata map[string]any, sensitiveKeys []string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	sensitive := make(map[string]struct{}, len(sensitiveKeys))
	for _, key := range sensitiveKeys {
		if trimmed := strings.ToLower(strings.TrimSpace(key)); trimmed != "" {
			sensitive[trimmed] = struct{}{}
		}
	}
	result := make(map[string]any, len(metadata))
	for key, value := range metadata {
		trimmedKey := clipAuditText(key, 80)
		if trimmedKey == "" {
			continue
		}
		if _, hidden := sensitive[strings.ToLower(trimmedKey)]; hidden {
			result[trimmedKey] = auditHashPrefix + s.hashValue(value)
			continue
		}
		if str, ok := value.(string); ok {
			result[trimmedKey] = clipAuditText(str, maxAuditValueLength)
			continue
		}
		result[trimmedKey] = value
	}
	return result
}

func (s *auditLogService) hashString(value string) string {
	sum := sha256.Sum256([]byte(s.hashSalt + strings.TrimSpace(value)))
	return hex.EncodeToString(sum[:])
}

func (s *auditLogService) hashValue(value any) string {
	switch v := value.(type) {
	case string:
		return s.hashString(v)
	case []byte:
		return s.hashString(string(v))
	case fmt.Stringer:
		return s.hashString(v.String())
	default:
		if b, err := json.Marshal(v); err == nil {
			return s.hashString(string(b))
		}
		return s.hashString(fmt.Sprintf("%v", value))
	}
}

func normalizeActorType(actorType string, actor string) string {
	switch normalized := strings.ToLower(strings.TrimSpace(actorType)); normalized {
	case "user", "staff", "system", "service":
		return normalized
	}
	actor = strings.ToLower(strings.TrimSpace(actor))
	switch {
	case strings.HasPrefix(actor, "usr_"), strings.HasPrefix(actor, "user:"):
		return "user"
	case strings.HasPrefix(actor, "staff_"), strings.HasPrefix(actor, "staff:"):
		return "staff"
	default:
		return defaultActorType
	}
}

func normalizeAuditSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "warn", "warning":
		return "warn"
	case "error":
		return "error"
	default:
		return defaultAuditSeverity
	}
}

// clipAuditText trims, strips control characters, and caps the length in runes.
func clipAuditText(input string, limit int) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	var b strings.Builder
	count := 0
	for _, r := range input {
		if r < 32 {
			continue
		}
		if count >= limit {
			break
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(b.String())
}
