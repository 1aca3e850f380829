package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Status is the lifecycle state of a stored record.
type Status string

const (
	// DefaultTTL is how long replay records are kept when no TTL is configured.
	DefaultTTL = 24 * time.Hour
	// StatusPending means the key is reserved while the first request (for
	// example a checkout submit) is still in flight.
	StatusPending Status = "pending"
	// StatusCompleted means a response is stored and retries replay it.
	StatusCompleted Status = "completed"
)

// ReservationState is the outcome of trying to reserve a key.
type ReservationState int

const (
	// ReservationStateNew: nothing stored, the caller proceeds.
	ReservationStateNew ReservationState = iota
	// ReservationStateCompleted: a stored response exists and gets replayed.
	ReservationStateCompleted
	// ReservationStatePending: a concurrent request holds the key.
	ReservationStatePending
)

// Reservation returns the state together with whatever record was found.
type Reservation struct {
	State  ReservationState
	Record Record
}

// Record is the persisted response for one idempotency key.
type Record struct {
	Key             string
	Fingerprint     string
	Status          Status
	ResponseStatus  int
	ResponseHeaders map[string][]string
	ResponseBody    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
}

// Response is the HTTP response captured for replay.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Store persists reservations and replayable responses. Checkout and order
// mutation endpoints sit behind it.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
	CleanupExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// ErrFingerprintMismatch signals the same key arriving with a different
// request body or route, which must be rejected rather than replayed.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// recordID derives the storage id from the client-supplied key. The
// fingerprint is stored inside the record and checked there, not mixed into
// the id, so a mismatched reuse is detectable.
func recordID(key string) string {
	return hashHex([]byte(strings.TrimSpace(key)))
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// filterReplayHeaders copies the response headers, dropping hop-by-hop and
// recalculated ones that must not be replayed verbatim.
func filterReplayHeaders(header http.Header) map[string][]string {
	if len(header) == 0 {
		return nil
	}

	kept := make(map[string][]string, len(header))
	for name, values := range header {
		canonical := http.CanonicalHeaderKey(name)
		if dropOnReplay(canonical) {
			continue
		}
		copied := make([]string, len(values))
		copy(copied, values)
		kept[canonical] = copied
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func dropOnReplay(name string) bool {
	switch strings.ToLower(name) {
	case "content-length", "date", "connection", "keep-alive", "proxy-authenticate", "proxy-authorization", "te", "trailers", "transfer-encoding", "upgrade":
		return true
	default:
		return false
	}
}

func recordHeaders(values map[string][]string) http.Header {
	if len(values) == 0 {
		return http.Header{}
	}

	header := make(http.Header, len(values))
	for name, vals := range values {
		copied := make([]string, len(vals))
		copy(copied, vals)
		header[name] = copied
	}
	return header
}
