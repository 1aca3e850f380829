package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/platform/auth"
	"github.com/glowcart/api/internal/platform/httpx"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is empty")
)

const defaultBodyLimit = 64 * 1024

// readLimitedBody reads at most limit bytes from the request body and fails
// when the payload exceeds it.
func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

// decodeJSONBody reads and unmarshals a JSON request body into dst.
func decodeJSONBody(r *http.Request, dst any) error {
	body, err := readLimitedBody(r, defaultBodyLimit)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid JSON payload")
	}
	return nil
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidRequest, err.Error(), http.StatusBadRequest))
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return formatTime(*t)
}

func parseRFC3339(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func isJSONNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

// currentIdentity extracts the authenticated identity or writes a 401 and
// reports false.
func currentIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeUnauthenticated, "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

// parsePagination reads page_size and page_token query parameters.
func parsePagination(r *http.Request) (domain.Pagination, error) {
	pager := domain.Pagination{PageToken: strings.TrimSpace(r.URL.Query().Get("page_token"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return domain.Pagination{}, errors.New("page_size must be a positive integer")
		}
		pager.PageSize = size
	}
	return pager, nil
}

// parseDateRange reads created_after / created_before query parameters.
func parseDateRange(r *http.Request) (domain.RangeQuery[time.Time], error) {
	var rangeQuery domain.RangeQuery[time.Time]
	if raw := strings.TrimSpace(r.URL.Query().Get("created_after")); raw != "" {
		from, err := parseRFC3339(raw)
		if err != nil {
			return rangeQuery, errors.New("created_after must be an RFC3339 timestamp")
		}
		rangeQuery.From = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("created_before")); raw != "" {
		to, err := parseRFC3339(raw)
		if err != nil {
			return rangeQuery, errors.New("created_before must be an RFC3339 timestamp")
		}
		rangeQuery.To = &to
	}
	return rangeQuery, nil
}

// queryValues splits a repeatable query parameter, also accepting
// comma-separated values.
func queryValues(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func cloneStringPointer(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

// clientKey identifies a caller for rate limiting, preferring the
// authenticated user over the remote address.
func clientKey(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity != nil && identity.UID != "" {
		return identity.UID
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeRateLimited, "too many requests; retry later", http.StatusTooManyRequests))
}

// Address payload shared by order and checkout handlers --------------------

type addressPayload struct {
	Recipient  string  `json:"recipient"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      *string `json:"state,omitempty"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

func buildAddressPayload(addr domain.Address) addressPayload {
	return addressPayload{
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      cloneStringPointer(addr.Line2),
		City:       addr.City,
		State:      cloneStringPointer(addr.State),
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      cloneStringPointer(addr.Phone),
	}
}

func (p addressPayload) toDomain() domain.Address {
	return domain.Address{
		Recipient:  strings.TrimSpace(p.Recipient),
		Line1:      strings.TrimSpace(p.Line1),
		Line2:      p.Line2,
		City:       strings.TrimSpace(p.City),
		State:      p.State,
		PostalCode: strings.TrimSpace(p.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(p.Country)),
		Phone:      p.Phone,
	}
}
