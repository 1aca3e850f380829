package observability

import "unicode"

const maxLogFieldLen = 256

// scrubString drops control characters (keeping plain whitespace) and caps the
// length so attacker-supplied values cannot inject structure into log lines.
func scrubString(value string, limit int) string {
	if limit <= 0 {
		limit = maxLogFieldLen
	}

	kept := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return string(kept)
}

// SanitizeRoute scrubs a route template before it is attached to logs or spans.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return scrubString(route, 180)
}

// SanitizeMethod scrubs an HTTP method string.
func SanitizeMethod(method string) string {
	return scrubString(method, 10)
}

// SanitizeUserID caps customer identifiers so logs never carry more of them
// than needed for correlation.
func SanitizeUserID(uid string) string {
	if uid == "" {
		return ""
	}
	return scrubString(uid, 64)
}
