package textutil

import "strings"

// NormalizeStringMap returns a copy of values with surrounding whitespace
// stripped from every key and value. Entries whose key becomes empty are
// dropped, and a nil map is returned when nothing survives so callers can
// treat "no metadata" uniformly.
func NormalizeStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(values))
	for rawKey, rawValue := range values {
		key := strings.TrimSpace(rawKey)
		if key == "" {
			continue
		}
		cleaned[key] = strings.TrimSpace(rawValue)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}
