package errors

import (
	"regexp"
	"strings"
)

// sensitiveKeys mirrors spec §7's redaction list. Matching is case-insensitive
// and tolerant of separators ("api_key", "api-key", "apiKey").
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"access_key", "private_key", "client_secret",
}

var (
	bearerPattern = regexp.MustCompile(`(?i)(Authorization:\s*Bearer\s+)\S+`)
	kvPattern     = regexp.MustCompile(`(?i)("?(?:` + strings.ReplaceAll(strings.Join(sensitiveKeys, "|"), "_", "[-_]?") + `)"?\s*[:=]\s*"?)([^",\s}]+)`)
)

const redactedPlaceholder = "[REDACTED]"

// Redact scans a log line or tool input/output string for known-sensitive
// key/value pairs and Authorization: Bearer headers, replacing the secret
// portion with a fixed placeholder. It is intentionally conservative: when
// in doubt it redacts rather than leaks.
func Redact(s string) string {
	s = bearerPattern.ReplaceAllString(s, "${1}"+redactedPlaceholder)
	s = kvPattern.ReplaceAllString(s, "${1}"+redactedPlaceholder)
	return s
}

// RedactMap applies Redact to every string value in a shallow map, used for
// tool argument maps before they are logged or echoed in analytics.
func RedactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		lk := strings.ToLower(k)
		if isSensitiveKeyName(lk) {
			out[k] = redactedPlaceholder
			continue
		}
		if sv, ok := v.(string); ok {
			out[k] = Redact(sv)
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveKeyName(key string) bool {
	normalized := strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, sk := range sensitiveKeys {
		if normalized == sk {
			return true
		}
	}
	return false
}
