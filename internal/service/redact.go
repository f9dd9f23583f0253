package service

import (
	"encoding/json"
	"regexp"
	"strings"
)

const RedactionMarker = "[REDACTED]"

// sensitiveKeys is the fixed, case-sensitive denylist of object keys whose
// values are removed from stored audit copies.
var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"token":          {},
	"secret":         {},
	"key":            {},
	"auth":           {},
	"authorization":  {},
	"jwt":            {},
	"api_key":        {},
	"api_secret":     {},
	"access_token":   {},
	"refresh_token":  {},
	"private_key":    {},
	"private_secret": {},
}

// fallbackPattern matches `"field": value`, `field: value` and
// `field = value` shapes in non-JSON text for every denylisted field.
var fallbackPattern = func() *regexp.Regexp {
	names := make([]string, 0, len(sensitiveKeys))
	for name := range sensitiveKeys {
		names = append(names, regexp.QuoteMeta(name))
	}
	alternation := strings.Join(names, "|")
	return regexp.MustCompile(`("?(?:` + alternation + `)"?\s*[:=]\s*)("[^"]*"|[^\s,}&]+)`)
}()

// Redact removes sensitive values from a captured body before storage.
// JSON bodies are walked recursively and denylisted keys replaced with the
// marker. Anything that does not parse as JSON gets best-effort substring
// redaction, which does not cover every serialization format; the stored
// copy is bounded-leakage, not guaranteed-clean.
func Redact(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return body
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		redacted := redactValue(parsed)
		if out, err := json.Marshal(redacted); err == nil {
			return string(out)
		}
	}

	return fallbackPattern.ReplaceAllString(body, "${1}"+RedactionMarker)
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, nested := range v {
			if _, sensitive := sensitiveKeys[key]; sensitive {
				v[key] = RedactionMarker
				continue
			}
			v[key] = redactValue(nested)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = redactValue(item)
		}
		return v
	default:
		return value
	}
}
