// Package masking redacts credentials before they reach logs, audit entries
// or API responses.
package masking

import "strings"

const (
	maskToken   = "****"
	visibleTail = 4
)

// tokenPrefixes are the credential prefixes issued by this service. They
// carry no entropy and stay readable in a hint.
var tokenPrefixes = []string{"bat_"}

// MaskSecret keeps a known token prefix and the last four characters of
// longer secrets. Anything else, including Discord bot tokens, is reduced to
// the mask and its tail.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= visibleTail*2 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-visibleTail:]
}

// MaskJSON returns a copy of an audit metadata map with string values masked.
// Blank keys are dropped.
func MaskJSON(input map[string]any) map[string]any {
	masked := make(map[string]any, len(input))
	for key, value := range input {
		if key = strings.TrimSpace(key); key != "" {
			masked[key] = maskValue(value)
		}
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch v := value.(type) {
	case string:
		return MaskSecret(v)
	case map[string]any:
		return MaskJSON(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = maskValue(item)
		}
		return out
	default:
		return value
	}
}

func splitPrefix(value string) (string, string) {
	for _, prefix := range tokenPrefixes {
		if rest, ok := strings.CutPrefix(value, prefix); ok {
			return prefix, rest
		}
	}
	return "", value
}
