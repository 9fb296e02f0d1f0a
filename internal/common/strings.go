package common

import "strings"

// UnknownStr is the display name used for unknown enum-like values.
const UnknownStr = "unknown"

// AnyTypeStr is the Go spelling of the variant placeholder type.
const AnyTypeStr = "any"

// ToSnakeCase converts PascalCase or camelCase to snake_case.
// Acronyms stay together: "HTTPHeader" -> "http_header", "ID" -> "id".
func ToSnakeCase(s string) string {
	var sb strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && isUpper(r) {
			prevUpper := isUpper(runes[i-1])
			nextLower := i+1 < len(runes) && isLower(runes[i+1])

			if (!prevUpper || nextLower) && runes[i-1] != '_' {
				sb.WriteRune('_')
			}
		}

		sb.WriteRune(r)
	}

	return strings.ToLower(sb.String())
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
