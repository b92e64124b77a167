package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// mapIDRegex matches valid flatmap identifiers: the UUID-or-slug form
// produced by map generation (e.g. "whole-rat", "fc-heart.v2").
var mapIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidateMapID validates a map identifier for safety and correctness.
// Map ids become cache keys and path components, so the rules are
// intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No path traversal sequences (.., //, backslashes)
//   - Maximum length of 128 characters
func ValidateMapID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidMapID, "map id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidMapID, "map id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidMapID, "map id contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidMapID, "map id contains invalid characters: %q", pattern)
		}
	}

	if !mapIDRegex.MatchString(id) {
		return New(ErrCodeInvalidMapID, "invalid map id: %q", id)
	}

	return nil
}

// ValidateSourceURL validates a map-server base URL.
// It ensures the URL has a safe scheme (http or https).
func ValidateSourceURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeSourceFetch, "source URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeSourceFetch, "source URL must use http or https scheme")
	}

	return nil
}
