package tmux

import "strings"

// SanitizeSessionName creates a valid tmux session name from a string.
// It replaces spaces and special characters with hyphens, converts to
// lowercase, and caps the length.
func SanitizeSessionName(title string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, title)

	sanitized = strings.ToLower(sanitized)

	// Remove consecutive hyphens
	for strings.Contains(sanitized, "--") {
		sanitized = strings.ReplaceAll(sanitized, "--", "-")
	}

	sanitized = strings.Trim(sanitized, "-")

	if sanitized == "" {
		sanitized = "session"
	}

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}

	return sanitized
}
