package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// SessionIDRegex validates session ID format
	SessionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// ColorRegex validates hex color codes used by strokes
	ColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// ValidateSessionID validates session ID
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if len(sessionID) > 100 {
		return fmt.Errorf("session ID is too long (max 100 characters)")
	}
	if !SessionIDRegex.MatchString(sessionID) {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateSessionTitle validates session title
func ValidateSessionTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("session title is required")
	}
	if utf8.RuneCountInString(title) > 200 {
		return fmt.Errorf("session title is too long (max 200 characters)")
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("session title contains invalid characters")
	}
	return nil
}

// ValidateMediaURL validates a media source reference. Local paths are a
// supported source for pre-downloaded review material, so file URLs and bare
// paths pass alongside http(s).
func ValidateMediaURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("URL must have a host")
		}
	case "file", "":
		if u.Path == "" && u.Opaque == "" {
			return fmt.Errorf("file URL must have a path")
		}
	default:
		return fmt.Errorf("invalid URL scheme (must be http, https, or file)")
	}
	return nil
}

// ValidateStrokeColor validates a stroke's color code
func ValidateStrokeColor(color string) error {
	if color == "" {
		return nil // renderer falls back to its default color
	}
	if !ColorRegex.MatchString(color) {
		return fmt.Errorf("invalid color code (expected #rrggbb)")
	}
	return nil
}

// ValidateDurationSeconds validates a media duration value
func ValidateDurationSeconds(seconds float64) error {
	if seconds <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if seconds > 24*60*60 {
		return fmt.Errorf("duration is too long (max 24 hours)")
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
