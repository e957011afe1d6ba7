package middleware

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Input validation and sanitization utilities

const (
	maxTitleLen   = 255
	maxAuthorLen  = 128
	maxContentLen = 20_000
	// MaxImageBytes bounds uploaded/inlined images (8 MiB).
	MaxImageBytes = 8 << 20
)

// ValidateImageURL checks a community post image link
func ValidateImageURL(rawURL string) error {
	if rawURL == "" {
		return nil // optional field
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host cannot be empty")
	}
	return nil
}

// ValidatePostFields checks community post input before it reaches the
// storage layer
func ValidatePostFields(title, content, author string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return fmt.Errorf("title exceeds %d characters", maxTitleLen)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return fmt.Errorf("content exceeds %d characters", maxContentLen)
	}
	if utf8.RuneCountInString(author) > maxAuthorLen {
		return fmt.Errorf("author exceeds %d characters", maxAuthorLen)
	}
	return nil
}

// ValidateImagePayload rejects empty or oversized image bodies. Format
// checking stays with the vision model; only size is bounded here.
func ValidateImagePayload(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("image payload cannot be empty")
	}
	if len(data) > MaxImageBytes {
		return fmt.Errorf("image payload exceeds %d bytes", MaxImageBytes)
	}
	return nil
}
