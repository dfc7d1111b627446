package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// String length limits
const (
	MaxURLLength     = 2 * 1024 * 1024
	MaxNameLength    = 4096
	MaxSandboxLength = 1024
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Null bytes never survive URL parsing or the renderer's name handling
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateURL checks a URL string before it reaches the parser
func ValidateURL(rawURL string, required bool) error {
	if err := ValidateString(rawURL, "url", 1, MaxURLLength, required); err != nil {
		return err
	}
	if strings.TrimSpace(rawURL) != rawURL {
		return fmt.Errorf("url has leading or trailing whitespace")
	}
	return nil
}

// ValidateFrameName validates a window or iframe name. Empty is allowed.
func ValidateFrameName(name string) error {
	return ValidateString(name, "name", 0, MaxNameLength, false)
}

// ValidateSandbox validates a sandbox attribute value. nil means no attribute.
func ValidateSandbox(attr *string) error {
	if attr == nil {
		return nil
	}
	return ValidateString(*attr, "sandbox", 0, MaxSandboxLength, false)
}

// ValidateScale rejects negative or non-finite scale factors. Zero means unset.
func ValidateScale(scale float64) error {
	if scale < 0 || scale != scale || scale > 1e6 {
		return fmt.Errorf("scale must be a positive finite number")
	}
	return nil
}
