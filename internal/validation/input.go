package validation

import (
	"fmt"
	"strings"
)

// Input limits for command-line request parameters.
const (
	MaxURLLength    = 2048
	MaxFieldLength  = 100000   // a status body with room for long posts
	MaxUploadSize   = 41943040 // 40 MiB, Mastodon's default video limit
	MaxBatchLineLen = 1048576
)

// ValidateFieldValue checks the size of one -f/-F value.
func ValidateFieldValue(key, value string) error {
	if len(value) > MaxFieldLength {
		return fmt.Errorf("field %q exceeds maximum size of %d bytes (got %d)", key, MaxFieldLength, len(value))
	}
	return nil
}

// ValidateUploadSize checks the size of a file attached with @path.
func ValidateUploadSize(path string, size int64) error {
	if size > MaxUploadSize {
		return fmt.Errorf("file %q exceeds maximum upload size of %d bytes (got %d)", path, MaxUploadSize, size)
	}
	return nil
}

// ValidateAPIPath rejects empty paths and paths carrying a fragment.
// Absolute URLs are accepted as-is.
func ValidateAPIPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("API path cannot be empty")
	}
	if strings.Contains(path, "#") {
		return fmt.Errorf("API path must not contain a fragment: %q", path)
	}
	if len(path) > MaxURLLength {
		return fmt.Errorf("API path exceeds maximum length of %d characters", MaxURLLength)
	}
	return nil
}
