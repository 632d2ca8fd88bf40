package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrFormat           = errors.New("unparseable timestamp")              // updated_at could not be converted to W3C
	ErrMissingAttribute = errors.New("record attribute missing")           // Child link or name attribute absent
	ErrNaming           = errors.New("invalid sitemap file name")          // Postfix empty or not filename-safe
	ErrFilesystem       = errors.New("filesystem error")                   // Wraps os errors
	ErrEncoding         = errors.New("content not representable in UTF-8") // Invalid UTF-8 or XML 1.0 characters
	ErrURLResolution    = errors.New("record URL resolution failed")       // Route template errors
	ErrParsing          = errors.New("parsing error")                      // Wraps YAML, XML, robots.txt parsing errors
	ErrDatabase         = errors.New("database error")                     // Wraps SQL and badger errors
	ErrConfigValidation = errors.New("configuration validation error")
)

// WrapErrorf wraps a sentinel with a formatted message so errors.Is keeps working
func WrapErrorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrFormat):
		return "Data_Format"
	case errors.Is(err, ErrMissingAttribute):
		return "Data_MissingAttribute"
	case errors.Is(err, ErrNaming):
		return "Data_Naming"
	case errors.Is(err, ErrEncoding):
		return "Data_Encoding"
	case errors.Is(err, ErrURLResolution):
		return "Data_URLResolution"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "YAML") {
			return "Parsing_YAML"
		}
		if strings.Contains(errMsg, "XML") {
			return "Parsing_XML"
		}
		return "Parsing_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}
	if errors.Is(err, os.ErrPermission) {
		return "Filesystem_Permission"
	}

	return "Unknown"
}
