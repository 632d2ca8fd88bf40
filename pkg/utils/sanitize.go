package utils

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

// --- Filename Safety ---
var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F\s]`) // Characters invalid in Windows/Unix filenames, plus whitespace
var consecutiveDashes = regexp.MustCompile(`-+`)

// MaxPostfixLength keeps sitemap_<postfix>.xml within the 255-byte file name limit
const MaxPostfixLength = 255 - len("sitemap_") - len(".xml")

// Slugify turns arbitrary text into a lowercase ASCII slug.
// Non-alphanumeric runs become a single "-" and leading/trailing dashes are trimmed.
// Slugify(Slugify(s)) == Slugify(s).
func Slugify(text string) string {
	s := slug.Make(text) // transliterates and lowercases; keeps '_'
	s = strings.ReplaceAll(s, "_", "-")
	s = consecutiveDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugifyMax slugifies text and cuts the result to at most maxLen bytes,
// preferring the last word boundary. The cut is deterministic and
// SlugifyMax(SlugifyMax(s, n), n) == SlugifyMax(s, n).
func SlugifyMax(text string, maxLen int) string {
	s := Slugify(text)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen] // ASCII after Slugify
	if s[maxLen] != '-' {
		if i := strings.LastIndex(cut, "-"); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.Trim(cut, "-")
}

// ValidatePostfix checks that a postfix can be embedded in sitemap_<postfix>.xml
func ValidatePostfix(postfix string) error {
	if postfix == "" {
		return WrapErrorf(ErrNaming, "postfix is empty")
	}
	if len(postfix) > MaxPostfixLength {
		return WrapErrorf(ErrNaming, "postfix '%s' exceeds %d bytes", postfix, MaxPostfixLength)
	}
	if invalidFilenameChars.MatchString(postfix) || strings.Contains(postfix, "..") {
		return WrapErrorf(ErrNaming, "postfix '%s' contains characters not allowed in file names", postfix)
	}
	return nil
}
