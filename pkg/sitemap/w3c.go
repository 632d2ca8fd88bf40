package sitemap

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// W3CLayout is the W3C datetime profile used for <lastmod>
const W3CLayout = "2006-01-02T15:04:05-07:00"

// FormatW3C formats t in loc (UTC when nil)
func FormatW3C(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(W3CLayout)
}

// ToW3C converts an updated_at value to a W3C timestamp.
// Accepts Unix epoch integers (or all-digit strings), time.Time, and date strings;
// naive date strings are read in loc. Anything else fails with ErrFormat.
func ToW3C(value any, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch v := value.(type) {
	case []byte:
		value = string(v)
	case float32, float64:
		return "", utils.WrapErrorf(utils.ErrFormat, "fractional epoch %v", v)
	}
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if isDigits(s) {
			epoch, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return "", utils.WrapErrorf(utils.ErrFormat, "epoch '%s': %v", s, err)
			}
			value = epoch
		} else {
			value = s
		}
	}

	t, err := cast.ToTimeInDefaultLocationE(value, loc)
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrFormat, "updated_at %#v: %v", value, err)
	}
	return FormatW3C(t, loc), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
