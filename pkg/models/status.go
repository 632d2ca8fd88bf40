package models

// ChangeFrequency is the <changefreq> value of a sitemap entry
type ChangeFrequency string

const (
	FreqUnset   ChangeFrequency = ""        // Zero value = fall back to the default
	FreqAlways  ChangeFrequency = "always"  // Changes on every access
	FreqHourly  ChangeFrequency = "hourly"  // Changes about once an hour
	FreqDaily   ChangeFrequency = "daily"   // Changes about once a day
	FreqWeekly  ChangeFrequency = "weekly"  // Changes about once a week
	FreqMonthly ChangeFrequency = "monthly" // Changes about once a month
	FreqYearly  ChangeFrequency = "yearly"  // Changes about once a year
	FreqNever   ChangeFrequency = "never"   // Archived content
)

const (
	DefaultChangeFreq = FreqDaily
	DefaultPriority   = 1.0
)

// String implements fmt.Stringer for logging
func (f ChangeFrequency) String() string {
	if f == "" {
		return "unset"
	}
	return string(f)
}

// IsValid returns true if the frequency is one of the sitemaps.org values
func (f ChangeFrequency) IsValid() bool {
	switch f {
	case FreqAlways, FreqHourly, FreqDaily, FreqWeekly, FreqMonthly, FreqYearly, FreqNever:
		return true
	}
	return false
}

// OrDefault returns f, or DefaultChangeFreq when f is unset
func (f ChangeFrequency) OrDefault() ChangeFrequency {
	if f == FreqUnset {
		return DefaultChangeFreq
	}
	return f
}
