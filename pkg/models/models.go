package models

import "time"

// URLConfig holds the URL-construction settings handed to every record when it
// resolves its canonical location. Records treat it as opaque input.
type URLConfig struct {
	BaseURL       string // Absolute site root, without trailing slash
	TrailingSlash bool   // Append "/" to resolved paths that lack one
}

// Record is the capability set the generator needs from a content record
type Record interface {
	// SiteMapURL returns the canonical absolute URL of the record
	SiteMapURL(cfg URLConfig) (string, error)
	// HasAttribute reports whether the record carries the named attribute
	HasAttribute(name string) bool
	// Attribute returns the named attribute value (nil when absent)
	Attribute(name string) any
}

// PageEntry is one <url> block of a sitemap document
type PageEntry struct {
	Loc        string
	ChangeFreq ChangeFrequency
	Priority   float64
	LastMod    string // W3C timestamp, empty when the record has no updated_at
}

// FileReference is one <sitemap> block of the sitemap index
type FileReference struct {
	Loc     string
	LastMod string
}

// FileRecord describes a sitemap document written during a generation run
type FileRecord struct {
	Name       string    `json:"name"`       // File name inside the store dir
	URL        string    `json:"url"`        // Public URL of the document
	Postfix    string    `json:"postfix"`    // Postfix used to build the file name
	Definition string    `json:"definition"` // Postfix of the definition that produced it
	Entries    int       `json:"entries"`    // Number of <url> blocks
	SHA256     string    `json:"sha256"`     // Content hash of the written file
	WrittenAt  time.Time `json:"written_at"` // Write time (also the index lastmod)
	Child      bool      `json:"child"`      // Produced by hierarchical expansion
	Unchanged  bool      `json:"unchanged"`  // Same hash as the previous run
}

// RunRecord summarizes one generation run
type RunRecord struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Success    bool         `json:"success"`
	Error      string       `json:"error,omitempty"`
	IndexURL   string       `json:"index_url,omitempty"`
	Files      []FileRecord `json:"files"`
	Stale      []string     `json:"stale,omitempty"` // Files from earlier runs not regenerated
}

// TotalEntries sums the entry counts of all files in the run
func (r *RunRecord) TotalEntries() int {
	total := 0
	for _, f := range r.Files {
		total += f.Entries
	}
	return total
}
