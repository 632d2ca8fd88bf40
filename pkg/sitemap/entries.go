// Package sitemap builds sitemaps.org 0.9 documents from content records:
// page entries, chunking, urlset and sitemapindex writers, and per-parent child
// sitemap expansion.
package sitemap

import (
	"fmt"
	"time"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
)

// Attribute names read from records
const (
	UpdatedAtAttribute = "updated_at"
	NameAttribute      = "name"
)

// EntryOptions carries the per-definition entry metadata.
// Unset fields fall back to daily, priority 1 and UTC.
type EntryOptions struct {
	ChangeFreq models.ChangeFrequency
	Priority   *float64       // nil = models.DefaultPriority
	Location   *time.Location // Zone for lastmod timestamps
}

// Priority returns a priority value for EntryOptions
func Priority(p float64) *float64 { return &p }

func (o EntryOptions) priority() float64 {
	if o.Priority == nil {
		return models.DefaultPriority
	}
	return *o.Priority
}

func (o EntryOptions) effective() EntryOptions {
	o.ChangeFreq = o.ChangeFreq.OrDefault()
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// BuildEntries converts records into page entries, preserving length and order.
// A record's updated_at (when present and non-nil) becomes the entry's lastmod.
func BuildEntries(records []models.Record, urlCfg models.URLConfig, opts EntryOptions) ([]models.PageEntry, error) {
	opts = opts.effective()
	priority := opts.priority()
	entries := make([]models.PageEntry, 0, len(records))

	for i, rec := range records {
		loc, err := rec.SiteMapURL(urlCfg)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		entry := models.PageEntry{
			Loc:        loc,
			ChangeFreq: opts.ChangeFreq,
			Priority:   priority,
		}
		if rec.HasAttribute(UpdatedAtAttribute) {
			if v := rec.Attribute(UpdatedAtAttribute); v != nil {
				lastMod, err := ToW3C(v, opts.Location)
				if err != nil {
					return nil, fmt.Errorf("record %d (%s): %w", i, loc, err)
				}
				entry.LastMod = lastMod
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
