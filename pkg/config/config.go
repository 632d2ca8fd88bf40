package config

import (
	"sort"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
)

// QueryConfig is the YAML form of a record-source query
type QueryConfig struct {
	Table   string         `yaml:"table" validate:"required"`
	Columns []string       `yaml:"columns,omitempty"`
	Where   map[string]any `yaml:"where,omitempty"` // Static equality filters, e.g. {status: published}
	OrderBy []string       `yaml:"order_by,omitempty"`
	Route   string         `yaml:"route" validate:"required"` // URL template, see pkg/urlresolve
}

// ToQuery converts the config into a query value. Static filters are applied in
// column order so the generated SQL is stable.
func (q QueryConfig) ToQuery() source.Query {
	query := source.Query{
		Table:   q.Table,
		Columns: append([]string(nil), q.Columns...),
		OrderBy: append([]string(nil), q.OrderBy...),
		Route:   q.Route,
	}
	columns := make([]string, 0, len(q.Where))
	for col := range q.Where {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		query = query.Where(col, q.Where[col])
	}
	return query
}

// SitemapConfig defines one top-level sitemap and its optional per-parent child sitemaps
type SitemapConfig struct {
	Postfix    string                 `yaml:"postfix" validate:"required"`
	Query      QueryConfig            `yaml:"query"`
	ChildQuery *QueryConfig           `yaml:"child_query,omitempty"`
	ChildLink  *sitemap.ChildLink     `yaml:"child_link,omitempty"`
	ChangeFreq models.ChangeFrequency `yaml:"change_freq,omitempty"`
	Priority   *float64               `yaml:"priority,omitempty"`
}

// HasChildren reports whether the definition declares a child relation
func (s SitemapConfig) HasChildren() bool {
	return s.ChildQuery != nil && s.ChildLink != nil
}

// DatabaseConfig selects the record source
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=sqlite pgx yaml"`
	DSN    string `yaml:"dsn" validate:"required"` // Connection string, or fixture path for yaml
}

// AppConfig holds the global application configuration
type AppConfig struct {
	BaseURL           string                 `yaml:"base_url" validate:"required"`
	StorePath         string                 `yaml:"store_path"`
	DivideCounts      int                    `yaml:"divide_counts,omitempty"` // Chunk size, 0 disables chunking
	ChunkTopLevel     bool                   `yaml:"chunk_top_level,omitempty"`
	EscapeMode        sitemap.EscapeMode     `yaml:"escape_mode,omitempty"`
	Timezone          string                 `yaml:"timezone,omitempty"`
	Workers           int                    `yaml:"workers,omitempty"`
	DefaultChangeFreq models.ChangeFrequency `yaml:"default_change_freq,omitempty"`
	DefaultPriority   *float64               `yaml:"default_priority,omitempty"`
	TrailingSlash     bool                   `yaml:"trailing_slash,omitempty"`
	StateDir          string                 `yaml:"state_dir"`
	PruneStale        bool                   `yaml:"prune_stale,omitempty"`
	RobotsTxtPath     string                 `yaml:"robots_txt_path,omitempty"`
	MetricsTextfile   string                 `yaml:"metrics_textfile,omitempty"`
	Database          DatabaseConfig         `yaml:"database"`
	Sitemaps          []SitemapConfig        `yaml:"sitemaps" validate:"required,min=1,dive"`

	location *time.Location
}

// Location returns the zone for lastmod timestamps (UTC until Validate resolves Timezone)
func (c *AppConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// URLConfig returns the URL-construction settings handed to records
func (c *AppConfig) URLConfig() models.URLConfig {
	return models.URLConfig{BaseURL: c.BaseURL, TrailingSlash: c.TrailingSlash}
}

// FindSitemap returns the definition with the given postfix
func (c *AppConfig) FindSitemap(postfix string) (SitemapConfig, bool) {
	for _, s := range c.Sitemaps {
		if s.Postfix == postfix {
			return s, true
		}
	}
	return SitemapConfig{}, false
}

// GetEffectiveChangeFreq determines the changefreq of a definition's entries
func GetEffectiveChangeFreq(smCfg SitemapConfig, appCfg AppConfig) models.ChangeFrequency {
	if smCfg.ChangeFreq != models.FreqUnset {
		return smCfg.ChangeFreq
	}
	return appCfg.DefaultChangeFreq.OrDefault()
}

// GetEffectivePriority determines the priority of a definition's entries
func GetEffectivePriority(smCfg SitemapConfig, appCfg AppConfig) float64 {
	if smCfg.Priority != nil {
		return *smCfg.Priority
	}
	if appCfg.DefaultPriority != nil {
		return *appCfg.DefaultPriority
	}
	return models.DefaultPriority
}

// GetEffectiveEntryOptions bundles the entry metadata of a definition
func GetEffectiveEntryOptions(smCfg SitemapConfig, appCfg *AppConfig) sitemap.EntryOptions {
	return sitemap.EntryOptions{
		ChangeFreq: GetEffectiveChangeFreq(smCfg, *appCfg),
		Priority:   sitemap.Priority(GetEffectivePriority(smCfg, *appCfg)),
		Location:   appCfg.Location(),
	}
}
