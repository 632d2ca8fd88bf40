package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestGetEffectiveChangeFreq(t *testing.T) {
	tests := []struct {
		name     string
		smCfg    SitemapConfig
		appCfg   AppConfig
		expected models.ChangeFrequency
	}{
		{
			name:     "definition overrides global",
			smCfg:    SitemapConfig{ChangeFreq: models.FreqWeekly},
			appCfg:   AppConfig{DefaultChangeFreq: models.FreqMonthly},
			expected: models.FreqWeekly,
		},
		{
			name:     "definition unset uses global",
			smCfg:    SitemapConfig{},
			appCfg:   AppConfig{DefaultChangeFreq: models.FreqMonthly},
			expected: models.FreqMonthly,
		},
		{
			name:     "both unset uses daily",
			expected: models.FreqDaily,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetEffectiveChangeFreq(tt.smCfg, tt.appCfg))
		})
	}
}

func TestGetEffectivePriority(t *testing.T) {
	tests := []struct {
		name     string
		smCfg    SitemapConfig
		appCfg   AppConfig
		expected float64
	}{
		{
			name:     "definition overrides global",
			smCfg:    SitemapConfig{Priority: floatPtr(0.8)},
			appCfg:   AppConfig{DefaultPriority: floatPtr(0.5)},
			expected: 0.8,
		},
		{
			name:     "definition zero is an explicit value",
			smCfg:    SitemapConfig{Priority: floatPtr(0)},
			appCfg:   AppConfig{DefaultPriority: floatPtr(0.5)},
			expected: 0,
		},
		{
			name:     "definition unset uses global",
			appCfg:   AppConfig{DefaultPriority: floatPtr(0.5)},
			expected: 0.5,
		},
		{
			name:     "both unset uses 1",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetEffectivePriority(tt.smCfg, tt.appCfg))
		})
	}
}

func TestGetEffectiveEntryOptions(t *testing.T) {
	app := validConfig()
	app.Timezone = "Europe/Berlin"
	_, err := app.Validate()
	require.NoError(t, err)

	opts := GetEffectiveEntryOptions(app.Sitemaps[0], &app)
	assert.Equal(t, models.FreqDaily, opts.ChangeFreq)
	require.NotNil(t, opts.Priority)
	assert.Equal(t, 1.0, *opts.Priority)
	assert.Equal(t, "Europe/Berlin", opts.Location.String())
}

func TestQueryConfig_ToQuery(t *testing.T) {
	qc := QueryConfig{
		Table:   "posts",
		Columns: []string{"id", "title"},
		Where:   map[string]any{"status": "published", "lang": "en"},
		OrderBy: []string{"id"},
		Route:   "/post/{{ .id }}",
	}

	q := qc.ToQuery()
	assert.Equal(t, "posts", q.Table)
	assert.Equal(t, "/post/{{ .id }}", q.Route)
	assert.Equal(t, []source.Filter{{Column: "lang", Value: "en"}, {Column: "status", Value: "published"}}, q.Filters)

	q.Columns[0] = "mutated"
	assert.Equal(t, "id", qc.Columns[0])
}

func TestAppConfig_YAML(t *testing.T) {
	data := `
base_url: https://example.com
store_path: ./out
divide_counts: 2
database:
  driver: yaml
  dsn: ./records.yaml
sitemaps:
  - postfix: categories
    query: {table: categories, columns: [id, name], order_by: [id], route: "/category/{{ .id }}"}
    child_query: {table: posts, where: {status: published}, route: "/post/{{ .id }}"}
    child_link: {child_field: category_id, parent_attribute: id}
    change_freq: weekly
    priority: 0.8
  - postfix: pages
    query: {table: pages, route: "/{{ .slug }}"}
`
	var cfg AppConfig
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))

	require.Len(t, cfg.Sitemaps, 2)
	cats := cfg.Sitemaps[0]
	assert.True(t, cats.HasChildren())
	assert.Equal(t, "category_id", cats.ChildLink.ChildField)
	assert.Equal(t, "published", cats.ChildQuery.Where["status"])
	assert.Equal(t, models.FreqWeekly, cats.ChangeFreq)
	assert.Equal(t, 0.8, *cats.Priority)
	assert.False(t, cfg.Sitemaps[1].HasChildren())

	found, ok := cfg.FindSitemap("pages")
	require.True(t, ok)
	assert.Equal(t, "pages", found.Query.Table)
	_, ok = cfg.FindSitemap("missing")
	assert.False(t, ok)
}

func TestAppConfig_LocationBeforeValidate(t *testing.T) {
	var cfg AppConfig
	assert.Equal(t, time.UTC, cfg.Location())
}
