package orchestrate

import (
	"context"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	"github.com/Sriram-PR/sitemap-gen/pkg/parse"
	"github.com/Sriram-PR/sitemap-gen/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
	"github.com/Sriram-PR/sitemap-gen/pkg/storage"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testAppConfig(t *testing.T, defs ...config.SitemapConfig) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		BaseURL:   "https://example.com",
		StorePath: t.TempDir(),
		StateDir:  t.TempDir(),
		Database:  config.DatabaseConfig{Driver: "yaml", DSN: "unused.yaml"},
		Sitemaps:  defs,
	}
	_, err := cfg.Validate()
	require.NoError(t, err)
	return cfg
}

func pagesDef() config.SitemapConfig {
	return config.SitemapConfig{
		Postfix: "pages",
		Query:   config.QueryConfig{Table: "pages", Route: "{{ .url }}"},
	}
}

func categoriesDef() config.SitemapConfig {
	return config.SitemapConfig{
		Postfix:    "categories",
		Query:      config.QueryConfig{Table: "categories", OrderBy: []string{"id"}, Route: "/category/{{ .name | slug }}"},
		ChildQuery: &config.QueryConfig{Table: "posts", OrderBy: []string{"id"}, Route: "/post/{{ .id }}"},
		ChildLink:  &sitemap.ChildLink{ChildField: "category_id", ParentAttribute: "id"},
	}
}

func testSource() *source.YAMLSource {
	return source.NewYAMLSource(map[string][]map[string]any{
		"pages": {
			{"url": "/a"},
			{"url": "/b"},
		},
		"categories": {
			{"id": 1, "name": "Category A!", "updated_at": 1700000000},
			{"id": 2, "name": "Books"},
		},
		"posts": {
			{"id": 1, "category_id": 1},
			{"id": 2, "category_id": 1},
			{"id": 3, "category_id": 1},
			{"id": 4, "category_id": 2},
		},
	})
}

func newTestStore(t *testing.T) storage.StateStore {
	t.Helper()
	store, err := storage.NewInMemoryBadgerStore(logrus.NewEntry(testLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func readIndex(t *testing.T, dir string) parse.XMLSitemapIndex {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, sitemap.IndexFileName))
	require.NoError(t, err)
	var index parse.XMLSitemapIndex
	require.NoError(t, xml.Unmarshal(data, &index))
	return index
}

func indexLocs(index parse.XMLSitemapIndex) []string {
	locs := make([]string, 0, len(index.Sitemaps))
	for _, s := range index.Sitemaps {
		locs = append(locs, s.Loc)
	}
	return locs
}

func TestGenerator_SingleDefinition(t *testing.T) {
	cfg := testAppConfig(t, pagesDef())
	g := NewGenerator(cfg, testSource(), nil, testLogger())

	result, err := g.Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Run.Success)
	require.NotNil(t, result.Index)
	assert.Equal(t, "https://example.com/sitemap.xml", result.Run.IndexURL)
	assert.Equal(t, g.IndexURL(), result.Run.IndexURL)

	data, err := os.ReadFile(filepath.Join(cfg.StorePath, "sitemap_pages.xml"))
	require.NoError(t, err)
	var set parse.XMLURLSet
	require.NoError(t, xml.Unmarshal(data, &set))
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://example.com/a", set.URLs[0].Loc)
	assert.Equal(t, "https://example.com/b", set.URLs[1].Loc)
	for _, u := range set.URLs {
		assert.Equal(t, "daily", u.ChangeFreq)
		assert.Equal(t, "1", u.Priority)
		assert.Empty(t, u.LastMod)
	}
	assert.NotContains(t, string(data), "<lastmod>")

	index := readIndex(t, cfg.StorePath)
	assert.Equal(t, []string{"https://example.com/sitemap_pages.xml"}, indexLocs(index))
	assert.Equal(t, result.Index.LastMod, index.Sitemaps[0].LastMod)
}

func TestGenerator_ChildrenRegisteredBeforeParent(t *testing.T) {
	cfg := testAppConfig(t, categoriesDef(), pagesDef())
	g := NewGenerator(cfg, testSource(), nil, testLogger())

	result, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/sitemap_category-a.xml",
		"https://example.com/sitemap_books.xml",
		"https://example.com/sitemap_categories.xml",
		"https://example.com/sitemap_pages.xml",
	}, indexLocs(readIndex(t, cfg.StorePath)))

	require.Len(t, result.Run.Files, 4)
	assert.True(t, result.Run.Files[0].Child)
	assert.Equal(t, "categories", result.Run.Files[0].Definition)
	assert.Equal(t, 3, result.Run.Files[0].Entries)
	assert.True(t, result.Run.Files[1].Child)
	assert.Equal(t, 1, result.Run.Files[1].Entries)
	assert.False(t, result.Run.Files[2].Child)
	assert.Equal(t, 2, result.Run.Files[2].Entries)
	assert.False(t, result.Run.Files[3].Child)
	assert.Equal(t, "pages", result.Run.Files[3].Definition)
	assert.Equal(t, 2, result.Run.Files[3].Entries)
	assert.Equal(t, 8, result.Run.TotalEntries())
}

func TestGenerator_ChunkedChildren(t *testing.T) {
	cfg := testAppConfig(t, categoriesDef())
	cfg.DivideCounts = 2
	g := NewGenerator(cfg, testSource(), nil, testLogger())

	_, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/sitemap_category-a_0.xml",
		"https://example.com/sitemap_category-a_1.xml",
		"https://example.com/sitemap_books_0.xml",
		"https://example.com/sitemap_categories.xml",
	}, indexLocs(readIndex(t, cfg.StorePath)), "top-level documents stay unchunked by default")
}

func TestGenerator_ChunkTopLevel(t *testing.T) {
	cfg := testAppConfig(t, pagesDef())
	cfg.DivideCounts = 1
	cfg.ChunkTopLevel = true
	g := NewGenerator(cfg, testSource(), nil, testLogger())

	_, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/sitemap_pages_0.xml",
		"https://example.com/sitemap_pages_1.xml",
	}, indexLocs(readIndex(t, cfg.StorePath)))
}

var lastmodPattern = regexp.MustCompile(`<lastmod>[^<]*</lastmod>`)

func TestGenerator_Idempotent(t *testing.T) {
	cfg := testAppConfig(t, categoriesDef(), pagesDef())
	store := newTestStore(t)
	g := NewGenerator(cfg, testSource(), store, testLogger())

	snapshot := func() map[string]string {
		entries, err := os.ReadDir(cfg.StorePath)
		require.NoError(t, err)
		files := make(map[string]string, len(entries))
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(cfg.StorePath, e.Name()))
			require.NoError(t, err)
			files[e.Name()] = string(data)
		}
		return files
	}

	first, err := g.Run(context.Background())
	require.NoError(t, err)
	before := snapshot()

	second, err := g.Run(context.Background())
	require.NoError(t, err)
	after := snapshot()

	require.Equal(t, len(before), len(after))
	for name, content := range before {
		if name == sitemap.IndexFileName {
			assert.Equal(t, lastmodPattern.ReplaceAllString(content, ""), lastmodPattern.ReplaceAllString(after[name], ""))
			continue
		}
		assert.Equal(t, content, after[name], name)
	}

	for _, f := range first.Run.Files {
		assert.False(t, f.Unchanged)
	}
	for _, f := range second.Run.Files {
		assert.True(t, f.Unchanged, f.Name)
	}
	assert.Empty(t, second.Run.Stale)
	assert.NotEqual(t, first.Run.ID, second.Run.ID)

	last, found, err := store.LastRun()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second.Run.ID, last.ID)
}

func TestGenerator_MissingLinkAttributeWritesNoIndex(t *testing.T) {
	def := categoriesDef()
	def.ChildLink = &sitemap.ChildLink{ChildField: "category_id", ParentAttribute: "uuid"}
	cfg := testAppConfig(t, def, pagesDef())
	store := newTestStore(t)
	g := NewGenerator(cfg, testSource(), store, testLogger())

	result, err := g.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrMissingAttribute)
	assert.Contains(t, err.Error(), "sitemap 'categories'")

	assert.Nil(t, result.Index)
	assert.False(t, result.Run.Success)
	assert.NoFileExists(t, filepath.Join(cfg.StorePath, sitemap.IndexFileName))
	assert.NoFileExists(t, filepath.Join(cfg.StorePath, "sitemap_pages.xml"), "later definitions are not processed")

	last, found, err := store.LastRun()
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, last.Success)
	assert.Contains(t, last.Error, "record attribute missing")

	files, err := store.ListFiles()
	require.NoError(t, err)
	assert.Empty(t, files, "a failed run does not update tracked files")
}

func TestGenerator_FailedRunKeepsPreviousIndex(t *testing.T) {
	cfg := testAppConfig(t, pagesDef())
	_, err := NewGenerator(cfg, testSource(), nil, testLogger()).Run(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(cfg.StorePath, sitemap.IndexFileName))
	require.NoError(t, err)

	broken := source.NewYAMLSource(map[string][]map[string]any{
		"pages": {{"url": "/a", "updated_at": "not a date"}},
	})
	_, err = NewGenerator(cfg, broken, nil, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFormat)

	after, err := os.ReadFile(filepath.Join(cfg.StorePath, sitemap.IndexFileName))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestGenerator_StaleFiles(t *testing.T) {
	tests := []struct {
		name  string
		prune bool
	}{
		{"report only", false},
		{"prune", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig(t, categoriesDef(), pagesDef())
			cfg.PruneStale = tt.prune
			store := newTestStore(t)

			_, err := NewGenerator(cfg, testSource(), store, testLogger()).Run(context.Background())
			require.NoError(t, err)

			// "Books" disappears from the source
			src := source.NewYAMLSource(map[string][]map[string]any{
				"pages":      {{"url": "/a"}},
				"categories": {{"id": 1, "name": "Category A!"}},
				"posts":      {{"id": 1, "category_id": 1}},
			})
			result, err := NewGenerator(cfg, src, store, testLogger()).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, []string{"sitemap_books.xml"}, result.Run.Stale)
			assert.NotContains(t, indexLocs(readIndex(t, cfg.StorePath)), "https://example.com/sitemap_books.xml")

			stalePath := filepath.Join(cfg.StorePath, "sitemap_books.xml")
			_, tracked, err := store.GetFile("sitemap_books.xml")
			require.NoError(t, err)
			if tt.prune {
				assert.Equal(t, []string{"sitemap_books.xml"}, result.Pruned)
				assert.NoFileExists(t, stalePath)
				assert.False(t, tracked)
			} else {
				assert.Empty(t, result.Pruned)
				assert.FileExists(t, stalePath)
				assert.True(t, tracked)
			}
		})
	}
}

func TestGenerator_DuplicateNames(t *testing.T) {
	// A parent named "pages" writes the same file as the pages definition
	src := source.NewYAMLSource(map[string][]map[string]any{
		"pages":      {{"url": "/a"}},
		"categories": {{"id": 1, "name": "Pages"}},
		"posts":      {{"id": 1, "category_id": 1}},
	})
	cfg := testAppConfig(t, categoriesDef(), pagesDef())

	result, err := NewGenerator(cfg, src, nil, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sitemap_pages.xml"}, result.Duplicates)
}

func TestGenerator_RobotsAndMetrics(t *testing.T) {
	cfg := testAppConfig(t, pagesDef())
	dir := t.TempDir()
	cfg.RobotsTxtPath = filepath.Join(dir, "robots.txt")
	cfg.MetricsTextfile = filepath.Join(dir, "sitemap_gen.prom")

	_, err := NewGenerator(cfg, testSource(), nil, testLogger()).Run(context.Background())
	require.NoError(t, err)

	robots, err := os.ReadFile(cfg.RobotsTxtPath)
	require.NoError(t, err)
	assert.Contains(t, string(robots), "Sitemap: https://example.com/sitemap.xml")

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "sitemap_gen_entries 2")
	assert.Contains(t, string(prom), "sitemap_gen_last_run_success 1")
}

func TestGenerator_Cancelled(t *testing.T) {
	cfg := testAppConfig(t, pagesDef())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewGenerator(cfg, testSource(), nil, testLogger()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, result.Run.Success)
	assert.NoFileExists(t, filepath.Join(cfg.StorePath, sitemap.IndexFileName))
}

func TestValidatePostfixes(t *testing.T) {
	cfg := &config.AppConfig{Sitemaps: []config.SitemapConfig{pagesDef(), categoriesDef()}}

	t.Run("all valid", func(t *testing.T) {
		assert.NoError(t, ValidatePostfixes(cfg, []string{"pages", "categories"}))
	})

	t.Run("one invalid", func(t *testing.T) {
		err := ValidatePostfixes(cfg, []string{"pages", "missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
		assert.Contains(t, err.Error(), "[pages categories]")
	})

	t.Run("empty postfixes no error", func(t *testing.T) {
		assert.NoError(t, ValidatePostfixes(cfg, nil))
	})
}

func TestGetAllPostfixes(t *testing.T) {
	t.Run("configuration order", func(t *testing.T) {
		cfg := &config.AppConfig{Sitemaps: []config.SitemapConfig{pagesDef(), categoriesDef()}}
		assert.Equal(t, []string{"pages", "categories"}, GetAllPostfixes(cfg))
	})

	t.Run("no sitemaps", func(t *testing.T) {
		assert.Empty(t, GetAllPostfixes(&config.AppConfig{}))
	})
}
