package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

func testRun(success bool) *models.RunRecord {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.RunRecord{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Success:    success,
		Files: []models.FileRecord{
			{Name: "sitemap_categories.xml", Entries: 3},
			{Name: "sitemap_category-a.xml", Entries: 5, Child: true},
			{Name: "sitemap_category-b.xml", Entries: 2, Child: true},
		},
		Stale: []string{"sitemap_old.xml"},
	}
}

func TestRunCollector_ObserveSuccess(t *testing.T) {
	c := NewRunCollector()
	run := testRun(true)
	c.Observe(run, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.files.WithLabelValues("top")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.files.WithLabelValues("child")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.entries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stale))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.duration))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.success))
	assert.Equal(t, float64(run.FinishedAt.Unix()), testutil.ToFloat64(c.lastSuccess))
}

func TestRunCollector_ObserveFailureKeepsLastSuccess(t *testing.T) {
	c := NewRunCollector()
	prev := testRun(true)
	prev.FinishedAt = prev.FinishedAt.Add(-24 * time.Hour)

	failed := testRun(false)
	failed.Files = nil
	c.Observe(failed, prev)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.success))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.entries))
	assert.Equal(t, float64(prev.FinishedAt.Unix()), testutil.ToFloat64(c.lastSuccess))
	assert.Equal(t, float64(failed.FinishedAt.Unix()), testutil.ToFloat64(c.lastRun))
}

func TestRunCollector_WriteTextfile(t *testing.T) {
	c := NewRunCollector()
	c.Observe(testRun(true), nil)

	path := filepath.Join(t.TempDir(), "sitemap_gen.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `sitemap_gen_files{kind="child"} 2`)
	assert.Contains(t, text, `sitemap_gen_files{kind="top"} 1`)
	assert.Contains(t, text, "sitemap_gen_entries 10")
	assert.Contains(t, text, "sitemap_gen_last_run_success 1")
}

func TestRunCollector_WriteTextfileMissingDir(t *testing.T) {
	c := NewRunCollector()
	err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "sitemap_gen.prom"))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrFilesystem)
}
