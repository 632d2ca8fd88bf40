package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-gen/pkg/config"
	"github.com/Sriram-PR/sitemap-gen/pkg/metrics"
	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/robots"
	"github.com/Sriram-PR/sitemap-gen/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
	"github.com/Sriram-PR/sitemap-gen/pkg/storage"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// RunResult contains the outcome of one generation run
type RunResult struct {
	Run        *models.RunRecord
	Index      *sitemap.WrittenFile // nil when the run failed before the index
	Duplicates []string             // File names written more than once
	Pruned     []string             // Stale files removed from the store dir
	Duration   time.Duration
}

// Generator runs every configured sitemap definition and writes the index
type Generator struct {
	appCfg  *config.AppConfig
	source  source.RecordSource
	store   storage.StateStore // Optional
	writer  *sitemap.Writer
	metrics *metrics.RunCollector
	logger  *logrus.Logger
	log     *logrus.Entry

	mu sync.Mutex // One run at a time; runs share the store dir
}

// NewGenerator creates a Generator. appCfg must already be validated.
// store may be nil, which disables change tracking and stale detection.
func NewGenerator(appCfg *config.AppConfig, src source.RecordSource, store storage.StateStore, logger *logrus.Logger) *Generator {
	writer := sitemap.NewWriter(sitemap.WriterConfig{
		StoreDir:   appCfg.StorePath,
		BaseURL:    appCfg.BaseURL,
		EscapeMode: appCfg.EscapeMode,
		Location:   appCfg.Location(),
	}, logger)

	return &Generator{
		appCfg:  appCfg,
		source:  src,
		store:   store,
		writer:  writer,
		metrics: metrics.NewRunCollector(),
		logger:  logger,
		log:     logger.WithField("component", "generator"),
	}
}

// IndexURL returns the public URL of the sitemap index
func (g *Generator) IndexURL() string {
	return g.writer.URLFor(sitemap.IndexFileName)
}

// Run generates all sitemap definitions in configuration order, then writes the
// index over every document registered by this run. The first failing
// definition aborts the run and no index is written.
//
// The run record is stored (when a store is configured) whether or not the run
// succeeds. The returned result is never nil.
func (g *Generator) Run(ctx context.Context) (*RunResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	run := &models.RunRecord{ID: uuid.NewString(), StartedAt: time.Now(), Files: []models.FileRecord{}}
	result := &RunResult{Run: run}
	log := g.log.WithField("run_id", run.ID)
	log.Infof("Starting sitemap generation: %d definitions into %s", len(g.appCfg.Sitemaps), g.writer.StoreDir())

	err := g.generate(ctx, log, result)
	if err == nil && g.store != nil {
		err = g.syncState(log, result)
	}

	run.FinishedAt = time.Now()
	result.Duration = run.FinishedAt.Sub(run.StartedAt)
	if err != nil {
		run.Error = err.Error()
		log.WithField("category", utils.CategorizeError(err)).Errorf("Sitemap generation failed: %v", err)
	} else {
		run.Success = true
	}

	if saveErr := g.finish(log, result); saveErr != nil && err == nil {
		err = saveErr
	}
	g.logSummary(log, result)
	return result, err
}

func (g *Generator) generate(ctx context.Context, log *logrus.Entry, result *RunResult) error {
	refs := sitemap.NewFileRefs(log)

	for _, def := range g.appCfg.Sitemaps {
		if err := ctx.Err(); err != nil {
			return err
		}
		children, top, err := g.generateDefinition(ctx, def, log)
		if err != nil {
			return fmt.Errorf("sitemap '%s': %w", def.Postfix, err)
		}

		// Child documents precede their top-level document in the index
		for _, f := range children {
			refs.Register(f)
			result.Run.Files = append(result.Run.Files, fileRecord(f, def.Postfix, true))
		}
		for _, f := range top {
			refs.Register(f)
			result.Run.Files = append(result.Run.Files, fileRecord(f, def.Postfix, false))
		}
	}

	index, err := g.writer.WriteIndex(refs.Refs())
	if err != nil {
		return fmt.Errorf("sitemap index: %w", err)
	}
	result.Index = index
	result.Duplicates = refs.Duplicates()
	result.Run.IndexURL = index.URL
	return nil
}

// generateDefinition writes the top-level document(s) of def, then its child
// documents. Returns children and top-level documents separately.
func (g *Generator) generateDefinition(ctx context.Context, def config.SitemapConfig, log *logrus.Entry) (children, top []*sitemap.WrittenFile, err error) {
	defLog := log.WithField("sitemap", def.Postfix)
	urlCfg := g.appCfg.URLConfig()
	opts := config.GetEffectiveEntryOptions(def, g.appCfg)

	records, err := g.source.Fetch(ctx, def.Query.ToQuery())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch records: %w", err)
	}
	entries, err := sitemap.BuildEntries(records, urlCfg, opts)
	if err != nil {
		return nil, nil, err
	}

	chunkSize := 0
	if g.appCfg.ChunkTopLevel {
		chunkSize = g.appCfg.DivideCounts
	}
	top, err = sitemap.WriteChunked(g.writer, entries, def.Postfix, chunkSize)
	if err != nil {
		return nil, nil, err
	}
	defLog.Debugf("Wrote %d entries in %d top-level documents", len(entries), len(top))

	if !def.HasChildren() {
		return nil, top, nil
	}
	expander := sitemap.NewExpander(g.source, g.writer, opts, g.appCfg.Workers, g.logger)
	children, err = expander.ExpandChildren(ctx, records, def.ChildQuery.ToQuery(), *def.ChildLink, urlCfg, g.appCfg.DivideCounts)
	if err != nil {
		return nil, nil, fmt.Errorf("child sitemaps: %w", err)
	}
	defLog.Debugf("Wrote %d child documents for %d parents", len(children), len(records))
	return children, top, nil
}

func fileRecord(f *sitemap.WrittenFile, definition string, child bool) models.FileRecord {
	return models.FileRecord{
		Name:       f.Name,
		URL:        f.URL,
		Postfix:    f.Postfix,
		Definition: definition,
		Entries:    f.Entries,
		SHA256:     f.SHA256,
		WrittenAt:  f.WrittenAt,
		Child:      child,
	}
}

// syncState records this run's files, marks files whose content did not change
// and detects files left over from earlier runs. With prune_stale those are
// deleted from the store dir and forgotten.
func (g *Generator) syncState(log *logrus.Entry, result *RunResult) error {
	run := result.Run
	previous, err := g.store.ListFiles()
	if err != nil {
		return err
	}
	prevByName := make(map[string]models.FileRecord, len(previous))
	for _, rec := range previous {
		prevByName[rec.Name] = rec
	}

	current := make(map[string]bool, len(run.Files))
	for i := range run.Files {
		rec := &run.Files[i]
		current[rec.Name] = true
		if old, found := prevByName[rec.Name]; found && old.SHA256 == rec.SHA256 {
			rec.Unchanged = true
		}
		if err := g.store.PutFile(rec); err != nil {
			return err
		}
	}

	for _, old := range previous {
		if current[old.Name] {
			continue
		}
		run.Stale = append(run.Stale, old.Name)
		if !g.appCfg.PruneStale {
			log.Warnf("Stale sitemap '%s' (from '%s') was not regenerated; it is no longer in the index", old.Name, old.Definition)
			continue
		}
		path := filepath.Join(g.writer.StoreDir(), old.Name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: prune '%s': %w", utils.ErrFilesystem, path, err)
		}
		if err := g.store.DeleteFile(old.Name); err != nil {
			return err
		}
		result.Pruned = append(result.Pruned, old.Name)
		log.Infof("Pruned stale sitemap %s", path)
	}
	return nil
}

// finish stores the run record and updates robots.txt and the metrics textfile.
// Only a failure to store the run is returned.
func (g *Generator) finish(log *logrus.Entry, result *RunResult) error {
	run := result.Run

	var lastSuccess *models.RunRecord
	if g.store != nil {
		if prev, found, err := g.store.LastRun(); err != nil {
			log.Warnf("Could not read previous run: %v", err)
		} else if found && prev.Success {
			lastSuccess = prev
		}
	}

	var saveErr error
	if g.store != nil {
		if err := g.store.SaveRun(run); err != nil {
			saveErr = fmt.Errorf("save run record: %w", err)
			log.Errorf("Failed to save run record: %v", err)
		}
	}

	if run.Success && g.appCfg.RobotsTxtPath != "" {
		if _, err := robots.EnsureSitemapDirective(g.appCfg.RobotsTxtPath, result.Index.URL, log); err != nil {
			log.Warnf("Could not update robots.txt: %v", err)
		}
	}

	if g.appCfg.MetricsTextfile != "" {
		g.metrics.Observe(run, lastSuccess)
		if err := g.metrics.WriteTextfile(g.appCfg.MetricsTextfile); err != nil {
			log.Warnf("Could not write metrics: %v", err)
		}
	}
	return saveErr
}

// logSummary logs a summary of the run
func (g *Generator) logSummary(log *logrus.Entry, result *RunResult) {
	run := result.Run
	status := "SUCCESS"
	if !run.Success {
		status = "FAILED"
	}

	unchanged := 0
	for _, f := range run.Files {
		if f.Unchanged {
			unchanged++
		}
	}

	log.Info("============================================")
	log.Infof("Sitemap generation %s in %v", status, result.Duration)
	if result.Index != nil {
		log.Infof("  Index: %s (%d sitemaps)", result.Index.URL, result.Index.Entries)
	}
	log.Infof("  Files: %d written (%d unchanged), %d entries", len(run.Files), unchanged, run.TotalEntries())
	if len(result.Duplicates) > 0 {
		log.Infof("  Overwritten names: %v", result.Duplicates)
	}
	if len(run.Stale) > 0 {
		log.Infof("  Stale: %d (%d pruned)", len(run.Stale), len(result.Pruned))
	}
	if run.Error != "" {
		log.Infof("  Error: %s", run.Error)
	}
	log.Info("============================================")
}

// ValidatePostfixes checks that all provided postfixes name a configured definition
func ValidatePostfixes(appCfg *config.AppConfig, postfixes []string) error {
	for _, p := range postfixes {
		if _, exists := appCfg.FindSitemap(p); !exists {
			return fmt.Errorf("sitemap '%s' not found. Available sitemaps: %v", p, GetAllPostfixes(appCfg))
		}
	}
	return nil
}

// GetAllPostfixes returns the postfixes of all definitions, in configuration order
func GetAllPostfixes(appCfg *config.AppConfig) []string {
	postfixes := make([]string, 0, len(appCfg.Sitemaps))
	for _, s := range appCfg.Sitemaps {
		postfixes = append(postfixes, s.Postfix)
	}
	return postfixes
}
