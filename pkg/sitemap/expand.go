package sitemap

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/source"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// ChildLink scopes a child query to one parent:
// child.<ChildField> = parent.<ParentAttribute>
type ChildLink struct {
	ChildField      string `yaml:"child_field" json:"child_field" validate:"required"`
	ParentAttribute string `yaml:"parent_attribute" json:"parent_attribute" validate:"required"`
}

// Expander writes per-parent child sitemaps
type Expander struct {
	source  source.RecordSource
	writer  *Writer
	opts    EntryOptions
	workers int
	log     *logrus.Entry
}

// NewExpander creates an Expander. workers <= 1 processes parents sequentially.
func NewExpander(src source.RecordSource, writer *Writer, opts EntryOptions, workers int, log *logrus.Logger) *Expander {
	if workers < 1 {
		workers = 1
	}
	return &Expander{
		source:  src,
		writer:  writer,
		opts:    opts,
		workers: workers,
		log:     log.WithField("component", "child_expander"),
	}
}

// ExpandChildren writes the child sitemaps of every parent and returns the written
// documents in parent order, then chunk order.
//
// For each parent the child query template is refined with
// link.ChildField = parent[link.ParentAttribute], its records are written to
// sitemap_<slug(parent.name)>.xml, or to sitemap_<slug>_<i>.xml per chunk when
// chunkSize > 0. The first failing parent aborts the expansion.
func (e *Expander) ExpandChildren(
	ctx context.Context,
	parents []models.Record,
	childQuery source.Query,
	link ChildLink,
	urlCfg models.URLConfig,
	chunkSize int,
) ([]*WrittenFile, error) {
	results := make([][]*WrittenFile, len(parents))

	if e.workers == 1 {
		for i, parent := range parents {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			files, err := e.expandParent(ctx, parent, childQuery, link, urlCfg, chunkSize)
			if err != nil {
				return nil, err
			}
			results[i] = files
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i, parent := range parents {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				files, err := e.expandParent(gctx, parent, childQuery, link, urlCfg, chunkSize)
				if err != nil {
					return err
				}
				results[i] = files
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var written []*WrittenFile
	for _, files := range results {
		written = append(written, files...)
	}
	return written, nil
}

func (e *Expander) expandParent(
	ctx context.Context,
	parent models.Record,
	childQuery source.Query,
	link ChildLink,
	urlCfg models.URLConfig,
	chunkSize int,
) ([]*WrittenFile, error) {
	if !parent.HasAttribute(link.ParentAttribute) {
		return nil, utils.WrapErrorf(utils.ErrMissingAttribute, "parent record has no '%s' attribute to link children on", link.ParentAttribute)
	}
	postfix, err := ParentPostfix(parent)
	if err != nil {
		return nil, err
	}

	q := childQuery.Where(link.ChildField, parent.Attribute(link.ParentAttribute))
	children, err := e.source.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch children of '%s': %w", postfix, err)
	}
	entries, err := BuildEntries(children, urlCfg, e.opts)
	if err != nil {
		return nil, fmt.Errorf("children of '%s': %w", postfix, err)
	}

	e.log.WithFields(logrus.Fields{"parent": postfix, "children": len(entries)}).Debug("Expanding child sitemap")
	return WriteChunked(e.writer, entries, postfix, chunkSize)
}

// maxParentPostfixLength leaves room for a "_<chunk>" suffix of up to 10 digits
const maxParentPostfixLength = utils.MaxPostfixLength - len("_") - 10

// ParentPostfix derives a child sitemap postfix from the parent's name attribute.
// Slugs too long for a file name are cut at a word boundary.
func ParentPostfix(parent models.Record) (string, error) {
	if !parent.HasAttribute(NameAttribute) {
		return "", utils.WrapErrorf(utils.ErrMissingAttribute, "parent record has no '%s' attribute", NameAttribute)
	}
	name, err := cast.ToStringE(parent.Attribute(NameAttribute))
	if err != nil {
		return "", utils.WrapErrorf(utils.ErrNaming, "parent name %v: %v", parent.Attribute(NameAttribute), err)
	}
	postfix := utils.SlugifyMax(name, maxParentPostfixLength)
	if postfix == "" {
		return "", utils.WrapErrorf(utils.ErrNaming, "parent name '%s' has an empty slug", name)
	}
	return postfix, nil
}

// WriteChunked writes entries under postfix. With chunkSize > 0 every chunk is
// written as <postfix>_<i> (zero-based); otherwise a single document is written.
func WriteChunked(w *Writer, entries []models.PageEntry, postfix string, chunkSize int) ([]*WrittenFile, error) {
	if chunkSize <= 0 {
		file, err := w.WriteSitemap(entries, postfix)
		if err != nil {
			return nil, err
		}
		return []*WrittenFile{file}, nil
	}

	chunks := Chunk(entries, chunkSize)
	files := make([]*WrittenFile, 0, len(chunks))
	for i, chunk := range chunks {
		file, err := w.WriteSitemap(chunk, postfix+"_"+strconv.Itoa(i))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}
