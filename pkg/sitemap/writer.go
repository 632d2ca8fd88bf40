package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/parse"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// IndexFileName is the name of the sitemap index inside the store dir
const IndexFileName = "sitemap.xml"

// EscapeMode selects how text content is escaped
type EscapeMode string

const (
	// EscapeStandard escapes urlset and sitemapindex text exactly once
	EscapeStandard EscapeMode = "standard"
	// EscapeLegacy escapes urlset text twice and sitemapindex text once,
	// reproducing the byte output of earlier generators
	EscapeLegacy EscapeMode = "legacy"
)

// IsValid reports whether m is a known mode (empty counts as standard)
func (m EscapeMode) IsValid() bool {
	return m == "" || m == EscapeStandard || m == EscapeLegacy
}

// legacyEscaper is the first of the two legacy passes. Quotes are left alone;
// the encoder's own pass escapes them once.
var legacyEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// WriterConfig configures a Writer
type WriterConfig struct {
	StoreDir   string
	BaseURL    string // Normalized public base URL of StoreDir
	EscapeMode EscapeMode
	Location   *time.Location // Zone for index lastmod timestamps
}

// WrittenFile describes one document written to the store dir
type WrittenFile struct {
	Name      string // File name inside the store dir
	Path      string
	URL       string
	Postfix   string // Empty for the index
	Entries   int    // <url> blocks, or <sitemap> blocks for the index
	WrittenAt time.Time
	LastMod   string // WrittenAt in W3C format
	SHA256    string
}

// Reference returns the index entry for the document
func (f *WrittenFile) Reference() models.FileReference {
	return models.FileReference{Loc: f.URL, LastMod: f.LastMod}
}

// Writer serializes urlset and sitemapindex documents into the store dir
type Writer struct {
	cfg WriterConfig
	log *logrus.Entry
	now func() time.Time
}

// NewWriter creates a new Writer
func NewWriter(cfg WriterConfig, log *logrus.Logger) *Writer {
	if cfg.EscapeMode == "" {
		cfg.EscapeMode = EscapeStandard
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Writer{
		cfg: cfg,
		log: log.WithField("component", "sitemap_writer"),
		now: time.Now,
	}
}

// StoreDir returns the directory documents are written to
func (w *Writer) StoreDir() string { return w.cfg.StoreDir }

// FileName returns the document file name for postfix
func FileName(postfix string) string {
	return "sitemap_" + postfix + ".xml"
}

// URLFor returns the public URL of a file in the store dir
func (w *Writer) URLFor(name string) string {
	return w.cfg.BaseURL + "/" + name
}

// WriteSitemap writes entries as <storeDir>/sitemap_<postfix>.xml, overwriting
// any previous file, and returns the written document.
func (w *Writer) WriteSitemap(entries []models.PageEntry, postfix string) (*WrittenFile, error) {
	if err := utils.ValidatePostfix(postfix); err != nil {
		return nil, err
	}

	set := parse.NewURLSet(len(entries))
	for _, e := range entries {
		u := parse.XMLURL{
			Loc:        e.Loc,
			ChangeFreq: string(e.ChangeFreq),
			Priority:   strconv.FormatFloat(e.Priority, 'f', -1, 64),
			LastMod:    e.LastMod,
		}
		for _, text := range []string{u.Loc, u.ChangeFreq, u.LastMod} {
			if err := checkXMLText(text); err != nil {
				return nil, fmt.Errorf("entry '%s': %w", e.Loc, err)
			}
		}
		if w.cfg.EscapeMode == EscapeLegacy {
			u.Loc = legacyEscaper.Replace(u.Loc)
			u.ChangeFreq = legacyEscaper.Replace(u.ChangeFreq)
			u.LastMod = legacyEscaper.Replace(u.LastMod)
		}
		set.URLs = append(set.URLs, u)
	}

	file, err := w.write(FileName(postfix), set)
	if err != nil {
		return nil, err
	}
	file.Postfix = postfix
	file.Entries = len(entries)
	return file, nil
}

// WriteIndex writes the sitemap index for refs to <storeDir>/sitemap.xml,
// overwriting the previous index.
func (w *Writer) WriteIndex(refs []models.FileReference) (*WrittenFile, error) {
	index := parse.NewSitemapIndex(len(refs))
	for _, ref := range refs {
		for _, text := range []string{ref.Loc, ref.LastMod} {
			if err := checkXMLText(text); err != nil {
				return nil, fmt.Errorf("index entry '%s': %w", ref.Loc, err)
			}
		}
		index.Sitemaps = append(index.Sitemaps, parse.XMLSitemap{Loc: ref.Loc, LastMod: ref.LastMod})
	}

	file, err := w.write(IndexFileName, index)
	if err != nil {
		return nil, err
	}
	file.Entries = len(refs)
	return file, nil
}

func (w *Writer) write(name string, doc any) (*WrittenFile, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", utils.ErrEncoding, name, err)
	}
	buf.WriteByte('\n')

	if err := os.MkdirAll(w.cfg.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create store dir '%s': %w", utils.ErrFilesystem, w.cfg.StoreDir, err)
	}
	path := filepath.Join(w.cfg.StoreDir, name)
	writtenAt := w.now()
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("%w: write '%s': %w", utils.ErrFilesystem, path, err)
	}

	file := &WrittenFile{
		Name:      name,
		Path:      path,
		URL:       w.URLFor(name),
		WrittenAt: writtenAt,
		LastMod:   FormatW3C(writtenAt, w.cfg.Location),
		SHA256:    utils.CalculateBytesSHA256(buf.Bytes()),
	}
	w.log.Infof("%s was created", file.URL)
	return file, nil
}

// checkXMLText rejects text that is not valid UTF-8 or holds characters outside
// the XML 1.0 Char production. encoding/xml would otherwise substitute U+FFFD.
func checkXMLText(s string) error {
	if !utf8.ValidString(s) {
		return utils.WrapErrorf(utils.ErrEncoding, "invalid UTF-8 in %q", s)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return utils.WrapErrorf(utils.ErrEncoding, "character %U not allowed in XML 1.0", r)
		}
	}
	return nil
}

func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}
