// Package robots keeps a site's robots.txt pointing at the generated sitemap index.
package robots

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// defaultRobots is written when no robots.txt exists yet
const defaultRobots = "User-agent: *\nDisallow:\n"

// Sitemaps returns the Sitemap directives declared in robots.txt content
func Sitemaps(content []byte) ([]string, error) {
	data, err := robotstxt.FromBytes(content)
	if err != nil {
		return nil, fmt.Errorf("%w: robots.txt: %w", utils.ErrParsing, err)
	}
	return data.Sitemaps, nil
}

// EnsureSitemapDirective makes sure the robots.txt at path declares indexURL.
// A missing file is created with an allow-all group. Existing content is never
// rewritten, only appended to. Returns true when the file was changed.
func EnsureSitemapDirective(path, indexURL string, log *logrus.Entry) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: read '%s': %w", utils.ErrFilesystem, path, err)
	}
	if errors.Is(err, os.ErrNotExist) {
		content = []byte(defaultRobots)
	}

	declared, err := Sitemaps(content)
	if err != nil {
		return false, err
	}
	for _, s := range declared {
		if s == indexURL {
			log.Debugf("robots.txt '%s' already declares %s", path, indexURL)
			return false, nil
		}
	}

	var buf bytes.Buffer
	buf.Write(content)
	if buf.Len() > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString("\nSitemap: " + indexURL + "\n")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("%w: create dir for '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return false, fmt.Errorf("%w: write '%s': %w", utils.ErrFilesystem, path, err)
	}
	log.Infof("Added Sitemap: %s to %s", indexURL, path)
	return true, nil
}
