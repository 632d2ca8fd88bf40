package sitemap

import (
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
)

// FileRefs accumulates the index entries of one generation run, in registration order.
// It is owned by a single run and not safe for concurrent use.
type FileRefs struct {
	refs  []models.FileReference
	names map[string]int // File name -> registrations
	dups  []string
	log   *logrus.Entry
}

// NewFileRefs creates an empty accumulator
func NewFileRefs(log *logrus.Entry) *FileRefs {
	return &FileRefs{names: make(map[string]int), log: log}
}

// Register appends the index entry of a written document.
// A file name registered twice in one run means a later write overwrote an earlier one.
func (a *FileRefs) Register(f *WrittenFile) {
	a.names[f.Name]++
	if a.names[f.Name] == 2 {
		a.dups = append(a.dups, f.Name)
		if a.log != nil {
			a.log.Warnf("Sitemap file '%s' was written more than once in this run; earlier content was overwritten", f.Name)
		}
	}
	a.refs = append(a.refs, f.Reference())
}

// Refs returns a copy of the registered entries
func (a *FileRefs) Refs() []models.FileReference {
	return append([]models.FileReference(nil), a.refs...)
}

// Len returns the number of registered entries
func (a *FileRefs) Len() int { return len(a.refs) }

// Duplicates returns the file names registered more than once, in first-collision order
func (a *FileRefs) Duplicates() []string {
	return append([]string(nil), a.dups...)
}
