package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
)

// FileStore tracks the sitemap documents currently present in the store dir
type FileStore interface {
	// GetFile returns the record of a file name; found is false when untracked
	GetFile(name string) (rec *models.FileRecord, found bool, err error)

	// PutFile inserts or replaces the record of rec.Name
	PutFile(rec *models.FileRecord) error

	// DeleteFile forgets a file name. Deleting an untracked name is not an error
	DeleteFile(name string) error

	// ListFiles returns every tracked file, ordered by name
	ListFiles() ([]models.FileRecord, error)
}

// RunStore keeps the history of generation runs
type RunStore interface {
	// SaveRun stores a run record and makes it the last run
	SaveRun(run *models.RunRecord) error

	// GetRun returns a run by ID; found is false when unknown
	GetRun(id string) (run *models.RunRecord, found bool, err error)

	// LastRun returns the most recently saved run; found is false before the first run
	LastRun() (run *models.RunRecord, found bool, err error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// StateStore combines all store interfaces for components that need full access
type StateStore interface {
	FileStore
	RunStore
	StoreAdmin
}
