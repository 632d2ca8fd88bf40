package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/sitemap-gen/pkg/log"
	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

const (
	fileKeyPrefix = "file:"     // Prefix for tracked sitemap file keys
	runKeyPrefix  = "run:"      // Prefix for run record keys
	lastRunKey    = "meta:last" // Holds the ID of the last saved run
	stateDBDir    = "state_db"  // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements the StateStore interface using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
}

// NewBadgerStore opens (or creates) the state database of one sitemap site.
// siteKey separates sites sharing a state dir, typically the base URL host.
func NewBadgerStore(stateDir, siteKey string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbDirName := stateDBDir
	if key := utils.Slugify(siteKey); key != "" {
		dbDirName = key + "_" + stateDBDir
	}
	dbPath := filepath.Join(stateDir, dbDirName)

	logger.Infof("Opening generation state database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}
	return store, nil
}

// NewInMemoryBadgerStore opens a store that lives only for the process
func NewInMemoryBadgerStore(logger *logrus.Entry) (*BadgerStore, error) {
	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open in-memory badger database: %w", utils.ErrDatabase, err)
	}
	return &BadgerStore{db: db, log: logger}, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// getJSON decodes the value at key into dst; found is false when the key is absent
func (s *BadgerStore) getJSON(key string, dst any) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get([]byte(key))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting key '%s': %w", utils.ErrDatabase, key, errGet)
		}
		return item.Value(func(val []byte) error {
			if errJson := json.Unmarshal(val, dst); errJson != nil {
				return fmt.Errorf("%w: failed to unmarshal value of key '%s': %w", utils.ErrParsing, key, errJson)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		s.log.Errorf("DB View error for key '%s': %v", key, err)
		return false, err
	}
	return found, nil
}

// GetFile implements the FileStore interface
func (s *BadgerStore) GetFile(name string) (*models.FileRecord, bool, error) {
	var rec models.FileRecord
	found, err := s.getJSON(fileKeyPrefix+name, &rec)
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// PutFile implements the FileStore interface
func (s *BadgerStore) PutFile(rec *models.FileRecord) error {
	key := []byte(fileKeyPrefix + rec.Name)
	recBytes, errJson := json.Marshal(rec)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal FileRecord for key '%s': %w", utils.ErrParsing, string(key), errJson)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, recBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in PutFile: %v", err)
		return fmt.Errorf("%w: failed setting file record '%s': %w", utils.ErrDatabase, string(key), err)
	}
	s.log.Debugf("Stored file record '%s' (%d entries)", rec.Name, rec.Entries)
	return nil
}

// DeleteFile implements the FileStore interface
func (s *BadgerStore) DeleteFile(name string) error {
	key := []byte(fileKeyPrefix + name)
	err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: failed deleting file record '%s': %w", utils.ErrDatabase, string(key), err)
	}
	return nil
}

// ListFiles implements the FileStore interface. Badger iterates keys in byte order,
// so the result is sorted by file name.
func (s *BadgerStore) ListFiles() ([]models.FileRecord, error) {
	var files []models.FileRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fileKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var rec models.FileRecord
				if errJson := json.Unmarshal(val, &rec); errJson != nil {
					s.log.Warnf("Skipping undecodable file record '%s': %v", string(item.Key()), errJson)
					return nil
				}
				files = append(files, rec)
				return nil
			})
			if errValue != nil {
				return errValue
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing file records: %w", utils.ErrDatabase, err)
	}
	return files, nil
}

// SaveRun implements the RunStore interface
func (s *BadgerStore) SaveRun(run *models.RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run record has no ID", utils.ErrDatabase)
	}
	key := []byte(runKeyPrefix + run.ID)
	runBytes, errJson := json.Marshal(run)
	if errJson != nil {
		return fmt.Errorf("%w: failed to marshal RunRecord '%s': %w", utils.ErrParsing, run.ID, errJson)
	}

	err := s.dbUpdate(func(txn *badger.Txn) error {
		if err := txn.SetEntry(badger.NewEntry(key, runBytes)); err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(lastRunKey), []byte(run.ID)))
	})
	if err != nil {
		s.log.WithField("run_id", run.ID).Errorf("DB Update error in SaveRun: %v", err)
		return fmt.Errorf("%w: failed saving run '%s': %w", utils.ErrDatabase, run.ID, err)
	}
	return nil
}

// GetRun implements the RunStore interface
func (s *BadgerStore) GetRun(id string) (*models.RunRecord, bool, error) {
	var run models.RunRecord
	found, err := s.getJSON(runKeyPrefix+id, &run)
	if err != nil || !found {
		return nil, false, err
	}
	return &run, true, nil
}

// LastRun implements the RunStore interface
func (s *BadgerStore) LastRun() (*models.RunRecord, bool, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get([]byte(lastRunKey))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		val, errValue := item.ValueCopy(nil)
		id = string(val)
		return errValue
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading last run pointer: %w", utils.ErrDatabase, err)
	}
	if id == "" {
		return nil, false, nil
	}
	return s.GetRun(id)
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				s.log.Info("DB GC: Database is nil or closed, skipping GC cycle.")
				continue
			}

			var err error
			for {
				// Rewrite while at least half of a value log file is reclaimable
				err = s.db.RunValueLogGC(0.5)
				if err != nil {
					break
				}
				s.log.Debug("BadgerDB GC cycle completed.")
			}

			if errors.Is(err, badger.ErrNoRewrite) {
				s.log.Debug("BadgerDB GC finished (no rewrite needed).")
			} else {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}

		case <-ctx.Done():
			s.log.Infof("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// Close implements the StateStore interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing state DB...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing state DB: %v", err)
			return err
		}
		return nil
	}
	return nil
}

var _ StateStore = (*BadgerStore)(nil)
