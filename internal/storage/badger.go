package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"moodboard/internal/domain"
)

// Key layout. Two logical object stores share one keyspace via prefixes,
// plus a non-unique secondary index on inspirations by projectId:
//
//	project:<id>                          -> Project JSON
//	inspiration:<id>                      -> Inspiration JSON
//	idx:inspiration:<projectID>:<inspID>  -> (empty)
//
// Index entries are written and removed in the same transaction as their
// record, so the index can never disagree with the records it covers.
const (
	projectPrefix          = "project:"
	inspirationPrefix      = "inspiration:"
	inspirationIndexPrefix = "idx:inspiration:"
)

func projectKey(id string) []byte {
	return []byte(projectPrefix + id)
}

func inspirationKey(id string) []byte {
	return []byte(inspirationPrefix + id)
}

func inspirationIndexKey(projectID, inspirationID string) []byte {
	return []byte(inspirationIndexPrefix + projectID + ":" + inspirationID)
}

func projectIndexScanPrefix(projectID string) []byte {
	return []byte(inspirationIndexPrefix + projectID + ":")
}

// BadgerStore implements Store on top of BadgerDB. One instance owns the
// single process-wide database handle; it is opened once and closed on
// process teardown.
type BadgerStore struct {
	mu   sync.Mutex
	db   *badger.DB
	path string
	log  logrus.FieldLogger
}

// NewBadgerStore creates a store and performs the first Open.
func NewBadgerStore(dbPath string, logger logrus.FieldLogger) (*BadgerStore, error) {
	s := &BadgerStore{
		path: dbPath,
		log:  logger.WithField("component", "storage"),
	}
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the database, creating it if absent. Calling Open on an
// already-open store is a no-op; object stores and the index are pure key
// prefixes, so reopening cannot duplicate them.
func (s *BadgerStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Open called on an already-open store, ignoring")
		return nil
	}

	opts := badger.DefaultOptions(s.path)
	opts.Logger = &badgerLogger{s.log.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		s.log.WithError(err).Error("Failed to open BadgerDB")
		return fmt.Errorf("%w: open badger db at %s: %v", domain.ErrStorageUnavailable, s.path, err)
	}
	s.db = db
	s.log.WithField("path", s.path).Info("BadgerDB opened")
	return nil
}

// Close closes the database handle.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	s.log.Info("Closing BadgerDB...")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	return nil
}

// GetProject returns the stored project or domain.ErrNotFound.
func (s *BadgerStore) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var p domain.Project
	err := s.getRecord(projectKey(id), &p)
	return p, err
}

// PutProject upserts the whole project record.
func (s *BadgerStore) PutProject(ctx context.Context, p domain.Project) error {
	log := s.log.WithField("project_id", p.ID)

	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(projectKey(p.ID), raw)
	})
	if err != nil {
		log.WithError(err).Error("Failed to put project")
		return fmt.Errorf("%w: put project %s: %v", domain.ErrStorageWrite, p.ID, err)
	}
	log.Debug("Project saved")
	return nil
}

// DeleteProject removes the project record only, without touching its
// inspirations. Absent ids are a no-op.
func (s *BadgerStore) DeleteProject(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(projectKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete project %s: %v", domain.ErrStorageWrite, id, err)
	}
	return nil
}

// ListProjects scans the project prefix. Engine key order.
func (s *BadgerStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(projectPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var p domain.Project
				if err := json.Unmarshal(val, &p); err != nil {
					return fmt.Errorf("unmarshal project at key %s: %w", string(item.Key()), err)
				}
				projects = append(projects, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to list projects")
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetInspiration returns the stored inspiration or domain.ErrNotFound.
func (s *BadgerStore) GetInspiration(ctx context.Context, id string) (domain.Inspiration, error) {
	var insp domain.Inspiration
	err := s.getRecord(inspirationKey(id), &insp)
	return insp, err
}

// PutInspiration upserts the record and its projectId index entry in one
// transaction.
func (s *BadgerStore) PutInspiration(ctx context.Context, insp domain.Inspiration) error {
	log := s.log.WithFields(logrus.Fields{
		"inspiration_id": insp.ID,
		"project_id":     insp.ProjectID,
	})

	raw, err := json.Marshal(insp)
	if err != nil {
		return fmt.Errorf("marshal inspiration: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(inspirationKey(insp.ID), raw); err != nil {
			return err
		}
		return txn.Set(inspirationIndexKey(insp.ProjectID, insp.ID), nil)
	})
	if err != nil {
		log.WithError(err).Error("Failed to put inspiration")
		return fmt.Errorf("%w: put inspiration %s: %v", domain.ErrStorageWrite, insp.ID, err)
	}
	log.Debug("Inspiration saved")
	return nil
}

// DeleteInspiration removes the record and its index entry. Absent ids are
// a no-op.
func (s *BadgerStore) DeleteInspiration(ctx context.Context, id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(inspirationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var insp domain.Inspiration
		if err := json.Unmarshal(val, &insp); err != nil {
			return fmt.Errorf("unmarshal inspiration %s: %w", id, err)
		}
		if err := txn.Delete(inspirationKey(id)); err != nil {
			return err
		}
		return txn.Delete(inspirationIndexKey(insp.ProjectID, id))
	})
	if err != nil {
		return fmt.Errorf("%w: delete inspiration %s: %v", domain.ErrStorageWrite, id, err)
	}
	return nil
}

// ListInspirationsByProject resolves index entries to records inside one
// read transaction. Order follows the index keys, not creation time.
func (s *BadgerStore) ListInspirationsByProject(ctx context.Context, projectID string) ([]domain.Inspiration, error) {
	log := s.log.WithField("project_id", projectID)
	inspirations := []domain.Inspiration{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := projectIndexScanPrefix(projectID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			inspID := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			item, err := txn.Get(inspirationKey(inspID))
			if err != nil {
				return fmt.Errorf("resolve index entry %s: %w", inspID, err)
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var insp domain.Inspiration
			if err := json.Unmarshal(val, &insp); err != nil {
				return fmt.Errorf("unmarshal inspiration %s: %w", inspID, err)
			}
			inspirations = append(inspirations, insp)
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to list inspirations")
		return nil, fmt.Errorf("list inspirations for project %s: %w", projectID, err)
	}
	log.WithField("count", len(inspirations)).Debug("Inspirations retrieved")
	return inspirations, nil
}

// CountInspirationsByProject counts index entries with a key-only scan.
func (s *BadgerStore) CountInspirationsByProject(ctx context.Context, projectID string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := projectIndexScanPrefix(projectID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count inspirations for project %s: %w", projectID, err)
	}
	return count, nil
}

// DeleteProjectCascade deletes the project record, every owned inspiration
// and every index entry atomically. Either the whole cascade commits or
// none of it does; a crash mid-delete cannot strand orphans.
func (s *BadgerStore) DeleteProjectCascade(ctx context.Context, projectID string) error {
	log := s.log.WithField("project_id", projectID)

	deleted := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := projectIndexScanPrefix(projectID)
		var indexKeys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			indexKeys = append(indexKeys, it.Item().KeyCopy(nil))
		}
		// Badger forbids writes while an iterator is open on the txn.
		it.Close()

		for _, ik := range indexKeys {
			inspID := strings.TrimPrefix(string(ik), string(prefix))
			if err := txn.Delete(inspirationKey(inspID)); err != nil {
				return err
			}
			if err := txn.Delete(ik); err != nil {
				return err
			}
			deleted++
		}
		return txn.Delete(projectKey(projectID))
	})
	if err != nil {
		log.WithError(err).Error("Failed to cascade-delete project")
		return fmt.Errorf("%w: cascade delete project %s: %v", domain.ErrStorageWrite, projectID, err)
	}
	log.WithField("inspirations_deleted", deleted).Info("Project cascade-deleted")
	return nil
}

// getRecord reads one key and unmarshals it into out. Missing keys map to
// domain.ErrNotFound; partial records are impossible because values are
// whole JSON documents.
func (s *BadgerStore) getRecord(key []byte, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(val, out)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: key %s", domain.ErrNotFound, string(key))
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", string(key), err)
	}
	return nil
}

// --- BadgerDB internal logger ---

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}
