package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rezonia/einvoice-engine/internal/model"
)

// TableConversions is the default table for conversion records.
const TableConversions = "conversions"

// Store persists conversion records in BoltDB. Each table maps to one
// bucket; records are stored as JSON keyed by ID.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(TableConversions))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Put creates or replaces a record. The stored row version is always reset
// to 1: Put is for inserts, concurrent writers go through Update.
func (s *Store) Put(table string, record *ConversionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", table, err)
		}

		now := time.Now().UTC()
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		record.RowVersion = 1

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// Get retrieves a record by ID.
func (s *Store) Get(table, id string) (*ConversionRecord, error) {
	var record *ConversionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return fmt.Errorf("record not found: %s/%s", table, id)
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record not found: %s/%s", table, id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all records in a table.
func (s *Store) List(table string) ([]*ConversionRecord, error) {
	records := make([]*ConversionRecord, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var record ConversionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record %s: %w", k, err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(table, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(id))
	})
}

// Update applies mutate to the record identified by table/id, but only if
// the stored row version still equals expectedVersion. The read, the version
// check, the mutation and the write all happen inside a single write
// transaction: on a version mismatch the function returns OptimisticLockError
// and the stored record is untouched. On success the row version is
// incremented by the store; whatever mutate wrote into it is discarded.
func (s *Store) Update(table, id string, expectedVersion int64, mutate func(*ConversionRecord) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return fmt.Errorf("record not found: %s/%s", table, id)
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("record not found: %s/%s", table, id)
		}

		var record ConversionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("unmarshaling record: %w", err)
		}

		if record.RowVersion != expectedVersion {
			return model.NewOptimisticLockError(table, id, expectedVersion)
		}

		if err := mutate(&record); err != nil {
			return err
		}

		record.ID = id
		record.RowVersion = expectedVersion + 1
		record.UpdatedAt = time.Now().UTC()

		updated, err := json.Marshal(&record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(id), updated)
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
