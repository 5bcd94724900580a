/*
Package registry persists deployed collections in bbolt database.

Records are stored as JSON keyed by collection name, the second bucket
indexes names by collection address.
*/
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.etcd.io/bbolt"
)

var (
	bucketCollections = []byte("collections")
	bucketAddresses   = []byte("addresses")
)

var (
	// ErrNotFound is returned when requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned on attempt to record the same name with different
	// address.
	ErrExists = errors.New("record already exists")
)

// Record describes deployed collection.
type Record struct {
	Name     string          `json:"name"`
	Address  address.Address `json:"address"`
	CodeHash util.Uint256    `json:"codeHash"`
	// Data is serialized initial data of the collection.
	Data       []byte    `json:"data"`
	Trace      uuid.UUID `json:"trace"`
	DeployedAt time.Time `json:"deployedAt"`
}

// NewRecord fills Record from StateInit parts.
func NewRecord(name string, addr address.Address, code, data *cell.Node, trace uuid.UUID) (Record, error) {
	bData, err := cell.SerializeBoC(data, true)
	if err != nil {
		return Record{}, fmt.Errorf("serialize data: %w", err)
	}

	return Record{
		Name:       name,
		Address:    addr,
		CodeHash:   code.Hash(),
		Data:       bData,
		Trace:      trace,
		DeployedAt: time.Now().UTC(),
	}, nil
}

// Store wraps bbolt database with deployment records.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path. The parent directory is created
// if it does not exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("registry: create directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("registry: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCollections, bucketAddresses} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry: create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Put saves the record. Repeated Put of the same name is allowed for the same
// address only, record without trace keeps the trace and deployment time of
// the previous one.
func (s *Store) Put(r Record) error {
	if r.Name == "" {
		return errors.New("registry: empty name")
	}

	key := []byte(r.Address.String())

	return s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketCollections)

		if prev := cb.Get([]byte(r.Name)); prev != nil {
			var old Record
			if err := json.Unmarshal(prev, &old); err != nil {
				return fmt.Errorf("registry: decode record %s: %w", r.Name, err)
			}
			if !old.Address.Equals(r.Address) {
				return fmt.Errorf("%w: %s at %s", ErrExists, r.Name, old.Address)
			}
			if r.Trace == uuid.Nil {
				r.Trace, r.DeployedAt = old.Trace, old.DeployedAt
			}
		}

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("registry: encode record: %w", err)
		}

		if err := cb.Put([]byte(r.Name), data); err != nil {
			return fmt.Errorf("registry: put record: %w", err)
		}
		if err := tx.Bucket(bucketAddresses).Put(key, []byte(r.Name)); err != nil {
			return fmt.Errorf("registry: put address index: %w", err)
		}
		return nil
	})
}

// Get returns record by collection name.
func (s *Store) Get(name string) (Record, error) {
	var r Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		return getRecord(tx, []byte(name), &r)
	})

	return r, err
}

// GetByAddress returns record by collection address.
func (s *Store) GetByAddress(addr address.Address) (Record, error) {
	var r Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		name := tx.Bucket(bucketAddresses).Get([]byte(addr.String()))
		if name == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, addr)
		}

		return getRecord(tx, name, &r)
	})

	return r, err
}

// List returns all records sorted by name.
func (s *Store) List() ([]Record, error) {
	var res []Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("registry: decode record %s: %w", k, err)
			}

			res = append(res, r)
			return nil
		})
	})

	return res, err
}

func getRecord(tx *bbolt.Tx, name []byte, r *Record) error {
	data := tx.Bucket(bucketCollections).Get(name)
	if data == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("registry: decode record %s: %w", name, err)
	}

	return nil
}
