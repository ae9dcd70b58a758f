package maskcache

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/artifact"
	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

const badgerKeyPrefix = "mask/"

// BadgerConfig holds the settings of a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory, created if missing. Ignored when InMemory is true.
	Path string

	// InMemory keeps the database in RAM; used by tests.
	InMemory bool

	SyncWrites bool

	// Logger receives BadgerDB's own messages. Nil disables them.
	// *logrus.Logger and *logrus.Entry satisfy it.
	Logger badger.Logger
}

// BadgerStore keeps masks in an embedded BadgerDB, one FITS-encoded mask per key digest.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens or creates the database described by cfg. Close it when done.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent mask database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create mask database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1).WithLogger(cfg.Logger)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open mask database: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Get(ctx context.Context, key Key) (*fresnel.Mask, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var img *artifact.Image
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key.Digest()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			img, err = artifact.Decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read mask %s: %w", key.Digest(), err)
	}

	// A digest collision would show up as a header mismatch
	if !artifact.Matches(img.Header, key.Spec, key.Size) {
		return nil, false, nil
	}
	m, err := artifact.MaskFromImage(img)
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *BadgerStore) Put(ctx context.Context, key Key, m *fresnel.Mask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := artifact.EncodeMask(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key.Digest()), data)
	})
}
