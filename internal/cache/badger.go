package cache

import (
	"context"
	"path"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Config configures the embedded Badger store.
type Config struct {
	// Path is the on-disk directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in RAM. Useful for tests and ephemeral runs.
	InMemory bool
	// KeyPrefix namespaces every key. Defaults to DefaultKeyPrefix.
	KeyPrefix string
	// SyncWrites makes every write durable before returning.
	SyncWrites bool
}

// BadgerStore implements Store on top of an embedded Badger database.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens the database described by cfg.
func NewBadgerStore(cfg Config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (s *BadgerStore) fullKey(key string) []byte {
	return []byte(s.prefix + key)
}

// Get returns the value for key. An expired or absent key yields found=false.
func (s *BadgerStore) Get(_ context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.fullKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key with the given time-to-live.
func (s *BadgerStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.fullKey(key), []byte(value))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Exists reports whether key is present and unexpired.
func (s *BadgerStore) Exists(_ context.Context, key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.fullKey(key))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes key and returns the number of entries removed (0 or 1).
func (s *BadgerStore) Delete(_ context.Context, key string) (int, error) {
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		full := s.fullKey(key)
		if _, err := txn.Get(full); err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		if err := txn.Delete(full); err != nil {
			return err
		}
		removed = 1
		return nil
	})
	return removed, err
}

// DeleteMatching removes every key whose unprefixed form matches pattern,
// using shell-style globbing. Returns the number of keys removed.
func (s *BadgerStore) DeleteMatching(_ context.Context, pattern string) (int, error) {
	var matched [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			full := it.Item().KeyCopy(nil)
			bare := string(full[len(s.prefix):])
			ok, err := path.Match(pattern, bare)
			if err != nil {
				return err
			}
			if ok {
				matched = append(matched, full)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range matched {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// TTL returns the remaining lifetime of key. found=false when the key is
// absent; a zero duration with found=true means the key never expires.
func (s *BadgerStore) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	var expiresAt uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.fullKey(key))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if expiresAt == 0 {
		return 0, true, nil
	}
	remaining := time.Until(time.Unix(int64(expiresAt), 0))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}

// Stats counts live keys under the namespace and reports database size.
func (s *BadgerStore) Stats(_ context.Context) (Stats, error) {
	keys := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(s.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	lsm, vlog := s.db.Size()
	return Stats{Keys: keys, MemoryUsed: lsm + vlog}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
