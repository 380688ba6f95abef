package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// DefaultGCInterval is how often the value log garbage collector runs.
const DefaultGCInterval = 10 * time.Minute

// BadgerStore implements Store on a Badger v3 database.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger

	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewBadgerStore opens or creates the database in dir.
func NewBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	logger.Info("badger store opened", "dir", dir)
	return s, nil
}

// SaveServiceFile stores the current content of a service file.
func (s *BadgerStore) SaveServiceFile(ctx context.Context, tenantID, serviceID string, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(serviceFileKey(tenantID, serviceID), data)
	})
}

// LoadServiceFile returns the stored content, or ErrNotFound.
func (s *BadgerStore) LoadServiceFile(ctx context.Context, tenantID, serviceID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(serviceFileKey(tenantID, serviceID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteServiceFile removes a service file.
func (s *BadgerStore) DeleteServiceFile(ctx context.Context, tenantID, serviceID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(serviceFileKey(tenantID, serviceID))
	})
}

// ListServices returns the service IDs stored for a tenant.
func (s *BadgerStore) ListServices(ctx context.Context, tenantID string) ([]string, error) {
	prefix := []byte(prefixServiceFile + tenantID + "/")

	var services []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			services = append(services, strings.TrimPrefix(key, string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

// Get retrieves an API key by ID.
func (s *BadgerStore) Get(ctx context.Context, keyID string) (*domain.APIKey, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(apiKeyKey(keyID))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var key domain.APIKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("badger: decode api key %s: %w", keyID, err)
	}
	return &key, nil
}

// Create stores a new API key.
func (s *BadgerStore) Create(ctx context.Context, key *domain.APIKey) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("badger: encode api key %s: %w", key.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(apiKeyKey(key.ID), raw)
	})
}

// Delete removes an API key.
func (s *BadgerStore) Delete(ctx context.Context, keyID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(apiKeyKey(keyID))
	})
}

// List retrieves all API keys.
func (s *BadgerStore) List(ctx context.Context) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixAPIKey)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var key domain.APIKey
			if err := json.Unmarshal(raw, &key); err != nil {
				return err
			}
			keys = append(keys, &key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Close stops the GC loop and closes the database. Idempotent.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		err = s.db.Close()
		s.logger.Info("badger store closed")
	})
	return err
}

// gcLoop runs Badger's value log garbage collection periodically.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(DefaultGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// ErrNoRewrite means there was nothing to reclaim.
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
				s.logger.Warn("badger gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
