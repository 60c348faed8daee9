// Package badger keeps the search log in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

// entryPrefix precedes every log key. Key layout: prefix | unix nanos (8 bytes BE) | id.
const entryPrefix = "slog:"

// Store is an append-only search log backed by BadgerDB.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// zapAdapter adapts zap to the badger.Logger interface.
type zapAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*zapAdapter)(nil)

func (a *zapAdapter) Errorf(msg string, items ...any)   { a.logger.Errorf(msg, items...) }
func (a *zapAdapter) Warningf(msg string, items ...any) { a.logger.Warnf(msg, items...) }
func (a *zapAdapter) Infof(msg string, items ...any)    { a.logger.Debugf(msg, items...) }
func (a *zapAdapter) Debugf(msg string, items ...any)   { a.logger.Debugf(msg, items...) }

// Open opens the log at dir. An empty dir or inMemory=true keeps data in memory.
func Open(dir string, inMemory bool, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if inMemory || dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "badger: create dir %s", dir)
		}
		info, err := os.Stat(dir)
		if err != nil {
			return nil, eris.Wrapf(err, "badger: stat %s", dir)
		}
		if !info.IsDir() {
			return nil, eris.Errorf("badger: %s is not a directory", dir)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = &zapAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, eris.Wrap(err, "badger: open")
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return eris.Wrap(s.db.Close(), "badger: close")
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return eris.New("badger: database closed")
	}
	return nil
}

// Append stores one entry.
func (s *Store) Append(_ context.Context, e searchlog.Entry) error {
	val, err := json.Marshal(e)
	if err != nil {
		return eris.Wrap(err, "badger: marshal entry")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e.Timestamp, e.ID), val)
	})
	return eris.Wrapf(err, "badger: append %s", e.ID)
}

// Entries returns entries with Timestamp >= since in chronological order.
func (s *Store) Entries(ctx context.Context, since time.Time) ([]searchlog.Entry, error) {
	var out []searchlog.Entry

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := []byte(entryPrefix)
		if !since.IsZero() {
			start = timeKey(since)
		}
		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := decode(it.Item())
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "badger: scan entries")
	}
	return out, nil
}

// Recent returns the newest limit entries, newest first.
func (s *Store) Recent(_ context.Context, limit int) ([]searchlog.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	out := make([]searchlog.Entry, 0, limit)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(entryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the largest key <= seek; 0xFF sorts after every timestamp.
		for it.Seek(append([]byte(entryPrefix), 0xFF)); it.Valid() && len(out) < limit; it.Next() {
			e, err := decode(it.Item())
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "badger: scan recent")
	}
	return out, nil
}

func decode(item *badger.Item) (searchlog.Entry, error) {
	var e searchlog.Entry
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	})
	if err != nil {
		return e, fmt.Errorf("decode %x: %w", item.Key(), err)
	}
	return e, nil
}

func timeKey(t time.Time) []byte {
	buf := make([]byte, len(entryPrefix)+8)
	n := copy(buf, entryPrefix)
	// Written BigEndian so lexicographic order is chronological.
	binary.BigEndian.PutUint64(buf[n:], uint64(t.UnixNano()))
	return buf
}

func entryKey(t time.Time, id string) []byte {
	return append(timeKey(t), id...)
}
