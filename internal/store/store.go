package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	"voice-story-go/internal/story"
)

// ErrNotFound is returned when no result exists for a session ID.
var ErrNotFound = fmt.Errorf("result not found")

// Store persists finished pipeline results keyed by session ID so the API
// can serve them after the processing request returns.
type Store struct {
	db *badger.DB
}

func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	opts := badger.DefaultOptions(filepath.Join(dir, "badger"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Put(res *story.PipelineResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(res.SessionID), data)
	})
}

func (s *Store) Get(sessionID string) (*story.PipelineResult, error) {
	var res story.PipelineResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &res)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &res, nil
}

// List returns every stored result.
func (s *Store) List() ([]*story.PipelineResult, error) {
	var out []*story.PipelineResult
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var res story.PipelineResult
				if err := json.Unmarshal(val, &res); err != nil {
					return err
				}
				out = append(out, &res)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
