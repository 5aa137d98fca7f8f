package kv

import (
	"context"
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// FileStore keeps the whole map in memory and rewrites a JSON file after
// every mutation. The file is replaced atomically via a temp file and rename.
type FileStore struct {
	path string
	mu   sync.RWMutex
	data map[string]record
	seq  int64
}

type fileContents struct {
	Entries map[string]record `json:"entries"`
	// Seq is the last version handed out. Older files lack it.
	Seq int64 `json:"seq,omitempty"`
}

// OpenFile loads the store at path. A missing file yields an empty store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path, data: make(map[string]record)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, "read store file")
	}
	if len(raw) == 0 {
		return s, nil
	}
	var contents fileContents
	if err := json.Unmarshal(raw, &contents); err != nil {
		return nil, errors.Wrap(err, "decode store file")
	}
	if contents.Entries != nil {
		s.data = contents.Entries
	}
	s.seq = max(contents.Seq, maxVersion(s.data))
	return s, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

// mutate applies fn to a copy of the map and counter, persists them and
// only then publishes them, so a failed write leaves the previous state in
// place.
func (s *FileStore) mutate(fn func(data map[string]record, seq *int64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, seq := maps.Clone(s.data), s.seq
	if err := fn(next, &seq); err != nil {
		return err
	}
	if err := s.save(next, seq); err != nil {
		return err
	}
	s.data, s.seq = next, seq
	return nil
}

func (s *FileStore) save(data map[string]record, seq int64) error {
	raw, err := json.MarshalIndent(fileContents{Entries: data, Seq: seq}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store file")
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace store file")
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getFrom(s.data, key)
}

func (s *FileStore) Set(_ context.Context, key string, value []byte) (int64, error) {
	var v int64
	err := s.mutate(func(data map[string]record, seq *int64) error {
		v = setIn(data, seq, key, value)
		return nil
	})
	return v, err
}

func (s *FileStore) Remove(_ context.Context, key string) error {
	return s.mutate(func(data map[string]record, _ *int64) error {
		if _, ok := data[key]; !ok {
			return ErrNotFound
		}
		delete(data, key)
		return nil
	})
}

func (s *FileStore) CompareAndSwap(_ context.Context, key string, value []byte, expected int64) (int64, error) {
	var v int64
	err := s.mutate(func(data map[string]record, seq *int64) error {
		var err error
		v, err = casIn(data, seq, key, value, expected)
		return err
	})
	return v, err
}

func (s *FileStore) CompareAndDelete(_ context.Context, key string, expected int64) error {
	return s.mutate(func(data map[string]record, _ *int64) error {
		return cadIn(data, key, expected)
	})
}

func (s *FileStore) List(_ context.Context, prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listFrom(s.data, prefix), nil
}

func (s *FileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *FileStore) Close() error { return nil }
