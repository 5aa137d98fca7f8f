// Package kv provides versioned key-value stores used as the persistence
// layer for every record collection.
package kv

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: key not found")
	// ErrVersionConflict is returned when a conditional write sees a different version.
	ErrVersionConflict = errors.New("kv: version conflict")
)

// Entry is a stored value with its version.
type Entry struct {
	Key     string
	Value   []byte
	Version int64
}

// Store is a key-value store with per-key optimistic versioning.
//
// Every successful write takes its version from a store-wide counter, so
// versions are positive and a key never sees the same version twice, even
// after it is removed and created again. An expected version of 0 in
// CompareAndSwap means the key must not exist yet.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value []byte) (int64, error)
	Remove(ctx context.Context, key string) error
	CompareAndSwap(ctx context.Context, key string, value []byte, expected int64) (int64, error)
	CompareAndDelete(ctx context.Context, key string, expected int64) error
	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// record is the in-memory and on-disk representation shared by the memory
// and file backends.
type record struct {
	Value   []byte `json:"value"`
	Version int64  `json:"version"`
}

func getFrom(data map[string]record, key string) (Entry, error) {
	rec, ok := data[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Key: key, Value: clone(rec.Value), Version: rec.Version}, nil
}

// setIn stores value under the next version drawn from seq.
func setIn(data map[string]record, seq *int64, key string, value []byte) int64 {
	*seq++
	data[key] = record{Value: clone(value), Version: *seq}
	return *seq
}

func casIn(data map[string]record, seq *int64, key string, value []byte, expected int64) (int64, error) {
	rec, ok := data[key]
	switch {
	case expected == 0 && ok:
		return 0, ErrVersionConflict
	case expected != 0 && (!ok || rec.Version != expected):
		return 0, ErrVersionConflict
	}
	return setIn(data, seq, key, value), nil
}

func cadIn(data map[string]record, key string, expected int64) error {
	rec, ok := data[key]
	if !ok {
		return ErrNotFound
	}
	if rec.Version != expected {
		return ErrVersionConflict
	}
	delete(data, key)
	return nil
}

// maxVersion is used to restore the counter for data written without one.
func maxVersion(data map[string]record) int64 {
	var top int64
	for _, rec := range data {
		top = max(top, rec.Version)
	}
	return top
}

func listFrom(data map[string]record, prefix string) []Entry {
	out := make([]Entry, 0)
	for k, rec := range data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Entry{Key: k, Value: clone(rec.Value), Version: rec.Version})
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
