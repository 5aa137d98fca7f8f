// Package repository provides record managers for users, courses, tasks,
// sessions and carts on top of a versioned key-value store.
package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"

	"github.com/hackbridge/hackbridge/internal/kv"
)

// Key layout. Each record lives under its collection prefix followed by its id.
const (
	UsersPrefix       = "hackbridge_users/"
	UserEmailPrefix   = "hackbridge_users_email/"
	CredentialsPrefix = "hackbridge_credentials/"
	CoursesPrefix     = "hackbridge_courses/"
	TasksPrefix       = "hackbridge_tasks/"
	SessionsPrefix    = "hackbridge_sessions/"
	CartsPrefix       = "hackbridge_carts/"
	SeededPrefix      = "hackbridge_seeded/"
	CurrentUserKey    = "hackbridge_current_user"
)

// maxAttempts bounds read-modify-write retries on version conflicts.
const maxAttempts = 10

// Collection stores records of type T one per key under a common prefix.
type Collection[T any] struct {
	store  kv.Store
	prefix string
	idOf   func(*T) string
}

// NewCollection creates a Collection. idOf extracts the record id.
func NewCollection[T any](store kv.Store, prefix string, idOf func(*T) string) *Collection[T] {
	return &Collection[T]{store: store, prefix: prefix, idOf: idOf}
}

func (c *Collection[T]) key(id string) string { return c.prefix + id }

func validID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return errors.Wrapf(ErrInvalid, "invalid id %q", id)
	}
	return nil
}

func (c *Collection[T]) load(ctx context.Context, id string) (*T, int64, error) {
	e, err := c.store.Get(ctx, c.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "load record")
	}
	rec := new(T)
	if err := json.Unmarshal(e.Value, rec); err != nil {
		return nil, 0, errors.Wrapf(err, "decode %s", c.key(id))
	}
	return rec, e.Version, nil
}

func encode[T any](rec *T) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}
	return raw, nil
}

// GetAll returns every record ordered by id. The result is never nil.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	entries, err := c.store.List(ctx, c.prefix)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var rec T
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			return nil, errors.Wrapf(err, "decode %s", e.Key)
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetByID returns ErrNotFound when no record has id.
func (c *Collection[T]) GetByID(ctx context.Context, id string) (*T, error) {
	rec, _, err := c.load(ctx, id)
	return rec, err
}

// Exists reports whether a record with id is stored.
func (c *Collection[T]) Exists(ctx context.Context, id string) (bool, error) {
	_, err := c.store.Get(ctx, c.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "lookup record")
	}
	return true, nil
}

// Create stores rec only if its id is unused, otherwise ErrAlreadyExists.
func (c *Collection[T]) Create(ctx context.Context, rec *T) error {
	id := c.idOf(rec)
	if err := validID(id); err != nil {
		return err
	}
	raw, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = c.store.CompareAndSwap(ctx, c.key(id), raw, 0)
	if errors.Is(err, kv.ErrVersionConflict) {
		return ErrAlreadyExists
	}
	if err != nil {
		return errors.Wrap(err, "create record")
	}
	return nil
}

// Update replaces the stored record with the same id. It returns
// ErrNotFound and writes nothing when the id is unknown.
func (c *Collection[T]) Update(ctx context.Context, rec *T) error {
	id := c.idOf(rec)
	_, err := c.Modify(ctx, id, func(cur *T) error {
		*cur = *rec
		return nil
	})
	return err
}

// Modify loads the record, applies fn and writes it back if the version is
// unchanged, retrying on concurrent writes. The record id cannot be changed.
func (c *Collection[T]) Modify(ctx context.Context, id string, fn func(cur *T) error) (*T, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, version, err := c.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(cur); err != nil {
			return nil, err
		}
		if c.idOf(cur) != id {
			return nil, errors.Wrap(ErrInvalid, "record id cannot change")
		}
		raw, err := encode(cur)
		if err != nil {
			return nil, err
		}
		_, err = c.store.CompareAndSwap(ctx, c.key(id), raw, version)
		if errors.Is(err, kv.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "write record")
		}
		return cur, nil
	}
	return nil, ErrConflict
}

// Upsert is Modify that also handles a missing record: fn receives a zero
// value with exists set to false and the result is created.
func (c *Collection[T]) Upsert(ctx context.Context, id string, fn func(cur *T, exists bool) error) (*T, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, version, err := c.load(ctx, id)
		exists := true
		if errors.Is(err, ErrNotFound) {
			cur, version, exists = new(T), 0, false
		} else if err != nil {
			return nil, err
		}
		if err := fn(cur, exists); err != nil {
			return nil, err
		}
		raw, err := encode(cur)
		if err != nil {
			return nil, err
		}
		_, err = c.store.CompareAndSwap(ctx, c.key(id), raw, version)
		if errors.Is(err, kv.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "write record")
		}
		return cur, nil
	}
	return nil, ErrConflict
}

// Delete removes the record, returning ErrNotFound if nothing was removed.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	err := c.store.Remove(ctx, c.key(id))
	if errors.Is(err, kv.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "delete record")
	}
	return nil
}
