package kv

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

const (
	fieldValue   = "value"
	fieldVersion = "version"
	scanCount    = 100
	// seqKey holds the counter versions are drawn from. It lives under the
	// store prefix and is hidden from List.
	seqKey = "__version_seq"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key written by the store.
	Prefix string
}

// RedisStore stores each key as a hash holding the value and its version.
// Versions come from one INCR counter per prefix, so deleting a hash does
// not reset them.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewRedisStoreFromClient(client, opts.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

type incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

func (s *RedisStore) nextVersion(ctx context.Context, c incrementer) (int64, error) {
	v, err := c.Incr(ctx, s.key(seqKey)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis incr")
	}
	return v, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	m, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return Entry{}, errors.Wrap(err, "redis hgetall")
	}
	return entryFromHash(key, m)
}

func entryFromHash(key string, m map[string]string) (Entry, error) {
	if len(m) == 0 {
		return Entry{}, ErrNotFound
	}
	var version int64
	if raw, ok := m[fieldVersion]; ok {
		v, err := parseVersion(raw)
		if err != nil {
			return Entry{}, err
		}
		version = v
	}
	return Entry{Key: key, Value: []byte(m[fieldValue]), Version: version}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) (int64, error) {
	v, err := s.nextVersion(ctx, s.client)
	if err != nil {
		return 0, err
	}
	if err := s.client.HSet(ctx, s.key(key), fieldValue, value, fieldVersion, v).Err(); err != nil {
		return 0, errors.Wrap(err, "redis set")
	}
	return v, nil
}

func (s *RedisStore) Remove(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return errors.Wrap(err, "redis del")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// currentVersion returns 0 for a missing key.
func currentVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	v, err := tx.HGet(ctx, key, fieldVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "redis hget")
	}
	return v, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	k := s.key(key)
	var next int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := currentVersion(ctx, tx, k)
		if err != nil {
			return err
		}
		if cur != expected {
			return ErrVersionConflict
		}
		// A version drawn for a failed transaction is skipped, never reused.
		next, err = s.nextVersion(ctx, tx)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, fieldValue, value, fieldVersion, next)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, key string, expected int64) error {
	k := s.key(key)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := currentVersion(ctx, tx, k)
		if err != nil {
			return err
		}
		if cur == 0 {
			return ErrNotFound
		}
		if cur != expected {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, k)
			return nil
		})
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrVersionConflict
	}
	return err
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	pattern := escapeGlob(s.key(prefix)) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		if k := iter.Val(); k != s.key(seqKey) {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "redis scan")
	}

	out := make([]Entry, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.HGetAll(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "redis list")
	}
	for i, cmd := range cmds {
		e, err := entryFromHash(strings.TrimPrefix(keys[i], s.prefix), cmd.Val())
		if errors.Is(err, ErrNotFound) {
			// removed between SCAN and HGETALL
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseVersion(raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse version %q", raw)
	}
	return v, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
