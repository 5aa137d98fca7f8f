package kv

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-faster/errors"
)

// PostgresStore keeps entries in the kv_entries table. Versions are drawn
// from the kv_version_seq sequence.
type PostgresStore struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresStore creates a new PostgresStore with the given database connection.
// The kv_entries table and its sequence must already exist; see db.Migrate.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (Entry, error) {
	e := Entry{Key: key}
	err := s.DB.QueryRowContext(ctx,
		`SELECT value, version FROM kv_entries WHERE key = $1`,
		key,
	).Scan(&e.Value, &e.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, errors.Wrap(err, "Get failed")
	}
	return e, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) (int64, error) {
	var version int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO kv_entries (key, value, version) VALUES ($1, $2, nextval('kv_version_seq'))
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = EXCLUDED.version
		RETURNING version`,
		key, value,
	).Scan(&version)
	if err != nil {
		return 0, errors.Wrap(err, "Set failed")
	}
	return version, nil
}

func (s *PostgresStore) Remove(ctx context.Context, key string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	if err != nil {
		return errors.Wrap(err, "Remove failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "Remove failed")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CompareAndSwap(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var (
		version int64
		err     error
	)
	if expected == 0 {
		err = s.DB.QueryRowContext(ctx,
			`INSERT INTO kv_entries (key, value, version) VALUES ($1, $2, nextval('kv_version_seq'))
			ON CONFLICT (key) DO NOTHING
			RETURNING version`,
			key, value,
		).Scan(&version)
	} else {
		err = s.DB.QueryRowContext(ctx,
			`UPDATE kv_entries SET value = $2, version = nextval('kv_version_seq')
			WHERE key = $1 AND version = $3
			RETURNING version`,
			key, value, expected,
		).Scan(&version)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, errors.Wrap(err, "CompareAndSwap failed")
	}
	return version, nil
}

func (s *PostgresStore) CompareAndDelete(ctx context.Context, key string, expected int64) error {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE key = $1 AND version = $2`,
		key, expected,
	)
	if err != nil {
		return errors.Wrap(err, "CompareAndDelete failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "CompareAndDelete failed")
	}
	if n > 0 {
		return nil
	}
	// Distinguish a missing key from a stale version.
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	return ErrVersionConflict
}

func (s *PostgresStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, value, version FROM kv_entries WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, errors.Wrap(err, "List failed")
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Version); err != nil {
			return nil, errors.Wrap(err, "List scan failed")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "List rows failed")
	}
	return out, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
