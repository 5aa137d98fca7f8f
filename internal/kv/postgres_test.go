package kv

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func setupMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	store := NewPostgresStore(db)
	cleanup := func() {
		db.Close()
	}
	return store, mock, cleanup
}

const (
	getQuery    = `SELECT value, version FROM kv_entries WHERE key = $1`
	insertQuery = `INSERT INTO kv_entries (key, value, version) VALUES ($1, $2, nextval('kv_version_seq'))`
	updateQuery = `UPDATE kv_entries SET value = $2, version = nextval('kv_version_seq')`
	deleteQuery = `DELETE FROM kv_entries WHERE key = $1`
	listQuery   = `SELECT key, value, version FROM kv_entries WHERE key LIKE $1 ESCAPE '\' ORDER BY key COLLATE "C"`
)

func TestPostgresGet_Success(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("users/1").
		WillReturnRows(sqlmock.NewRows([]string{"value", "version"}).AddRow([]byte(`{"id":"1"}`), int64(3)))

	e, err := store.Get(context.Background(), "users/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(e.Value) != `{"id":"1"}` || e.Version != 3 || e.Key != "users/1" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresGet_NotFound(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresGet_Error(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "k")
	if err == nil || !regexp.MustCompile(`Get failed`).MatchString(err.Error()) {
		t.Errorf("expected Get failed error, got %v", err)
	}
}

func TestPostgresSet(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)).
		WithArgs("k", []byte("v")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(2)))

	v, err := store.Set(context.Background(), "k", []byte("v"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// A removed key that is written again must not get a version it had before,
// so the upsert takes the fresh sequence value instead of bumping the row.
func TestPostgresSet_VersionFromSequence(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	upsert := regexp.QuoteMeta(insertQuery) + `\s+` +
		regexp.QuoteMeta(`ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, version = EXCLUDED.version`)
	mock.ExpectQuery(upsert).
		WithArgs("k", []byte("v")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(upsert).
		WithArgs("k", []byte("v")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(8)))

	ctx := context.Background()
	first, err := store.Set(ctx, "k", []byte("v"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Remove(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := store.Set(ctx, "k", []byte("v"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second <= first {
		t.Errorf("recreated key got version %d, previous was %d", second, first)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresRemove(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteQuery)).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Remove(context.Background(), "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Remove(context.Background(), "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresCompareAndSwap_CreateConflict(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(insertQuery)+`\s+`+regexp.QuoteMeta(`ON CONFLICT (key) DO NOTHING`)).
		WithArgs("k", []byte("v")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	_, err := store.CompareAndSwap(context.Background(), "k", []byte("v"), 0)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestPostgresCompareAndSwap_Update(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(updateQuery)).
		WithArgs("k", []byte("v"), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta(updateQuery)).
		WithArgs("k", []byte("v"), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	v, err := store.CompareAndSwap(context.Background(), "k", []byte("v"), 4)
	if err != nil || v != 5 {
		t.Fatalf("expected version 5, got %d (%v)", v, err)
	}
	if _, err := store.CompareAndSwap(context.Background(), "k", []byte("v"), 4); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
}

func TestPostgresCompareAndDelete(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	cad := `DELETE FROM kv_entries WHERE key = $1 AND version = $2`
	mock.ExpectExec(regexp.QuoteMeta(cad)).
		WithArgs("k", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(getQuery)).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"value", "version"}).AddRow([]byte("v"), int64(2)))

	if err := store.CompareAndDelete(context.Background(), "k", 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("expected ErrVersionConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresList(t *testing.T) {
	store, mock, cleanup := setupMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"key", "value", "version"}).
		AddRow("hackbridge_users/1", []byte("a"), int64(1)).
		AddRow("hackbridge_users/2", []byte("b"), int64(4))
	mock.ExpectQuery(regexp.QuoteMeta(listQuery)).
		WithArgs(`hackbridge\_users/%`).
		WillReturnRows(rows)

	entries, err := store.List(context.Background(), "hackbridge_users/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[1].Key != "hackbridge_users/2" || entries[1].Version != 4 {
		t.Errorf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
