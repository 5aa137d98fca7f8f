package db_test

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/hackbridge/hackbridge/internal/db"
)

func TestInitPostgres_ErrorPaths(t *testing.T) {
	cases := []struct {
		name       string
		driver     string
		dsn        string
		wantSubstr string
	}{
		{"invalid DSN", db.DriverPQ, "some=random", "ping postgres"},
		{"empty DSN", db.DriverPQ, "", "ping postgres"},
		{"pgx unreachable", db.DriverPgx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1", "ping postgres"},
		{"unknown driver", "mysql", "", "unsupported driver"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := db.InitPostgres(tc.driver, tc.dsn)
			if err == nil {
				t.Fatalf("InitPostgres(%q) did not return error", tc.dsn)
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("InitPostgres(%q) error = %q; want substring %q", tc.dsn, err.Error(), tc.wantSubstr)
			}
		})
	}
}

func TestMigrate_BadDSN(t *testing.T) {
	err := db.Migrate("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err == nil {
		t.Fatal("Migrate did not return error for unreachable database")
	}
}

func TestMigrations_Paired(t *testing.T) {
	names, err := fs.Glob(db.Migrations(), "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	ups, downs := 0, 0
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups++
		case strings.HasSuffix(n, ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("got %d up and %d down migrations", ups, downs)
	}
}
