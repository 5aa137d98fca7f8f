package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FlagsAndDefaults(t *testing.T) {
	opts, err := Load([]string{"-jwt-secret", "s3cret", "-storage", "memory", "-a", ":9090"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Addr != ":9090" {
		t.Errorf("Addr = %q; want %q", opts.Addr, ":9090")
	}
	if opts.Storage.Backend != BackendMemory {
		t.Errorf("Backend = %q; want memory", opts.Storage.Backend)
	}
	if opts.SessionTTL != 72*time.Hour {
		t.Errorf("SessionTTL = %s; want 72h", opts.SessionTTL)
	}
	if !opts.Seed {
		t.Error("expected seeding to default to true")
	}
}

func TestLoad_EnvOverridesFlags(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", "0.0.0.0:7000")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SESSION_TTL", "30m")

	opts, err := Load([]string{"-a", ":9090", "-jwt-secret", "from-flag"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Addr != "0.0.0.0:7000" {
		t.Errorf("Addr = %q; want env value", opts.Addr)
	}
	if opts.Storage.Backend != BackendRedis {
		t.Errorf("Backend = %q; want redis", opts.Storage.Backend)
	}
	if opts.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q; want from-env", opts.JWTSecret)
	}
	if opts.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %s; want 30m", opts.SessionTTL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server_address: "127.0.0.1:8181"
jwt_secret: "file-secret"
log_level: debug
storage:
  backend: postgres
  database_dsn: "postgres://hb:hb@localhost:5432/hb?sslmode=disable"
  database_driver: pgx
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts, err := Load([]string{"-c", path})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Addr != "127.0.0.1:8181" {
		t.Errorf("Addr = %q", opts.Addr)
	}
	if opts.Storage.Backend != BackendPostgres || opts.Storage.DatabaseDriver != "pgx" {
		t.Errorf("unexpected storage options: %+v", opts.Storage)
	}
	if opts.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want debug", opts.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Options {
		return &Options{
			Storage:    StorageOptions{Backend: BackendMemory},
			JWTSecret:  "x",
			SessionTTL: time.Hour,
		}
	}

	cases := []struct {
		name       string
		mutate     func(o *Options)
		wantSubstr string
	}{
		{"unknown backend", func(o *Options) { o.Storage.Backend = "mongo" }, "unsupported storage backend"},
		{"postgres without dsn", func(o *Options) { o.Storage.Backend = BackendPostgres }, "database DSN is required"},
		{"bad driver", func(o *Options) {
			o.Storage.Backend = BackendPostgres
			o.Storage.DatabaseDSN = "postgres://x"
			o.Storage.DatabaseDriver = "mysql"
		}, "unsupported database driver"},
		{"missing secret", func(o *Options) { o.JWTSecret = "" }, "jwt secret is required"},
		{"zero ttl", func(o *Options) { o.SessionTTL = 0 }, "invalid session ttl"},
		{"half tls", func(o *Options) { o.TLSCert = "server.crt" }, "tls cert and key"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid options rejected: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := valid()
			tc.mutate(o)
			err := o.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSubstr) {
				t.Errorf("error = %q; want substring %q", err.Error(), tc.wantSubstr)
			}
		})
	}
}
