package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/folio/internal/migrate"
)

// TB is the part of testing.TB the fixtures use.
type TB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// DBConfig locates the integration test database. The default port is the
// docker-compose test profile; CI exports TEST_DB_PORT=5432.
type DBConfig struct {
	Host      string `env:"TEST_DB_HOST"      envDefault:"localhost"`
	Port      string `env:"TEST_DB_PORT"      envDefault:"55432"`
	User      string `env:"TEST_DB_USER"      envDefault:"folio"`
	Password  string `env:"TEST_DB_PASSWORD"  envDefault:"folio"`
	Name      string `env:"TEST_DB_NAME"      envDefault:"folio"`
	SSLMode   string `env:"DB_SSL_MODE"       envDefault:"disable"`
	Ephemeral bool   `env:"TEST_DB_EPHEMERAL"`
}

// LoadDBConfig reads DBConfig from the environment.
func LoadDBConfig() (DBConfig, error) {
	return env.ParseAs[DBConfig]()
}

// DSN renders a pgx URL, optionally pinning search_path to schema.
func (c DBConfig) DSN(schema string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Name,
	}
	q := url.Values{"sslmode": {c.SSLMode}}
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Tables emptied between shared-database tests, children first.
var folioTables = []string{"versions", "documents", "globals"}

func truthy(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func requireDB() bool    { return truthy("TEST_REQUIRE_DB") || truthy("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return truthy("TEST_REQUIRE_REDIS") || truthy("TEST_REQUIRE_INFRA") }

// unavailable skips, or fails when the environment demands the dependency.
func unavailable(t TB, required bool, what string, err error) {
	t.Helper()
	if required {
		t.Fatalf("%s not available: %v", what, err)
	}
	t.Skipf("%s not available: %v", what, err)
}

func mustConfig(t TB) DBConfig {
	t.Helper()
	cfg, err := LoadDBConfig()
	if err != nil {
		t.Fatalf("test db config: %v", err)
	}
	return cfg
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SkipIfNoTestDB skips t unless the test database answers a ping.
func SkipIfNoTestDB(t TB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	db, err := open(ctx, mustConfig(t).DSN(""))
	if err != nil {
		unavailable(t, requireDB(), "test database", err)
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("test db close: %v", err)
	}
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set
// each call gets its own schema, dropped afterwards; otherwise the shared
// database is emptied before and after fn.
func WithAutoDB(t TB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)

	cfg := mustConfig(t)
	if cfg.Ephemeral {
		fn(ephemeralSchemaDB(t, cfg))
		return
	}

	db := sharedDB(t, cfg)
	defer func() {
		truncate(t, db)
		if err := db.Close(); err != nil {
			t.Logf("test db close: %v", err)
		}
	}()
	fn(db)
}

func sharedDB(t TB, cfg DBConfig) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := open(ctx, cfg.DSN(""))
	if err != nil {
		t.Fatalf("connect test db (is docker compose up?): %v", err)
	}
	if err := migrate.Run(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("migrate test db: %v", err)
	}
	truncate(t, db)
	return db
}

func truncate(t TB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, table := range folioTables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("empty %s: %v", table, err)
		}
	}
}

func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

// ephemeralSchemaDB creates a throwaway schema, migrates it, and registers
// its removal with t.Cleanup.
func ephemeralSchemaDB(t TB, cfg DBConfig) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	admin, err := open(ctx, cfg.DSN(""))
	if err != nil {
		t.Fatalf("connect admin db: %v", err)
	}
	schema := schemaName()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db, err := open(ctx, cfg.DSN(schema))
	if err != nil {
		_ = admin.Close()
		t.Fatalf("connect schema %s: %v", schema, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	t.Logf("using ephemeral schema %s", schema)
	t.Cleanup(func() {
		cctx, ccancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer ccancel()
		_ = db.Close()
		if _, err := admin.ExecContext(cctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})

	if err := migrate.Run(ctx, db); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return db
}

// TestTime is the clock reading shared by repository tests.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
