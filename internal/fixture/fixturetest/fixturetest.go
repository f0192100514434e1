// Package fixturetest holds helpers for tests that run against a real PostgreSQL.
package fixturetest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/tasklearn/internal/fixture"
)

// DSNEnv names the variable holding the test database DSN.
const DSNEnv = "DATABASE_DSN"

// lockKey is the advisory lock shared by every package's database tests, so
// `go test ./...` can run packages in parallel against one database.
const lockKey int64 = 0x7461736b

// DSN returns the test database DSN or skips the test.
func DSN(t testing.TB) string {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set, skipping integration test")
	}
	return dsn
}

// Lock holds a session-level advisory lock until the test ends.
func Lock(t testing.TB, dsn string) {
	t.Helper()
	ctx := context.Background()

	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err, "connect for advisory lock")

	_, err = conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockKey)
	require.NoError(t, err, "take advisory lock")

	t.Cleanup(func() {
		_, _ = conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockKey)
		_ = conn.Close(ctx)
	})
}

// Reset reloads the embedded sample dataset. The schema must already exist.
func Reset(t testing.TB, dsn string) {
	t.Helper()
	require.NoError(t, fixture.NewLoader(fixture.Options{DSN: dsn}).Reset(context.Background()), "reset fixture")
}
