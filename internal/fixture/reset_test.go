package fixture_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/tasklearn/internal/db/gorm"
	"github.com/thebtf/tasklearn/internal/fixture"
	"github.com/thebtf/tasklearn/internal/fixture/fixturetest"
)

func TestReset(t *testing.T) {
	dsn := fixturetest.DSN(t)
	fixturetest.Lock(t, dsn)

	store, err := gorm.NewStore(gorm.Config{DSN: dsn, MaxConns: 2, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, fixture.NewLoader(fixture.Options{DSN: dsn}).Reset(ctx))

	// Dirty the tables, then reset again.
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DELETE FROM tasks WHERE id = 2")
	require.NoError(t, err)
	_, err = conn.Exec(ctx, "INSERT INTO users (username, password) VALUES ('extra', 'pw')")
	require.NoError(t, err)

	require.NoError(t, fixture.NewLoader(fixture.Options{DSN: dsn}).Reset(ctx))

	var users, tasks int
	require.NoError(t, conn.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&users))
	require.NoError(t, conn.QueryRow(ctx, "SELECT COUNT(*) FROM tasks").Scan(&tasks))
	assert.Equal(t, 4, users)
	assert.Equal(t, 6, tasks)

	var next int64
	require.NoError(t, conn.QueryRow(ctx, "INSERT INTO tasks (title, done) VALUES ('probe', false) RETURNING id").Scan(&next))
	assert.Equal(t, int64(7), next, "sequence resumes after the loaded ids")
}

func TestReset_BadDir(t *testing.T) {
	dsn := fixturetest.DSN(t)
	fixturetest.Lock(t, dsn)

	store, err := gorm.NewStore(gorm.Config{DSN: dsn, MaxConns: 2, LogLevel: logger.Silent})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, fixture.NewLoader(fixture.Options{DSN: dsn}).Reset(ctx))

	err = fixture.NewLoader(fixture.Options{DSN: dsn, Dir: t.TempDir()}).Reset(ctx)
	require.Error(t, err)

	// The failed reset rolled back; the dataset is intact.
	count, err := gorm.NewTaskStore(store).CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}
