package gorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/thebtf/tasklearn/internal/fixture/fixturetest"
)

// testStore connects to DATABASE_DSN, migrates, and reloads the sample dataset.
// The advisory lock taken here is held until the test ends.
func testStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dsn := fixturetest.DSN(t)
	fixturetest.Lock(t, dsn)

	store, err := NewStore(Config{
		DSN:      dsn,
		MaxConns: 4,
		LogLevel: logger.Silent,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	fixturetest.Reset(t, dsn)

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

// testSession opens a session on a freshly reset store.
func testSession(t *testing.T) (*Session, *Store, func()) {
	t.Helper()

	store, closeStore := testStore(t)
	sess, err := store.OpenSession(context.Background())
	require.NoError(t, err)

	cleanup := func() {
		_ = sess.Close()
		closeStore()
	}
	return sess, store, cleanup
}

// committedTitles reads task titles outside of any session.
func committedTitles(t *testing.T, store *Store) []string {
	t.Helper()
	titles, err := NewTaskStore(store).GetTaskTitles(context.Background())
	require.NoError(t, err)
	return titles
}

// committedTask reads one task outside of any session.
func committedTask(t *testing.T, store *Store, id int64) (title, description string) {
	t.Helper()
	task, err := NewTaskStore(store).GetTaskByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, task)
	return task.Title, task.Description
}
