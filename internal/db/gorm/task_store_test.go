package gorm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	dbiface "github.com/thebtf/tasklearn/internal/db"
	"github.com/thebtf/tasklearn/pkg/models"
)

var (
	_ dbiface.TaskStore = (*TaskStore)(nil)
	_ dbiface.UserStore = (*UserStore)(nil)
)

func TestTaskStore_GetAllTasks(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks, err := NewTaskStore(store).GetAllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 6)

	first := tasks[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Eat food", first.Title)
	assert.Equal(t, "Eat food for 15 days", first.Description)
	assert.False(t, first.Done)
	require.True(t, first.HasOwner())
	assert.Equal(t, int64(1), *first.OwnerID)
	assert.Equal(t, 2021, first.Deadline.Year())
	assert.Equal(t, time.March, first.Deadline.Month())
	assert.Equal(t, 10, first.Deadline.Day())
}

func TestTaskStore_GetTaskByID(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := NewTaskStore(store)

	task, err := tasks.GetTaskByID(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Run a marathon", task.Title)

	missing, err := tasks.GetTaskByID(ctx, 1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTaskStore_CreateUpdateDelete(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := NewTaskStore(store)

	task := models.NewTask("Write tests", "table driven", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), false)
	task.SetOwner(2)
	id, err := tasks.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, id, task.ID)

	task.Done = true
	task.OwnerID = nil
	require.NoError(t, tasks.UpdateTask(ctx, task))

	got, err := tasks.GetTaskByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Done)
	assert.False(t, got.HasOwner())

	n, err := tasks.DeleteTaskByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := tasks.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestTaskStore_CreateWithAssignedID(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	ctx := context.Background()
	tasks := NewTaskStore(store)

	assigned := models.NewTask("assigned", "", time.Time{}, false)
	assigned.ID = 70
	id, err := tasks.CreateTask(ctx, assigned)
	require.NoError(t, err)
	assert.Equal(t, int64(70), id)

	// A lower explicit id never moves the sequence back.
	lower := models.NewTask("lower", "", time.Time{}, false)
	lower.ID = 40
	_, err = tasks.CreateTask(ctx, lower)
	require.NoError(t, err)

	id, err = tasks.CreateTask(ctx, models.NewTask("generated", "", time.Time{}, false))
	require.NoError(t, err)
	assert.Equal(t, int64(71), id)
}

func TestTaskStore_UpdateMissing(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	task := models.NewTask("ghost", "", time.Time{}, false)
	task.ID = 1000
	err := NewTaskStore(store).UpdateTask(context.Background(), task)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTaskStore_CreateUnknownOwner(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	task := models.NewTask("orphan", "", time.Time{}, false)
	task.SetOwner(1000)
	_, err := NewTaskStore(store).CreateTask(context.Background(), task)
	assert.Error(t, err, "tasks.owner must reference an existing user")
}

func TestTaskStore_GetTasksByOwner(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	owned, err := NewTaskStore(store).GetTasksByOwner(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Eat food", "Run a marathon"}, models.TaskTitles(owned))
}
