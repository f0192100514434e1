// Package db defines database interfaces for the tasklearn stores.
package db

import (
	"context"

	"github.com/thebtf/tasklearn/pkg/models"
)

// TaskReader defines read operations for tasks.
type TaskReader interface {
	GetAllTasks(ctx context.Context) ([]*models.Task, error)
	GetTaskByID(ctx context.Context, id int64) (*models.Task, error)
	GetTaskTitles(ctx context.Context) ([]string, error)
	GetTasksByOwner(ctx context.Context, ownerID int64) ([]*models.Task, error)
	CountTasks(ctx context.Context) (int64, error)
}

// TaskWriter defines write operations for tasks.
type TaskWriter interface {
	CreateTask(ctx context.Context, t *models.Task) (int64, error)
	UpdateTask(ctx context.Context, t *models.Task) error
	DeleteTaskByID(ctx context.Context, id int64) (int64, error)
}

// TaskStore combines read and write operations for tasks.
type TaskStore interface {
	TaskReader
	TaskWriter
}

// UserReader defines read operations for users.
type UserReader interface {
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsernames(ctx context.Context) ([]string, error)
	CountUsers(ctx context.Context) (int64, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int64) (int64, error)
}

// UserStore combines read and write operations for users.
type UserStore interface {
	UserReader
	UserWriter
}
