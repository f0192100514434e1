// Package gorm provides GORM-based database operations for tasklearn.
package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/thebtf/tasklearn/pkg/models"
)

// TaskStore provides task-related database operations using GORM.
// A TaskStore built from a Store reads committed data; a Session binds one to
// its own transaction.
type TaskStore struct {
	db *gorm.DB
}

// NewTaskStore creates a new task store.
func NewTaskStore(store *Store) *TaskStore {
	return &TaskStore{db: store.DB}
}

// GetAllTasks returns every task ordered by id.
func (s *TaskStore) GetAllTasks(ctx context.Context) ([]*models.Task, error) {
	var rows []Task
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get all tasks: %w", err)
	}
	return toModelTasks(rows), nil
}

// GetTaskByID returns the task with the given id, or nil if there is none.
func (s *TaskStore) GetTaskByID(ctx context.Context, id int64) (*models.Task, error) {
	var row Task
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return toModelTask(&row), nil
}

// GetTaskTitles returns the title of every task ordered by id.
func (s *TaskStore) GetTaskTitles(ctx context.Context) ([]string, error) {
	var titles []string
	err := s.db.WithContext(ctx).
		Model(&Task{}).
		Order("id ASC").
		Pluck("title", &titles).Error
	if err != nil {
		return nil, fmt.Errorf("get task titles: %w", err)
	}
	return titles, nil
}

// GetTasksByOwner returns the tasks owned by a user ordered by id.
func (s *TaskStore) GetTasksByOwner(ctx context.Context, ownerID int64) ([]*models.Task, error) {
	var rows []Task
	err := s.db.WithContext(ctx).
		Where("owner = ?", ownerID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get tasks of user %d: %w", ownerID, err)
	}
	return toModelTasks(rows), nil
}

// CountTasks returns the number of task rows.
func (s *TaskStore) CountTasks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Task{}).Count(&count).Error
	return count, err
}

// CreateTask inserts t and writes the assigned id back into it.
// A positive t.ID is stored as given and the id sequence is moved past it.
func (s *TaskStore) CreateTask(ctx context.Context, t *models.Task) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)
	row := fromModelTask(t)
	if err := db.Create(row).Error; err != nil {
		return 0, fmt.Errorf("create task %q: %w", t.Title, err)
	}
	if t.ID != 0 {
		if err := advanceSequence(db, "tasks"); err != nil {
			return 0, err
		}
	}
	t.ID = row.ID
	return row.ID, nil
}

// UpdateTask writes every column of t. Returns gorm.ErrRecordNotFound when no
// row has t.ID.
func (s *TaskStore) UpdateTask(ctx context.Context, t *models.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.updateColumns(ctx, t.ID, taskColumns(t))
}

func (s *TaskStore) updateColumns(ctx context.Context, id int64, cols map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&Task{}).
		Where("id = ?", id).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("update task %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update task %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteTaskByID deletes the task with the given id and returns the number of rows removed.
func (s *TaskStore) DeleteTaskByID(ctx context.Context, id int64) (int64, error) {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Task{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete task %d: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}
