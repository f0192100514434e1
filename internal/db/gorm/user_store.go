// Package gorm provides GORM-based database operations for tasklearn.
package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/thebtf/tasklearn/pkg/models"
)

// UserStore provides user-related database operations using GORM.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a new user store.
func NewUserStore(store *Store) *UserStore {
	return &UserStore{db: store.DB}
}

// preloadTasks loads a user's task collection in id order.
func preloadTasks(db *gorm.DB) *gorm.DB {
	return db.Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("tasks.id ASC")
	})
}

// GetAllUsers returns every user ordered by id, each with its tasks loaded.
func (s *UserStore) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	var rows []User
	if err := preloadTasks(s.db.WithContext(ctx)).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get all users: %w", err)
	}
	return toModelUsers(rows), nil
}

// GetUserByID returns the user with its tasks, or nil if there is none.
func (s *UserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var row User
	err := preloadTasks(s.db.WithContext(ctx)).Where("id = ?", id).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return toModelUser(&row), nil
}

// GetUserByUsername returns the user with its tasks, or nil if there is none.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var row User
	err := preloadTasks(s.db.WithContext(ctx)).Where("username = ?", username).Take(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return toModelUser(&row), nil
}

// GetUsernames returns every username ordered by id.
func (s *UserStore) GetUsernames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&User{}).
		Order("id ASC").
		Pluck("username", &names).Error
	if err != nil {
		return nil, fmt.Errorf("get usernames: %w", err)
	}
	return names, nil
}

// CountUsers returns the number of user rows.
func (s *UserStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

// CreateUser inserts u together with any of its tasks that have no id yet, in
// one transaction. Assigned ids are written back into u and its tasks.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := createUserWithTasks(tx, u)
		return err
	})
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// createUserWithTasks inserts u and its unsaved tasks using db as is.
// Everything is validated before the first insert. On failure u and its tasks
// keep the ids and owners they had. It returns the tasks it inserted.
func createUserWithTasks(db *gorm.DB, u *models.User) (created []*models.Task, err error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	var pending []*models.Task
	for _, t := range u.Tasks {
		if t.ID != 0 {
			continue
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("task %q of user %q: %w", t.Title, u.Username, err)
		}
		pending = append(pending, t)
	}

	origID := u.ID
	origOwners := make([]*int64, len(pending))
	for i, t := range pending {
		origOwners[i] = t.OwnerID
	}
	defer func() {
		if err == nil {
			return
		}
		u.ID = origID
		for i, t := range pending {
			t.ID = 0
			t.OwnerID = origOwners[i]
		}
	}()

	row := fromModelUser(u)
	if err := db.Create(row).Error; err != nil {
		return nil, fmt.Errorf("create user %q: %w", u.Username, err)
	}
	if origID != 0 {
		if err := advanceSequence(db, "users"); err != nil {
			return nil, err
		}
	}
	u.ID = row.ID

	for _, t := range pending {
		t.SetOwner(u.ID)
		taskRow := fromModelTask(t)
		if err := db.Create(taskRow).Error; err != nil {
			return nil, fmt.Errorf("create task %q of user %q: %w", t.Title, u.Username, err)
		}
		t.ID = taskRow.ID
		created = append(created, t)
	}
	return created, nil
}

// UpdateUser writes every column of u. Its task collection is not touched.
func (s *UserStore) UpdateUser(ctx context.Context, u *models.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	return s.updateColumns(ctx, u.ID, userColumns(u))
}

func (s *UserStore) updateColumns(ctx context.Context, id int64, cols map[string]any) error {
	result := s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", id).
		Updates(cols)
	if result.Error != nil {
		return fmt.Errorf("update user %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update user %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteUser removes a user and every task it owns in one transaction.
// Returns the number of user rows removed (0 or 1).
func (s *UserStore) DeleteUser(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := deleteUserCascade(tx, id)
		removed = n
		return err
	})
	return removed, err
}

// deleteUserCascade deletes the user's tasks, then the user, using db as is.
// The schema has no ON DELETE CASCADE, so the order matters.
func deleteUserCascade(db *gorm.DB, id int64) (int64, error) {
	if err := db.Where("owner = ?", id).Delete(&Task{}).Error; err != nil {
		return 0, fmt.Errorf("delete tasks of user %d: %w", id, err)
	}
	result := db.Where("id = ?", id).Delete(&User{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete user %d: %w", id, result.Error)
	}
	return result.RowsAffected, nil
}
