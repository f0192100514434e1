// Package gorm provides GORM-based database operations for tasklearn.
package gorm

import (
	"database/sql"
	"time"

	"github.com/thebtf/tasklearn/pkg/models"
)

// GORM Models
//
// Row types mirror the tables one to one. Callers work with pkg/models and the
// stores convert at the boundary.

// User is a row of the users table.
// Deleting a user through UserStore or a Session removes its tasks first; the
// foreign key itself has no ON DELETE action.
type User struct {
	Username string         `gorm:"type:text;uniqueIndex;not null"`
	Password string         `gorm:"type:text;not null"`
	Email    sql.NullString `gorm:"type:text"`
	Tasks    []Task         `gorm:"foreignKey:OwnerID;references:ID"`
	ID       int64          `gorm:"primaryKey;autoIncrement"`
}

func (User) TableName() string { return "users" }

// Task is a row of the tasks table.
type Task struct {
	Deadline    *time.Time     `gorm:"type:timestamp"`
	OwnerID     *int64         `gorm:"column:owner"`
	Title       string         `gorm:"type:text;not null"`
	Description sql.NullString `gorm:"type:text"`
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	Done        bool           `gorm:"not null;default:false"`
}

func (Task) TableName() string { return "tasks" }

// toModelTask converts a GORM Task to pkg/models.Task.
func toModelTask(t *Task) *models.Task {
	m := &models.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description.String,
		Done:        t.Done,
	}
	if t.Deadline != nil {
		m.Deadline = *t.Deadline
	}
	if t.OwnerID != nil {
		m.SetOwner(*t.OwnerID)
	}
	return m
}

// fromModelTask converts a pkg/models.Task to a GORM Task.
func fromModelTask(t *models.Task) *Task {
	row := &Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: sqlNullString(t.Description),
		Deadline:    nullableTime(t.Deadline),
		Done:        t.Done,
	}
	if t.OwnerID != nil {
		owner := *t.OwnerID
		row.OwnerID = &owner
	}
	return row
}

// toModelUser converts a GORM User (with whatever tasks were preloaded) to pkg/models.User.
func toModelUser(u *User) *models.User {
	m := &models.User{
		ID:       u.ID,
		Username: u.Username,
		Password: u.Password,
		Email:    u.Email.String,
	}
	if len(u.Tasks) > 0 {
		m.Tasks = make([]*models.Task, 0, len(u.Tasks))
		for i := range u.Tasks {
			m.Tasks = append(m.Tasks, toModelTask(&u.Tasks[i]))
		}
	}
	return m
}

// fromModelUser converts a pkg/models.User to a GORM User. Tasks are not
// carried over; they are written separately so ownership stays explicit.
func fromModelUser(u *models.User) *User {
	return &User{
		ID:       u.ID,
		Username: u.Username,
		Password: u.Password,
		Email:    sqlNullString(u.Email),
	}
}

func toModelTasks(rows []Task) []*models.Task {
	out := make([]*models.Task, 0, len(rows))
	for i := range rows {
		out = append(out, toModelTask(&rows[i]))
	}
	return out
}

func toModelUsers(rows []User) []*models.User {
	out := make([]*models.User, 0, len(rows))
	for i := range rows {
		out = append(out, toModelUser(&rows[i]))
	}
	return out
}

// taskColumns returns every writable column of t keyed by column name.
func taskColumns(t *models.Task) map[string]any {
	row := fromModelTask(t)
	return map[string]any{
		"title":       row.Title,
		"description": row.Description,
		"deadline":    row.Deadline,
		"done":        row.Done,
		"owner":       row.OwnerID,
	}
}

// userColumns returns every writable column of u keyed by column name.
func userColumns(u *models.User) map[string]any {
	return map[string]any{
		"username": u.Username,
		"password": u.Password,
		"email":    sqlNullString(u.Email),
	}
}
