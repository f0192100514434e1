package models

import (
	"fmt"
	"strings"
	"time"
)

// Task is a to-do item, optionally owned by a User.
type Task struct {
	Deadline    time.Time `json:"deadline"`
	OwnerID     *int64    `json:"owner,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ID          int64     `json:"id"`
	Done        bool      `json:"done"`
}

// NewTask creates an unsaved task. The identifier is left for the database to assign.
func NewTask(title, description string, deadline time.Time, done bool) *Task {
	return &Task{
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Done:        done,
	}
}

func (t *Task) EntityName() string { return EntityTask }
func (t *Task) EntityID() int64    { return t.ID }

// SetOwner assigns the task to the user with the given id.
func (t *Task) SetOwner(userID int64) {
	t.OwnerID = &userID
}

// HasOwner reports whether the task belongs to a user.
func (t *Task) HasOwner() bool {
	return t.OwnerID != nil
}

// Validate checks the fields the schema requires.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrInvalidEntity)
	}
	if t.ID < 0 {
		return fmt.Errorf("%w: task id %d is negative", ErrInvalidEntity, t.ID)
	}
	return nil
}

// Clone returns a copy that shares no pointers with t.
func (t *Task) Clone() *Task {
	c := *t
	if t.OwnerID != nil {
		owner := *t.OwnerID
		c.OwnerID = &owner
	}
	return &c
}

// TaskTitles maps tasks to their titles, preserving order.
func TaskTitles(tasks []*Task) []string {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	return titles
}
