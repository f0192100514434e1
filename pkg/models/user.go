package models

import (
	"fmt"
	"sort"
	"strings"
)

// User owns a collection of tasks. Removing a user removes its tasks.
type User struct {
	Username string  `json:"username"`
	Password string  `json:"-"`
	Email    string  `json:"email"`
	Tasks    []*Task `json:"tasks,omitempty"`
	ID       int64   `json:"id"`
}

// NewUser creates an unsaved user with no tasks.
func NewUser(username, password, email string) *User {
	return &User{
		Username: username,
		Password: password,
		Email:    email,
	}
}

func (u *User) EntityName() string { return EntityUser }
func (u *User) EntityID() int64    { return u.ID }

// AddTask appends a task to the user's collection and points its owner at u.
// The owner id is fixed up again when the user is persisted.
func (u *User) AddTask(t *Task) {
	if u.ID != 0 {
		t.SetOwner(u.ID)
	}
	u.Tasks = append(u.Tasks, t)
}

// TaskTitles returns the titles of the user's tasks sorted alphabetically.
// The collection itself has no defined order.
func (u *User) TaskTitles() []string {
	titles := TaskTitles(u.Tasks)
	sort.Strings(titles)
	return titles
}

// TaskDescriptions returns the descriptions of the user's tasks sorted alphabetically.
func (u *User) TaskDescriptions() []string {
	descs := make([]string, 0, len(u.Tasks))
	for _, t := range u.Tasks {
		descs = append(descs, t.Description)
	}
	sort.Strings(descs)
	return descs
}

// Validate checks the fields the schema requires.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidEntity)
	}
	if u.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidEntity)
	}
	if u.ID < 0 {
		return fmt.Errorf("%w: user id %d is negative", ErrInvalidEntity, u.ID)
	}
	return nil
}

// Usernames maps users to their usernames, preserving order.
func Usernames(users []*User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}
