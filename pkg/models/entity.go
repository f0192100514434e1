// Package models contains domain models for tasklearn.
package models

import "errors"

// ErrInvalidEntity is returned by Validate when an entity is missing required fields.
var ErrInvalidEntity = errors.New("invalid entity")

// Entity names, also used as identity-map namespaces.
const (
	EntityTask = "task"
	EntityUser = "user"
)

// Entity is implemented by every persistent domain type.
// An EntityID of 0 means the identifier has not been assigned yet.
type Entity interface {
	EntityName() string
	EntityID() int64
}
