package gorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/thebtf/tasklearn/pkg/models"
)

var (
	// ErrSessionClosed is returned by any operation on a committed, rolled back or closed session.
	ErrSessionClosed = errors.New("session is closed")

	// ErrNonUniqueObject is returned when a second instance of an already tracked row
	// is attached to the session.
	ErrNonUniqueObject = errors.New("a different object with the same identifier is already associated with the session")

	// ErrUnsupportedEntity is returned for entity types the session cannot map.
	ErrUnsupportedEntity = errors.New("unsupported entity type")

	// ErrTransientEntity is returned when an operation needs an identifier the entity does not have yet.
	ErrTransientEntity = errors.New("entity has no identifier")
)

// Session is a unit of work over a single database transaction.
//
// Objects loaded or persisted through a session are tracked in an identity map:
// loading the same row twice yields the same pointer, and changes made to
// tracked objects are written at the next flush. Queries flush first, so they
// see the session's own changes; other connections only see them after Commit.
//
// A Session is not safe for concurrent use.
type Session struct {
	ctx      context.Context
	tx       *gorm.DB
	tasks    *TaskStore
	users    *UserStore
	identity *identityMap
	finished bool
}

// OpenSession begins a transaction and returns a session bound to it.
// The caller must Commit, Rollback or Close the session.
func (s *Store) OpenSession(ctx context.Context) (*Session, error) {
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin session: %w", tx.Error)
	}
	return &Session{
		ctx:      ctx,
		tx:       tx,
		tasks:    &TaskStore{db: tx},
		users:    &UserStore{db: tx},
		identity: newIdentityMap(),
	}, nil
}

func (s *Session) checkOpen() error {
	if s.finished {
		return ErrSessionClosed
	}
	return nil
}

// Active reports whether the session can still be used.
func (s *Session) Active() bool {
	return !s.finished
}

// Persist inserts a new object and starts tracking it. For a user, tasks in its
// collection that have no id yet are inserted too and assigned to the user.
// A caller-assigned id is stored as given and the id sequence is moved past it.
// Persisting an instance the session already tracks is a no-op.
func (s *Session) Persist(e models.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if e.EntityID() != 0 {
		if en, ok := s.identity.get(keyOf(e)); ok {
			if en.entity == e {
				return nil
			}
			return fmt.Errorf("persist %s: %w", keyOf(e), ErrNonUniqueObject)
		}
	}

	switch v := e.(type) {
	case *models.Task:
		if _, err := s.tasks.CreateTask(s.ctx, v); err != nil {
			return err
		}
		s.identity.track(v)
	case *models.User:
		created, err := createUserWithTasks(s.tx.WithContext(s.ctx), v)
		if err != nil {
			return err
		}
		s.identity.track(v)
		for _, t := range created {
			s.identity.track(t)
		}
	default:
		return fmt.Errorf("persist %T: %w", e, ErrUnsupportedEntity)
	}

	log.Debug().Str("entity", keyOf(e).String()).Msg("Persisted")
	return nil
}

// Remove deletes the object's row, whether or not the session tracks it.
// Removing a user also removes every task it owns.
func (s *Session) Remove(e models.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if e.EntityID() == 0 {
		return fmt.Errorf("remove %s: %w", e.EntityName(), ErrTransientEntity)
	}

	switch v := e.(type) {
	case *models.Task:
		n, err := s.tasks.DeleteTaskByID(s.ctx, v.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("remove task %d: %w", v.ID, gorm.ErrRecordNotFound)
		}
	case *models.User:
		n, err := deleteUserCascade(s.tx.WithContext(s.ctx), v.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("remove user %d: %w", v.ID, gorm.ErrRecordNotFound)
		}
		s.evictTasksOwnedBy(v.ID)
		for _, t := range v.Tasks {
			s.identity.evictKey(keyOf(t))
		}
	default:
		return fmt.Errorf("remove %T: %w", e, ErrUnsupportedEntity)
	}

	s.identity.evictKey(keyOf(e))
	return nil
}

func (s *Session) evictTasksOwnedBy(userID int64) {
	for _, k := range s.identity.keys() {
		if k.name != models.EntityTask {
			continue
		}
		en, _ := s.identity.get(k)
		if t, ok := en.entity.(*models.Task); ok && t.OwnerID != nil && *t.OwnerID == userID {
			s.identity.evictKey(k)
		}
	}
}

// Evict detaches the object from the session. Later changes to it are not
// written unless it is re-attached with Update. Evicting an untracked object
// is a no-op.
func (s *Session) Evict(e models.Entity) {
	if s.identity.evict(e) {
		log.Debug().Str("entity", keyOf(e).String()).Msg("Evicted")
	}
}

// Detach is an alias for Evict.
func (s *Session) Detach(e models.Entity) {
	s.Evict(e)
}

// Clear detaches every tracked object.
func (s *Session) Clear() {
	s.identity.clear()
}

// Update re-attaches a detached object. Its full state is written at the next flush.
func (s *Session) Update(e models.Entity) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if e.EntityID() == 0 {
		return fmt.Errorf("update %s: %w", e.EntityName(), ErrTransientEntity)
	}
	switch e.(type) {
	case *models.Task, *models.User:
	default:
		return fmt.Errorf("update %T: %w", e, ErrUnsupportedEntity)
	}

	if en, ok := s.identity.get(keyOf(e)); ok {
		if en.entity == e {
			return nil
		}
		return fmt.Errorf("update %s: %w", keyOf(e), ErrNonUniqueObject)
	}
	s.identity.trackDirty(e)
	return nil
}

// Contains reports whether this exact instance is tracked by the session.
func (s *Session) Contains(e models.Entity) bool {
	return s.identity.contains(e)
}

// Tracked returns the number of objects in the identity map.
func (s *Session) Tracked() int {
	return s.identity.len()
}

// Flush writes pending changes of tracked objects to the transaction.
// New tasks added to a tracked user's collection are inserted first, then
// changed columns of every tracked object are updated.
func (s *Session) Flush() error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	for _, k := range s.identity.keys() {
		en, _ := s.identity.get(k)
		u, ok := en.entity.(*models.User)
		if !ok {
			continue
		}
		for _, t := range u.Tasks {
			if t.ID != 0 {
				continue
			}
			t.SetOwner(u.ID)
			if _, err := s.tasks.CreateTask(s.ctx, t); err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			s.identity.track(t)
		}
	}

	for _, k := range s.identity.keys() {
		en, _ := s.identity.get(k)
		cols, err := changedColumns(en.snapshot, en.entity)
		if err != nil {
			return fmt.Errorf("flush %s: %w", k, err)
		}
		if len(cols) == 0 {
			continue
		}
		switch k.name {
		case models.EntityTask:
			err = s.tasks.updateColumns(s.ctx, k.id, cols)
		case models.EntityUser:
			err = s.users.updateColumns(s.ctx, k.id, cols)
		}
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}
		en.snapshot = snapshotOf(en.entity)
		log.Debug().Str("entity", k.String()).Int("columns", len(cols)).Msg("Flushed")
	}
	return nil
}

// Commit flushes pending changes and commits the transaction. If the flush
// fails the transaction is rolled back. The session is finished either way.
func (s *Session) Commit() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.Flush(); err != nil {
		_ = s.Rollback()
		return err
	}
	s.finished = true
	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

// Rollback discards everything done in the session.
func (s *Session) Rollback() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.finished = true
	s.identity.clear()
	if err := s.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback session: %w", err)
	}
	return nil
}

// Close rolls back the session if it is still active. It is safe to call more than once.
func (s *Session) Close() error {
	if s.finished {
		return nil
	}
	return s.Rollback()
}

// Tasks returns every task ordered by id, as seen by this session.
func (s *Session) Tasks() ([]*models.Task, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.GetAllTasks(s.ctx)
	if err != nil {
		return nil, err
	}
	for i, t := range tasks {
		tasks[i] = s.mergeTask(t)
	}
	return tasks, nil
}

// TaskByID returns the task with the given id, or nil if there is none.
func (s *Session) TaskByID(id int64) (*models.Task, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	t, err := s.tasks.GetTaskByID(s.ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	return s.mergeTask(t), nil
}

// TaskTitles returns the title of every task ordered by id, as seen by this session.
func (s *Session) TaskTitles() ([]string, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s.tasks.GetTaskTitles(s.ctx)
}

// DeleteTaskByID deletes a task with a single statement, without loading it.
// A tracked instance of that task is evicted. Returns the number of rows removed.
func (s *Session) DeleteTaskByID(id int64) (int64, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}
	n, err := s.tasks.DeleteTaskByID(s.ctx, id)
	if err != nil {
		return 0, err
	}
	s.identity.evictKey(entityKey{name: models.EntityTask, id: id})
	return n, nil
}

// Users returns every user ordered by id with its tasks, as seen by this session.
func (s *Session) Users() ([]*models.User, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	users, err := s.users.GetAllUsers(s.ctx)
	if err != nil {
		return nil, err
	}
	for i, u := range users {
		users[i] = s.mergeUser(u)
	}
	return users, nil
}

// UserByID returns the user with the given id and its tasks, or nil if there is none.
func (s *Session) UserByID(id int64) (*models.User, error) {
	if err := s.Flush(); err != nil {
		return nil, err
	}
	u, err := s.users.GetUserByID(s.ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return s.mergeUser(u), nil
}

// mergeTask returns the tracked instance for t's row, tracking t if there is none.
func (s *Session) mergeTask(t *models.Task) *models.Task {
	if en, ok := s.identity.get(keyOf(t)); ok {
		if tracked, ok := en.entity.(*models.Task); ok {
			return tracked
		}
	}
	s.identity.track(t)
	return t
}

// mergeUser is mergeTask for users; the loaded task collection is merged as well.
func (s *Session) mergeUser(u *models.User) *models.User {
	if en, ok := s.identity.get(keyOf(u)); ok {
		if tracked, ok := en.entity.(*models.User); ok {
			return tracked
		}
	}
	for i, t := range u.Tasks {
		u.Tasks[i] = s.mergeTask(t)
	}
	s.identity.track(u)
	return u
}
