package gorm

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/thebtf/tasklearn/pkg/models"
)

// entityKey identifies a persistent object within a session.
type entityKey struct {
	name string
	id   int64
}

func keyOf(e models.Entity) entityKey {
	return entityKey{name: e.EntityName(), id: e.EntityID()}
}

func (k entityKey) String() string {
	return fmt.Sprintf("%s#%d", k.name, k.id)
}

// entry is a tracked object and the state it had when it was last synchronised
// with the database. A nil snapshot forces a full write at the next flush.
type entry struct {
	entity   models.Entity
	snapshot models.Entity
}

// identityMap guarantees at most one in-memory instance per row within a session.
type identityMap struct {
	entries map[entityKey]*entry
}

func newIdentityMap() *identityMap {
	return &identityMap{entries: make(map[entityKey]*entry)}
}

func (m *identityMap) get(k entityKey) (*entry, bool) {
	e, ok := m.entries[k]
	return e, ok
}

// track registers e as clean.
func (m *identityMap) track(e models.Entity) {
	m.entries[keyOf(e)] = &entry{entity: e, snapshot: snapshotOf(e)}
}

// trackDirty registers e with no known database state.
func (m *identityMap) trackDirty(e models.Entity) {
	m.entries[keyOf(e)] = &entry{entity: e}
}

// contains reports whether this exact instance is tracked.
func (m *identityMap) contains(e models.Entity) bool {
	en, ok := m.entries[keyOf(e)]
	return ok && en.entity == e
}

// evict stops tracking e. Evicting an instance that is not the tracked one is a no-op.
func (m *identityMap) evict(e models.Entity) bool {
	k := keyOf(e)
	en, ok := m.entries[k]
	if !ok || en.entity != e {
		return false
	}
	delete(m.entries, k)
	return true
}

func (m *identityMap) evictKey(k entityKey) {
	delete(m.entries, k)
}

func (m *identityMap) len() int {
	return len(m.entries)
}

func (m *identityMap) clear() {
	clear(m.entries)
}

// keys returns tracked keys ordered by entity name then id, so flushes issue
// statements in a stable order.
func (m *identityMap) keys() []entityKey {
	keys := make([]entityKey, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b entityKey) int {
		if c := cmp.Compare(a.name, b.name); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	return keys
}

// snapshotOf copies the column state of e. A user's task collection is not
// part of its snapshot; each task is tracked on its own.
func snapshotOf(e models.Entity) models.Entity {
	switch v := e.(type) {
	case *models.Task:
		return v.Clone()
	case *models.User:
		return &models.User{
			ID:       v.ID,
			Username: v.Username,
			Password: v.Password,
			Email:    v.Email,
		}
	default:
		return nil
	}
}

// changedColumns returns the columns of current that differ from snapshot.
// With a nil snapshot every column is returned.
func changedColumns(snapshot, current models.Entity) (map[string]any, error) {
	switch cur := current.(type) {
	case *models.Task:
		if snapshot == nil {
			return taskColumns(cur), nil
		}
		old, ok := snapshot.(*models.Task)
		if !ok {
			return nil, fmt.Errorf("%w: snapshot %T for task", ErrUnsupportedEntity, snapshot)
		}
		return diffTask(old, cur), nil
	case *models.User:
		if snapshot == nil {
			return userColumns(cur), nil
		}
		old, ok := snapshot.(*models.User)
		if !ok {
			return nil, fmt.Errorf("%w: snapshot %T for user", ErrUnsupportedEntity, snapshot)
		}
		return diffUser(old, cur), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedEntity, current)
	}
}

func diffTask(old, cur *models.Task) map[string]any {
	all := taskColumns(cur)
	changed := make(map[string]any)
	if old.Title != cur.Title {
		changed["title"] = all["title"]
	}
	if old.Description != cur.Description {
		changed["description"] = all["description"]
	}
	if !old.Deadline.Equal(cur.Deadline) {
		changed["deadline"] = all["deadline"]
	}
	if old.Done != cur.Done {
		changed["done"] = all["done"]
	}
	if !sameOwner(old.OwnerID, cur.OwnerID) {
		changed["owner"] = all["owner"]
	}
	return changed
}

func diffUser(old, cur *models.User) map[string]any {
	all := userColumns(cur)
	changed := make(map[string]any)
	if old.Username != cur.Username {
		changed["username"] = all["username"]
	}
	if old.Password != cur.Password {
		changed["password"] = all["password"]
	}
	if old.Email != cur.Email {
		changed["email"] = all["email"]
	}
	return changed
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
