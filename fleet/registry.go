// fleet/registry.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fleet

import (
	"slices"

	"github.com/mmp/gcs/util"
)

// Entity is anything that a Registry can hold.
type Entity interface {
	EntityID() int
	EntityName() string
}

// Registry holds live entities in insertion order. At most one of them is
// active at a time.
//
// Lookups report absence through their second result; not finding an
// entity is routine (e.g., probing whether a message's aircraft is
// already known) and is not an error.
type Registry[T Entity] struct {
	entities []T
	activeID int // 0 when nothing is active
}

func (r *Registry[T]) Insert(e T) {
	r.entities = append(r.entities, e)
}

// RemoveByID removes every entity with the given id; it reports whether
// anything was removed. The backing slice is rebuilt rather than spliced
// so that callers holding the result of All keep a consistent view.
func (r *Registry[T]) RemoveByID(id int) bool {
	n := len(r.entities)
	r.entities = util.FilterSlice(r.entities, func(e T) bool { return e.EntityID() != id })
	if r.activeID == id {
		r.activeID = 0
	}
	return len(r.entities) != n
}

func (r *Registry[T]) Get(id int) (T, bool) {
	for _, e := range r.entities {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func (r *Registry[T]) GetByName(name string) (T, bool) {
	for _, e := range r.entities {
		if e.EntityName() == name {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// SetActive makes the entity with the given id the only active one. It
// returns false, leaving the current selection unchanged, if there is no
// such entity.
func (r *Registry[T]) SetActive(id int) bool {
	if _, ok := r.Get(id); !ok {
		return false
	}
	r.activeID = id
	return true
}

func (r *Registry[T]) ClearActive() {
	r.activeID = 0
}

func (r *Registry[T]) Active() (T, bool) {
	if r.activeID == 0 {
		var zero T
		return zero, false
	}
	return r.Get(r.activeID)
}

func (r *Registry[T]) IsActive(id int) bool {
	return id != 0 && r.activeID == id
}

// IDs returns the ids of all entities in insertion order.
func (r *Registry[T]) IDs() []int {
	return util.MapSlice(r.entities, func(e T) int { return e.EntityID() })
}

// All returns the entities in insertion order; the returned slice is not
// affected by later insertions or removals.
func (r *Registry[T]) All() []T {
	return slices.Clone(r.entities)
}

func (r *Registry[T]) Len() int {
	return len(r.entities)
}

// NextID returns the id that the next new entity should be given.
func (r *Registry[T]) NextID() int {
	return util.AllocateID(r.IDs())
}
