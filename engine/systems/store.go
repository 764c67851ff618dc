package systems

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/kiln/engine/core"
	"github.com/spaghettifunk/kiln/engine/renderer/metadata"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

/**
 * @brief Owns the resources of one type and hands out handles to them. Not
 * safe for concurrent use; resources are created and destroyed on the main
 * thread.
 */
type Store[T any] struct {
	kind  metadata.ResourceType
	items map[uuid.UUID]T
	// creation order, used to destroy in reverse
	order []uuid.UUID
}

func NewStore[T any](kind metadata.ResourceType) *Store[T] {
	return &Store[T]{
		kind:  kind,
		items: make(map[uuid.UUID]T),
	}
}

func (s *Store[T]) Kind() metadata.ResourceType {
	return s.kind
}

// Add stores v under a new handle.
func (s *Store[T]) Add(v T) metadata.Handle {
	h := metadata.NewHandle(s.kind)
	s.items[h.ID] = v
	s.order = append(s.order, h.ID)
	return h
}

// Get resolves a handle. A handle of another type or one that was removed
// returns core.ErrInvalidHandle.
func (s *Store[T]) Get(h metadata.Handle) (T, error) {
	var zero T
	if h.Type != s.kind {
		return zero, errors.Wrapf(core.ErrInvalidHandle, "%s is not a %s", h, s.kind)
	}
	v, ok := s.items[h.ID]
	if !ok {
		return zero, errors.Wrapf(core.ErrInvalidHandle, "%s does not exist", h)
	}
	return v, nil
}

func (s *Store[T]) Has(h metadata.Handle) bool {
	_, err := s.Get(h)
	return err == nil
}

// Remove forgets the handle and returns the resource for destruction.
func (s *Store[T]) Remove(h metadata.Handle) (T, error) {
	v, err := s.Get(h)
	if err != nil {
		return v, err
	}
	delete(s.items, h.ID)
	s.order = slices.DeleteFunc(s.order, func(id uuid.UUID) bool { return id == h.ID })
	return v, nil
}

func (s *Store[T]) Len() int {
	return len(s.items)
}

// Handles returns the live handles in creation order.
func (s *Store[T]) Handles() []metadata.Handle {
	out := make([]metadata.Handle, len(s.order))
	for i, id := range s.order {
		out[i] = metadata.Handle{ID: id, Type: s.kind}
	}
	return out
}

// Snapshot returns a copy of the stored resources keyed by id.
func (s *Store[T]) Snapshot() map[uuid.UUID]T {
	return maps.Clone(s.items)
}

// Drain empties the store and returns its resources newest first, the
// order they should be destroyed in.
func (s *Store[T]) Drain() []T {
	out := make([]T, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.items[s.order[i]])
	}
	maps.DeleteFunc(s.items, func(uuid.UUID, T) bool { return true })
	s.order = nil
	return out
}
