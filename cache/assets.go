package cache

import (
	"go.uber.org/zap"

	"github.com/wippyai/assetcache/resource"
)

// box holds a resource so GetMut can return a pointer to the owned value.
type box[T any] struct {
	v T
}

type boxed interface {
	unbox() any
}

func (b *box[T]) unbox() any { return b.v }

// Drop forwards to the boxed value when it implements resource.Dropper,
// through either a value or a pointer receiver.
func (b *box[T]) Drop() {
	if d, ok := any(b.v).(resource.Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(&b.v).(resource.Dropper); ok {
		d.Drop()
	}
}

// TypeTagOf returns the routing tag for T.
func TypeTagOf[T any]() resource.TypeTag {
	return resource.TagOf[T]()
}

// Add stores v and returns the handle that keeps it alive.
// It returns nil after Close.
func Add[T any](e *Engine, v T) *resource.Handle {
	return AddWithLabel(e, v, "")
}

// AddWithLabel is Add plus a label, usually the asset path v was decoded
// from. An existing label is repointed; use KeyByLabel first for
// load-or-reuse.
func AddWithLabel[T any](e *Engine, v T, label string) *resource.Handle {
	tag := resource.TagOf[T]()
	s := e.store(tag, true)
	if s == nil {
		e.logger.Error("add after close", zap.Stringer("type", tag), zap.String("label", label))
		return nil
	}

	var id resource.ID
	if label == "" {
		id = s.Add(&box[T]{v: v})
	} else {
		id = s.AddWithLabel(&box[T]{v: v}, label)
	}
	return resource.AdoptHandle(id, tag, s.Sender())
}

func lookup[T any](e *Engine, id resource.ID) (*box[T], bool) {
	s := e.store(resource.TagOf[T](), false)
	if s == nil {
		return nil, false
	}
	v, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	b, ok := v.(*box[T])
	return b, ok
}

// Get returns a copy of the resource with the given id.
// It reports false for unknown or freed ids.
func Get[T any](e *Engine, id resource.ID) (T, bool) {
	b, ok := lookup[T](e, id)
	if !ok {
		var zero T
		return zero, false
	}
	return b.v, true
}

// GetMut returns a pointer to the stored resource. The pointer is valid
// until the resource is freed.
func GetMut[T any](e *Engine, id resource.ID) (*T, bool) {
	b, ok := lookup[T](e, id)
	if !ok {
		return nil, false
	}
	return &b.v, true
}

// GetByLabel returns the resource a label points to.
func GetByLabel[T any](e *Engine, label string) (T, bool) {
	var zero T
	s := e.store(resource.TagOf[T](), false)
	if s == nil {
		return zero, false
	}
	id, ok := s.LabelID(label)
	if !ok {
		return zero, false
	}
	return Get[T](e, id)
}

// KeyByLabel returns a new handle for the resource a label points to.
func KeyByLabel[T any](e *Engine, label string) (*resource.Handle, bool) {
	s := e.store(resource.TagOf[T](), false)
	if s == nil {
		return nil, false
	}
	id, ok := s.LabelID(label)
	if !ok {
		return nil, false
	}
	return newKey(e, s, id)
}

// KeyByID returns a new handle for a live resource.
func KeyByID[T any](e *Engine, id resource.ID) (*resource.Handle, bool) {
	s := e.store(resource.TagOf[T](), false)
	if s == nil {
		return nil, false
	}
	if _, ok := s.Get(id); !ok {
		return nil, false
	}
	return newKey(e, s, id)
}

func newKey(e *Engine, s *resource.Store, id resource.ID) (*resource.Handle, bool) {
	h, err := resource.NewHandle(id, s.Tag(), s.Sender())
	if err != nil {
		e.logger.Error("create handle", zap.Stringer("type", s.Tag()), zap.Uint64("id", uint64(id)), zap.Error(err))
		return nil, false
	}
	return h, true
}

// Count returns the number of live resources of type T.
func Count[T any](e *Engine) int {
	s := e.store(resource.TagOf[T](), false)
	if s == nil {
		return 0
	}
	return s.Len()
}
