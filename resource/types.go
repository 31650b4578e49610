package resource

import (
	"reflect"
)

// ID identifies a resource within its Store.
// ID 0 is reserved and always invalid.
type ID uint64

// TypeTag identifies the concrete Go type of a resource.
// The zero TypeTag is invalid.
type TypeTag struct {
	t reflect.Type
}

// TagOf returns the TypeTag for T.
func TagOf[T any]() TypeTag {
	return TypeTag{t: reflect.TypeFor[T]()}
}

// Type returns the underlying reflect.Type.
func (t TypeTag) Type() reflect.Type {
	return t.t
}

// IsZero reports whether t is the zero TypeTag.
func (t TypeTag) IsZero() bool {
	return t.t == nil
}

func (t TypeTag) String() string {
	if t.t == nil {
		return "<nil>"
	}
	return t.t.String()
}

// Op is a reference count change.
type Op uint8

const (
	Increment Op = iota + 1
	Decrement
)

func (o Op) String() string {
	switch o {
	case Increment:
		return "increment"
	case Decrement:
		return "decrement"
	default:
		return "unknown"
	}
}

// Change is a mailbox message produced by handle construction and drop.
type Change struct {
	ID ID
	Op Op
}

// Delta returns the signed reference count change.
func (c Change) Delta() int64 {
	switch c.Op {
	case Increment:
		return 1
	case Decrement:
		return -1
	default:
		return 0
	}
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventFreed
	EventStoreCreated
	EventStoreRemoved
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventFreed:
		return "freed"
	case EventStoreCreated:
		return "store_created"
	case EventStoreRemoved:
		return "store_removed"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event.
// Store events carry only Type and Tag.
type Event struct {
	Value any
	Tag   TypeTag
	Label string
	ID    ID
	Type  EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Dropper is optionally implemented by resource values that need cleanup.
// Drop is called once, on the owning goroutine, when the resource is freed.
type Dropper interface {
	Drop()
}

// SweepStats summarizes one Store.Update call.
type SweepStats struct {
	Drained int // mailbox messages consumed
	Freed   int // resources released
}
