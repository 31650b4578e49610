package resource

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/mailbox"
)

// Store owns all resources of one type together with their reference
// counts, label index and change mailbox.
type Store struct {
	entries   map[ID]*entry
	labels    map[string]ID
	tx        *mailbox.Sender[Change]
	rx        *mailbox.Receiver[Change]
	observers []Observer
	tag       TypeTag
	nextID    ID
	closed    bool
}

type entry struct {
	value any
	label string
	refs  int64
}

// NewStore creates an empty store for resources of type tag.
func NewStore(tag TypeTag) *Store {
	tx, rx := mailbox.New[Change]()
	return &Store{
		entries: make(map[ID]*entry),
		labels:  make(map[string]ID),
		tx:      tx,
		rx:      rx,
		tag:     tag,
		nextID:  1,
	}
}

// Tag returns the type of resources held by the store.
func (s *Store) Tag() TypeTag {
	return s.tag
}

// Sender returns the store's mailbox sender. Handles clone it; the store
// keeps the original open until Close.
func (s *Store) Sender() *mailbox.Sender[Change] {
	return s.tx
}

// Add inserts value with a reference count of 1 and returns its id.
// The seeded reference belongs to the handle the caller is about to create
// with AdoptHandle. Add returns 0 after Close.
func (s *Store) Add(value any) ID {
	return s.insert(value, "")
}

// AddWithLabel is Add plus a label index entry.
//
// If label already names another resource the index is repointed to the new
// one; the previous resource keeps living but can no longer be found by label.
// Callers wanting load-or-reuse should check LabelID first.
func (s *Store) AddWithLabel(value any, label string) ID {
	return s.insert(value, label)
}

func (s *Store) insert(value any, label string) ID {
	if s.closed {
		return 0
	}

	id := s.nextID
	s.nextID++
	s.entries[id] = &entry{value: value, label: label, refs: 1}

	if label != "" {
		if prev, ok := s.labels[label]; ok {
			Logger().Warn("label reassigned",
				zap.Stringer("type", s.tag),
				zap.String("label", label),
				zap.Uint64("previous_id", uint64(prev)),
				zap.Uint64("id", uint64(id)))
			if e, ok := s.entries[prev]; ok {
				e.label = ""
			}
		}
		s.labels[label] = id
	}

	s.notify(Event{
		Type:  EventCreated,
		Tag:   s.tag,
		ID:    id,
		Label: label,
		Value: value,
	})

	return id
}

// Get retrieves a resource by id.
func (s *Store) Get(id ID) (any, bool) {
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetByLabel retrieves a resource by label.
func (s *Store) GetByLabel(label string) (any, bool) {
	id, ok := s.labels[label]
	if !ok {
		return nil, false
	}
	return s.Get(id)
}

// LabelID returns the id a label points to.
func (s *Store) LabelID(label string) (ID, bool) {
	id, ok := s.labels[label]
	return id, ok
}

// Label returns the label of a resource, if it has one.
func (s *Store) Label(id ID) (string, bool) {
	e, ok := s.entries[id]
	if !ok || e.label == "" {
		return "", false
	}
	return e.label, true
}

// RefCount returns the reference count as of the last Update, plus one for
// every Add since then.
func (s *Store) RefCount(id ID) (int64, bool) {
	e, ok := s.entries[id]
	if !ok {
		return 0, false
	}
	return e.refs, true
}

// Len returns the number of live resources.
func (s *Store) Len() int {
	return len(s.entries)
}

// IsEmpty reports whether the store holds no resources.
func (s *Store) IsEmpty() bool {
	return len(s.entries) == 0
}

// Pending returns the number of queued, unapplied changes.
func (s *Store) Pending() int {
	return s.rx.Len()
}

// Each iterates over live resources in id order.
func (s *Store) Each(fn func(ID, any) bool) {
	ids := make([]ID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if !fn(id, s.entries[id].value) {
			return
		}
	}
}

// Update drains the mailbox, applies the net change per id and frees every
// resource whose count dropped to zero or below.
//
// An empty mailbox is the normal state. A disconnected mailbox means every
// sender, including the store's own, was closed; the changes drained before
// that are still applied and the error is returned.
func (s *Store) Update() (SweepStats, error) {
	var stats SweepStats
	if s.closed {
		return stats, errors.Closed(errors.PhaseSweep, "store "+s.tag.String())
	}

	deltas := make(map[ID]int64)
	var drainErr error
	for {
		c, err := s.rx.TryRecv()
		if err != nil {
			if !errors.Is(err, mailbox.ErrEmpty) {
				drainErr = errors.Disconnected(errors.PhaseSweep, s.tag.String(), 0, err)
			}
			break
		}
		deltas[c.ID] += c.Delta()
		stats.Drained++
	}

	var dead []ID
	for id, d := range deltas {
		e, ok := s.entries[id]
		if !ok {
			Logger().Debug("change for unknown resource",
				zap.Stringer("type", s.tag),
				zap.Uint64("id", uint64(id)),
				zap.Int64("delta", d))
			continue
		}
		e.refs += d
		if e.refs <= 0 {
			dead = append(dead, id)
		}
	}

	slices.Sort(dead)
	for _, id := range dead {
		s.free(id)
	}
	stats.Freed = len(dead)

	return stats, drainErr
}

func (s *Store) free(id ID) {
	e := s.entries[id]
	delete(s.entries, id)
	if e.label != "" && s.labels[e.label] == id {
		delete(s.labels, e.label)
	}

	if d, ok := e.value.(Dropper); ok {
		d.Drop()
	}

	s.notify(Event{
		Type:  EventFreed,
		Tag:   s.tag,
		ID:    id,
		Label: e.label,
		Value: e.value,
	})
}

// Subscribe adds an observer for lifecycle events.
func (s *Store) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Store) Unsubscribe(o Observer) {
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Close frees every remaining resource regardless of its count and closes
// the mailbox. Handles dropped afterwards log a warning. It returns the
// number of resources that were still referenced.
func (s *Store) Close() int {
	if s.closed {
		return 0
	}
	s.closed = true

	ids := make([]ID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		s.free(id)
	}

	s.tx.Close()
	s.rx.Close()
	return len(ids)
}

func (s *Store) notify(e Event) {
	for _, o := range s.observers {
		o.OnResourceEvent(e)
	}
}
