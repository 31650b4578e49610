package resource

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/mailbox"
)

// Handle keeps one resource alive. Construct it with NewHandle, AdoptHandle
// or Clone, and release it exactly once with Drop.
//
// A Handle that becomes unreachable without Drop is released by the garbage
// collector, some time later. Relying on that delays freeing by an unknown
// number of frames.
type Handle struct {
	ref     *handleRef
	cleanup runtime.Cleanup
}

// handleRef holds everything a release needs, so the GC cleanup never
// references the Handle itself.
type handleRef struct {
	sender  *mailbox.Sender[Change]
	tag     TypeTag
	id      ID
	dropped atomic.Bool
}

// HandleKey is the comparable identity of a Handle.
type HandleKey struct {
	Tag TypeTag
	ID  ID
}

// NewHandle creates a handle and queues an increment for id.
// It fails when the store behind sender has been closed.
func NewHandle(id ID, tag TypeTag, sender *mailbox.Sender[Change]) (*Handle, error) {
	tx := sender.Clone()
	if err := tx.Send(Change{ID: id, Op: Increment}); err != nil {
		tx.Close()
		Logger().Error("handle created for a closed store",
			zap.Stringer("type", tag),
			zap.Uint64("id", uint64(id)),
			zap.Error(err))
		return nil, errors.Disconnected(errors.PhaseHandle, tag.String(), uint64(id), err)
	}
	return newHandle(id, tag, tx), nil
}

// AdoptHandle wraps the reference seeded by Store.Add without queueing an
// increment. Call it exactly once per Add.
func AdoptHandle(id ID, tag TypeTag, sender *mailbox.Sender[Change]) *Handle {
	return newHandle(id, tag, sender.Clone())
}

func newHandle(id ID, tag TypeTag, tx *mailbox.Sender[Change]) *Handle {
	ref := &handleRef{sender: tx, tag: tag, id: id}
	h := &Handle{ref: ref}
	h.cleanup = runtime.AddCleanup(h, func(r *handleRef) { r.release() }, ref)
	return h
}

// Clone returns a new handle to the same resource.
// Cloning a dropped handle, or one whose store is gone, logs the failure and
// returns an inert handle that holds no reference.
func (h *Handle) Clone() *Handle {
	if h.ref.dropped.Load() {
		Logger().Warn("clone of a dropped handle",
			zap.Stringer("type", h.ref.tag),
			zap.Uint64("id", uint64(h.ref.id)))
		return h.inert()
	}
	clone, err := NewHandle(h.ref.id, h.ref.tag, h.ref.sender)
	if err != nil {
		return h.inert()
	}
	return clone
}

func (h *Handle) inert() *Handle {
	ref := &handleRef{sender: h.ref.sender, tag: h.ref.tag, id: h.ref.id}
	ref.dropped.Store(true)
	return &Handle{ref: ref}
}

// Drop releases the handle. Only the first call queues a decrement.
// Drop on a nil handle is a no-op.
func (h *Handle) Drop() {
	if h == nil || h.ref == nil {
		return
	}
	h.cleanup.Stop()
	h.ref.release()
}

func (r *handleRef) release() {
	if !r.dropped.CompareAndSwap(false, true) {
		return
	}
	err := r.sender.Send(Change{ID: r.id, Op: Decrement})
	r.sender.Close()
	if err != nil {
		// Expected during teardown: nobody is left to consume the message.
		Logger().Warn("handle dropped after its store closed",
			zap.Stringer("type", r.tag),
			zap.Uint64("id", uint64(r.id)),
			zap.Error(err))
	}
}

// ID returns the resource id.
func (h *Handle) ID() ID {
	return h.ref.id
}

// Tag returns the resource type.
func (h *Handle) Tag() TypeTag {
	return h.ref.tag
}

// Key returns the comparable (tag, id) identity, usable as a map key.
func (h *Handle) Key() HandleKey {
	return HandleKey{Tag: h.ref.tag, ID: h.ref.id}
}

// Dropped reports whether Drop has been called.
func (h *Handle) Dropped() bool {
	return h.ref.dropped.Load()
}

// Equal reports whether both handles reference the same resource.
// The mailbox a handle is bound to does not take part.
func (h *Handle) Equal(other *Handle) bool {
	if h == nil || other == nil {
		return h == other
	}
	return h.Key() == other.Key()
}

func (h *Handle) String() string {
	return fmt.Sprintf("%s#%d", h.ref.tag, h.ref.id)
}
