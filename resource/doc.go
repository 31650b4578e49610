// Package resource provides reference-counted resource stores and handles.
//
// A Store owns every resource of one Go type. Handles reference a resource
// by id and keep it alive. Handles never touch the Store directly: cloning a
// Handle queues an increment, dropping it queues a decrement, both through
// the Store's mailbox. The owner applies queued changes once per frame with
// Store.Update.
//
// # Resource Lifecycle
//
//	store := resource.NewStore(resource.TagOf[*Sprite]())
//	defer store.Close()
//
//	// Add seeds a reference count of 1 for the handle the caller keeps
//	id := store.Add(sprite)
//	h := resource.AdoptHandle(id, store.Tag(), store.Sender())
//
//	// Clone and Drop may run on any goroutine
//	h2 := h.Clone()
//	h2.Drop()
//	h.Drop()
//
//	// Nets +1 -1 -1 against the seeded 1 and frees the sprite
//	stats, err := store.Update()
//
// # Sweep Semantics
//
// Update drains the mailbox without blocking and sums the changes per id
// before applying any of them. Ten clones and ten drops queued in one frame
// net to zero and never free the resource. Only after every delta is applied
// are the ids whose count reached zero or below freed, together with their
// label. Resources implementing Dropper have Drop called when freed.
//
// # Labels
//
// A label is a human readable key, usually a file path, that maps to one id.
// Labels enable load-or-reuse: look the label up before decoding a file.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	type freedLogger struct{}
//
//	func (freedLogger) OnResourceEvent(e resource.Event) {
//	    if e.Type == resource.EventFreed {
//	        log.Printf("freed %s#%d", e.Tag, e.ID)
//	    }
//	}
//
//	store.Subscribe(freedLogger{})
//
// # Thread Safety
//
// Handle is safe for concurrent use. Store is NOT: Add, Update and Close
// must run on the goroutine that owns the store.
package resource
