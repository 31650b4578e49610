package resource

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/assetcache/errors"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(prev) })
	return logs
}

func TestHandle_NewSendsIncrement(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()

	id := s.Add("x")
	seeded := AdoptHandle(id, s.Tag(), s.Sender())
	defer seeded.Drop()

	if s.Pending() != 0 {
		t.Fatal("AdoptHandle must not queue an increment")
	}

	h, err := NewHandle(id, s.Tag(), s.Sender())
	if err != nil {
		t.Fatalf("NewHandle failed: %v", err)
	}
	if s.Pending() != 1 {
		t.Fatalf("Expected 1 pending change, got %d", s.Pending())
	}

	mustUpdate(t, s)
	if refs, _ := s.RefCount(id); refs != 2 {
		t.Fatalf("Expected refcount 2, got %d", refs)
	}

	h.Drop()
	mustUpdate(t, s)
	if refs, _ := s.RefCount(id); refs != 1 {
		t.Fatalf("Expected refcount 1, got %d", refs)
	}
}

func TestHandle_Equality(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()
	other := NewStore(TagOf[int]())
	defer other.Close()

	id := s.Add("x")
	h := AdoptHandle(id, s.Tag(), s.Sender())
	defer h.Drop()
	c := h.Clone()
	defer c.Drop()

	if !h.Equal(c) {
		t.Fatal("Clone should equal its origin")
	}
	if h.Key() != c.Key() {
		t.Fatal("Clone should share the key of its origin")
	}

	// Same id, different type.
	oid := other.Add(1)
	o := AdoptHandle(oid, other.Tag(), other.Sender())
	defer o.Drop()
	if oid != id {
		t.Fatalf("Expected both stores to allocate id %d, got %d", id, oid)
	}
	if h.Equal(o) {
		t.Fatal("Handles of different types must not be equal")
	}

	var nilHandle *Handle
	if h.Equal(nilHandle) || !nilHandle.Equal(nil) {
		t.Fatal("nil handling in Equal is wrong")
	}

	if h.String() != "string#1" {
		t.Fatalf("String() = %q", h.String())
	}
}

func TestHandle_DropIsIdempotent(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()

	h := AdoptHandle(s.Add("x"), s.Tag(), s.Sender())
	h.Drop()
	h.Drop()
	if !h.Dropped() {
		t.Fatal("Expected Dropped() after Drop")
	}
	if s.Pending() != 1 {
		t.Fatalf("Expected exactly one decrement, got %d", s.Pending())
	}

	var nilHandle *Handle
	nilHandle.Drop()
}

func TestHandle_NewOnClosedStore(t *testing.T) {
	logs := observeLogs(t)

	s := NewStore(TagOf[string]())
	id := s.Add("x")
	tx := s.Sender()
	s.Close()

	_, err := NewHandle(id, s.Tag(), tx)
	if err == nil {
		t.Fatal("Expected NewHandle to fail on a closed store")
	}
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseHandle, Kind: errors.KindDisconnected}) {
		t.Fatalf("Unexpected error: %v", err)
	}
	if logs.FilterMessage("handle created for a closed store").Len() != 1 {
		t.Fatal("Expected the failure to be logged")
	}
}

func TestHandle_DropAfterStoreClosedIsLogged(t *testing.T) {
	logs := observeLogs(t)

	s := NewStore(TagOf[string]())
	h := AdoptHandle(s.Add("x"), s.Tag(), s.Sender())
	s.Close()

	h.Drop()

	entries := logs.FilterMessage("handle dropped after its store closed").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("Expected warn level, got %v", entries[0].Level)
	}
}

func TestHandle_CloneAfterStoreClosedIsInert(t *testing.T) {
	observeLogs(t)

	s := NewStore(TagOf[string]())
	h := AdoptHandle(s.Add("x"), s.Tag(), s.Sender())
	s.Close()

	c := h.Clone()
	if !c.Dropped() {
		t.Fatal("Clone of a handle to a closed store should be inert")
	}
	if !c.Equal(h) {
		t.Fatal("Inert clone should still identify the same resource")
	}
	c.Drop()
	h.Drop()
}

func TestHandle_CloneAfterDropIsInert(t *testing.T) {
	logs := observeLogs(t)

	s := NewStore(TagOf[string]())
	defer s.Close()

	id := s.Add("x")
	h := AdoptHandle(id, s.Tag(), s.Sender())
	h.Drop()

	c := h.Clone()
	if !c.Dropped() {
		t.Fatal("Clone of a dropped handle should be inert")
	}
	if s.Pending() != 1 {
		t.Fatalf("Expected only the drop to be queued, got %d changes", s.Pending())
	}

	mustUpdate(t, s)
	if s.Len() != 0 {
		t.Fatal("Resource must be freed once its only handle is dropped")
	}
	if logs.FilterMessage("clone of a dropped handle").Len() != 1 {
		t.Fatal("Expected a warning for cloning a dropped handle")
	}

	c.Drop()
	mustUpdate(t, s)
}

func TestHandle_UpdateReportsDisconnect(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()

	id := s.Add("x")
	h := AdoptHandle(id, s.Tag(), s.Sender())
	h.Drop()

	// Closing the store's own sender leaves no producers at all.
	s.Sender().Close()

	stats, err := s.Update()
	if err == nil {
		t.Fatal("Expected a disconnect error")
	}
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseSweep, Kind: errors.KindDisconnected}) {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Freed != 1 {
		t.Fatalf("Changes drained before the disconnect must still apply, got %+v", stats)
	}
}

func TestHandle_ConcurrentCloneDrop(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()

	id := s.Add("x")
	h := AdoptHandle(id, s.Tag(), s.Sender())
	defer h.Drop()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				h.Clone().Drop()
			}
		}()
	}
	wg.Wait()

	stats := mustUpdate(t, s)
	if stats.Drained != 8*500*2 {
		t.Fatalf("Expected %d messages, got %d", 8*500*2, stats.Drained)
	}
	if refs, _ := s.RefCount(id); refs != 1 {
		t.Fatalf("Expected refcount 1, got %d", refs)
	}
}

func TestHandle_ReleasedWhenUnreachable(t *testing.T) {
	s := NewStore(TagOf[string]())
	defer s.Close()

	id := s.Add("x")
	func() {
		AdoptHandle(id, s.Tag(), s.Sender())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.Pending() == 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	mustUpdate(t, s)
	if s.Len() != 0 {
		t.Fatal("Expected a leaked handle to be released by the garbage collector")
	}
}
