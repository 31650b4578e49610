package wasmasset

import (
	"context"
	"testing"

	"github.com/wippyai/assetcache/cache"
	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/loader"
)

// answerWasm exports "answer" returning i32 42.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // type: () -> i32
	0x03, 0x02, 0x01, 0x00, // func 0 has type 0
	0x07, 0x0a, 0x01, 0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00, // export "answer"
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b, // i32.const 42; end
}

func newEngine(t *testing.T) *cache.Engine {
	t.Helper()
	src := loader.NewMemory()
	if err := src.WriteFile("scripts/answer.wasm", answerWasm); err != nil {
		t.Fatal(err)
	}
	if err := src.WriteFile("scripts/broken.wasm", []byte("not wasm")); err != nil {
		t.Fatal(err)
	}
	e := cache.New(cache.WithSource(src))
	t.Cleanup(func() { e.Close() })
	return e
}

func TestCompiler_CompileAndInstantiate(t *testing.T) {
	ctx := context.Background()
	c := NewCompiler(ctx)
	defer c.Close(ctx)

	m, err := c.Compile(ctx, "answer", answerWasm)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	defer m.Drop()

	exports := m.Exports()
	if len(exports) != 1 || exports[0] != "answer" {
		t.Fatalf("Exports = %v", exports)
	}

	inst, err := c.Instantiate(ctx, m, "answer-1")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	defer inst.Close(ctx)

	results, err := inst.ExportedFunction("answer").Call(ctx)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(results) != 1 || uint32(results[0]) != 42 {
		t.Fatalf("Expected 42, got %v", results)
	}
}

func TestCompiler_LoadReusesCachedModule(t *testing.T) {
	ctx := context.Background()
	c := NewCompiler(ctx)
	defer c.Close(ctx)
	e := newEngine(t)

	h1, err := c.Load(ctx, e, "scripts/answer.wasm")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	h2, err := c.Load(ctx, e, "scripts/answer.wasm")
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if !h1.Equal(h2) {
		t.Fatal("Expected the second load to reuse the cached module")
	}
	if n := cache.Count[*Module](e); n != 1 {
		t.Fatalf("Expected 1 module, got %d", n)
	}

	m, ok := cache.Get[*Module](e, h1.ID())
	if !ok {
		t.Fatal("Get failed")
	}
	if m.Name() != "scripts/answer.wasm" {
		t.Fatalf("Name = %q", m.Name())
	}

	h1.Drop()
	if err := e.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if m.Closed() {
		t.Fatal("Module must stay open while a handle is alive")
	}

	h2.Drop()
	if err := e.Update(); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !m.Closed() {
		t.Fatal("Expected the module to be closed once freed")
	}
	if _, err := c.Instantiate(ctx, m, "late"); err == nil {
		t.Fatal("Instantiate of a freed module should fail")
	}
}

func TestCompiler_LoadErrors(t *testing.T) {
	ctx := context.Background()
	c := NewCompiler(ctx)
	defer c.Close(ctx)
	e := newEngine(t)

	_, err := c.Load(ctx, e, "scripts/broken.wasm")
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseDecode, Kind: errors.KindInvalidData}) {
		t.Fatalf("Expected decode error, got %v", err)
	}

	_, err = c.Load(ctx, e, "scripts/missing.wasm")
	if !errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindIO}) {
		t.Fatalf("Expected IO error, got %v", err)
	}

	if cache.Count[*Module](e) != 0 {
		t.Fatal("Failed loads must not add resources")
	}
}
