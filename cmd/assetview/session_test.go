package main

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/wippyai/assetcache/cache"
	"github.com/wippyai/assetcache/loader"
	"github.com/wippyai/assetcache/metrics"
)

// answerWasm exports "answer" returning i32 42.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0a, 0x01, 0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b,
}

func newTestSession(t *testing.T) *session {
	t.Helper()
	src := loader.NewMemory()
	if err := src.WriteFile("assets/answer.wasm", answerWasm); err != nil {
		t.Fatal(err)
	}
	if err := src.WriteFile("assets/readme.txt", []byte("hi")); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	col := metrics.NewCollector("view")
	e := cache.New(cache.WithSource(src), cache.WithAssetRoot("assets"), cache.WithObserver(col))
	s := newSession(ctx, e, col, zap.NewNop())
	t.Cleanup(func() { s.close(ctx) })
	return s
}

func TestSession_LoadCloneDrop(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	w, err := s.load(ctx, "answer.wasm")
	if err != nil {
		t.Fatalf("load wasm: %v", err)
	}
	if w.kind != "wasm" {
		t.Fatalf("kind = %q", w.kind)
	}
	b, err := s.load(ctx, "readme.txt")
	if err != nil {
		t.Fatalf("load bytes: %v", err)
	}
	if b.kind != "bytes" {
		t.Fatalf("kind = %q", b.kind)
	}

	if err := s.clone(0); err != nil {
		t.Fatalf("clone: %v", err)
	}
	if len(s.held) != 3 || !s.held[2].handle.Equal(w.handle) {
		t.Fatal("Expected the clone to refer to the wasm module")
	}

	if err := s.drop(0); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := s.frame(); err != nil {
		t.Fatalf("frame: %v", err)
	}
	if s.engine.TotalCount() != 2 {
		t.Fatalf("Expected module kept alive by its clone, live = %d", s.engine.TotalCount())
	}

	s.dropAll()
	stats, err := s.frame()
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if stats.Freed != 2 || s.engine.TotalCount() != 0 {
		t.Fatalf("Expected everything freed, got %+v, live %d", stats, s.engine.TotalCount())
	}

	if err := s.drop(0); err == nil {
		t.Fatal("drop with nothing held should fail")
	}
}

func TestSession_Call(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)

	if _, err := s.load(ctx, "answer.wasm"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.load(ctx, "readme.txt"); err != nil {
		t.Fatalf("load: %v", err)
	}

	for i := 0; i < 2; i++ {
		results, err := s.call(ctx, 0, "answer")
		if err != nil {
			t.Fatalf("call: %v", err)
		}
		if len(results) != 1 || uint32(results[0]) != 42 {
			t.Fatalf("Expected 42, got %v", results)
		}
	}

	if _, err := s.call(ctx, 0, "missing"); err == nil {
		t.Fatal("Expected an error for a missing export")
	}
	if _, err := s.call(ctx, 1, "answer"); err == nil {
		t.Fatal("Expected an error for a non-wasm asset")
	}
	if _, err := s.call(ctx, 5, "answer"); err == nil {
		t.Fatal("Expected an error for an out of range handle")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.FrameInterval <= 0 {
		t.Fatal("Expected a positive frame interval")
	}
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug", "", false)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatal("Expected debug level to be enabled")
	}

	if _, err := newLogger("loud", "", false); err == nil {
		t.Fatal("Expected an error for an unknown level")
	}
}
