package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/assetcache/cache"
	"github.com/wippyai/assetcache/metrics"
	"github.com/wippyai/assetcache/resource"
	"github.com/wippyai/assetcache/wasmasset"
)

// held is one handle owned by the viewer.
type held struct {
	handle *resource.Handle
	path   string
	kind   string
}

// session owns the engine, the wasm compiler and every handle the user
// loaded or cloned.
type session struct {
	engine    *cache.Engine
	compiler  *wasmasset.Compiler
	collector *metrics.Collector
	logger    *zap.Logger
	held      []held
	calls     int
}

func newSession(ctx context.Context, e *cache.Engine, col *metrics.Collector, logger *zap.Logger) *session {
	return &session{
		engine:    e,
		compiler:  wasmasset.NewCompiler(ctx),
		collector: col,
		logger:    logger,
	}
}

// load caches path as a compiled module when it ends in .wasm and as raw
// bytes otherwise, and keeps the returned handle.
func (s *session) load(ctx context.Context, path string) (held, error) {
	var (
		h    *resource.Handle
		kind string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".wasm") {
		kind = "wasm"
		h, err = s.compiler.Load(ctx, s.engine, path)
	} else {
		kind = "bytes"
		h, err = cache.LoadBytes(s.engine, path)
	}
	if err != nil {
		return held{}, err
	}

	entry := held{handle: h, path: path, kind: kind}
	s.held = append(s.held, entry)
	s.logger.Info("asset loaded", zap.String("path", path), zap.String("kind", kind), zap.Stringer("handle", h))
	return entry, nil
}

// clone duplicates the i-th handle.
func (s *session) clone(i int) error {
	if i < 0 || i >= len(s.held) {
		return fmt.Errorf("no handle at %d", i)
	}
	src := s.held[i]
	s.held = append(s.held, held{handle: src.handle.Clone(), path: src.path, kind: src.kind})
	return nil
}

// drop releases the i-th handle. The resource goes away on the next frame
// if that was its last handle.
func (s *session) drop(i int) error {
	if i < 0 || i >= len(s.held) {
		return fmt.Errorf("no handle at %d", i)
	}
	s.held[i].handle.Drop()
	s.held = append(s.held[:i], s.held[i+1:]...)
	return nil
}

// dropAll releases every held handle.
func (s *session) dropAll() {
	for _, h := range s.held {
		h.handle.Drop()
	}
	s.held = nil
}

// frame runs one sweep and records it.
func (s *session) frame() (resource.SweepStats, error) {
	start := time.Now()
	err := s.engine.Update()
	stats := s.engine.LastSweep()
	if s.collector != nil {
		s.collector.ObserveSweep(stats, time.Since(start))
	}
	return stats, err
}

// call runs the named export of the i-th handle's module and
// returns its results.
func (s *session) call(ctx context.Context, i int, export string) ([]uint64, error) {
	if i < 0 || i >= len(s.held) {
		return nil, fmt.Errorf("no handle at %d", i)
	}
	h := s.held[i]
	if h.kind != "wasm" {
		return nil, fmt.Errorf("%s is not a wasm module", h.path)
	}
	mod, ok := cache.Get[*wasmasset.Module](s.engine, h.handle.ID())
	if !ok {
		return nil, fmt.Errorf("module %s is no longer cached", h.path)
	}

	s.calls++
	inst, err := s.compiler.Instantiate(ctx, mod, fmt.Sprintf("%s#%d", h.path, s.calls))
	if err != nil {
		return nil, err
	}
	defer inst.Close(ctx)

	fn := inst.ExportedFunction(export)
	if fn == nil {
		return nil, fmt.Errorf("%s has no export %q", h.path, export)
	}
	return fn.Call(ctx)
}

// close drops every handle, shuts the engine down and closes the compiler.
func (s *session) close(ctx context.Context) error {
	s.dropAll()
	err := s.engine.Close()
	if cerr := s.compiler.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
