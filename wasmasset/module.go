// Package wasmasset caches compiled WebAssembly modules as assets.
//
// Compiling a module is expensive, and scripts attached to many entities
// share the same binary. The Compiler loads each path once through the
// cache engine; the compiled module is closed when its last handle is
// dropped and the engine sweeps:
//
//	comp := wasmasset.NewCompiler(ctx)
//	defer comp.Close(ctx)
//
//	h, err := comp.Load(ctx, eng, "scripts/door.wasm")
//	if err != nil {
//	    return err
//	}
//	defer h.Drop()
//
//	mod, _ := cache.Get[*wasmasset.Module](eng, h.ID())
//	inst, err := comp.Instantiate(ctx, mod, "door-1")
package wasmasset

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/assetcache/cache"
	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/resource"
)

// Module is a compiled module owned by the cache.
type Module struct {
	compiled wazero.CompiledModule
	name     string
	closed   atomic.Bool
}

// Name returns the path the module was compiled from.
func (m *Module) Name() string {
	return m.name
}

// Compiled returns the wazero compiled module.
func (m *Module) Compiled() wazero.CompiledModule {
	return m.compiled
}

// Exports returns the exported function names, sorted.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Closed reports whether the compiled module has been released.
func (m *Module) Closed() bool {
	return m.closed.Load()
}

// Drop implements resource.Dropper. The cache calls it when the module is freed.
func (m *Module) Drop() {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	if err := m.compiled.Close(context.Background()); err != nil {
		Logger().Warn("close compiled module", zap.String("name", m.name), zap.Error(err))
	}
}

// Compiler compiles modules with one wazero runtime.
type Compiler struct {
	runtime wazero.Runtime
}

// NewCompiler creates a compiler backed by a new wazero runtime.
func NewCompiler(ctx context.Context) *Compiler {
	return &Compiler{runtime: wazero.NewRuntime(ctx)}
}

// Runtime returns the underlying wazero runtime.
func (c *Compiler) Runtime() wazero.Runtime {
	return c.runtime
}

// Compile compiles wasm bytes without caching them.
func (c *Compiler) Compile(ctx context.Context, name string, wasm []byte) (*Module, error) {
	compiled, err := c.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Compile(name, err)
	}
	Logger().Debug("module compiled", zap.String("name", name), zap.Int("bytes", len(wasm)))
	return &Module{compiled: compiled, name: name}, nil
}

// Load returns a handle to the module at path below the engine's asset
// root, compiling it only if it is not cached yet.
func (c *Compiler) Load(ctx context.Context, e *cache.Engine, path string) (*resource.Handle, error) {
	return cache.Load(e, path, func(data []byte) (*Module, error) {
		return c.Compile(ctx, path, data)
	})
}

// Instantiate creates a module instance with the given instance name.
// The caller owns the instance and must close it.
func (c *Compiler) Instantiate(ctx context.Context, m *Module, name string) (api.Module, error) {
	if m.Closed() {
		return nil, errors.Closed(errors.PhaseCompile, "module "+m.name)
	}
	return c.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(name))
}

// Close closes the runtime and every module compiled by it.
func (c *Compiler) Close(ctx context.Context) error {
	return c.runtime.Close(ctx)
}
