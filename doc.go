// Package assetcache is a reference-counted resource cache for game and
// tool asset pipelines.
//
// Resources of any Go type live in per-type stores. Callers hold handles;
// cloning or dropping a handle posts a change to the store's mailbox instead
// of touching a shared counter, so handles can move between goroutines
// freely. Once per frame the owner sweeps every store: changes are applied,
// resources whose count reached zero are freed, and stores left empty are
// removed.
//
// # Architecture Overview
//
//	assetcache/
//	├── mailbox/     Unbounded multi-producer, single-consumer change queue
//	├── resource/    Handles, per-type stores and the sweep
//	├── cache/       Type-routed engine, generic accessors, asset loading
//	├── loader/      go-billy backed byte sources (host and in-memory)
//	├── config/      YAML and environment configuration
//	├── metrics/     Prometheus collector for cache activity
//	├── wasmasset/   Compiled WebAssembly modules as cached assets
//	├── errors/      Structured error types
//	└── cmd/assetview  Headless and TUI frame loop for inspecting a cache
//
// # Quick Start
//
//	eng := cache.New(cache.WithAssetRoot("assets"))
//	defer eng.Close()
//
//	h := cache.Add(eng, Texture{W: 64, H: 64})
//	tex, _ := cache.Get[Texture](eng, h.ID())
//
//	icons, err := cache.LoadBytes(eng, "ui/icons.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h.Drop()
//	icons.Drop()
//	eng.Update() // both resources are freed here
//
// # Thread Safety
//
// Handles are safe for concurrent use: Clone and Drop only send on a mailbox.
// The Engine and Store are NOT thread-safe and belong to the goroutine that
// runs the frame loop.
//
// # Freeing
//
// A resource is never freed between sweeps, even if its last handle was
// dropped right after it was added. Values implementing resource.Dropper
// are told when they are freed, which is where GPU buffers, compiled
// modules and similar external state should be released.
package assetcache
