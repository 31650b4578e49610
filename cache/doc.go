// Package cache provides the asset cache engine.
//
// The Engine routes every resource to the resource.Store for its Go type,
// creating stores on first use and removing them once a sweep leaves them
// empty. Resources are added and read through generic functions, since Go
// methods cannot take type parameters:
//
//	eng := cache.New(cache.WithAssetRoot("assets"))
//	defer eng.Close()
//
//	h := cache.AddWithLabel(eng, img, "ui/button.png")
//	defer h.Drop()
//
//	img, ok := cache.Get[*image.RGBA](eng, h.ID())
//
// # Frame Loop
//
// Call Update exactly once per frame, after game and render logic had the
// chance to clone and drop handles:
//
//	for running {
//	    tick()
//	    if err := eng.Update(); err != nil {
//	        return err // liveness invariants already broken
//	    }
//	}
//
// A resource whose last handle is dropped is freed by the next Update.
//
// # Thread Safety
//
// Engine is NOT thread-safe and must be used by the goroutine that runs the
// frame loop. Handles may be cloned and dropped from any goroutine.
package cache
