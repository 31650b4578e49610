package cache

import (
	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/resource"
)

// Load returns a handle for the asset at path, decoding it only when no
// resource of type T is labelled path yet. The label is the unresolved path.
func Load[T any](e *Engine, path string, decode func(data []byte) (T, error)) (*resource.Handle, error) {
	if h, ok := KeyByLabel[T](e, path); ok {
		return h, nil
	}
	if e.closed {
		return nil, errors.Closed(errors.PhaseLoad, "engine")
	}

	data, err := e.ReadAssetFile(path)
	if err != nil {
		return nil, err
	}

	v, err := decode(data)
	if err != nil {
		return nil, errors.Decode(resource.TagOf[T]().String(), path, err)
	}
	return AddWithLabel(e, v, path), nil
}

// LoadBytes caches the raw contents of an asset file.
func LoadBytes(e *Engine, path string) (*resource.Handle, error) {
	return Load(e, path, func(data []byte) ([]byte, error) {
		return data, nil
	})
}
