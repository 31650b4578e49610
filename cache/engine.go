package cache

import (
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/assetcache/config"
	"github.com/wippyai/assetcache/errors"
	"github.com/wippyai/assetcache/loader"
	"github.com/wippyai/assetcache/resource"
)

// Source reads whole files. loader.LocalFS and loader.MemoryFS implement it.
type Source interface {
	ReadFile(path string) ([]byte, error)
}

// Engine routes resources to per-type stores and drives the sweep.
type Engine struct {
	stores    map[resource.TypeTag]*resource.Store
	source    Source
	onLoaded  func(path string)
	logger    *zap.Logger
	observers []resource.Observer
	assetRoot string
	userRoot  string
	last      resource.SweepStats
	frames    uint64
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithAssetRoot sets the directory FullAssetPath resolves against.
func WithAssetRoot(dir string) Option {
	return func(e *Engine) { e.assetRoot = dir }
}

// WithUserDataRoot sets the directory FullUserDataPath resolves against.
func WithUserDataRoot(dir string) Option {
	return func(e *Engine) { e.userRoot = dir }
}

// WithSource replaces the default local filesystem source.
func WithSource(s Source) Option {
	return func(e *Engine) { e.source = s }
}

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithObserver registers an observer for resource and store events.
func WithObserver(o resource.Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithOnAssetLoaded registers a callback invoked with the resolved path
// after every successful file read.
func WithOnAssetLoaded(fn func(path string)) Option {
	return func(e *Engine) { e.onLoaded = fn }
}

// FromConfig applies the roots from cfg.
func FromConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.assetRoot = cfg.AssetRoot
		e.userRoot = cfg.UserDataRoot
	}
}

// New creates an engine with no stores.
func New(opts ...Option) *Engine {
	e := &Engine{
		stores: make(map[resource.TypeTag]*resource.Store),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = loader.NewLocal()
	}
	return e
}

// store returns the store for tag, creating it if create is set.
// It returns nil after Close.
func (e *Engine) store(tag resource.TypeTag, create bool) *resource.Store {
	if s, ok := e.stores[tag]; ok {
		return s
	}
	if !create || e.closed {
		return nil
	}

	s := resource.NewStore(tag)
	s.Subscribe(fanout{e})
	e.stores[tag] = s
	e.logger.Debug("store created", zap.Stringer("type", tag))
	e.notify(resource.Event{Type: resource.EventStoreCreated, Tag: tag})
	return s
}

// TotalCount returns the number of live resources across all types.
func (e *Engine) TotalCount() int {
	n := 0
	for _, s := range e.stores {
		n += s.Len()
	}
	return n
}

// HasType reports whether a store for tag currently exists.
func (e *Engine) HasType(tag resource.TypeTag) bool {
	_, ok := e.stores[tag]
	return ok
}

// TypeStats describes one live store.
type TypeStats struct {
	Tag       resource.TypeTag
	Resources int
	Pending   int
}

// Types returns one entry per live store, ordered by type name.
func (e *Engine) Types() []TypeStats {
	out := make([]TypeStats, 0, len(e.stores))
	for tag, s := range e.stores {
		out = append(out, TypeStats{Tag: tag, Resources: s.Len(), Pending: s.Pending()})
	}
	slices.SortFunc(out, func(a, b TypeStats) int {
		return strings.Compare(a.Tag.String(), b.Tag.String())
	})
	return out
}

// LastSweep returns the totals of the most recent Update.
func (e *Engine) LastSweep() resource.SweepStats {
	return e.last
}

// Frames returns how many times Update has run.
func (e *Engine) Frames() uint64 {
	return e.frames
}

// Update sweeps every store, then removes the stores left empty.
//
// A returned error means a store mailbox was disconnected: the cache's
// liveness tracking is already broken and the frame loop should stop.
func (e *Engine) Update() error {
	if e.closed {
		return errors.Closed(errors.PhaseSweep, "engine")
	}

	var (
		errs  []error
		total resource.SweepStats
	)
	for _, tag := range e.sortedTags() {
		s := e.stores[tag]
		stats, err := s.Update()
		total.Drained += stats.Drained
		total.Freed += stats.Freed
		if err != nil {
			e.logger.Error("store sweep failed", zap.Stringer("type", tag), zap.Error(err))
			errs = append(errs, err)
		}
		if s.IsEmpty() {
			e.removeStore(tag)
		}
	}

	e.last = total
	e.frames++
	if total.Drained > 0 {
		e.logger.Debug("sweep",
			zap.Uint64("frame", e.frames),
			zap.Int("drained", total.Drained),
			zap.Int("freed", total.Freed),
			zap.Int("stores", len(e.stores)))
	}

	return errors.Join(errs...)
}

func (e *Engine) removeStore(tag resource.TypeTag) {
	s := e.stores[tag]
	delete(e.stores, tag)
	if n := s.Close(); n > 0 {
		e.logger.Warn("store closed with referenced resources",
			zap.Stringer("type", tag),
			zap.Int("resources", n))
	}
	e.logger.Debug("store removed", zap.Stringer("type", tag))
	e.notify(resource.Event{Type: resource.EventStoreRemoved, Tag: tag})
}

func (e *Engine) sortedTags() []resource.TypeTag {
	tags := make([]resource.TypeTag, 0, len(e.stores))
	for tag := range e.stores {
		tags = append(tags, tag)
	}
	slices.SortFunc(tags, func(a, b resource.TypeTag) int {
		return strings.Compare(a.String(), b.String())
	})
	return tags
}

// Close runs a final sweep, so resources whose last handle is already gone
// are freed normally, then releases everything still referenced.
// Close is safe to call multiple times.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	err := e.Update()
	for _, tag := range e.sortedTags() {
		e.removeStore(tag)
	}
	e.closed = true
	return err
}

// FullAssetPath resolves p against the asset root.
func (e *Engine) FullAssetPath(p string) string {
	return filepath.Join(e.assetRoot, p)
}

// FullUserDataPath resolves p against the user data root.
func (e *Engine) FullUserDataPath(p string) string {
	return filepath.Join(e.userRoot, p)
}

// SetOnAssetLoaded replaces the on-asset-loaded callback.
func (e *Engine) SetOnAssetLoaded(fn func(path string)) {
	e.onLoaded = fn
}

// ReadAssetFile reads a file below the asset root.
func (e *Engine) ReadAssetFile(p string) ([]byte, error) {
	return e.read("read asset", e.FullAssetPath(p))
}

// ReadUserFile reads a file below the user data root.
func (e *Engine) ReadUserFile(p string) ([]byte, error) {
	return e.read("read user file", e.FullUserDataPath(p))
}

func (e *Engine) read(what, full string) ([]byte, error) {
	data, err := e.source.ReadFile(full)
	if err != nil {
		return nil, errors.IO(what, full, err)
	}
	if e.onLoaded != nil {
		e.onLoaded(full)
	}
	return data, nil
}

func (e *Engine) notify(ev resource.Event) {
	for _, o := range e.observers {
		o.OnResourceEvent(ev)
	}
}

// fanout forwards store events to the engine observers with the stored
// value unboxed.
type fanout struct {
	e *Engine
}

func (f fanout) OnResourceEvent(ev resource.Event) {
	if b, ok := ev.Value.(boxed); ok {
		ev.Value = b.unbox()
	}
	f.e.notify(ev)
}
