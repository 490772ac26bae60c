// Package resolver maps call names onto registry entries across the
// configured function sources, applying a fixed precedence order and a
// version-checked lookup cache.
package resolver

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// Resolution pairs a resolved entry with the adapter that owns it
type Resolution struct {
	Entry   registry.Entry
	Adapter registry.Adapter
}

// Resolver resolves call names against the registered adapters. Precedence
// is builtin > explicitly namespaced plugin > bare-name plugin match
// (first-registered plugin wins) > remote delegate.
type Resolver struct {
	logger   zerolog.Logger
	adapters []registry.Adapter
	fallback registry.Adapter

	rebuildMu sync.Mutex
	cache     atomic.Pointer[lookupCache]
}

// lookupCache is immutable once built; it is replaced wholesale when any
// adapter version changes.
type lookupCache struct {
	versions map[string]uint64
	byName   map[string]Resolution
}

// New creates a resolver over the given adapters. Adapter order fixes
// precedence between adapters of the same kind.
func New(logger zerolog.Logger, adapters ...registry.Adapter) *Resolver {
	return &Resolver{
		logger:   logger.With().Str("component", "resolver").Logger(),
		adapters: adapters,
	}
}

// SetFallback sets the fallback source consulted by ResolveFallback after
// a primary resolution's execution fails.
func (r *Resolver) SetFallback(adapter registry.Adapter) {
	r.fallback = adapter
	r.cache.Store(nil)
}

// Resolve maps a call name onto a registry entry, or fails with
// registry.ErrNotFound when no source can satisfy it.
func (r *Resolver) Resolve(name string) (Resolution, error) {
	cache := r.current()
	res, ok := cache.byName[name]
	if !ok {
		return Resolution{}, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
	}
	return res, nil
}

// ResolveFallback resolves a name against the fallback source only. A
// namespaced name also matches a fallback entry registered under its bare
// operation name.
func (r *Resolver) ResolveFallback(name string) (Resolution, error) {
	if r.fallback == nil {
		return Resolution{}, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
	}

	bare := name
	if _, op, ok := strings.Cut(name, "."); ok {
		bare = op
	}

	for _, entry := range r.fallback.Entries() {
		if entry.QualifiedName == name || entry.QualifiedName == bare {
			return Resolution{Entry: entry, Adapter: r.fallback}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
}

// current returns a cache that is consistent with every adapter's version,
// rebuilding it when stale. The rebuilt cache is swapped in atomically so
// concurrent resolutions never observe a half-built cache.
func (r *Resolver) current() *lookupCache {
	cache := r.cache.Load()
	if cache != nil && !r.stale(cache) {
		return cache
	}

	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	// Another goroutine may have rebuilt while we waited for the lock.
	cache = r.cache.Load()
	if cache != nil && !r.stale(cache) {
		return cache
	}

	cache = r.build()
	r.cache.Store(cache)
	return cache
}

func (r *Resolver) stale(cache *lookupCache) bool {
	for _, adapter := range r.adapters {
		if cache.versions[adapter.SourceID()] != adapter.Version() {
			return true
		}
	}
	return false
}

// build constructs the lookup table applying the precedence rules. First
// writer wins for every key, so iteration order encodes precedence.
func (r *Resolver) build() *lookupCache {
	cache := &lookupCache{
		versions: make(map[string]uint64, len(r.adapters)),
		byName:   make(map[string]Resolution),
	}

	type snapshot struct {
		adapter registry.Adapter
		entries []registry.Entry
	}
	snapshots := make([]snapshot, 0, len(r.adapters))
	for _, adapter := range r.adapters {
		// Version is captured before the entries so that a registration
		// racing the rebuild leaves the cache stale rather than fresh.
		cache.versions[adapter.SourceID()] = adapter.Version()
		snapshots = append(snapshots, snapshot{adapter: adapter, entries: adapter.Entries()})
	}

	put := func(name string, res Resolution) {
		if _, exists := cache.byName[name]; !exists {
			cache.byName[name] = res
		}
	}

	// Builtin sources claim their names first.
	for _, s := range snapshots {
		if s.adapter.Kind() != registry.KindBuiltin {
			continue
		}
		for _, entry := range s.entries {
			put(entry.QualifiedName, Resolution{Entry: entry, Adapter: s.adapter})
		}
	}

	// Plugin functions under their explicit "pluginId.operation" names.
	for _, s := range snapshots {
		if s.adapter.Kind() != registry.KindPlugin {
			continue
		}
		for _, entry := range s.entries {
			put(entry.QualifiedName, Resolution{Entry: entry, Adapter: s.adapter})
		}
	}

	// Bare plugin operation names; entries arrive in plugin load order, so
	// the first-registered plugin wins a bare-name collision.
	for _, s := range snapshots {
		if s.adapter.Kind() != registry.KindPlugin {
			continue
		}
		for _, entry := range s.entries {
			if _, op, ok := strings.Cut(entry.QualifiedName, "."); ok {
				put(op, Resolution{Entry: entry, Adapter: s.adapter})
			}
		}
	}

	// Remote delegate entries resolve last.
	for _, s := range snapshots {
		if s.adapter.Kind() != registry.KindRemote {
			continue
		}
		for _, entry := range s.entries {
			put(entry.QualifiedName, Resolution{Entry: entry, Adapter: s.adapter})
		}
	}

	r.logger.Debug().Int("names", len(cache.byName)).Msg("Lookup cache rebuilt")
	return cache
}
