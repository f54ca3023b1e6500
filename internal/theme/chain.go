package theme

import (
	"log/slog"
	"sync"
)

// ChainBuilder walks a theme's parent links into the ordered chain
// [self, ancestor1, ..., base]. Chains are cached by theme name and
// invalidated only when the registry reloads. Inheritance structure changes
// rarely and must stay exact, so no TTL applies here.
type ChainBuilder struct {
	registry *Registry
	log      *slog.Logger

	mu    sync.RWMutex
	cache map[string][]string
}

func NewChainBuilder(registry *Registry, logger *slog.Logger) *ChainBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &ChainBuilder{
		registry: registry,
		log:      logger,
		cache:    make(map[string][]string),
	}
	registry.OnReload(b.Invalidate)
	return b
}

// Build returns the inheritance chain for the named theme, most specific
// first, always terminating at the base theme. The walk is iterative with a
// visited set: cyclic configuration yields CycleError instead of a hang, and
// a parent that is not registered ends the walk (the forced base fallback
// still applies).
func (b *ChainBuilder) Build(name string) ([]string, error) {
	if name == "" {
		return nil, &NotFoundError{Name: name}
	}
	b.mu.RLock()
	cached, ok := b.cache[name]
	b.mu.RUnlock()
	if ok {
		return append([]string(nil), cached...), nil
	}

	visited := map[string]struct{}{}
	chain := make([]string, 0, 4)
	cur := name
	for cur != "" {
		if _, seen := visited[cur]; seen {
			return nil, &CycleError{Name: cur}
		}
		visited[cur] = struct{}{}
		chain = append(chain, cur)

		def, err := b.registry.Get(cur)
		if err != nil {
			// Unregistered theme or parent: treat as a chain terminal. The
			// base fallback below keeps resolution working.
			if cur != name {
				b.log.Warn("theme extends unregistered parent", "theme", name, "parent", cur)
			}
			break
		}
		cur = def.Extends
	}

	if chain[len(chain)-1] != BaseTheme {
		chain = append(chain, BaseTheme)
	}

	b.mu.Lock()
	b.cache[name] = chain
	b.mu.Unlock()

	return append([]string(nil), chain...), nil
}

// Invalidate drops every cached chain. Called on registry reload.
func (b *ChainBuilder) Invalidate() {
	b.mu.Lock()
	b.cache = make(map[string][]string)
	b.mu.Unlock()
}
