package theme

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v5"
)

// ThemesDir is the directory under the site root that holds one
// subdirectory per theme.
const ThemesDir = "themes"

// Registry loads and holds theme definitions. Loading is the only writer;
// lookups are concurrent reads. A malformed manifest excludes that theme and
// is logged; it never fails the whole registry (a broken seasonal skin must
// not take the site down).
type Registry struct {
	fs  billy.Filesystem
	log *slog.Logger

	mu       sync.RWMutex
	themes   map[string]*Definition
	order    []string
	onReload []func()
}

// NewRegistry creates a registry over the site root filesystem. Call Load
// before first use.
func NewRegistry(fs billy.Filesystem, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fs:     fs,
		log:    logger,
		themes: make(map[string]*Definition),
	}
}

// OnReload registers a hook run after every successful Load. Used by the
// chain builder and resolution cache to drop stale state.
func (r *Registry) OnReload(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onReload = append(r.onReload, fn)
}

// Load scans the themes directory and (re)builds the definition set.
// Declaration order is the sorted directory order, which keeps selection
// tie-breaks stable across platforms.
func (r *Registry) Load() error {
	entries, err := r.fs.ReadDir(ThemesDir)
	if err != nil {
		return fmt.Errorf("read themes dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	themes := make(map[string]*Definition, len(names))
	order := make([]string, 0, len(names))
	for _, name := range names {
		def, err := loadManifest(r.fs, ThemesDir, name)
		if err != nil {
			var missing *ConfigMissingError
			if errors.As(err, &missing) {
				// A bare directory is a valid theme with defaults.
				def = &Definition{Name: name, Active: true, Context: Context{Type: ContextDefault}}
				r.log.Debug("theme has no manifest, using defaults", "theme", name)
			} else {
				r.log.Warn("excluding theme with invalid manifest", "theme", name, "error", err)
				continue
			}
		}
		def.Order = len(order)
		themes[name] = def
		order = append(order, name)
	}

	r.mu.Lock()
	r.themes = themes
	r.order = order
	hooks := append([]func(){}, r.onReload...)
	r.mu.Unlock()

	r.log.Info("themes loaded", "count", len(order))
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Get returns a definition by name.
func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.themes[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return def, nil
}

// All returns every loaded definition in declaration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.themes[name])
	}
	return out
}

// Dir returns the filesystem path of a theme's directory.
func (r *Registry) Dir(name string) string {
	return path.Join(ThemesDir, name)
}
