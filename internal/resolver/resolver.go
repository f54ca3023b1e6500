// Package resolver implements chain-walking file resolution: given a theme
// and a logical file name, it locates the physical file in the most specific
// theme of the inheritance chain that carries it.
package resolver

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/loomcms/loom/internal/theme"
)

// cacheSize bounds the resolution cache. Entries are (small) path strings;
// the bound protects against unbounded key growth from glob-heavy callers.
const cacheSize = 4096

// FileNotFoundError reports an exhausted chain walk. SearchedThemes is the
// entire chain in walk order, the context needed to debug why an override
// did not apply.
type FileNotFoundError struct {
	FileName       string
	FileType       FileType
	SearchedThemes []string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q (%s) not found in themes [%s]",
		e.FileName, e.FileType, strings.Join(e.SearchedThemes, ", "))
}

// Override is one chain member carrying the requested file. Priority 0 is
// the most specific theme (the one ResolveFile would return).
type Override struct {
	Theme    string
	Path     string
	Priority int
}

// Resolver walks theme chains against the site filesystem. Successful single
// lookups are cached with a short TTL rather than invalidated precisely:
// after swapping a file on disk, callers may see the old resolution for up
// to one TTL.
type Resolver struct {
	fs     billy.Filesystem
	chains *theme.ChainBuilder
	cache  *lru.LRU[string, string]
	log    *slog.Logger
}

// New creates a resolver over the site root filesystem. ttl controls
// resolution-cache freshness (seconds in dev, up to about a minute in prod).
// The cache is flushed whenever the registry reloads.
func New(fs billy.Filesystem, registry *theme.Registry, chains *theme.ChainBuilder, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		fs:     fs,
		chains: chains,
		cache:  lru.NewLRU[string, string](cacheSize, nil, ttl),
		log:    logger,
	}
	registry.OnReload(r.Flush)
	return r
}

// qualify appends the type's default extension to bare names.
func qualify(name string, ft FileType) string {
	if ext := ft.DefaultExt(); ext != "" && path.Ext(name) == "" {
		return name + ext
	}
	return name
}

func (r *Resolver) themePath(themeName string, ft FileType, fileName string) string {
	return path.Join(theme.ThemesDir, themeName, ft.Dir(), fileName)
}

// exists probes the filesystem for a regular file.
func (r *Resolver) exists(p string) bool {
	info, err := r.fs.Stat(p)
	return err == nil && !info.IsDir()
}

// ResolveFile returns the physical path of the first chain member carrying
// the named file, walking most specific first. A child theme's file always
// shadows an ancestor's identically-named file.
func (r *Resolver) ResolveFile(name string, ft FileType, themeName string) (string, error) {
	chain, err := r.chains.Build(themeName)
	if err != nil {
		return "", err
	}
	fileName := qualify(name, ft)
	key := cacheKey(ft, theme.CompositeName(chain), fileName)
	if p, ok := r.cache.Get(key); ok {
		return p, nil
	}

	for _, member := range chain {
		p := r.themePath(member, ft, fileName)
		if r.exists(p) {
			r.cache.Add(key, p)
			r.log.Debug("file resolved", "name", fileName, "type", string(ft), "theme", member)
			return p, nil
		}
	}
	return "", &FileNotFoundError{FileName: fileName, FileType: ft, SearchedThemes: chain}
}

// ResolveAll resolves a glob pattern across the whole chain for bundling and
// listing. The walk is base-first (the reverse of override order) and
// accumulates matches into a seen-set keyed by filename relative to the type
// directory, so each name appears exactly once. Results are sorted by
// relative name for determinism.
func (r *Resolver) ResolveAll(pattern string, ft FileType, themeName string) ([]string, error) {
	chain, err := r.chains.Build(themeName)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	type match struct{ rel, full string }
	var matches []match
	for i := len(chain) - 1; i >= 0; i-- {
		dir := path.Join(theme.ThemesDir, chain[i], ft.Dir())
		found, err := util.Glob(r.fs, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %q in %s: %w", pattern, dir, err)
		}
		for _, full := range found {
			if info, err := r.fs.Stat(full); err != nil || info.IsDir() {
				continue
			}
			rel := strings.TrimPrefix(full, dir+"/")
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			matches = append(matches, match{rel: rel, full: full})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].rel < matches[j].rel })
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.full
	}
	return out, nil
}

// Overrides is the non-short-circuiting variant of ResolveFile: every chain
// member carrying the file, tagged with its chain index as priority (0 =
// what ResolveFile returns). An empty result is not an error; the listing
// is debugging/tooling output.
func (r *Resolver) Overrides(name string, ft FileType, themeName string) ([]Override, error) {
	chain, err := r.chains.Build(themeName)
	if err != nil {
		return nil, err
	}
	fileName := qualify(name, ft)

	var out []Override
	for i, member := range chain {
		p := r.themePath(member, ft, fileName)
		if r.exists(p) {
			out = append(out, Override{Theme: member, Path: p, Priority: i})
		}
	}
	return out, nil
}

// Flush drops all cached resolutions. Wired to registry reload.
func (r *Resolver) Flush() {
	r.cache.Purge()
}

func cacheKey(ft FileType, composite, name string) string {
	return string(ft) + "|" + composite + "|" + name
}
