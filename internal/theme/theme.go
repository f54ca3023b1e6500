// Package theme loads theme definitions, builds parent chains, and selects
// the active theme for a request context. A theme is a directory under the
// themes root with an optional theme.hcl manifest describing inheritance,
// activation context, and metadata.
package theme

import (
	"fmt"
	"strings"
)

// BaseTheme is the conventional terminal of every inheritance chain. Chains
// that never reach it get it appended so resolution always has a fallback.
const BaseTheme = "base"

// ManifestName is the per-theme definition file.
const ManifestName = "theme.hcl"

// ContextType classifies when a theme applies.
type ContextType string

const (
	ContextDefault  ContextType = "default"
	ContextLocation ContextType = "location"
	ContextSeason   ContextType = "season"
	ContextEvent    ContextType = "event"
	ContextCustom   ContextType = "custom"
)

// Context describes the activation condition of a theme. Values are month
// names or ranges for season, set members for everything else. A zero
// Context is the default context.
type Context struct {
	Type   ContextType
	Values []string
}

// Metadata carries authoring information and feature requirements.
type Metadata struct {
	Version          string
	Author           string
	Description      string
	RequiredFeatures []string
	RequiredPlugins  []string
}

// Definition is a loaded theme: directory name, optional parent, activation
// context, and metadata. Order is the declaration (directory scan) position,
// used as the deterministic tie-break during selection.
type Definition struct {
	Name     string
	Extends  string
	Context  Context
	Active   bool
	Metadata Metadata
	Order    int
}

// CompositeName joins a chain into the cache key used by the chain cache and
// the resolution cache.
func CompositeName(chain []string) string {
	return strings.Join(chain, ">")
}

// CycleError reports a theme inheritance loop.
type CycleError struct {
	Name string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("theme inheritance cycle detected at %q", e.Name)
}

// ConfigMissingError reports a theme directory without a readable manifest.
type ConfigMissingError struct {
	Path string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("theme manifest missing: %s", e.Path)
}

// NotFoundError reports a lookup of an unregistered theme.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("theme not registered: %q", e.Name)
}
