package api

// ResolveResult is the JSON shape of a single file resolution.
type ResolveResult struct {
	// Name is the logical file name as requested.
	Name string `json:"name"`
	// Type is the file type string (template, style, ...).
	Type string `json:"type"`
	// Theme the resolution started from.
	Theme string `json:"theme"`
	// Path is the physical path inside the site root.
	Path string `json:"path"`
}

// OverrideEntry is one chain member carrying the requested file.
type OverrideEntry struct {
	Theme string `json:"theme"`
	Path  string `json:"path"`
	// Priority 0 is the most specific theme.
	Priority int `json:"priority"`
}

// ChainResult describes a theme's inheritance chain.
type ChainResult struct {
	Theme string `json:"theme"`
	// Chain lists theme names most specific first, ending at base.
	Chain []string `json:"chain"`
	// Composite is the cache key form of the chain.
	Composite string `json:"composite"`
}

// ThemeInfo summarizes a registered theme for listings.
type ThemeInfo struct {
	Name        string   `json:"name"`
	Extends     string   `json:"extends,omitempty"`
	Context     string   `json:"context"`
	Active      bool     `json:"active"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// TreeNode is one entity in a rendered content subtree.
type TreeNode struct {
	EntityID string `json:"entity_id"`
	// Name is the semantic name when the entity has one, else the ID.
	Name string `json:"name"`
	// Kind of the association attaching this node to its parent; empty at
	// the subtree root.
	Kind   string `json:"kind,omitempty"`
	Weight int    `json:"weight,omitempty"`
	Path   string `json:"path,omitempty"`
	// Children in (weight, path) order.
	Children []TreeNode `json:"children,omitempty"`
}
