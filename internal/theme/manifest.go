package theme

import (
	"fmt"
	"io"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// manifestFile is the gohcl decode target for theme.hcl:
//
//	extends = "corporate"
//	active  = true
//
//	context {
//	  type   = "season"
//	  values = ["december", "january"]
//	}
//
//	metadata {
//	  version           = "1.2.0"
//	  author            = "design team"
//	  description       = "Winter campaign skin"
//	  required_features = ["gallery"]
//	  required_plugins  = ["shop"]
//	}
type manifestFile struct {
	Extends  string           `hcl:"extends,optional"`
	Active   *bool            `hcl:"active,optional"`
	Context  *manifestContext `hcl:"context,block"`
	Metadata *manifestMeta    `hcl:"metadata,block"`
}

type manifestContext struct {
	Type   string   `hcl:"type"`
	Values []string `hcl:"values,optional"`
}

type manifestMeta struct {
	Version          string   `hcl:"version,optional"`
	Author           string   `hcl:"author,optional"`
	Description      string   `hcl:"description,optional"`
	RequiredFeatures []string `hcl:"required_features,optional"`
	RequiredPlugins  []string `hcl:"required_plugins,optional"`
}

// loadManifest reads and decodes themes/<name>/theme.hcl from fs. A missing
// file yields ConfigMissingError; the caller decides whether that is fatal
// (a bare theme directory is still usable with defaults).
func loadManifest(fs billy.Filesystem, dir, name string) (*Definition, error) {
	manifestPath := path.Join(dir, name, ManifestName)

	f, err := fs.Open(manifestPath)
	if err != nil {
		return nil, &ConfigMissingError{Path: manifestPath}
	}
	src, err := io.ReadAll(f)
	_ = f.Close() // read-only handle
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", manifestPath, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, manifestPath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", manifestPath, diags)
	}

	var m manifestFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &m); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", manifestPath, diags)
	}

	def := &Definition{
		Name:    name,
		Extends: m.Extends,
		Active:  true,
		Context: Context{Type: ContextDefault},
	}
	if m.Active != nil {
		def.Active = *m.Active
	}
	if m.Context != nil {
		ct := ContextType(m.Context.Type)
		switch ct {
		case ContextDefault, ContextLocation, ContextSeason, ContextEvent, ContextCustom:
			def.Context = Context{Type: ct, Values: m.Context.Values}
		default:
			return nil, fmt.Errorf("decode %s: unknown context type %q", manifestPath, m.Context.Type)
		}
	}
	if m.Metadata != nil {
		def.Metadata = Metadata{
			Version:          m.Metadata.Version,
			Author:           m.Metadata.Author,
			Description:      m.Metadata.Description,
			RequiredFeatures: m.Metadata.RequiredFeatures,
			RequiredPlugins:  m.Metadata.RequiredPlugins,
		}
	}
	return def, nil
}
