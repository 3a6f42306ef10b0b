// Package renderer turns composed node trees into output.
//
// The HTML renderer walks the tree depth-first, rendering children
// before their parent and dispatching each node to its registered
// plugin. Output is a pure function of the tree, the registry state and
// the render context at call time; nothing is cached between calls. The
// JSON renderer echoes a tree as data without consulting plugins or the
// allowlist.
package renderer

import (
	"encoding/json"
	"fmt"

	"github.com/pageforge/pageforge/internal/dsl"
	"github.com/pageforge/pageforge/internal/errors"
	"github.com/pageforge/pageforge/internal/pipeline"
	"github.com/pageforge/pageforge/internal/plugins"
	"github.com/pageforge/pageforge/internal/registry"
)

// HTMLRenderer renders node trees to HTML through registry plugins.
type HTMLRenderer struct {
	registry *registry.PluginRegistry
}

// NewHTMLRenderer creates a renderer over the given plugin registry.
func NewHTMLRenderer(reg *registry.PluginRegistry) *HTMLRenderer {
	return &HTMLRenderer{registry: reg}
}

// Render renders the tree to a single HTML string. A nil tree (a fully
// pruned page) renders to the empty string. Any invalid node aborts the
// whole render with no partial output.
func (r *HTMLRenderer) Render(tree *dsl.Node, ctx plugins.RenderContext) (string, error) {
	if tree == nil {
		return "", nil
	}
	return r.renderNode(tree, ctx)
}

func (r *HTMLRenderer) renderNode(node *dsl.Node, ctx plugins.RenderContext) (string, error) {
	if !r.registry.IsAllowed(node.Type) {
		return "", errors.NewRenderError(errors.ErrCodePluginNotAllowed, "plugin type is not in the allowlist").
			WithPlugin(node.Type)
	}

	plugin, ok := r.registry.Get(node.Type)
	if !ok || plugin == nil {
		return "", errors.NewRenderError(errors.ErrCodePluginMissing, "no plugin registered for node type").
			WithPlugin(node.Type)
	}

	if err := r.registry.ValidateParams(node.Type, node.Params); err != nil {
		return "", err
	}

	// Children render first, in document order, concatenated without a
	// separator.
	var children string
	for _, child := range node.Children {
		rendered, err := r.renderNode(child, ctx)
		if err != nil {
			return "", err
		}
		children += rendered
	}

	return renderPlugin(plugin, plugins.RenderInput{
		Node:     node,
		Params:   node.Params,
		Children: children,
		Context:  ctx,
		Registry: r.registry,
	})
}

// renderPlugin invokes one plugin, translating its failure modes: an
// error return becomes a plugin failure, a panic becomes a bad-return
// error since the plugin produced no usable output. Either aborts the
// whole render.
func renderPlugin(plugin plugins.Plugin, input plugins.RenderInput) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = ""
			err = errors.NewRenderError(errors.ErrCodePluginBadReturn, "plugin did not produce output").
				WithPlugin(input.Node.Type).WithCause(fmt.Errorf("panic: %v", rec))
		}
	}()

	out, perr := plugin.Render(input)
	if perr != nil {
		return "", errors.NewRenderError(errors.ErrCodePluginFailed, "plugin render failed").
			WithPlugin(input.Node.Type).WithCause(perr)
	}
	return out, nil
}

// JSONRenderer echoes a composed tree as data. It never consults the
// allowlist and never invokes plugins.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render serializes the tree as JSON. A nil tree serializes to null.
func (r *JSONRenderer) Render(tree *dsl.Node) ([]byte, error) {
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.NewInternalError("serializing composed tree", err)
	}
	return out, nil
}

// RenderPage serializes a whole page, including its version and
// metadata, as JSON.
func (r *JSONRenderer) RenderPage(page *dsl.Page) ([]byte, error) {
	out, err := json.Marshal(page)
	if err != nil {
		return nil, errors.NewInternalError("serializing composed page", err)
	}
	return out, nil
}

// Composition is the data shape hosts return for a composed page: the
// pruned tree plus the request-derived locale and bucket assignment. A
// fully pruned page carries a null tree.
type Composition struct {
	Slug   string           `json:"slug"`
	Locale string           `json:"locale"`
	AB     *pipeline.Bucket `json:"ab,omitempty"`
	Tree   *dsl.Node        `json:"tree"`
}

// RenderComposition serializes a composition outcome as JSON.
func (r *JSONRenderer) RenderComposition(comp *Composition) ([]byte, error) {
	out, err := json.Marshal(comp)
	if err != nil {
		return nil, errors.NewInternalError("serializing composition", err)
	}
	return out, nil
}
