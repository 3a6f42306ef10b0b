// Package plugins defines the render plugin contract.
//
// A plugin renders one node type of the composition DSL to an HTML
// fragment. Plugins optionally declare a JSON schema for their params;
// the registry compiles it once at registration and validates node
// params against it before every render.
package plugins

import (
	"github.com/pageforge/pageforge/internal/dsl"
)

// Plugin is the capability a render plugin must provide.
type Plugin interface {
	// ID returns the unique node type this plugin renders.
	ID() string

	// Schema returns the JSON schema for the plugin's params, or nil
	// when the plugin accepts arbitrary params.
	Schema() []byte

	// Render produces the HTML fragment for one node. Children arrive
	// pre-rendered and concatenated in document order.
	Render(input RenderInput) (string, error)
}

// RegistryView is the read side of the plugin registry handed to
// plugins during render.
type RegistryView interface {
	Has(id string) bool
	Get(id string) (Plugin, bool)
	IsAllowed(id string) bool
}

// RenderContext carries request-scoped values (locale, bucket, user)
// into plugin render calls.
type RenderContext map[string]interface{}

// Locale returns the resolved locale from the context, if present.
func (c RenderContext) Locale() string {
	if v, ok := c["locale"].(string); ok {
		return v
	}
	return ""
}

// RenderInput carries everything a plugin needs to render one node.
type RenderInput struct {
	Node     *dsl.Node
	Params   map[string]interface{}
	Children string
	Context  RenderContext
	Registry RegistryView
}

// Func adapts a render function into a Plugin.
type Func struct {
	PluginID     string
	ParamsSchema []byte
	RenderFunc   func(input RenderInput) (string, error)
}

// ID returns the plugin id.
func (f *Func) ID() string { return f.PluginID }

// Schema returns the params schema, if any.
func (f *Func) Schema() []byte { return f.ParamsSchema }

// Render invokes the wrapped render function.
func (f *Func) Render(input RenderInput) (string, error) {
	if f.RenderFunc == nil {
		return "", nil
	}
	return f.RenderFunc(input)
}
