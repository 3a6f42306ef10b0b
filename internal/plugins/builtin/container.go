package builtin

import (
	"github.com/pageforge/pageforge/internal/plugins"
)

var containerSchema = []byte(`{
	"type": "object",
	"properties": {
		"class": {"type": "string"},
		"tag": {"type": "string", "enum": ["div", "section", "article", "main", "aside"]}
	}
}`)

// NewContainer creates the Container plugin: a structural wrapper
// emitting its children inside a block element.
func NewContainer() plugins.Plugin {
	return &plugins.Func{
		PluginID:     "Container",
		ParamsSchema: containerSchema,
		RenderFunc: func(input plugins.RenderInput) (string, error) {
			tag := stringParam(input.Params, "tag", "div")
			return "<" + tag + classAttr(input.Params, "class") + ">" + input.Children + "</" + tag + ">", nil
		},
	}
}
