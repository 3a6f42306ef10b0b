package builtin

import (
	"fmt"

	"github.com/pageforge/pageforge/internal/plugins"
)

var textBlockSchema = []byte(`{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"},
		"tag": {"type": "string", "enum": ["p", "h1", "h2", "h3", "span", "div"]},
		"class": {"type": "string"}
	}
}`)

// NewTextBlock creates the TextBlock plugin: escaped text inside a
// configurable tag, defaulting to a paragraph.
func NewTextBlock() plugins.Plugin {
	return &plugins.Func{
		PluginID:     "TextBlock",
		ParamsSchema: textBlockSchema,
		RenderFunc: func(input plugins.RenderInput) (string, error) {
			text, ok := input.Params["text"].(string)
			if !ok {
				return "", fmt.Errorf("text param must be a string")
			}

			tag := stringParam(input.Params, "tag", "p")
			return "<" + tag + classAttr(input.Params, "class") + ">" + escape(text) + "</" + tag + ">", nil
		},
	}
}
