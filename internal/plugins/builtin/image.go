package builtin

import (
	"fmt"

	"github.com/pageforge/pageforge/internal/plugins"
)

var imageSchema = []byte(`{
	"type": "object",
	"required": ["src"],
	"properties": {
		"src": {"type": "string", "minLength": 1},
		"alt": {"type": "string"},
		"width": {"type": "number"},
		"height": {"type": "number"},
		"class": {"type": "string"}
	}
}`)

// NewImage creates the Image plugin. Attributes are emitted only for
// supplied params, in a stable order.
func NewImage() plugins.Plugin {
	return &plugins.Func{
		PluginID:     "Image",
		ParamsSchema: imageSchema,
		RenderFunc: func(input plugins.RenderInput) (string, error) {
			src, ok := input.Params["src"].(string)
			if !ok || src == "" {
				return "", fmt.Errorf("src param must be a non-empty string")
			}

			out := "<img" + attr("src", src)
			if alt, ok := input.Params["alt"].(string); ok {
				out += attr("alt", alt)
			}
			out += numberAttr(input.Params, "width")
			out += numberAttr(input.Params, "height")
			out += classAttr(input.Params, "class")
			return out + " />", nil
		},
	}
}
