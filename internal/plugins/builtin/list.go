package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/pageforge/pageforge/internal/plugins"
)

var listSchema = []byte(`{
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {"type": "array"},
		"ordered": {"type": "boolean"},
		"class": {"type": "string"},
		"itemClass": {"type": "string"},
		"itemKey": {"type": "string"}
	}
}`)

// NewList creates the List plugin: an ordered or unordered list whose
// items are escaped primitives, or objects stringified through an
// itemKey lookup falling back to JSON.
func NewList() plugins.Plugin {
	return &plugins.Func{
		PluginID:     "List",
		ParamsSchema: listSchema,
		RenderFunc: func(input plugins.RenderInput) (string, error) {
			items, ok := input.Params["items"].([]interface{})
			if !ok {
				return "", fmt.Errorf("items param must be an array")
			}

			tag := "ul"
			if ordered, ok := input.Params["ordered"].(bool); ok && ordered {
				tag = "ol"
			}

			itemKey, _ := input.Params["itemKey"].(string)
			itemClass := classAttr(input.Params, "itemClass")

			out := "<" + tag + classAttr(input.Params, "class") + ">"
			for _, item := range items {
				out += "<li" + itemClass + ">" + stringifyItem(item, itemKey) + "</li>"
			}
			return out + "</" + tag + ">", nil
		},
	}
}

// stringifyItem renders a list item: primitives directly, objects via
// the itemKey lookup when available, anything else as JSON.
func stringifyItem(item interface{}, itemKey string) string {
	switch v := item.(type) {
	case string:
		return escape(v)
	case float64:
		return formatNumber(v)
	case bool:
		return fmt.Sprintf("%t", v)
	case nil:
		return ""
	case map[string]interface{}:
		if itemKey != "" {
			if value, ok := v[itemKey]; ok {
				return stringifyItem(value, "")
			}
		}
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return escape(fmt.Sprintf("%v", item))
	}
	return escape(string(raw))
}
