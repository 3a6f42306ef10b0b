// Package builtin provides the stock render plugins shipped with the
// engine: Container, TextBlock, Image and List.
//
// Every text-producing plugin HTML-escapes its output; attributes are
// emitted only when the corresponding param is supplied.
package builtin

import (
	"fmt"
	"html"
	"strconv"

	"github.com/pageforge/pageforge/internal/plugins"
	"github.com/pageforge/pageforge/internal/registry"
)

// RegisterAll registers all builtin plugins on the registry.
func RegisterAll(r *registry.PluginRegistry) error {
	builtins := []plugins.Plugin{
		NewContainer(),
		NewTextBlock(),
		NewImage(),
		NewList(),
	}

	for _, plugin := range builtins {
		meta := map[string]interface{}{"source": "builtin"}
		if err := r.Register(plugin, meta); err != nil {
			return err
		}
	}
	return nil
}

// escape HTML-escapes & < > " ' in text content and attribute values.
func escape(s string) string {
	return html.EscapeString(s)
}

// attr renders one HTML attribute with an escaped value, including the
// leading space.
func attr(name, value string) string {
	return fmt.Sprintf(` %s="%s"`, name, escape(value))
}

// classAttr renders a class attribute when the params carry a non-empty
// class string.
func classAttr(params map[string]interface{}, key string) string {
	if class, ok := params[key].(string); ok && class != "" {
		return attr("class", class)
	}
	return ""
}

// stringParam returns a string param or the fallback.
func stringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// formatNumber renders a JSON number without a trailing .0 for whole
// values.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// numberAttr renders a numeric attribute when the param is a number.
func numberAttr(params map[string]interface{}, key string) string {
	switch v := params[key].(type) {
	case float64:
		return attr(key, formatNumber(v))
	case int:
		return attr(key, strconv.Itoa(v))
	case int64:
		return attr(key, strconv.FormatInt(v, 10))
	}
	return ""
}
