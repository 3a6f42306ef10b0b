// Package dsl defines the declarative page-composition model and its
// schema validation.
//
// A Node names a render plugin via Type, carries a Params object, and
// optionally nests child Nodes. A Page wraps a root Node with a dotted
// numeric version and free-form metadata. Both shapes are validated
// against compiled JSON schemas; unknown top-level keys are rejected
// while page metadata accepts arbitrary extra entries.
package dsl

// Node is one element of the composition tree.
type Node struct {
	Type     string                 `json:"type" yaml:"type"`
	Params   map[string]interface{} `json:"params" yaml:"params"`
	Children []*Node                `json:"children,omitempty" yaml:"children,omitempty"`
}

// Meta holds page metadata. Known keys are slug, title and locale;
// extra keys are preserved.
type Meta map[string]interface{}

// Slug returns the slug metadata entry, if present.
func (m Meta) Slug() string { return m.str("slug") }

// Title returns the title metadata entry, if present.
func (m Meta) Title() string { return m.str("title") }

// Locale returns the locale metadata entry, if present.
func (m Meta) Locale() string { return m.str("locale") }

func (m Meta) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Page is a versioned container for a root Node plus metadata.
type Page struct {
	Version string `json:"version" yaml:"version"`
	Meta    Meta   `json:"meta" yaml:"meta"`
	Root    *Node  `json:"root" yaml:"root"`
}

// Clone returns a deep copy of the node. Params values are copied one
// level deep; nested param values are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := &Node{Type: n.Type}

	if n.Params != nil {
		clone.Params = make(map[string]interface{}, len(n.Params))
		for k, v := range n.Params {
			clone.Params[k] = v
		}
	}

	if n.Children != nil {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}

	return clone
}
