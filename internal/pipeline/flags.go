package pipeline

import (
	"github.com/pageforge/pageforge/internal/dsl"
)

// flagParam is the params key carrying a node's feature-flag
// descriptor: a string flag name or {name, invert}.
const flagParam = "featureFlag"

// FlagGateOption configures the feature-flag gate.
type FlagGateOption func(*flagGate)

type flagGate struct {
	getFlags  func(ctx *Context) map[string]bool
	isEnabled func(name string, ctx *Context) bool
}

// WithFlagSource overrides where the gate reads flag states from. The
// default source is ctx.Flags.
func WithFlagSource(getFlags func(ctx *Context) map[string]bool) FlagGateOption {
	return func(g *flagGate) {
		g.getFlags = getFlags
	}
}

// WithIsEnabled overrides the per-flag evaluation entirely.
func WithIsEnabled(isEnabled func(name string, ctx *Context) bool) FlagGateOption {
	return func(g *flagGate) {
		g.isEnabled = isEnabled
	}
}

// NewFeatureFlagGate builds the pruning middleware. Nodes gated by a
// disabled flag are dropped together with their entire subtree —
// children are never promoted. Kept nodes are cloned with the flag
// descriptor stripped from their params; sibling order is preserved.
// Pruning the root leaves a nil tree.
func NewFeatureFlagGate(opts ...FlagGateOption) Middleware {
	gate := &flagGate{
		getFlags: func(ctx *Context) map[string]bool {
			return ctx.Flags
		},
	}
	for _, opt := range opts {
		opt(gate)
	}
	if gate.isEnabled == nil {
		gate.isEnabled = func(name string, ctx *Context) bool {
			return gate.getFlags(ctx)[name]
		}
	}

	return func(ctx *Context, next Next) error {
		if ctx.Tree != nil {
			ctx.Tree = gate.prune(ctx.Tree, ctx)
		}
		return next()
	}
}

// prune evaluates one node top-down, returning nil when the node is
// dropped.
func (g *flagGate) prune(node *dsl.Node, ctx *Context) *dsl.Node {
	if descriptor, ok := node.Params[flagParam]; ok {
		name, invert := parseFlagDescriptor(descriptor)
		if name != "" {
			enabled := g.isEnabled(name, ctx)
			if invert {
				enabled = !enabled
			}
			if !enabled {
				return nil
			}
		}
	}

	kept := &dsl.Node{Type: node.Type}

	if node.Params != nil {
		kept.Params = make(map[string]interface{}, len(node.Params))
		for k, v := range node.Params {
			if k == flagParam {
				continue
			}
			kept.Params[k] = v
		}
	}

	for _, child := range node.Children {
		if pruned := g.prune(child, ctx); pruned != nil {
			kept.Children = append(kept.Children, pruned)
		}
	}

	return kept
}

// parseFlagDescriptor accepts a string flag name or a {name, invert}
// object.
func parseFlagDescriptor(descriptor interface{}) (name string, invert bool) {
	switch d := descriptor.(type) {
	case string:
		return d, false
	case map[string]interface{}:
		name, _ = d["name"].(string)
		invert, _ = d["invert"].(bool)
		return name, invert
	}
	return "", false
}
