//go:build property
// +build property

package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pageforge/pageforge/internal/dsl"
)

// TestBucketProperties tests deterministic bucket assignment properties
func TestBucketProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: The same identity and salt always produce the same bucket
	properties.Property("bucket assignment is stable", prop.ForAll(
		func(identity, salt string) bool {
			mw := NewABBucket(salt, nil)
			first := &Context{UserID: identity}
			second := &Context{UserID: identity}
			if err := Compose([]Middleware{mw})(first); err != nil {
				return false
			}
			if err := Compose([]Middleware{mw})(second); err != nil {
				return false
			}
			return first.AB.Bucket == second.AB.Bucket
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	// Property: Assigned bucket is always a member of the configured set
	properties.Property("bucket is from configured set", prop.ForAll(
		func(identity string, bucketCount int) bool {
			if bucketCount < 1 || bucketCount > 16 {
				return true // Skip unreasonable bucket counts
			}
			buckets := make([]string, bucketCount)
			for i := range buckets {
				buckets[i] = string(rune('a' + i))
			}
			mw := NewABBucket("salt", buckets)
			ctx := &Context{UserID: identity}
			if err := Compose([]Middleware{mw})(ctx); err != nil {
				return false
			}
			for _, b := range buckets {
				if ctx.AB.Bucket == b {
					return true
				}
			}
			return false
		},
		gen.AlphaString(),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}

// TestFlagGateProperties tests feature-flag pruning properties
func TestFlagGateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: Pruning is deterministic for a fixed flag state
	properties.Property("pruning is deterministic", prop.ForAll(
		func(flagOn bool, width int) bool {
			if width < 0 || width > 8 {
				return true
			}
			build := func() *dsl.Node {
				root := &dsl.Node{Type: "Container", Params: map[string]interface{}{}}
				for i := 0; i < width; i++ {
					params := map[string]interface{}{"text": string(rune('a' + i))}
					if i%2 == 0 {
						params["featureFlag"] = "beta"
					}
					root.Children = append(root.Children, &dsl.Node{Type: "TextBlock", Params: params})
				}
				return root
			}

			run := Compose([]Middleware{NewFeatureFlagGate()})
			flags := map[string]bool{"beta": flagOn}

			first := &Context{Tree: build(), Flags: flags}
			second := &Context{Tree: build(), Flags: flags}
			if err := run(first); err != nil {
				return false
			}
			if err := run(second); err != nil {
				return false
			}
			return len(first.Tree.Children) == len(second.Tree.Children)
		},
		gen.Bool(),
		gen.IntRange(0, 8),
	))

	// Property: A surviving tree never carries a flag descriptor
	properties.Property("descriptors are stripped", prop.ForAll(
		func(flagName string) bool {
			if flagName == "" {
				return true
			}
			tree := &dsl.Node{
				Type: "Container",
				Params: map[string]interface{}{
					"featureFlag": flagName,
				},
				Children: []*dsl.Node{
					{Type: "TextBlock", Params: map[string]interface{}{
						"text":        "x",
						"featureFlag": flagName,
					}},
				},
			}
			ctx := &Context{Tree: tree, Flags: map[string]bool{flagName: true}}
			if err := Compose([]Middleware{NewFeatureFlagGate()})(ctx); err != nil {
				return false
			}
			return noDescriptors(ctx.Tree)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func noDescriptors(node *dsl.Node) bool {
	if node == nil {
		return true
	}
	if _, ok := node.Params["featureFlag"]; ok {
		return false
	}
	for _, child := range node.Children {
		if !noDescriptors(child) {
			return false
		}
	}
	return true
}
