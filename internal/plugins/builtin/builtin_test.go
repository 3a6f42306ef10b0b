package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge/pageforge/internal/plugins"
	"github.com/pageforge/pageforge/internal/registry"
)

func render(t *testing.T, p plugins.Plugin, params map[string]interface{}, children string) string {
	t.Helper()
	out, err := p.Render(plugins.RenderInput{Params: params, Children: children})
	require.NoError(t, err)
	return out
}

func TestRegisterAll(t *testing.T) {
	r := registry.NewPluginRegistry()
	require.NoError(t, RegisterAll(r))

	assert.ElementsMatch(t, []string{"Container", "TextBlock", "Image", "List"}, r.List())

	reg, ok := r.GetRegistration("Container")
	require.True(t, ok)
	assert.Equal(t, "builtin", reg.Metadata["source"])
}

func TestContainer(t *testing.T) {
	p := NewContainer()

	assert.Equal(t, "<div>inner</div>", render(t, p, map[string]interface{}{}, "inner"))
	assert.Equal(t, `<section class="hero">inner</section>`,
		render(t, p, map[string]interface{}{"tag": "section", "class": "hero"}, "inner"))
}

func TestTextBlock(t *testing.T) {
	p := NewTextBlock()

	assert.Equal(t, "<p>Hello</p>", render(t, p, map[string]interface{}{"text": "Hello"}, ""))
	assert.Equal(t, `<h1 class="title">Hi</h1>`,
		render(t, p, map[string]interface{}{"text": "Hi", "tag": "h1", "class": "title"}, ""))
}

func TestTextBlock_EscapesHTML(t *testing.T) {
	p := NewTextBlock()

	out := render(t, p, map[string]interface{}{"text": "<b>hi</b>"}, "")
	assert.Equal(t, "<p>&lt;b&gt;hi&lt;/b&gt;</p>", out)

	out = render(t, p, map[string]interface{}{"text": `&"'`}, "")
	assert.Equal(t, "<p>&amp;&#34;&#39;</p>", out)
}

func TestTextBlock_MissingText(t *testing.T) {
	p := NewTextBlock()
	_, err := p.Render(plugins.RenderInput{Params: map[string]interface{}{}})
	assert.Error(t, err)
}

func TestImage(t *testing.T) {
	p := NewImage()

	assert.Equal(t, `<img src="/a.png" />`,
		render(t, p, map[string]interface{}{"src": "/a.png"}, ""))

	out := render(t, p, map[string]interface{}{
		"src":    "/a.png",
		"alt":    "A picture",
		"width":  float64(640),
		"height": float64(480),
		"class":  "photo",
	}, "")
	assert.Equal(t, `<img src="/a.png" alt="A picture" width="640" height="480" class="photo" />`, out)
}

func TestImage_EscapesAttributes(t *testing.T) {
	p := NewImage()

	out := render(t, p, map[string]interface{}{
		"src": "/a.png",
		"alt": `"><script>`,
	}, "")
	assert.NotContains(t, out, "<script>")
}

func TestImage_MissingSrc(t *testing.T) {
	p := NewImage()
	_, err := p.Render(plugins.RenderInput{Params: map[string]interface{}{"src": ""}})
	assert.Error(t, err)
}

func TestList_Unordered(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items": []interface{}{"a", "b"},
	}, "")
	assert.Equal(t, "<ul><li>a</li><li>b</li></ul>", out)
}

func TestList_Ordered(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items":   []interface{}{"first"},
		"ordered": true,
		"class":   "steps",
	}, "")
	assert.Equal(t, `<ol class="steps"><li>first</li></ol>`, out)
}

func TestList_ItemClass(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items":     []interface{}{"x"},
		"itemClass": "row",
	}, "")
	assert.Equal(t, `<ul><li class="row">x</li></ul>`, out)
}

func TestList_ObjectItemsWithItemKey(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"label": "Home", "href": "/"},
			map[string]interface{}{"label": "About", "href": "/about"},
		},
		"itemKey": "label",
	}, "")
	assert.Equal(t, "<ul><li>Home</li><li>About</li></ul>", out)
}

func TestList_ObjectItemsFallBackToJSON(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"label": "Home"},
		},
	}, "")
	assert.Contains(t, out, "&#34;label&#34;")
}

func TestList_MixedPrimitives(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items": []interface{}{"a", float64(2), true, nil},
	}, "")
	assert.Equal(t, "<ul><li>a</li><li>2</li><li>true</li><li></li></ul>", out)
}

func TestList_EscapesItems(t *testing.T) {
	p := NewList()

	out := render(t, p, map[string]interface{}{
		"items": []interface{}{"<li>injected</li>"},
	}, "")
	assert.Equal(t, "<ul><li>&lt;li&gt;injected&lt;/li&gt;</li></ul>", out)
}

func TestList_InvalidItems(t *testing.T) {
	p := NewList()
	_, err := p.Render(plugins.RenderInput{Params: map[string]interface{}{"items": "nope"}})
	assert.Error(t, err)
}

func TestParamSchemas_Compile(t *testing.T) {
	r := registry.NewPluginRegistry()
	require.NoError(t, RegisterAll(r))

	// Each builtin's schema catches its required-param violations.
	assert.Error(t, r.ValidateParams("TextBlock", map[string]interface{}{}))
	assert.Error(t, r.ValidateParams("Image", map[string]interface{}{}))
	assert.Error(t, r.ValidateParams("List", map[string]interface{}{}))
	assert.NoError(t, r.ValidateParams("Container", map[string]interface{}{}))
	assert.Error(t, r.ValidateParams("Container", map[string]interface{}{"tag": "table"}))
}
