package server

import (
	"context"

	"github.com/pageforge/pageforge/internal/config"
	"github.com/pageforge/pageforge/internal/dsl"
	"github.com/pageforge/pageforge/internal/pagestore"
	"github.com/pageforge/pageforge/internal/pipeline"
	"github.com/pageforge/pageforge/internal/plugins"
	"github.com/pageforge/pageforge/internal/registry"
	"github.com/pageforge/pageforge/internal/renderer"
)

// Composer runs the full composition sequence for one page request:
// load by slug, execute the middleware pipeline, re-validate the
// composed tree, then render.
type Composer struct {
	pages    pagestore.PageRepository
	registry *registry.PluginRegistry
	html     *renderer.HTMLRenderer
	json     *renderer.JSONRenderer
	run      func(ctx *pipeline.Context) error
	flags    map[string]bool
}

// NewComposer wires the standard middleware chain from configuration:
// locale resolution, feature-flag pruning, then A/B bucketing.
func NewComposer(cfg *config.Config, pages pagestore.PageRepository, reg *registry.PluginRegistry) *Composer {
	return &Composer{
		pages:    pages,
		registry: reg,
		html:     renderer.NewHTMLRenderer(reg),
		json:     renderer.NewJSONRenderer(),
		run: pipeline.Compose([]pipeline.Middleware{
			pipeline.NewLocaleResolver(cfg.Locale.Default),
			pipeline.NewFeatureFlagGate(),
			pipeline.NewABBucket(cfg.Experiments.Salt, cfg.Experiments.Buckets),
		}),
		flags: cfg.Flags,
	}
}

// Result is one composed page, ready for either renderer.
type Result struct {
	Page   *dsl.Page
	Tree   *dsl.Node
	Locale string
	AB     *pipeline.Bucket
}

// Compose loads the page for slug and runs it through the pipeline.
// A fully pruned page yields a Result with a nil Tree.
func (c *Composer) Compose(ctx context.Context, slug string, req pipeline.Request) (*Result, error) {
	page, err := c.pages.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	pctx := &pipeline.Context{
		Tree:    page.Root,
		Flags:   c.flags,
		UserID:  req.UserID,
		Request: req,
	}
	if err := c.run(pctx); err != nil {
		return nil, err
	}

	if pctx.Tree != nil {
		if err := dsl.ValidateNode(pctx.Tree); err != nil {
			return nil, err
		}
	}

	return &Result{
		Page:   page,
		Tree:   pctx.Tree,
		Locale: pctx.Locale,
		AB:     pctx.AB,
	}, nil
}

// RenderHTML composes the page and renders the surviving tree to HTML.
func (c *Composer) RenderHTML(ctx context.Context, slug string, req pipeline.Request) (string, *Result, error) {
	result, err := c.Compose(ctx, slug, req)
	if err != nil {
		return "", nil, err
	}

	renderCtx := plugins.RenderContext{"locale": result.Locale}
	if result.AB != nil {
		renderCtx["bucket"] = result.AB.Bucket
	}

	html, err := c.html.Render(result.Tree, renderCtx)
	if err != nil {
		return "", nil, err
	}
	return html, result, nil
}

// RenderJSON composes the page and serializes the composition outcome.
func (c *Composer) RenderJSON(ctx context.Context, slug string, req pipeline.Request) ([]byte, error) {
	result, err := c.Compose(ctx, slug, req)
	if err != nil {
		return nil, err
	}
	return c.json.RenderComposition(&renderer.Composition{
		Slug:   slug,
		Locale: result.Locale,
		AB:     result.AB,
		Tree:   result.Tree,
	})
}
