// Package pipeline provides the composition middleware chain executed
// against a page before rendering.
//
// Middlewares run in strict array order over one shared mutable
// Context. Each middleware must call next() to continue the chain;
// returning without calling it deliberately short-circuits the rest.
// Errors propagate out of the composed function untouched — recovery
// belongs to the caller.
package pipeline

import (
	"github.com/pageforge/pageforge/internal/dsl"
)

// Request carries the request-scoped inputs middlewares derive values
// from. Hosts populate it before running the composed pipeline.
type Request struct {
	// Locale is an explicit locale override, e.g. a ?locale= query
	// parameter.
	Locale string
	// AcceptLanguage is the raw Accept-Language header.
	AcceptLanguage string
	// UserID is a request-scoped user identifier from a header or
	// cookie.
	UserID string
}

// Bucket is a deterministic A/B assignment.
type Bucket struct {
	Bucket  string   `json:"bucket"`
	Buckets []string `json:"buckets"`
}

// Context is the mutable record passed by reference through the chain.
// Middlewares may replace Tree wholesale; no two middlewares run
// concurrently against it within one request.
type Context struct {
	Tree    *dsl.Node
	Flags   map[string]bool
	Locale  string
	AB      *Bucket
	UserID  string
	Request Request
}

// Next continues the middleware chain.
type Next func() error

// Middleware is one ordered unit of the composition chain.
type Middleware func(ctx *Context, next Next) error

// Compose builds a single function executing the middlewares in array
// order via an index-advancing continuation. Past the last middleware,
// next is a no-op.
func Compose(middlewares []Middleware) func(ctx *Context) error {
	return func(ctx *Context) error {
		var dispatch func(i int) error
		dispatch = func(i int) error {
			if i >= len(middlewares) {
				return nil
			}
			return middlewares[i](ctx, func() error {
				return dispatch(i + 1)
			})
		}
		return dispatch(0)
	}
}
