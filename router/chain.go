package router

import (
	"net/http"
)

// Chain wraps a handler in an ordered list of middlewares.
type Chain struct {
	handler     http.Handler
	middlewares []func(http.Handler) http.Handler
}

// NewChain creates a Chain ending in h.
func NewChain(h http.Handler) *Chain {
	if h == nil {
		panic("chain handler cannot be nil")
	}
	return &Chain{handler: h}
}

// WithMiddleware appends middlewares. They run in the order given across
// all calls: the first middleware added is the outermost.
//
//	NewChain(h).WithMiddleware(mw1, mw2).WithMiddleware(mw3)
//
// runs mw1, mw2, mw3 and then h.
func (c *Chain) WithMiddleware(middlewares ...func(http.Handler) http.Handler) *Chain {
	c.middlewares = append(c.middlewares, middlewares...)
	return c
}

// Handler returns the final handler with all middlewares applied.
func (c *Chain) Handler() http.Handler {
	handler := c.handler
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		handler = c.middlewares[i](handler)
	}
	return handler
}
