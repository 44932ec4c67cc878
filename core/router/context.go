package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default handler.Context implementation used whenever a
// router is instantiated without a custom context factory (New[*Context]).
// It wraps the request, the response writer, and the route's extracted
// path parameters, and delegates context.Context methods to the
// request's own context so values set upstream (e.g. by middleware
// chained ahead of the router) remain visible.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

// newContext builds the default Context for a single request.
func newContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

// Request returns the underlying *http.Request.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the wrapped http.ResponseWriter.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns the named path parameter, or "" if it was not matched.
func (c *Context) Param(key string) string {
	if c.params == nil {
		return ""
	}
	return c.params[key]
}

// SetValue stores val under key in the request's context, so it is
// visible to downstream handlers and to subsequent calls to Value.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}

// Deadline implements context.Context by delegating to the request context.
func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

// Done implements context.Context by delegating to the request context.
func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

// Err implements context.Context by delegating to the request context.
func (c *Context) Err() error {
	return c.r.Context().Err()
}

// Value implements context.Context by delegating to the request context.
func (c *Context) Value(key any) any {
	return c.r.Context().Value(key)
}
