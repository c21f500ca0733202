package httpx

import "github.com/labstack/echo/v4"

// Router registers routes under a shared prefix and middleware stack.
// Verb methods return the router so registrations can be chained.
type Router struct {
	g *echo.Group
}

func (r *Router) Group(prefix string, mw ...MiddlewareFunc) *Router {
	return &Router{g: r.g.Group(prefix, mw...)}
}

func (r *Router) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.g.GET(path, h, mw...)
	return r
}

func (r *Router) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.g.POST(path, h, mw...)
	return r
}

func (r *Router) PATCH(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.g.PATCH(path, h, mw...)
	return r
}
