package bserve

import (
	"context"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// NotFoundPath is the route key of the handler that renders the body of 404 responses. It is not matched against
// request paths in any special way.
const NotFoundPath = "404"

// Routes is an immutable route table. Each connection works against the Routes that were current when it was
// accepted.
type Routes struct {
	paths map[string]Handler
}

// Resolve returns the handler registered for exactly path.
func (rt *Routes) Resolve(path string) (Handler, bool) {
	h, ok := rt.paths[path]
	return h, ok
}

// Len returns the number of registered paths.
func (rt *Routes) Len() int { return len(rt.paths) }

// Router maps exact paths to handlers. It is safe for concurrent use: writers copy the table and swap it in, so a
// [Routes] snapshot never changes after it was taken.
type Router struct {
	mu          sync.Mutex
	routes      atomic.Pointer[Routes]
	middlewares struct {
		captured bool
		buffered []Middleware
	}
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	r := &Router{}
	r.routes.Store(&Routes{paths: map[string]Handler{}})

	return r
}

// Use allows providing of middleware. It must be called before any path is added.
func (r *Router) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.middlewares.captured {
		panic("bserve: cannot call Use() after calling AddPath")
	}

	r.middlewares.buffered = append(r.middlewares.buffered, mw...)
}

// AddPath registers h for path, replacing any handler that was registered for it before.
func (r *Router) AddPath(path string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.middlewares.captured = true
	wrapped := Wrap(h, r.middlewares.buffered...)

	r.swap(func(paths map[string]Handler) { paths[path] = wrapped })
}

// AddPathFunc registers a function for path.
func (r *Router) AddPathFunc(path string, h func(context.Context, *Request) (string, error)) {
	r.AddPath(path, HandlerFunc(h))
}

// RemovePath removes the handler for path. Removing a path that was never added is a no-op.
func (r *Router) RemovePath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.routes.Load().paths[path]; !ok {
		return
	}

	r.swap(func(paths map[string]Handler) { delete(paths, path) })
}

// Resolve returns the handler currently registered for exactly path.
func (r *Router) Resolve(path string) (Handler, bool) {
	return r.Snapshot().Resolve(path)
}

// Paths returns the registered paths in sorted order.
func (r *Router) Paths() []string {
	keys := lo.Keys(r.Snapshot().paths)
	slices.Sort(keys)

	return keys
}

// Snapshot returns the current route table.
func (r *Router) Snapshot() *Routes {
	return r.routes.Load()
}

// swap must be called with mu held.
func (r *Router) swap(mutate func(map[string]Handler)) {
	next := maps.Clone(r.routes.Load().paths)
	mutate(next)
	r.routes.Store(&Routes{paths: next})
}
