package middleware

import (
	"net/http"
	"sort"
	"sync"
)

// Route is one registered pattern and its access level.
type Route struct {
	Pattern string
	Level   AccessLevel
}

// Router registers handlers on a ServeMux with an explicit access level
// per route. Every route goes through the gate.
type Router struct {
	mux      *http.ServeMux
	verifier Verifier
	opts     options

	mu     sync.Mutex
	routes []Route
}

func NewRouter(mux *http.ServeMux, v Verifier, opts ...Option) *Router {
	if mux == nil {
		mux = http.NewServeMux()
	}
	return &Router{mux: mux, verifier: v, opts: buildOptions(opts)}
}

func (r *Router) Public(pattern string, h http.Handler) {
	r.Handle(pattern, Public, h)
}

func (r *Router) Private(pattern string, h http.Handler) {
	r.Handle(pattern, Private, h)
}

func (r *Router) PublicFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, Public, h)
}

func (r *Router) PrivateFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, Private, h)
}

// Handle registers h under pattern. Patterns use ServeMux syntax,
// including method prefixes such as "POST /api/v1/auth/login".
func (r *Router) Handle(pattern string, level AccessLevel, h http.Handler) {
	r.mu.Lock()
	r.routes = append(r.routes, Route{Pattern: pattern, Level: level})
	r.mu.Unlock()
	r.mux.Handle(pattern, gate(r.verifier, level, r.opts, h))
}

// Routes returns the registered routes sorted by pattern.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	out := append([]Route(nil), r.routes...)
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
