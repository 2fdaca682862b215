package httprouter

import (
	"net/http"
	"strings"

	"github.com/devilelephant/blacklist/router"
	jshttprouter "github.com/julienschmidt/httprouter"
)

var _ router.Router = (*Router)(nil)

// Router implements router.Router on julienschmidt/httprouter.
type Router struct {
	rt *jshttprouter.Router
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.rt.ServeHTTP(w, req)
}

// Handle registers handler for an endpoint "METHOD /path". A bare path
// is registered for GET.
func (r *Router) Handle(endpoint string, handler http.Handler) {
	method, path := splitEndpoint(endpoint)
	r.rt.Handler(method, path, handler)
}

func (r *Router) HandleFunc(endpoint string, handler func(http.ResponseWriter, *http.Request)) {
	r.Handle(endpoint, http.HandlerFunc(handler))
}

// New returns a Router answering unknown paths and methods with the given
// handlers. Nil keeps the httprouter defaults.
func New(notFound, methodNotAllowed http.Handler) *Router {
	rt := jshttprouter.New()
	rt.RedirectTrailingSlash = false
	if notFound != nil {
		rt.NotFound = notFound
	}
	if methodNotAllowed != nil {
		rt.MethodNotAllowed = methodNotAllowed
	}
	return &Router{rt: rt}
}

func splitEndpoint(endpoint string) (method, path string) {
	if m, p, ok := strings.Cut(endpoint, " "); ok {
		return m, strings.TrimSpace(p)
	}
	return http.MethodGet, endpoint
}
