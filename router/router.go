package router

import (
	"net/http"
)

// Router registers handlers for endpoints of the form "METHOD /path",
// e.g. "GET /blacklist/api".
type Router interface {
	http.Handler
	Handle(endpoint string, handler http.Handler)
	HandleFunc(endpoint string, handler func(http.ResponseWriter, *http.Request))
}
