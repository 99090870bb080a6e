// File: internal/middleware/route.go
package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// routeOf returns the matched mux path template rather than the raw path,
// so reference codes and tokens in the URL never reach the logs.
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
