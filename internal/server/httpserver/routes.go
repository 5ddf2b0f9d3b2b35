package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route names. The authenticator and the metrics labels key on these.
const (
	RouteAccountCreate = "account.create"
	RouteAccountShow   = "account.show"
	RouteAccountUpdate = "account.update"
	RouteTokenCreate   = "token.create"
	RouteTokenRefresh  = "token.refresh"
	RouteTokenDelete   = "token.delete"
	RoutePing          = "ping"
	RouteMetrics       = "metrics"
)

// publicRoutes never look at the access token header.
var publicRoutes = map[string]struct{}{
	RouteAccountCreate: {},
	RouteTokenCreate:   {},
	RoutePing:          {},
	RouteMetrics:       {},
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}
