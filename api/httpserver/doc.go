// Package httpserver provides the reusable HTTP serving chassis shared by
// the serving node and the peer directory.
//
// The package implements a base server with standard health endpoints,
// graceful shutdown, an optional metrics snapshot listener, and flexible
// routing. Components implement RouteRegistrar to mount their endpoints and
// inherit the rest of the lifecycle.
//
// # Server Lifecycle
//
//  1. Initialization: configure the server and hand it route registrars
//  2. Startup: HTTP and metrics servers run in background goroutines
//  3. Readiness control: drain/undrain flip the readiness probe for load
//     balancers ahead of a restart
//  4. Graceful shutdown: in-flight requests get a bounded window to finish
//
// # Health and Diagnostics
//
// Every server built on BaseServer exposes:
//
//   - GET /livez: process is up
//   - GET /readyz: process accepts new work (503 while draining)
//   - GET /drain, /undrain: flip readiness
//   - optional JSON metrics snapshot on a separate listener
//   - optional pprof endpoints under /debug when enabled
//
// # Usage
//
//	type handler struct{}
//
//	func (h *handler) RegisterRoutes(r chi.Router) {
//		r.Get("/nodes", h.handleList)
//	}
//
//	srv := httpserver.New(&httpserver.HTTPServerConfig{
//		ListenAddr: ":8092",
//		Log:        log,
//	}, &handler{})
//	srv.RunInBackground()
//	defer srv.Shutdown()
package httpserver
