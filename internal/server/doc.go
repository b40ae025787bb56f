// Package server exposes song lookups over HTTP and hosts the browser display.
//
// # Routes
//
//	GET /lyrics?song=<query>      song JSON, or {"error": "..."} with 400/404/500
//	GET /api/lyrics?song=<query>  alias kept for older clients
//	GET /health                   liveness
//	GET /display                  websocket feed of rendered slides
//	GET /                         page that renders the feed full screen
//
// # Router
//
// [BasicRouter] wraps [http.ServeMux]. [Middleware] is applied in reverse order
// of registration so the first one added runs outermost.
// Types implementing [Handler] register every path returned by Routes.
package server
