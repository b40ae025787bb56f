package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/display"
	"github.com/desertthunder/lyricslide/internal/services"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router registers handlers and applies middleware.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

const shutdownTimeout = 5 * time.Second

// Server is the lyrics lookup service, optionally hosting the display hub.
type Server struct {
	addr   string
	router *BasicRouter
	logger *log.Logger
}

// New builds a Server listening on addr. A nil hub disables the display routes.
func New(addr string, lookup services.Service, hub *display.Hub, logger *log.Logger) *Server {
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger), CORS())

	router.Handler(NewLyricsHandler(lookup, logger))
	router.HandleFunc(http.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok", "service": lookup.Name()}
		if hub != nil {
			body["displays"] = hub.Clients()
		}
		writeJSON(w, http.StatusOK, body)
	})

	if hub != nil {
		router.Handle(http.MethodGet, "/display", hub)
		router.HandleFunc(http.MethodGet, "/{$}", hub.Page)
	}

	return &Server{addr: addr, router: router, logger: logger}
}

// ServeHTTP exposes the routed handler, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
