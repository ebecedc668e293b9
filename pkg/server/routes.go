package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// routes registers all HTTP handlers.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api", s.handleAPI)
	mux.HandleFunc("GET /api/hosts/{address}", s.handleHostAPI)
	mux.HandleFunc("GET /api/radius", s.handleGetRadius)
	mux.HandleFunc("PUT /api/radius", s.handleSetRadius)
	mux.HandleFunc("GET /metrics", s.handlePrometheus)

	return noCacheMiddleware(mux)
}

// startAPI binds the API port and serves it in a goroutine. Binding
// happens before returning so a busy port is reported to the caller.
func (s *Server) startAPI() error {
	ln, err := net.Listen("tcp", ":"+s.listenPort)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", s.listenPort, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Infof("Starting API server on %v...", ln.Addr())
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("API server stopped: %v", err)
		}
	}()
	return nil
}

// noCacheMiddleware marks every response as uncacheable; radar state
// changes every tick.
func noCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
