package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/artevasinkaizen-cmd/partesapp/internal/auth"
	"github.com/artevasinkaizen-cmd/partesapp/internal/blob"
	"github.com/artevasinkaizen-cmd/partesapp/internal/config"
	"github.com/artevasinkaizen-cmd/partesapp/internal/http/handlers"
	"github.com/artevasinkaizen-cmd/partesapp/internal/middleware"
	"github.com/artevasinkaizen-cmd/partesapp/internal/storage"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware and routes and returns a ready server.
func New(cfg config.Config, log *zap.Logger, store storage.Store, blobs blob.Store, authSvc *auth.Service) *Server {
	mux := http.NewServeMux()

	handlers.NewHealthHandler(time.Now()).Register(mux)
	handlers.NewAuthHandler(authSvc, log).Register(mux)
	handlers.NewStatsHandler(store, log).Register(mux)
	handlers.NewUploadHandler(store, blobs, log).Register(mux)
	handlers.NewTableHandler(store, blobs, log).Register(mux)

	// Local uploads are served statically; the S3 driver returns absolute
	// URLs so nothing is mounted for it.
	if local, ok := blobs.(*blob.LocalStore); ok {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(local.Dir()))))
	}

	handler := middleware.Recover(log, middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Handler exposes the configured handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.inner.Handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
