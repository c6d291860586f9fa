package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"foodgram/internal/handlers"
	applog "foodgram/internal/log"
	"foodgram/internal/metrics"
	"foodgram/internal/shopping"
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Session  SessionConfig
	Database *gorm.DB
	// SessionStore persists auth tokens. Nil keeps them in memory.
	SessionStore scs.Store
	Media        MediaConfig
	Shopping     ShoppingConfig
	API          APIConfig
}

// SessionConfig controls how long issued auth tokens stay valid.
type SessionConfig struct {
	Lifetime    time.Duration
	IdleTimeout time.Duration
}

type MediaConfig struct {
	Root string
	URL  string
}

type ShoppingConfig struct {
	FontPath string
}

// APIConfig holds the knobs of the JSON API surface.
type APIConfig struct {
	PageSize           int
	CORSAllowedOrigins []string
	LoginRateLimit     int
	LoginRateWindow    time.Duration
}

// Server wraps an http.Server and exposes helpers for bootstrapping a
// production-ready web service.
type Server struct {
	config     Config
	httpServer *http.Server
}

// New builds a new Server using the provided configuration.
func New(cfg Config) (*Server, error) {
	ctx := context.Background()
	applog.Debug(ctx, "initializing server",
		"addr", cfg.Addr,
		"sessionLifetime", cfg.Session.Lifetime.String(),
		"sessionIdleTimeout", cfg.Session.IdleTimeout.String(),
	)

	sessionCfg := cfg.Session
	if sessionCfg.Lifetime <= 0 {
		applog.Debug(ctx, "session lifetime not provided, using default")
		sessionCfg.Lifetime = 24 * time.Hour
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = sessionCfg.Lifetime
	sessionManager.IdleTimeout = sessionCfg.IdleTimeout
	if cfg.SessionStore != nil {
		sessionManager.Store = cfg.SessionStore
	}
	applog.Debug(ctx, "session manager configured", "externalStore", cfg.SessionStore != nil)

	media := cfg.Media
	if strings.TrimSpace(media.Root) == "" {
		media.Root = "media"
	}
	media.URL = "/" + strings.Trim(media.URL, "/") + "/"
	if media.URL == "//" {
		media.URL = "/media/"
	}

	if _, err := shopping.LoadFont(cfg.Shopping.FontPath); err != nil {
		applog.Error(ctx, "shopping list font is unusable, pdf exports will fail", "error", err, "path", cfg.Shopping.FontPath)
	}

	handlers.Configure(sessionManager, cfg.Database, handlers.Options{
		MediaRoot: media.Root,
		MediaURL:  media.URL,
		PageSize:  cfg.API.PageSize,
		Shopping:  shopping.NewService(shopping.GormCartReader{DB: cfg.Database}, cfg.Shopping.FontPath),
	})

	applog.Debug(ctx, "handler dependencies configured")

	origins := cfg.API.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})

	router := newRouter(routerOptions{
		MediaRoot:       media.Root,
		MediaURL:        media.URL,
		LoginRateLimit:  cfg.API.LoginRateLimit,
		LoginRateWindow: cfg.API.LoginRateWindow,
	})

	var handler http.Handler = metrics.Middleware(router)
	handler = handlers.TokenAuthentication(handler)
	handler = corsHandler(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)

	applog.Debug(ctx, "http handler chain prepared")

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Start begins serving HTTP traffic using the underlying http.Server.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "server starting listener", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	applog.Debug(ctx, "server initiating graceful shutdown")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured HTTP handler, enabling integration tests.
func (s *Server) Handler() http.Handler {
	applog.Debug(context.Background(), "server handler requested")
	return s.httpServer.Handler
}
