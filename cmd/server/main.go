package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"foodgram/internal/config"
	"foodgram/internal/db"
	"foodgram/internal/db/mock"
	applog "foodgram/internal/log"
	"foodgram/internal/server"
	"foodgram/internal/session/redisstore"
)

type serverLifecycle interface {
	Start() error
	Stop() error
}

var (
	loadConfigFunc      = config.Load
	setLogLevelFunc     = applog.SetLevel
	newMockDatabaseFunc = mock.New
	configureDatabase   = db.Configure
	newServerFunc       = func(cfg server.Config) (serverLifecycle, error) {
		return server.New(cfg)
	}
	dialSessionStore = func(ctx context.Context, url string) (scs.Store, func() error, error) {
		store, err := redisstore.Dial(ctx, url)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) int {
	cfg, err := loadConfigFunc()
	if err != nil {
		applog.Error(ctx, "failed to load configuration", "error", err)
		return 1
	}

	if err := setLogLevelFunc(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "error", err, "level", cfg.Logging.Level)
		return 1
	}

	database, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		applog.Error(ctx, "failed to configure database", "error", err)
		return 1
	}

	var store scs.Store
	if url := strings.TrimSpace(cfg.Redis.URL); url != "" {
		var closeStore func() error
		store, closeStore, err = dialSessionStore(ctx, url)
		if err != nil {
			applog.Error(ctx, "failed to connect to redis token store", "error", err)
			return 1
		}
		defer func() {
			if err := closeStore(); err != nil {
				applog.Error(ctx, "failed to close redis token store", "error", err)
			}
		}()
		applog.Info(ctx, "auth tokens stored in redis")
	}

	srv, err := newServerFunc(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:    cfg.Auth.Session.Lifetime,
			IdleTimeout: cfg.Auth.Session.IdleTimeout,
		},
		Database:     database,
		SessionStore: store,
		Media:        server.MediaConfig{Root: cfg.Media.Root, URL: cfg.Media.URL},
		Shopping:     server.ShoppingConfig{FontPath: cfg.Shopping.FontPath},
		API: server.APIConfig{
			PageSize:           cfg.API.PageSize,
			CORSAllowedOrigins: cfg.API.CORSAllowedOrigins,
			LoginRateLimit:     cfg.API.LoginRateLimit,
			LoginRateWindow:    cfg.API.LoginRateWindow,
		},
	})
	if err != nil {
		applog.Error(ctx, "failed to build server", "error", err)
		return 1
	}

	shutdown, unsubscribe := subscribeShutdownSig()
	defer unsubscribe()

	errCh := make(chan error, 1)
	go func() {
		applog.Info(ctx, "starting http server", "addr", cfg.Server.Addr)
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "server encountered an error", "error", err)
			return 1
		}
		return 0
	case sig := <-shutdown:
		applog.Info(ctx, "shutting down http server", "signal", sig.String())
	}

	if err := srv.Stop(); err != nil {
		applog.Error(ctx, "graceful shutdown failed", "error", err)
		return 1
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		applog.Error(ctx, "server encountered an error", "error", err)
		return 1
	}
	applog.Info(ctx, "http server stopped")
	return 0
}

// openDatabase connects to cfg.URL, or to the seeded in-memory database when
// the mock is requested or no URL is configured.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.UseMock || strings.TrimSpace(cfg.URL) == "" {
		applog.Info(ctx, "using seeded in-memory database", "requested", cfg.UseMock)
		return newMockDatabaseFunc(ctx)
	}
	return configureDatabase(cfg)
}
