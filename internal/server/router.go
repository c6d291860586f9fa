package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"foodgram/internal/handlers"
	applog "foodgram/internal/log"
	"foodgram/internal/metrics"
)

type routerOptions struct {
	MediaRoot       string
	MediaURL        string
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

type route struct {
	pattern   string
	handler   http.HandlerFunc
	protected bool
}

func apiRoutes() []route {
	return []route{
		{"POST /api/auth/token/logout/{$}", handlers.Logout, true},

		{"GET /api/users/{$}", handlers.ListUsers, false},
		{"POST /api/users/{$}", handlers.CreateUser, false},
		{"GET /api/users/me/{$}", handlers.Me, true},
		{"POST /api/users/set_password/{$}", handlers.SetPassword, true},
		{"GET /api/users/subscriptions/{$}", handlers.Subscriptions, true},
		{"GET /api/users/{id}/{$}", handlers.GetUser, false},
		{"POST /api/users/{id}/subscribe/{$}", handlers.Subscribe, true},
		{"DELETE /api/users/{id}/subscribe/{$}", handlers.Unsubscribe, true},

		{"GET /api/tags/{$}", handlers.ListTags, false},
		{"POST /api/tags/{$}", handlers.CreateTag, false},
		{"GET /api/tags/{id}/{$}", handlers.GetTag, false},
		{"PUT /api/tags/{id}/{$}", handlers.UpdateTag, false},
		{"PATCH /api/tags/{id}/{$}", handlers.UpdateTag, false},
		{"DELETE /api/tags/{id}/{$}", handlers.DeleteTag, false},

		{"GET /api/ingredients/{$}", handlers.ListIngredients, false},
		{"POST /api/ingredients/{$}", handlers.CreateIngredient, false},
		{"GET /api/ingredients/{id}/{$}", handlers.GetIngredient, false},
		{"PUT /api/ingredients/{id}/{$}", handlers.UpdateIngredient, false},
		{"PATCH /api/ingredients/{id}/{$}", handlers.UpdateIngredient, false},
		{"DELETE /api/ingredients/{id}/{$}", handlers.DeleteIngredient, false},

		{"GET /api/recipes/{$}", handlers.ListRecipes, false},
		{"POST /api/recipes/{$}", handlers.CreateRecipe, true},
		{"GET /api/recipes/download_shopping_cart/{$}", handlers.DownloadShoppingCart, true},
		{"GET /api/recipes/{id}/{$}", handlers.GetRecipe, false},
		{"PUT /api/recipes/{id}/{$}", handlers.UpdateRecipe, true},
		{"PATCH /api/recipes/{id}/{$}", handlers.UpdateRecipe, true},
		{"DELETE /api/recipes/{id}/{$}", handlers.DeleteRecipe, true},
		{"POST /api/recipes/{id}/favorite/{$}", handlers.AddFavorite, true},
		{"DELETE /api/recipes/{id}/favorite/{$}", handlers.RemoveFavorite, true},
		{"POST /api/recipes/{id}/shopping_cart/{$}", handlers.AddToShoppingCart, true},
		{"DELETE /api/recipes/{id}/shopping_cart/{$}", handlers.RemoveFromShoppingCart, true},
	}
}

func newRouter(opts routerOptions) http.Handler {
	mux := http.NewServeMux()
	ctx := context.Background()
	applog.Debug(ctx, "registering http routes")

	mux.HandleFunc("GET /healthz", handlers.Health)
	applog.Debug(ctx, "route registered", "path", "/healthz")
	mux.Handle("GET /metrics", metrics.Handler())
	applog.Debug(ctx, "route registered", "path", "/metrics")

	var login http.Handler = http.HandlerFunc(handlers.Login)
	if opts.LoginRateLimit > 0 && opts.LoginRateWindow > 0 {
		login = httprate.LimitByIP(opts.LoginRateLimit, opts.LoginRateWindow)(login)
	}
	mux.Handle("POST /api/auth/token/login/{$}", login)
	applog.Debug(ctx, "route registered", "path", "/api/auth/token/login/", "rateLimit", opts.LoginRateLimit)

	for _, rt := range apiRoutes() {
		var h http.Handler = rt.handler
		if rt.protected {
			h = handlers.RequireAuthentication(h)
		}
		mux.Handle(rt.pattern, h)
		applog.Debug(ctx, "route registered", "pattern", rt.pattern, "protected", rt.protected)
	}

	if opts.MediaURL != "" && opts.MediaRoot != "" {
		mux.Handle("GET "+opts.MediaURL, http.StripPrefix(opts.MediaURL, http.FileServer(http.Dir(opts.MediaRoot))))
		applog.Debug(ctx, "route registered", "path", opts.MediaURL, "static", true)
	}
	return mux
}
