// Package api exposes the SDK core over HTTP for services that do not embed it.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goflagship-server-sdk/internal/auth"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/evaluator"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/model"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/store"
	"github.com/TimurManjosov/goflagship-server-sdk/internal/telemetry"
)

// SDK is the part of sdk.Client served over HTTP.
type SDK interface {
	IsReady() bool
	CheckGate(ctx context.Context, user model.User, gate string) (bool, error)
	GetConfig(ctx context.Context, user model.User, config string) (model.DynamicConfig, error)
	GetExperiment(ctx context.Context, user model.User, experiment string) (model.DynamicConfig, error)
	GetLayer(ctx context.Context, user model.User, layer string) (model.Layer, error)
	LogEventObject(event model.Event) error
	GetClientInitializeResponse(user model.User) (map[string]any, error)
	Flush(ctx context.Context) error
	OverrideGate(gate string, value any, userID string)
	OverrideConfig(config string, value any, userID string)
}

// Reloader rebuilds the local ruleset after the store changes.
type Reloader interface {
	Reload(ctx context.Context) error
	Ruleset() *evaluator.Ruleset
}

// Deps holds everything a Server needs.
type Deps struct {
	SDK      SDK
	Store    store.Store
	Reloader Reloader
	Env      string
	Auth     *auth.Authenticator
	// RateLimitPerIP is requests per minute per client IP; zero disables limiting.
	RateLimitPerIP int
	Logger         zerolog.Logger
}

type Server struct {
	sdk       SDK
	store     store.Store
	reloader  Reloader
	env       string
	auth      *auth.Authenticator
	rateLimit int
	logger    zerolog.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		sdk:       d.SDK,
		store:     d.Store,
		reloader:  d.Reloader,
		env:       d.Env,
		auth:      d.Auth,
		rateLimit: d.RateLimitPerIP,
		logger:    d.Logger.With().Str("component", "api").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	r.Use(middleware.Timeout(10 * time.Second))
	if s.rateLimit > 0 {
		r.Use(httprate.Limit(s.rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(RateLimitedError),
		))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAuth(auth.RoleClient))
			r.Post("/check_gate", s.handleCheckGate)
			r.Post("/get_config", s.handleGetConfig)
			r.Post("/get_experiment", s.handleGetExperiment)
			r.Post("/get_layer", s.handleGetLayer)
			r.Post("/log_event", s.handleLogEvent)
			r.Post("/client_initialize", s.handleClientInitialize)
			r.Post("/flush", s.handleFlush)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.auth.RequireAuth(auth.RoleAdmin))
			r.Post("/overrides/gate", s.handleOverrideGate)
			r.Post("/overrides/config", s.handleOverrideConfig)
			r.Get("/ruleset", s.handleRuleset)
			r.Get("/specs", s.handleListSpecs)
			r.Post("/specs", s.handleUpsertSpec)
			r.Get("/specs/{name}", s.handleGetSpec)
			r.Delete("/specs/{name}", s.handleDeleteSpec)
		})
	})

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.sdk.IsReady() {
		NotReadyError(w, r, "sdk is not initialized")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
