// Package server wires handlers, middleware and the WebSocket endpoint into
// one http.Handler.
package server

import (
	"net/http"

	"github.com/titikruang/ruang/internal/identity"
	"github.com/titikruang/ruang/internal/metrics"
	"github.com/titikruang/ruang/internal/service"
	"github.com/titikruang/ruang/internal/transport/http/handlers"
	"github.com/titikruang/ruang/internal/transport/http/middleware"
	"github.com/titikruang/ruang/internal/transport/ws"
)

type Deps struct {
	Auth      *service.AuthService
	Groups    *service.GroupService
	Messages  *service.MessageService
	Reactions *service.ReactionService
	Names     identity.NameStore
	Hub       *ws.Hub
	Limiter   *middleware.IPRateLimiter

	JWTSecret      string
	AllowedOrigins []string
}

func NewRouter(d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Auth, d.Names)
	groupHandler := handlers.NewGroupHandler(d.Groups)
	messageHandler := handlers.NewMessageHandler(d.Messages, d.Reactions, d.Names)

	auth := middleware.Auth(d.JWTSecret)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	signIn := http.Handler(http.HandlerFunc(authHandler.SignInAnonymously))
	if d.Limiter != nil {
		signIn = d.Limiter.Handler(signIn)
	}

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("POST /api/v1/auth/anonymous", signIn)
	mux.HandleFunc("POST /api/v1/auth/resume", authHandler.Resume)
	mux.Handle("GET /ws", ws.ServeWS(d.Hub, d.Messages, d.JWTSecret, d.AllowedOrigins))

	// Protected - Identity
	mux.Handle("GET /api/v1/me", protected(authHandler.Me))

	// Protected - Groups
	mux.Handle("POST /api/v1/groups", protected(groupHandler.Create))
	mux.Handle("GET /api/v1/groups", protected(groupHandler.List))
	mux.Handle("GET /api/v1/groups/directory", protected(groupHandler.Directory))
	mux.Handle("GET /api/v1/groups/{id}", protected(groupHandler.Get))
	mux.Handle("POST /api/v1/groups/{id}/members", protected(groupHandler.AddMember))
	mux.Handle("DELETE /api/v1/groups/{id}/members/{uid}", protected(groupHandler.RemoveMember))

	// Protected - Group messages
	mux.Handle("GET /api/v1/groups/{id}/messages", protected(messageHandler.List))
	mux.Handle("POST /api/v1/groups/{id}/messages", protected(messageHandler.Send))
	mux.Handle("POST /api/v1/groups/{id}/messages/{mid}/reactions", protected(messageHandler.ToggleReaction))

	// Protected - Channel messages
	mux.Handle("GET /api/v1/channels/{name}/messages", protected(messageHandler.List))
	mux.Handle("POST /api/v1/channels/{name}/messages", protected(messageHandler.Send))
	mux.Handle("POST /api/v1/channels/{name}/messages/{mid}/reactions", protected(messageHandler.ToggleReaction))

	return middleware.Logging(middleware.CORS(d.AllowedOrigins)(mux))
}
