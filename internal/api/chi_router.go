// Switchboard - Multi-Tenant Realtime Chat Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/switchboard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/switchboard/internal/auth"
	"github.com/tomtom215/switchboard/internal/authz"
	"github.com/tomtom215/switchboard/internal/middleware"
	"github.com/tomtom215/switchboard/internal/models"
)

// Authenticator is chi-compatible middleware that resolves the caller's
// identity.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
}

// ScopeAuthorizer decides what a token scope may do.
type ScopeAuthorizer interface {
	Allows(scope string, action authz.Action) bool
}

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	auth          Authenticator
	scopes        ScopeAuthorizer
	realtime      http.Handler
}

// NewRouter creates a router. realtime serves /ws and may be nil. With a nil
// scopes authorizer the tenant-wide routes reject every caller.
func NewRouter(handler *Handler, chiMiddleware *ChiMiddleware, auth Authenticator, scopes ScopeAuthorizer, realtime http.Handler) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		chiMiddleware: chiMiddleware,
		auth:          auth,
		scopes:        scopes,
		realtime:      realtime,
	}
}

// requireScope admits callers whose token scope grants action.
func (router *Router) requireScope(action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok || router.scopes == nil || !router.scopes.Allows(id.Scope, action) {
				respondError(w, r, models.PermissionDenied(string(action)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, models.NotFound("route", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, r, http.StatusMethodNotAllowed, errorBody{
			Code:    string(models.KindValidation),
			Message: "method not allowed",
		})
	})

	r.Get("/health/live", router.handler.HealthLive)
	r.Get("/health/ready", router.handler.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	if router.realtime != nil {
		r.With(router.chiMiddleware.RateLimit("ws")).Get("/ws", router.realtime.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("api"))
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(router.auth.Authenticate)

		r.Route("/channels", func(r chi.Router) {
			r.Post("/", router.handler.CreateChannel)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", router.handler.GetChannel)
				r.Delete("/", router.handler.DeleteChannel)

				r.Get("/members", router.handler.ListMembers)
				r.Post("/members", router.handler.AddMembers)
				r.Patch("/members/{userId}", router.handler.UpdateMember)
				r.Delete("/members/{userId}", router.handler.RemoveMember)
				r.Post("/join", router.handler.JoinChannel)
				r.Post("/leave", router.handler.LeaveChannel)
				r.Put("/hidden", router.handler.SetHidden)

				r.Post("/freeze", router.handler.FreezeChannel)
				r.Delete("/freeze", router.handler.UnfreezeChannel)
				r.Post("/truncate", router.handler.TruncateChannel)
				r.Put("/slow-mode", router.handler.SetSlowMode)
				r.Post("/bans", router.handler.BanMember)
				r.Delete("/bans/{userId}", router.handler.UnbanMember)

				r.Get("/messages", router.handler.History)
				r.Post("/messages", router.handler.SendMessage)
				r.Post("/scheduled-messages", router.handler.ScheduleMessage)
				r.Post("/read", router.handler.MarkRead)
				r.Get("/unread", router.handler.Unread)
			})
		})

		r.Route("/messages/{id}", func(r chi.Router) {
			r.Get("/", router.handler.GetMessage)
			r.Patch("/", router.handler.EditMessage)
			r.Delete("/", router.handler.DeleteMessage)
			r.Get("/replies", router.handler.Replies)
			r.Post("/replies", router.handler.Reply)
			r.Get("/reactions", router.handler.ListReactions)
			r.Post("/reactions", router.handler.React)
			r.Delete("/reactions/{emoji}", router.handler.Unreact)
			r.Post("/pin", router.handler.Pin)
			r.Delete("/pin", router.handler.Unpin)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Use(router.requireScope(authz.ActionManageWebhooks))
			r.Get("/", router.handler.ListWebhooks)
			r.Post("/", router.handler.CreateWebhook)
			r.Delete("/{id}", router.handler.DeleteWebhook)
			r.Get("/{id}/deliveries", router.handler.DeliveryLogs)
		})
	})

	return r
}
