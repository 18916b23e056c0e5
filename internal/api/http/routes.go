package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-readiness/internal/assessment"
	authmw "github.com/mind-engage/mindengage-readiness/internal/auth/middleware"
	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/metrics"
	"github.com/mind-engage/mindengage-readiness/internal/rbac"
	"github.com/mind-engage/mindengage-readiness/internal/report"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

// Deps are the collaborators of the HTTP surface. Ready, Results, Events and
// Archive may be nil when persistence or archiving is off.
type Deps struct {
	Registry *catalog.Registry
	Sessions session.Store
	Service  *assessment.Service
	Ready    Pinger // nil when persistence is disabled
	Results  ResultLister
	Events   EventReader
	Archive  *report.Archive

	Auth               *authmw.AuthService
	Admin              authmw.Credentials
	AllowClaimFallback bool
}

// Mount registers every route on r.
func Mount(r chi.Router, d Deps) {
	r.Get("/healthz", Healthz)
	r.Get("/readyz", ReadyzHandler(d.Ready))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(ar chi.Router) {
		ar.Get("/configs", ListConfigsHandler(d.Registry))
		ar.Get("/configs/{configID}", GetConfigHandler(d.Registry))

		ar.Post("/sessions", CreateSessionHandler(d.Registry, d.Sessions))
		ar.Post("/sessions/restore", RestoreHandler(d.Registry, d.Sessions))
		ar.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Get("/", GetSessionHandler(d.Registry, d.Sessions))
			sr.Delete("/", DeleteSessionHandler(d.Sessions))
			sr.Put("/context", SetContextHandler(d.Registry, d.Sessions))
			sr.Post("/start", StartSessionHandler(d.Registry, d.Sessions))
			sr.Put("/answers/{questionID}", AnswerHandler(d.Registry, d.Sessions))
			sr.Post("/submit", SubmitHandler(d.Service))
			sr.Get("/snapshot", SnapshotHandler(d.Sessions))
			sr.Get("/report", ReportHandler(d.Registry, d.Sessions, d.Archive))
		})

		ar.Post("/assessments", EvaluateHandler(d.Service))
	})

	if d.Auth == nil {
		return
	}
	r.Post("/auth/login", authmw.LoginHandler(d.Auth, d.Admin))

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachRole(d.Admin, d.AllowClaimFallback))
		pr.Route("/admin", func(adm chi.Router) {
			if d.Results != nil {
				adm.With(rbac.Require(rbac.PermResultsList)).Get("/results", ListResultsHandler(d.Registry, d.Results))
			}
			if d.Events != nil {
				adm.With(rbac.Require(rbac.PermEventsList)).Get("/events", ListEventsHandler(d.Events))
			}
		})
	})
}
