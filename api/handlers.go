package api

import (
	"context"
	"net/http"
	"time"

	"github.com/projectshelf/backend/dashboard"
	"github.com/projectshelf/backend/discovery"
	"github.com/projectshelf/backend/drafts"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/metrics"
	"github.com/projectshelf/backend/workflow"
)

// Dependencies are the services the router dispatches to.
type Dependencies struct {
	Workflow *workflow.Service
	Browser  *discovery.Browser
	Board    *dashboard.Board
	Drafts   *drafts.Manager
	Tokens   *identity.TokenIssuer
	Resolver *identity.Resolver
	Metrics  *metrics.Metrics
	// Ping reports database health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies) *routeHandlers {
	return &routeHandlers{
		authHandler:         newAuthHandler(deps.Workflow, deps.Tokens, deps.Resolver),
		projectHandler:      newProjectHandler(deps.Workflow, deps.Browser, deps.Drafts),
		collaboratorHandler: newCollaboratorHandler(deps.Workflow),
		dashboardHandler:    newDashboardHandler(deps.Board, deps.Workflow),
		draftHandler:        newDraftHandler(deps.Drafts),
	}
}

func healthHandler(responder Responder, ping func(context.Context) error, startupTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				responder.WriteError(w, errs.NewDatabaseError("ping", "database", err))
				return
			}
		}
		responder.WriteJSON(w, map[string]any{
			"status": "ok",
			"uptime": time.Since(startupTime).Round(time.Second).String(),
		})
	}
}
