package api

import (
	"github.com/go-chi/chi/v5"
)

// setupPublicRoutes registers discovery and account routes. A bearer token is optional
// and widens what GET /projects/{projectID} may return.
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Post("/auth/register", handlers.authHandler.register())
	r.Post("/auth/login", handlers.authHandler.login())

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.identify)

		r.Get("/projects", handlers.projectHandler.getAllProjects())
		r.Get("/projects/{projectID}", handlers.projectHandler.getProject())
		r.Post("/projects/{projectID}/view", handlers.projectHandler.recordView())
		r.Post("/projects/{projectID}/download", handlers.projectHandler.recordDownload())
		r.Get("/teachers", handlers.projectHandler.getTeachers())
	})
}

// setupAuthenticatedRoutes sets up all routes that require a session
func setupAuthenticatedRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)

		r.Get("/me", handlers.authHandler.me())
		r.Post("/teachers", handlers.authHandler.createTeacher())

		// Project Handler endpoints
		r.Post("/projects", handlers.projectHandler.createProject())
		r.Post("/projects/bulk-delete", handlers.projectHandler.bulkDeleteProjects())
		r.Put("/projects/{projectID}", handlers.projectHandler.updateProject())
		r.Delete("/projects/{projectID}", handlers.projectHandler.deleteProject())
		r.Post("/projects/{projectID}/review", handlers.projectHandler.reviewProject())
		r.Get("/projects/{projectID}/reviews", handlers.projectHandler.getReviews())
		r.Put("/projects/{projectID}/guide", handlers.projectHandler.assignGuide())

		// Collaboration ledger
		r.Get("/projects/{projectID}/collaborators", handlers.collaboratorHandler.getCollaborators())
		r.Post("/projects/{projectID}/collaborators", handlers.collaboratorHandler.inviteCollaborator())
		r.Get("/projects/{projectID}/candidates", handlers.collaboratorHandler.getCandidates())
		r.Delete("/collaborators/{linkID}", handlers.collaboratorHandler.removeCollaborator())
		r.Get("/invitations", handlers.collaboratorHandler.getInvitations())
		r.Post("/invitations/{linkID}/respond", handlers.collaboratorHandler.respondToInvitation())

		// Dashboards
		r.Get("/dashboard/student", handlers.dashboardHandler.student())
		r.Get("/dashboard/teacher", handlers.dashboardHandler.teacher())
		r.Get("/dashboard/admin", handlers.dashboardHandler.admin())
		r.Get("/admin/integrity", handlers.dashboardHandler.integrity())

		// Drafts
		r.Get("/drafts/{draftKey}", handlers.draftHandler.getDraft())
		r.Put("/drafts/{draftKey}", handlers.draftHandler.putDraft())
		r.Delete("/drafts/{draftKey}", handlers.draftHandler.deleteDraft())
	})
}
