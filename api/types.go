package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	authHandler         authHandler
	projectHandler      projectHandler
	collaboratorHandler collaboratorHandler
	dashboardHandler    dashboardHandler
	draftHandler        draftHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string   `json:"error" example:"Internal Server Error"`
	Status  string   `json:"status" example:"error"`
	Field   string   `json:"field,omitempty" example:"title"`
	Fields  []string `json:"fields,omitempty" example:"title,abstract"`
	Details string   `json:"details,omitempty" example:"Additional error details"`
	Cause   string   `json:"cause,omitempty" example:"Underlying error cause"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   models.Profile `json:"profile"`
	Role      models.Role    `json:"role"`
}

type meResponse struct {
	Profile models.Profile `json:"profile"`
	Role    models.Role    `json:"role"`
}

type projectCollection struct {
	Projects []models.Project `json:"projects"`
	Total    int              `json:"total"`
}

// partialCreateResponse is the 207 body of a submission whose project was stored but
// some members could not be linked.
type partialCreateResponse struct {
	*workflow.CreateResult
	Warning string `json:"warning"`
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type deleteResponse struct {
	Status  string `json:"status"`
	Deleted int64  `json:"deleted"`
}

type counterResponse struct {
	Count       int64  `json:"count"`
	DownloadURL string `json:"download_url,omitempty"`
}

type inviteRequest struct {
	StudentID uuid.UUID `json:"student_id"`
}

type respondRequest struct {
	Status models.InviteStatus `json:"status"`
}
