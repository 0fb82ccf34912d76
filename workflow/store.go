// Package workflow implements the project lifecycle: submission, review, guide
// assignment and the collaboration ledger, with authorization enforced per call.
package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/models"
)

// Counter names an atomic per-project counter.
type Counter string

const (
	CounterViews     Counter = "view_count"
	CounterDownloads Counter = "download_count"
)

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// ListProjects returns projects in any of statuses (all when empty), newest first.
	ListProjects(ctx context.Context, statuses ...models.Status) ([]models.Project, error)
	ListProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
	ListProjectsByOwner(ctx context.Context, studentID uuid.UUID) ([]models.Project, error)
	// UpdateProjectDetails writes the editable columns, status and feedback of p only if
	// the stored status still equals expected. Fails with errs.ErrStaleState otherwise.
	UpdateProjectDetails(ctx context.Context, p *models.Project, expected models.Status) error
	// TransitionStatus moves id from one status to another. A nil feedback leaves the
	// stored feedback untouched. Fails with errs.ErrStaleState when the status moved.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.Status, feedback *string) error
	AssignGuide(ctx context.Context, id uuid.UUID, guideID *uuid.UUID, guideName *string) error
	DeleteProjects(ctx context.Context, ids []uuid.UUID) (int64, error)
	// IncrementCounter adds one to the counter in the store and returns the new value.
	IncrementCounter(ctx context.Context, id uuid.UUID, counter Counter) (int64, error)
}

type CollaboratorStore interface {
	// CreateLink fails with errs.ErrAlreadyExists when the student is already linked.
	CreateLink(ctx context.Context, link *models.ProjectCollaborator) error
	FindLink(ctx context.Context, id uuid.UUID) (*models.ProjectCollaborator, error)
	// ListLinksByProject preloads Student on every link.
	ListLinksByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectCollaborator, error)
	ListLinksByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]models.ProjectCollaborator, error)
	// ListLinksByStudent preloads Project on every link.
	ListLinksByStudent(ctx context.Context, studentID uuid.UUID, statuses ...models.InviteStatus) ([]models.ProjectCollaborator, error)
	// RespondToLink moves a link from one invite status to another. Fails with
	// errs.ErrStaleState when the link is no longer in from.
	RespondToLink(ctx context.Context, id uuid.UUID, from, to models.InviteStatus) error
	DeleteLink(ctx context.Context, id uuid.UUID) error
	DeleteLinksByProjects(ctx context.Context, projectIDs []uuid.UUID) error
	CountAcceptedLinks(ctx context.Context, projectID uuid.UUID) (int64, error)
}

type ProfileStore interface {
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) error
	// ListFaculty returns teacher, hod and admin profiles ordered by name.
	ListFaculty(ctx context.Context) ([]models.Profile, error)
	// SearchProfiles matches names case-insensitively by substring. An empty role
	// matches every role.
	SearchProfiles(ctx context.Context, query string, role models.Role, limit int) ([]models.Profile, error)
}

type ReviewLog interface {
	AppendReview(ctx context.Context, e *models.ReviewEvent) error
	// ListReviews returns the project's events oldest first.
	ListReviews(ctx context.Context, projectID uuid.UUID) ([]models.ReviewEvent, error)
	DeleteReviewsByProjects(ctx context.Context, projectIDs []uuid.UUID) error
}

// Store is everything the workflow persists.
type Store interface {
	ProjectStore
	CollaboratorStore
	ProfileStore
	ReviewLog
}
