package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/guide"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/links"
	"github.com/projectshelf/backend/models"
)

// UnlinkedMember is a selected team member whose collaboration link could not be created.
type UnlinkedMember struct {
	StudentID uuid.UUID `json:"student_id"`
	Reason    string    `json:"reason"`
}

// CreateResult is the outcome of a submission. Unlinked is non-empty on partial success.
type CreateResult struct {
	Project  *models.Project `json:"project"`
	Unlinked []UnlinkedMember `json:"unlinked,omitempty"`
}

// ProjectDetail is a project together with its resolved guide.
type ProjectDetail struct {
	models.Project
	ResolvedGuide *guide.Assignment `json:"guide"`
}

// Create stores a new submission owned by the caller, then links the leader and
// invites every selected member. Link failures do not roll the project back: they
// are returned in CreateResult.Unlinked together with an errs.ErrPartialFailure error.
func (s *Service) Create(ctx context.Context, sess identity.Session, in ProjectInput) (*CreateResult, error) {
	if !sess.IsStudent() {
		return nil, errs.NewForbiddenError("only students can submit projects")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkGuide(ctx, in.GuideID); err != nil {
		return nil, err
	}

	p := &models.Project{
		ID:        uuid.New(),
		StudentID: sess.ProfileID,
		Status:    models.StatusPending,
	}
	in.apply(p)
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create project")
	}
	s.metrics.IncrementSubmissions()
	s.logger.Info().Str("projectID", p.ID.String()).Str("studentID", sess.ProfileID.String()).Msg("Project submitted")

	result := &CreateResult{Project: p}
	if _, err := s.link(ctx, p.ID, sess.ProfileID, models.CollaboratorLeader); err != nil {
		result.Unlinked = append(result.Unlinked, UnlinkedMember{StudentID: sess.ProfileID, Reason: reason(err)})
	}

	seen := map[uuid.UUID]bool{sess.ProfileID: true}
	for _, member := range in.Members {
		if member == uuid.Nil || seen[member] {
			continue
		}
		seen[member] = true
		if err := s.inviteMember(ctx, p, member); err != nil {
			result.Unlinked = append(result.Unlinked, UnlinkedMember{StudentID: member, Reason: reason(err)})
		}
	}

	if len(result.Unlinked) > 0 {
		s.metrics.IncrementPartialFailures()
		s.logger.Warn().Str("projectID", p.ID.String()).Int("unlinked", len(result.Unlinked)).Msg("Project created but some members were not linked")
		return result, errs.NewPartialFailureError(
			fmt.Sprintf("project created, but %d member(s) could not be linked", len(result.Unlinked)), nil)
	}
	return result, nil
}

func (s *Service) inviteMember(ctx context.Context, p *models.Project, studentID uuid.UUID) error {
	profile, err := s.store.FindProfile(ctx, studentID)
	if err != nil {
		return errors.Wrap(err, "find member profile")
	}
	if profile.Role != models.RoleStudent {
		return errs.NewBadRequestError("only students can be team members")
	}
	if _, err := s.link(ctx, p.ID, studentID, models.CollaboratorContributor); err != nil {
		return err
	}
	s.notify(ctx, studentID, "Project invitation", fmt.Sprintf("You were invited to join %q.", p.Title))
	return nil
}

func reason(err error) string {
	var apiErr *errs.ApiErr
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "internal error"
}

// checkGuide rejects a guide id that is not a faculty member.
func (s *Service) checkGuide(ctx context.Context, guideID *uuid.UUID) error {
	if guideID == nil {
		return nil
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return err
	}
	if _, ok := dir.Lookup(*guideID); !ok {
		return errs.NewValidationError([]errs.FieldProblem{{Field: "guide_id", Reason: "not a faculty member"}})
	}
	return nil
}

// Update dispatches on who the caller is: the owner edits the submission, a guide
// or the HOD may only change status and feedback.
func (s *Service) Update(ctx context.Context, sess identity.Session, projectID uuid.UUID, in UpdateInput) (*models.Project, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	if p.StudentID == sess.ProfileID {
		return s.ownerEdit(ctx, sess, p, in.ProjectInput)
	}
	if in.Status == nil {
		return nil, errs.NewForbiddenError("only the project owner can edit the submission")
	}
	review := ReviewInput{Status: *in.Status}
	if in.Feedback != nil {
		review.Feedback = *in.Feedback
	}
	return s.Review(ctx, sess, projectID, review)
}

// ownerEdit saves the owner's changes. Saving a rejected project resubmits it:
// status returns to pending and the earlier feedback stays on record.
func (s *Service) ownerEdit(ctx context.Context, sess identity.Session, p *models.Project, in ProjectInput) (*models.Project, error) {
	if !p.IsEditableByOwner() {
		return nil, errs.NewConflictError(fmt.Sprintf("a %s project can no longer be edited", p.Status))
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkGuide(ctx, in.GuideID); err != nil {
		return nil, err
	}

	expected := p.Status
	in.apply(p)
	if expected == models.StatusRejected {
		p.Status = models.StatusPending
	}
	if err := s.store.UpdateProjectDetails(ctx, p, expected); err != nil {
		return nil, errors.Wrap(err, "update project")
	}

	if expected != p.Status {
		s.recordEvent(ctx, p.ID, sess.ProfileID, expected, p.Status, nil)
		s.metrics.RecordTransition(expected.String(), p.Status.String())
		s.logger.Info().Str("projectID", p.ID.String()).Msg("Project resubmitted")
	}
	return p, nil
}

// Get returns a project with its collaborators. Unapproved projects are only visible
// to their team, guide and the HOD; everyone else gets not found.
func (s *Service) Get(ctx context.Context, sess *identity.Session, projectID uuid.UUID) (*ProjectDetail, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.accessFor(ctx, sess, p, dir)
	if err != nil {
		return nil, err
	}
	if !a.canView(p) {
		return nil, errs.NewNotFound("project")
	}

	team, err := s.store.ListLinksByProject(ctx, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list project links")
	}
	p.Collaborators = team
	return &ProjectDetail{Project: *p, ResolvedGuide: dir.Resolve(p)}, nil
}

// Delete removes projects together with their links and review history. HOD only.
// A single id that matches nothing is reported as not found. Bulk deletes skip
// unknown ids and report how many rows went.
func (s *Service) Delete(ctx context.Context, sess identity.Session, ids []uuid.UUID) (int64, error) {
	if !sess.IsHOD() {
		return 0, errs.NewForbiddenError("only the HOD can delete projects")
	}
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id != uuid.Nil && !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return 0, errs.NewValidationError([]errs.FieldProblem{{Field: "ids", Missing: true}})
	}

	if err := s.store.DeleteLinksByProjects(ctx, unique); err != nil {
		return 0, errors.Wrap(err, "delete project links")
	}
	if err := s.store.DeleteReviewsByProjects(ctx, unique); err != nil {
		return 0, errors.Wrap(err, "delete project reviews")
	}
	n, err := s.store.DeleteProjects(ctx, unique)
	if err != nil {
		return 0, errors.Wrap(err, "delete projects")
	}
	if n == 0 && len(unique) == 1 {
		return 0, errs.NewNotFound("project")
	}
	s.logger.Info().Int64("deleted", n).Str("actorID", sess.ProfileID.String()).Msg("Projects deleted")
	return n, nil
}

// RecordView bumps the view counter of an approved project.
func (s *Service) RecordView(ctx context.Context, projectID uuid.UUID) (int64, error) {
	if _, err := s.findApproved(ctx, projectID); err != nil {
		return 0, err
	}
	n, err := s.store.IncrementCounter(ctx, projectID, CounterViews)
	if err != nil {
		return 0, errors.Wrap(err, "increment views")
	}
	s.metrics.RecordCounter(string(CounterViews))
	return n, nil
}

// RecordDownload bumps the download counter and returns a direct link to the report.
func (s *Service) RecordDownload(ctx context.Context, projectID uuid.UUID) (string, int64, error) {
	p, err := s.findApproved(ctx, projectID)
	if err != nil {
		return "", 0, err
	}
	n, err := s.store.IncrementCounter(ctx, projectID, CounterDownloads)
	if err != nil {
		return "", 0, errors.Wrap(err, "increment downloads")
	}
	s.metrics.RecordCounter(string(CounterDownloads))
	return links.DirectDownloadURL(p.ReportLink), n, nil
}

func (s *Service) findApproved(ctx context.Context, projectID uuid.UUID) (*models.Project, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	if p.Status != models.StatusApproved {
		return nil, errs.NewNotFound("project")
	}
	return p, nil
}
