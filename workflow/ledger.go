package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
)

const candidateLimit = 20

// link creates a collaboration link. Leaders are accepted immediately; contributors
// start pending.
func (s *Service) link(ctx context.Context, projectID, studentID uuid.UUID, role models.CollaboratorRole) (*models.ProjectCollaborator, error) {
	status := models.InvitePending
	if role == models.CollaboratorLeader {
		status = models.InviteAccepted
	}
	l := &models.ProjectCollaborator{
		ID:        uuid.New(),
		ProjectID: projectID,
		StudentID: studentID,
		Role:      role,
		Status:    status,
	}
	if err := s.store.CreateLink(ctx, l); err != nil {
		return nil, errors.Wrap(err, "create collaboration link")
	}
	return l, nil
}

// Invite adds a contributor to an existing project. The owner, the project's guide
// and the HOD may invite. A student already linked, in any status, cannot be invited again.
func (s *Service) Invite(ctx context.Context, sess identity.Session, projectID, studentID uuid.UUID) (*models.ProjectCollaborator, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.accessFor(ctx, &sess, p, dir)
	if err != nil {
		return nil, err
	}
	if !a.canInvite() {
		return nil, errs.NewForbiddenError("only the project owner, its guide or the HOD can add collaborators")
	}
	if studentID == p.StudentID {
		return nil, errs.NewAlreadyExists("collaborator")
	}

	student, err := s.store.FindProfile(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "find student")
	}
	if student.Role != models.RoleStudent {
		return nil, errs.NewValidationError([]errs.FieldProblem{{Field: "student_id", Reason: "not a student"}})
	}

	l, err := s.link(ctx, p.ID, studentID, models.CollaboratorContributor)
	if err != nil {
		return nil, err
	}
	l.Student = student
	s.logger.Info().Str("projectID", p.ID.String()).Str("studentID", studentID.String()).Msg("Collaborator invited")
	s.notify(ctx, studentID, "Project invitation", fmt.Sprintf("You were invited to join %q.", p.Title))
	return l, nil
}

// RespondResult is what the invitee sees after answering: the project and its new
// member count, so the caller can move it between views without reloading.
type RespondResult struct {
	Link        *models.ProjectCollaborator `json:"link"`
	Project     *models.Project             `json:"project"`
	MemberCount int64                       `json:"member_count"`
}

// Respond accepts or declines the caller's own pending invitation. Declined links are
// kept with status rejected so they never reappear as pending.
func (s *Service) Respond(ctx context.Context, sess identity.Session, linkID uuid.UUID, decision models.InviteStatus) (*RespondResult, error) {
	if decision != models.InviteAccepted && decision != models.InviteRejected {
		return nil, errs.NewValidationError([]errs.FieldProblem{{Field: "decision", Reason: "must be accepted or rejected"}})
	}

	l, err := s.store.FindLink(ctx, linkID)
	if err != nil {
		return nil, errors.Wrap(err, "find collaboration link")
	}
	if l.StudentID != sess.ProfileID {
		return nil, errs.NewForbiddenError("only the invited student can respond to an invitation")
	}
	if l.Status != models.InvitePending {
		return nil, errs.NewInvalidTransitionError(string(l.Status), string(decision))
	}
	if err := s.store.RespondToLink(ctx, l.ID, models.InvitePending, decision); err != nil {
		return nil, errors.Wrap(err, "respond to invitation")
	}
	l.Status = decision
	s.metrics.RecordInviteResponse(string(decision))

	p, err := s.store.FindProject(ctx, l.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	count, err := s.store.CountAcceptedLinks(ctx, l.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "count members")
	}
	s.logger.Info().Str("linkID", l.ID.String()).Str("decision", string(decision)).Msg("Invitation answered")

	verb := "accepted"
	if decision == models.InviteRejected {
		verb = "declined"
	}
	s.notify(ctx, p.StudentID, "Invitation "+verb, fmt.Sprintf("%s %s the invitation to %q.", sess.FullName, verb, p.Title))
	return &RespondResult{Link: l, Project: p, MemberCount: count}, nil
}

// RemoveCollaborator deletes a contributor link. Only the owner may remove, and the
// owner's own leader link is never removable.
func (s *Service) RemoveCollaborator(ctx context.Context, sess identity.Session, linkID uuid.UUID) error {
	l, err := s.store.FindLink(ctx, linkID)
	if err != nil {
		return errors.Wrap(err, "find collaboration link")
	}
	p, err := s.store.FindProject(ctx, l.ProjectID)
	if err != nil {
		return errors.Wrap(err, "find project")
	}
	if p.StudentID != sess.ProfileID {
		return errs.NewForbiddenError("only the project owner can remove collaborators")
	}
	if l.Role == models.CollaboratorLeader || l.StudentID == p.StudentID {
		return errs.NewForbiddenError("the project leader cannot be removed")
	}
	if err := s.store.DeleteLink(ctx, l.ID); err != nil {
		return errors.Wrap(err, "delete collaboration link")
	}
	s.logger.Info().Str("projectID", p.ID.String()).Str("studentID", l.StudentID.String()).Msg("Collaborator removed")
	return nil
}

// Collaborators lists a project's links for anyone allowed to view the project.
func (s *Service) Collaborators(ctx context.Context, sess *identity.Session, projectID uuid.UUID) ([]models.ProjectCollaborator, error) {
	detail, err := s.Get(ctx, sess, projectID)
	if err != nil {
		return nil, err
	}
	return detail.Collaborators, nil
}

// Candidates finds students whose name contains query and who are not yet linked
// to the project in any status.
func (s *Service) Candidates(ctx context.Context, sess identity.Session, projectID uuid.UUID, query string) ([]models.ProfileSummary, error) {
	query = strings.TrimSpace(query)
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.accessFor(ctx, &sess, p, dir)
	if err != nil {
		return nil, err
	}
	if !a.canInvite() {
		return nil, errs.NewForbiddenError("only the project owner, its guide or the HOD can add collaborators")
	}
	if query == "" {
		return []models.ProfileSummary{}, nil
	}

	team, err := s.store.ListLinksByProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "list project links")
	}
	linked := map[uuid.UUID]bool{p.StudentID: true}
	for _, l := range team {
		linked[l.StudentID] = true
	}

	// Over-fetch so excluded profiles do not shrink the page.
	found, err := s.store.SearchProfiles(ctx, query, models.RoleStudent, candidateLimit+len(linked))
	if err != nil {
		return nil, errors.Wrap(err, "search profiles")
	}
	out := make([]models.ProfileSummary, 0, len(found))
	for _, prof := range found {
		if linked[prof.ID] {
			continue
		}
		out = append(out, prof.Summary())
		if len(out) == candidateLimit {
			break
		}
	}
	return out, nil
}

// Invitations lists the caller's pending invitations with their projects.
func (s *Service) Invitations(ctx context.Context, sess identity.Session) ([]models.ProjectCollaborator, error) {
	pending, err := s.store.ListLinksByStudent(ctx, sess.ProfileID, models.InvitePending)
	return pending, errors.Wrap(err, "list invitations")
}

// ActiveProjects lists the projects the caller owns or has accepted, newest first.
func (s *Service) ActiveProjects(ctx context.Context, sess identity.Session) ([]models.Project, error) {
	owned, err := s.store.ListProjectsByOwner(ctx, sess.ProfileID)
	if err != nil {
		return nil, errors.Wrap(err, "list owned projects")
	}
	accepted, err := s.store.ListLinksByStudent(ctx, sess.ProfileID, models.InviteAccepted)
	if err != nil {
		return nil, errors.Wrap(err, "list accepted links")
	}

	seen := make(map[uuid.UUID]bool, len(owned))
	for _, p := range owned {
		seen[p.ID] = true
	}
	var extra []uuid.UUID
	for _, l := range accepted {
		if !seen[l.ProjectID] {
			seen[l.ProjectID] = true
			extra = append(extra, l.ProjectID)
		}
	}
	if len(extra) == 0 {
		return owned, nil
	}
	joined, err := s.store.ListProjectsByIDs(ctx, extra)
	if err != nil {
		return nil, errors.Wrap(err, "list joined projects")
	}
	return sortNewestFirst(append(owned, joined...)), nil
}

// TeamSizes counts accepted members per project, leader included.
func (s *Service) TeamSizes(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	links, err := s.store.ListLinksByProjects(ctx, projectIDs)
	if err != nil {
		return nil, errors.Wrap(err, "list project links")
	}
	sizes := make(map[uuid.UUID]int, len(projectIDs))
	for _, l := range links {
		if l.Status == models.InviteAccepted {
			sizes[l.ProjectID]++
		}
	}
	return sizes, nil
}
