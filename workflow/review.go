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

// capacity is the role an actor holds on a particular project.
type capacity int

const (
	asGuide capacity = 1 << iota
	asHOD
)

type transition struct {
	from, to models.Status
}

// reviewTransitions lists every reviewer-driven status change and who may make it.
// rejected -> pending is not here: only an owner edit performs it.
var reviewTransitions = map[transition]capacity{
	{models.StatusPending, models.StatusApproved}:       asGuide | asHOD,
	{models.StatusPending, models.StatusGuideApproved}:  asGuide,
	{models.StatusGuideApproved, models.StatusApproved}: asHOD,
	{models.StatusPending, models.StatusRejected}:       asGuide | asHOD,
	{models.StatusGuideApproved, models.StatusRejected}: asGuide | asHOD,
}

// canReview reports whether an actor holding held may move a project from -> to.
// The error distinguishes an invalid transition from a missing capacity.
func canReview(from, to models.Status, held capacity) error {
	allowed, ok := reviewTransitions[transition{from, to}]
	if !ok {
		return errs.NewInvalidTransitionError(from.String(), to.String())
	}
	if allowed&held == 0 {
		return errs.NewForbiddenError(fmt.Sprintf("moving a project from %s to %s is not allowed for your role", from, to))
	}
	return nil
}

// Review applies a guide or HOD decision to a project.
func (s *Service) Review(ctx context.Context, sess identity.Session, projectID uuid.UUID, in ReviewInput) (*models.Project, error) {
	feedback := strings.TrimSpace(in.Feedback)
	if !in.Status.IsValid() {
		return nil, errs.NewValidationError([]errs.FieldProblem{{Field: "status", Reason: "unknown status"}})
	}
	if in.Status == models.StatusRejected && feedback == "" {
		return nil, errs.NewValidationError([]errs.FieldProblem{{Field: "feedback", Missing: true}})
	}

	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	dir, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}

	var held capacity
	if sess.IsFaculty() && dir.IsGuide(p, sess.ProfileID) {
		held |= asGuide
	}
	if sess.IsHOD() {
		held |= asHOD
	}
	if held == 0 {
		return nil, errs.NewForbiddenError("only the project's guide or the HOD can review it")
	}
	if err := canReview(p.Status, in.Status, held); err != nil {
		return nil, err
	}

	var stored *string
	if feedback != "" {
		stored = &feedback
	}
	from := p.Status
	if err := s.store.TransitionStatus(ctx, p.ID, from, in.Status, stored); err != nil {
		return nil, errors.Wrap(err, "transition project status")
	}
	p.Status = in.Status
	if stored != nil {
		p.Feedback = stored
	}

	s.recordEvent(ctx, p.ID, sess.ProfileID, from, in.Status, stored)
	s.metrics.RecordTransition(from.String(), in.Status.String())
	s.logger.Info().
		Str("projectID", p.ID.String()).
		Str("actorID", sess.ProfileID.String()).
		Str("from", from.String()).
		Str("to", in.Status.String()).
		Msg("Project reviewed")

	body := fmt.Sprintf("Your project %q is now %s.", p.Title, p.Status)
	if stored != nil {
		body += "\n\nFeedback: " + feedback
	}
	s.notify(ctx, p.StudentID, "Project review update", body)
	return p, nil
}

// recordEvent appends to the review history. The status change already happened,
// so a failure here is logged rather than returned.
func (s *Service) recordEvent(ctx context.Context, projectID, actorID uuid.UUID, from, to models.Status, feedback *string) {
	event := &models.ReviewEvent{
		ID:         uuid.New(),
		ProjectID:  projectID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Feedback:   feedback,
		CreatedAt:  s.now(),
	}
	if err := s.store.AppendReview(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("projectID", projectID.String()).Msg("Failed to append review event")
	}
}

// ReviewHistory returns the status changes of a project, oldest first.
func (s *Service) ReviewHistory(ctx context.Context, sess identity.Session, projectID uuid.UUID) ([]models.ReviewEvent, error) {
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
	if !(a.owner || a.guide || a.hod || a.collaborator) {
		return nil, errs.NewForbiddenError("review history is visible to the team, its guide and the HOD")
	}
	events, err := s.store.ListReviews(ctx, projectID)
	return events, errors.Wrap(err, "list reviews")
}

// AssignGuide lets the HOD set or replace a project's guide.
func (s *Service) AssignGuide(ctx context.Context, sess identity.Session, projectID uuid.UUID, in GuideInput) (*models.Project, error) {
	if !sess.IsHOD() {
		return nil, errs.NewForbiddenError("only the HOD can reassign guides")
	}
	in.GuideName = trimmedOrNil(in.GuideName)
	if in.GuideID != nil && *in.GuideID == uuid.Nil {
		in.GuideID = nil
	}

	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "find project")
	}

	if in.GuideID != nil {
		dir, err := s.Directory(ctx)
		if err != nil {
			return nil, err
		}
		if _, ok := dir.Lookup(*in.GuideID); !ok {
			return nil, errs.NewValidationError([]errs.FieldProblem{{Field: "guide_id", Reason: "not a faculty member"}})
		}
		p.SetGuide(models.ResolvedGuide{ID: *in.GuideID})
	} else if in.GuideName != nil {
		p.SetGuide(models.UnresolvedGuide{Name: *in.GuideName})
	} else {
		p.SetGuide(nil)
	}

	if err := s.store.AssignGuide(ctx, p.ID, p.GuideID, p.GuideName); err != nil {
		return nil, errors.Wrap(err, "assign guide")
	}
	s.logger.Info().Str("projectID", p.ID.String()).Str("actorID", sess.ProfileID.String()).Msg("Guide reassigned")
	return p, nil
}
