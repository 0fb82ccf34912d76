package workflow

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
)

// Leader-link problems reported by CheckLeaderInvariant.
const (
	ViolationMissingLeader     = "missing_leader"
	ViolationDuplicateLeader   = "duplicate_leader"
	ViolationLeaderNotOwner    = "leader_not_owner"
	ViolationLeaderNotAccepted = "leader_not_accepted"
)

// Violation is one project that breaks the leader-link invariant.
type Violation struct {
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	Problems  []string  `json:"problems"`
}

// CheckLeaderInvariant verifies that p has exactly one leader link, owned by the
// project's student and accepted. It returns the problems found, nil when none.
func CheckLeaderInvariant(p models.Project, team []models.ProjectCollaborator) []string {
	var leaders []models.ProjectCollaborator
	for _, l := range team {
		if l.ProjectID == p.ID && l.Role == models.CollaboratorLeader {
			leaders = append(leaders, l)
		}
	}

	switch len(leaders) {
	case 0:
		return []string{ViolationMissingLeader}
	case 1:
	default:
		return []string{ViolationDuplicateLeader}
	}

	var problems []string
	if leaders[0].StudentID != p.StudentID {
		problems = append(problems, ViolationLeaderNotOwner)
	}
	if leaders[0].Status != models.InviteAccepted {
		problems = append(problems, ViolationLeaderNotAccepted)
	}
	return problems
}

// Audit checks every project against the leader-link invariant. HOD only.
func (s *Service) Audit(ctx context.Context, sess identity.Session) ([]Violation, error) {
	if !sess.IsHOD() {
		return nil, errs.NewForbiddenError("only the HOD can audit projects")
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	if len(projects) == 0 {
		return []Violation{}, nil
	}

	ids := make([]uuid.UUID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	all, err := s.store.ListLinksByProjects(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "list links")
	}
	byProject := make(map[uuid.UUID][]models.ProjectCollaborator, len(projects))
	for _, l := range all {
		byProject[l.ProjectID] = append(byProject[l.ProjectID], l)
	}

	violations := []Violation{}
	for _, p := range projects {
		if problems := CheckLeaderInvariant(p, byProject[p.ID]); len(problems) > 0 {
			violations = append(violations, Violation{ProjectID: p.ID, Title: p.Title, Problems: problems})
		}
	}
	if len(violations) > 0 {
		s.logger.Warn().Int("violations", len(violations)).Msg("Leader invariant violations found")
	}
	return violations, nil
}

func sortNewestFirst(projects []models.Project) []models.Project {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects
}
