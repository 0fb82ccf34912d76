// Package workflowtest provides an in-memory workflow.Store for tests.
package workflowtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
)

// Store keeps every table in maps guarded by one mutex, so compare-and-swap
// updates are linearizable like their SQL counterparts.
type Store struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
	projects map[uuid.UUID]models.Project
	links    map[uuid.UUID]models.ProjectCollaborator
	reviews  []models.ReviewEvent
	clock    time.Time

	// LinkErrs makes CreateLink fail for the given student ids.
	LinkErrs map[uuid.UUID]error
	// TechSearchUnavailable makes SearchApprovedByTech fail like a missing SQL function.
	TechSearchUnavailable bool
}

var _ workflow.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		profiles: make(map[uuid.UUID]models.Profile),
		projects: make(map[uuid.UUID]models.Project),
		links:    make(map[uuid.UUID]models.ProjectCollaborator),
		clock:    time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		LinkErrs: make(map[uuid.UUID]error),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// AddProfile inserts a profile directly and returns it. Faculty are marked
// provisioned, as if created by the HOD.
func (s *Store) AddProfile(name string, role models.Role) models.Profile {
	p := models.Profile{
		ID:          uuid.New(),
		Email:       strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@college.edu",
		FullName:    name,
		Role:        role,
		Provisioned: role.IsFaculty(),
	}
	_ = s.CreateProfile(context.Background(), &p)
	return p
}

// PutProject stores p as is, bypassing the workflow.
func (s *Store) PutProject(p models.Project) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
		p.UpdatedAt = p.CreatedAt
	}
	s.projects[p.ID] = p
	return p
}

// PutLink stores l as is, bypassing the uniqueness check.
func (s *Store) PutLink(l models.ProjectCollaborator) models.ProjectCollaborator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	s.links[l.ID] = l
	return l
}

// Links returns every link of a project without preloads.
func (s *Store) Links(projectID uuid.UUID) []models.ProjectCollaborator {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProjectCollaborator
	for _, l := range s.links {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) ProjectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

// Profiles

func (s *Store) CreateProfile(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.profiles {
		if strings.EqualFold(existing.Email, p.Email) {
			return errs.NewAlreadyExists("profile")
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	s.profiles[p.ID] = *p
	return nil
}

func (s *Store) FindProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, errs.NewNotFound("profile")
	}
	return &p, nil
}

func (s *Store) FindProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.profiles {
		if strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, errs.NewNotFound("profile")
}

func (s *Store) ListFaculty(context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role.IsFaculty() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) SearchProfiles(_ context.Context, query string, role models.Role, limit int) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.Profile
	for _, p := range s.profiles {
		if role != "" && p.Role != role {
			continue
		}
		if strings.Contains(strings.ToLower(p.FullName), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Projects

func (s *Store) CreateProject(_ context.Context, p *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = s.tick()
	p.UpdatedAt = p.CreatedAt
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) FindProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, errs.NewNotFound("project")
	}
	return &p, nil
}

func (s *Store) filterProjects(keep func(models.Project) bool) []models.Project {
	out := []models.Project{}
	for _, p := range s.projects {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) ListProjects(_ context.Context, statuses ...models.Status) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterProjects(func(p models.Project) bool {
		if len(statuses) == 0 {
			return true
		}
		for _, st := range statuses {
			if p.Status == st {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) ListProjectsByIDs(_ context.Context, ids []uuid.UUID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return s.filterProjects(func(p models.Project) bool { return want[p.ID] }), nil
}

func (s *Store) ListProjectsByOwner(_ context.Context, studentID uuid.UUID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterProjects(func(p models.Project) bool { return p.StudentID == studentID }), nil
}

func (s *Store) UpdateProjectDetails(_ context.Context, p *models.Project, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.projects[p.ID]
	if !ok {
		return errs.NewNotFound("project")
	}
	if current.Status != expected {
		return errs.NewStaleStateError("project")
	}
	current.Title = p.Title
	current.Abstract = p.Abstract
	current.Category = p.Category
	current.AcademicYear = p.AcademicYear
	current.TechStack = p.TechStack
	current.ReportLink = p.ReportLink
	current.SourceLink = p.SourceLink
	current.GuideID = p.GuideID
	current.GuideName = p.GuideName
	current.Status = p.Status
	current.Feedback = p.Feedback
	current.UpdatedAt = s.tick()
	s.projects[p.ID] = current
	p.UpdatedAt = current.UpdatedAt
	return nil
}

func (s *Store) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.Status, feedback *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.projects[id]
	if !ok {
		return errs.NewNotFound("project")
	}
	if current.Status != from {
		return errs.NewStaleStateError("project")
	}
	current.Status = to
	if feedback != nil {
		f := *feedback
		current.Feedback = &f
	}
	current.UpdatedAt = s.tick()
	s.projects[id] = current
	return nil
}

func (s *Store) AssignGuide(_ context.Context, id uuid.UUID, guideID *uuid.UUID, guideName *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.projects[id]
	if !ok {
		return errs.NewNotFound("project")
	}
	current.GuideID = guideID
	current.GuideName = guideName
	current.UpdatedAt = s.tick()
	s.projects[id] = current
	return nil
}

func (s *Store) DeleteProjects(_ context.Context, ids []uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.projects[id]; ok {
			delete(s.projects, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) IncrementCounter(_ context.Context, id uuid.UUID, counter workflow.Counter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return 0, errs.NewNotFound("project")
	}
	var n int64
	switch counter {
	case workflow.CounterViews:
		p.ViewCount++
		n = p.ViewCount
	case workflow.CounterDownloads:
		p.DownloadCount++
		n = p.DownloadCount
	default:
		return 0, errs.NewBadRequestError("unknown counter")
	}
	s.projects[id] = p
	return n, nil
}

// Links

func (s *Store) CreateLink(_ context.Context, l *models.ProjectCollaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.LinkErrs[l.StudentID]; err != nil {
		return err
	}
	for _, existing := range s.links {
		if existing.ProjectID == l.ProjectID && existing.StudentID == l.StudentID {
			return errs.NewAlreadyExists("collaborator")
		}
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = s.tick()
	l.UpdatedAt = l.CreatedAt
	s.links[l.ID] = *l
	return nil
}

func (s *Store) FindLink(_ context.Context, id uuid.UUID) (*models.ProjectCollaborator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, errs.NewNotFound("collaborator")
	}
	return &l, nil
}

func (s *Store) sortedLinks(keep func(models.ProjectCollaborator) bool) []models.ProjectCollaborator {
	out := []models.ProjectCollaborator{}
	for _, l := range s.links {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) ListLinksByProject(_ context.Context, projectID uuid.UUID) ([]models.ProjectCollaborator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sortedLinks(func(l models.ProjectCollaborator) bool { return l.ProjectID == projectID })
	for i := range out {
		if p, ok := s.profiles[out[i].StudentID]; ok {
			out[i].Student = &p
		}
	}
	return out, nil
}

func (s *Store) ListLinksByProjects(_ context.Context, projectIDs []uuid.UUID) ([]models.ProjectCollaborator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	return s.sortedLinks(func(l models.ProjectCollaborator) bool { return want[l.ProjectID] }), nil
}

func (s *Store) ListLinksByStudent(_ context.Context, studentID uuid.UUID, statuses ...models.InviteStatus) ([]models.ProjectCollaborator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sortedLinks(func(l models.ProjectCollaborator) bool {
		if l.StudentID != studentID {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, st := range statuses {
			if l.Status == st {
				return true
			}
		}
		return false
	})
	for i := range out {
		if p, ok := s.projects[out[i].ProjectID]; ok {
			out[i].Project = &p
		}
	}
	return out, nil
}

func (s *Store) RespondToLink(_ context.Context, id uuid.UUID, from, to models.InviteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return errs.NewNotFound("collaborator")
	}
	if l.Status != from {
		return errs.NewStaleStateError("collaborator")
	}
	l.Status = to
	l.UpdatedAt = s.tick()
	s.links[id] = l
	return nil
}

func (s *Store) DeleteLink(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[id]; !ok {
		return errs.NewNotFound("collaborator")
	}
	delete(s.links, id)
	return nil
}

func (s *Store) DeleteLinksByProjects(_ context.Context, projectIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	for id, l := range s.links {
		if want[l.ProjectID] {
			delete(s.links, id)
		}
	}
	return nil
}

func (s *Store) CountAcceptedLinks(_ context.Context, projectID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, l := range s.links {
		if l.ProjectID == projectID && l.Status == models.InviteAccepted {
			n++
		}
	}
	return n, nil
}

// Reviews

func (s *Store) AppendReview(_ context.Context, e *models.ReviewEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = s.tick()
	s.reviews = append(s.reviews, *e)
	return nil
}

func (s *Store) ListReviews(_ context.Context, projectID uuid.UUID) ([]models.ReviewEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ReviewEvent{}
	for _, e := range s.reviews {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) DeleteReviewsByProjects(_ context.Context, projectIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}
	kept := s.reviews[:0]
	for _, e := range s.reviews {
		if !want[e.ProjectID] {
			kept = append(kept, e)
		}
	}
	s.reviews = kept
	return nil
}

// Search, matching the discovery.Searcher contract.

func (s *Store) SearchApproved(_ context.Context, query string) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filterProjects(func(p models.Project) bool {
		if p.Status != models.StatusApproved {
			return false
		}
		if strings.Contains(strings.ToLower(p.Title), q) || p.TechStack.ContainsSubstring(q) {
			return true
		}
		for _, l := range s.links {
			if l.ProjectID != p.ID || l.Status != models.InviteAccepted {
				continue
			}
			if prof, ok := s.profiles[l.StudentID]; ok && strings.Contains(strings.ToLower(prof.FullName), q) {
				return true
			}
		}
		leader, ok := s.profiles[p.StudentID]
		return ok && strings.Contains(strings.ToLower(leader.FullName), q)
	}), nil
}

func (s *Store) SearchApprovedByTech(_ context.Context, tag string) ([]models.Project, error) {
	if s.TechSearchUnavailable {
		return nil, errs.NewDatabaseError("search", "projects by tech", &pgconn.PgError{Code: "42883"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterProjects(func(p models.Project) bool {
		return p.Status == models.StatusApproved && p.TechStack.ContainsSubstring(tag)
	}), nil
}

func (s *Store) ListApprovedByTechExact(_ context.Context, tag string) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterProjects(func(p models.Project) bool {
		if p.Status != models.StatusApproved {
			return false
		}
		for _, t := range p.TechStack {
			if t == tag {
				return true
			}
		}
		return false
	}), nil
}

func (s *Store) ListApproved(ctx context.Context) ([]models.Project, error) {
	return s.ListProjects(ctx, models.StatusApproved)
}
