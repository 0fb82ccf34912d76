package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/projectshelf/backend/guide"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/metrics"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service runs every workflow operation against a Store. The caller's Session is
// always passed explicitly.
type Service struct {
	store    Store
	notifier services.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
	pending  sync.WaitGroup
}

// notifyTimeout bounds a single notification, which outlives the request that caused it.
const notifyTimeout = 30 * time.Second

func NewService(store Store, notifier services.Notifier, m *metrics.Metrics) *Service {
	if notifier == nil {
		notifier = services.LogNotifier{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   log.With().Str("component", "workflow").Logger(),
		now:      time.Now,
	}
}

// Directory loads the faculty directory used to resolve guides.
func (s *Service) Directory(ctx context.Context) (*guide.Directory, error) {
	faculty, err := s.store.ListFaculty(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list faculty")
	}
	return guide.NewDirectory(faculty), nil
}

// Teachers lists faculty profiles for guide pickers.
func (s *Service) Teachers(ctx context.Context) ([]models.ProfileSummary, error) {
	faculty, err := s.store.ListFaculty(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list faculty")
	}
	out := make([]models.ProfileSummary, 0, len(faculty))
	for _, p := range faculty {
		out = append(out, p.Summary())
	}
	return out, nil
}

// List returns projects in any of statuses, newest first. Callers gate access.
func (s *Service) List(ctx context.Context, statuses ...models.Status) ([]models.Project, error) {
	projects, err := s.store.ListProjects(ctx, statuses...)
	return projects, errors.Wrap(err, "list projects")
}

// access describes what the caller is to one project.
type access struct {
	owner        bool
	guide        bool
	hod          bool
	collaborator bool
}

func (a access) canView(p *models.Project) bool {
	return p.Status == models.StatusApproved || a.owner || a.guide || a.hod || a.collaborator
}

func (a access) canInvite() bool {
	return a.owner || a.guide || a.hod
}

func (s *Service) accessFor(ctx context.Context, sess *identity.Session, p *models.Project, dir *guide.Directory) (access, error) {
	if sess == nil {
		return access{}, nil
	}
	a := access{
		owner: p.StudentID == sess.ProfileID,
		hod:   sess.IsHOD(),
		guide: sess.IsFaculty() && dir.IsGuide(p, sess.ProfileID),
	}
	if a.owner || a.guide || a.hod {
		return a, nil
	}
	links, err := s.store.ListLinksByProject(ctx, p.ID)
	if err != nil {
		return a, errors.Wrap(err, "list project links")
	}
	for _, l := range links {
		if l.StudentID == sess.ProfileID && l.Status != models.InviteRejected {
			a.collaborator = true
			break
		}
	}
	return a, nil
}

// notify sends in the background so a slow mail provider never holds up the
// workflow operation. The request context's values are kept but not its deadline.
func (s *Service) notify(ctx context.Context, profileID uuid.UUID, subject, body string) {
	detached := context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(detached, notifyTimeout)
		defer cancel()
		s.send(ctx, profileID, subject, body)
	}()
}

// Wait blocks until every notification started so far has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) send(ctx context.Context, profileID uuid.UUID, subject, body string) {
	p, err := s.store.FindProfile(ctx, profileID)
	if err != nil {
		s.logger.Warn().Err(err).Str("profileID", profileID.String()).Msg("Skipping notification, profile lookup failed")
		return
	}
	msg := services.Message{To: p.Email, Subject: subject, Body: body}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("to", p.Email).Msg("Notification failed")
	}
}
