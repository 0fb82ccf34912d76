// Package dashboard assembles the per-role landing views. Each section is read
// concurrently; a failed read leaves its section empty and adds a warning instead
// of failing the whole view.
package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/guide"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source is the read side of the workflow service.
type Source interface {
	ActiveProjects(ctx context.Context, sess identity.Session) ([]models.Project, error)
	Invitations(ctx context.Context, sess identity.Session) ([]models.ProjectCollaborator, error)
	TeamSizes(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID]int, error)
	List(ctx context.Context, statuses ...models.Status) ([]models.Project, error)
	Directory(ctx context.Context) (*guide.Directory, error)
}

type StatusCounts struct {
	Total         int `json:"total"`
	Pending       int `json:"pending"`
	GuideApproved int `json:"guide_approved"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
}

func CountStatuses(projects []models.Project) StatusCounts {
	c := StatusCounts{Total: len(projects)}
	for _, p := range projects {
		switch p.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusGuideApproved:
			c.GuideApproved++
		case models.StatusApproved:
			c.Approved++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c
}

type StudentStats struct {
	Total    int `json:"total"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"` // pending and guide_approved
	Rejected int `json:"rejected"`
	Members  int `json:"members"`
}

type StudentView struct {
	Active      []models.Project             `json:"active"`
	Invitations []models.ProjectCollaborator `json:"invitations"`
	Stats       StudentStats                 `json:"stats"`
	Warnings    []string                     `json:"warnings,omitempty"`
}

type TeacherView struct {
	Projects    []workflow.ProjectDetail `json:"projects"`
	Counts      StatusCounts             `json:"counts"`
	ReviewQueue []workflow.ProjectDetail `json:"review_queue"`
	Warnings    []string                 `json:"warnings,omitempty"`
}

type MonitorView struct {
	Projects         []workflow.ProjectDetail `json:"projects"`
	Counts           StatusCounts             `json:"counts"`
	ActiveTeachers   int                      `json:"active_teachers"`
	PendingAllotment int                      `json:"pending_allotment"`
	AutoMapped       int                      `json:"auto_mapped"`
	Warnings         []string                 `json:"warnings,omitempty"`
}

type Board struct {
	source Source
	logger zerolog.Logger
}

func NewBoard(source Source) *Board {
	return &Board{source: source, logger: log.With().Str("component", "dashboard").Logger()}
}

// warnings collects degraded sections from concurrent readers.
type warnings struct {
	mu   sync.Mutex
	list []string
}

func (w *warnings) add(logger zerolog.Logger, section string, err error) {
	logger.Warn().Err(err).Str("section", section).Msg("Dashboard section unavailable")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, section+" unavailable")
}

// degrade swallows a section failure unless the request itself was cancelled.
func (b *Board) degrade(ctx context.Context, w *warnings, section string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	w.add(b.logger, section, err)
	return nil
}

func (b *Board) Student(ctx context.Context, sess identity.Session) (*StudentView, error) {
	if !sess.IsStudent() {
		return nil, errs.NewInsufficientRoleError("student")
	}

	view := &StudentView{Active: []models.Project{}, Invitations: []models.ProjectCollaborator{}}
	var w warnings
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		active, err := b.source.ActiveProjects(gctx, sess)
		if err != nil {
			return b.degrade(gctx, &w, "active projects", err)
		}
		view.Active = active
		return nil
	})
	g.Go(func() error {
		invites, err := b.source.Invitations(gctx, sess)
		if err != nil {
			return b.degrade(gctx, &w, "invitations", err)
		}
		view.Invitations = invites
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range view.Active {
		view.Stats.Total++
		switch p.Status {
		case models.StatusApproved:
			view.Stats.Approved++
		case models.StatusPending, models.StatusGuideApproved:
			view.Stats.Pending++
		case models.StatusRejected:
			view.Stats.Rejected++
		}
	}
	if len(view.Active) > 0 {
		ids := make([]uuid.UUID, 0, len(view.Active))
		for _, p := range view.Active {
			ids = append(ids, p.ID)
		}
		sizes, err := b.source.TeamSizes(ctx, ids)
		if err != nil {
			if err := b.degrade(ctx, &w, "team sizes", err); err != nil {
				return nil, err
			}
		}
		for _, n := range sizes {
			view.Stats.Members += n
		}
	}
	view.Warnings = w.list
	return view, nil
}

// loadAll reads every project and the guide directory in parallel.
func (b *Board) loadAll(ctx context.Context, w *warnings) ([]models.Project, *guide.Directory, error) {
	var (
		projects []models.Project
		dir      = guide.NewDirectory(nil)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		all, err := b.source.List(gctx)
		if err != nil {
			return b.degrade(gctx, w, "projects", err)
		}
		projects = all
		return nil
	})
	g.Go(func() error {
		d, err := b.source.Directory(gctx)
		if err != nil {
			return b.degrade(gctx, w, "teachers", err)
		}
		dir = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return projects, dir, nil
}

func detailed(projects []models.Project, dir *guide.Directory) []workflow.ProjectDetail {
	out := make([]workflow.ProjectDetail, 0, len(projects))
	for i := range projects {
		out = append(out, workflow.ProjectDetail{Project: projects[i], ResolvedGuide: dir.Resolve(&projects[i])})
	}
	return out
}

// Teacher is the "My Groups" view: projects whose resolved guide is the caller.
func (b *Board) Teacher(ctx context.Context, sess identity.Session) (*TeacherView, error) {
	if !sess.IsFaculty() {
		return nil, errs.NewInsufficientRoleError("teacher or hod")
	}

	var w warnings
	all, dir, err := b.loadAll(ctx, &w)
	if err != nil {
		return nil, err
	}
	mine := dir.ProjectsGuidedBy(all, sess.ProfileID)

	view := &TeacherView{
		Projects:    detailed(mine, dir),
		Counts:      CountStatuses(mine),
		ReviewQueue: []workflow.ProjectDetail{},
		Warnings:    w.list,
	}
	for _, d := range view.Projects {
		if d.Status == models.StatusPending || d.Status == models.StatusGuideApproved {
			view.ReviewQueue = append(view.ReviewQueue, d)
		}
	}
	return view, nil
}

// Monitor is the HOD view over every project and its guide assignment.
func (b *Board) Monitor(ctx context.Context, sess identity.Session) (*MonitorView, error) {
	if !sess.IsHOD() {
		return nil, errs.NewInsufficientRoleError("hod")
	}

	var w warnings
	all, dir, err := b.loadAll(ctx, &w)
	if err != nil {
		return nil, err
	}

	view := &MonitorView{
		Projects:         detailed(all, dir),
		Counts:           CountStatuses(all),
		ActiveTeachers:   dir.ActiveTeacherCount(all),
		PendingAllotment: dir.PendingAllotmentCount(all),
		Warnings:         w.list,
	}
	for _, d := range view.Projects {
		if d.ResolvedGuide != nil && d.ResolvedGuide.AutoMapped {
			view.AutoMapped++
		}
	}
	return view, nil
}
