package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

func (r *ProjectRepo) listQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Leader").Order("projects.created_at DESC")
}

func (r *ProjectRepo) CreateProject(ctx context.Context, p *models.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

func (r *ProjectRepo) FindProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := r.db.WithContext(ctx).Preload("Leader").First(&p, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &p, nil
}

func (r *ProjectRepo) ListProjects(ctx context.Context, statuses ...models.Status) ([]models.Project, error) {
	q := r.listQuery(ctx)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

func (r *ProjectRepo) ListProjectsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	if len(ids) == 0 {
		return projects, nil
	}
	if err := r.listQuery(ctx).Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

func (r *ProjectRepo) ListProjectsByOwner(ctx context.Context, studentID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	if err := r.listQuery(ctx).Where("student_id = ?", studentID).Find(&projects).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

// compareAndSwap runs a conditional update and turns "no rows matched" into not found
// or stale state, depending on whether the row still exists.
func (r *ProjectRepo) compareAndSwap(ctx context.Context, id uuid.UUID, expected models.Status, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(values)
	if res.Error != nil {
		return errs.NewDatabaseError("update", "project", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return errs.NewDatabaseError("count", "project", err)
	}
	if count == 0 {
		return errs.NewNotFound("project")
	}
	return errs.NewStaleStateError("project")
}

func (r *ProjectRepo) UpdateProjectDetails(ctx context.Context, p *models.Project, expected models.Status) error {
	now := time.Now()
	err := r.compareAndSwap(ctx, p.ID, expected, map[string]any{
		"title":         p.Title,
		"abstract":      p.Abstract,
		"category":      p.Category,
		"academic_year": p.AcademicYear,
		"tech_stack":    p.TechStack,
		"report_link":   p.ReportLink,
		"source_link":   p.SourceLink,
		"guide_id":      p.GuideID,
		"guide_name":    p.GuideName,
		"status":        p.Status,
		"feedback":      p.Feedback,
		"updated_at":    now,
	})
	if err == nil {
		p.UpdatedAt = now
	}
	return err
}

func (r *ProjectRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.Status, feedback *string) error {
	values := map[string]any{"status": to, "updated_at": time.Now()}
	if feedback != nil {
		values["feedback"] = *feedback
	}
	return r.compareAndSwap(ctx, id, from, values)
}

func (r *ProjectRepo) AssignGuide(ctx context.Context, id uuid.UUID, guideID *uuid.UUID, guideName *string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", id).
		Updates(map[string]any{"guide_id": guideID, "guide_name": guideName, "updated_at": time.Now()})
	if res.Error != nil {
		return errs.NewDatabaseError("update", "project guide", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	return nil
}

func (r *ProjectRepo) DeleteProjects(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Project{})
	if res.Error != nil {
		return 0, errs.NewDatabaseError("delete", "projects", res.Error)
	}
	return res.RowsAffected, nil
}

// IncrementCounter adds one in SQL so concurrent viewers never lose an update.
func (r *ProjectRepo) IncrementCounter(ctx context.Context, id uuid.UUID, counter workflow.Counter) (int64, error) {
	if counter != workflow.CounterViews && counter != workflow.CounterDownloads {
		return 0, errs.NewBadRequestError("unknown counter")
	}
	column := string(counter)

	var p models.Project
	res := r.db.WithContext(ctx).
		Model(&p).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: column}}}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return 0, errs.NewDatabaseError("increment", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, errs.NewNotFound("project")
	}
	if counter == workflow.CounterViews {
		return p.ViewCount, nil
	}
	return p.DownloadCount, nil
}

// Discovery reads. Every query is restricted to approved projects.

// SearchApproved matches the title, abstract, tech tags, leader and accepted
// collaborator names, ranked by full-text relevance of title and abstract.
func (r *ProjectRepo) SearchApproved(ctx context.Context, query string) ([]models.Project, error) {
	raw := strings.TrimSpace(query)
	rank := clause.OrderBy{Expression: clause.Expr{
		SQL:                "ts_rank(to_tsvector('english', projects.title || ' ' || projects.abstract), plainto_tsquery('english', ?)) DESC, projects.created_at DESC",
		Vars:               []any{raw},
		WithoutParentheses: true,
	}}

	var projects []models.Project
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Where("projects.status = ?", models.StatusApproved).
		Where(`projects.title ILIKE @pattern
			OR projects.abstract ILIKE @pattern
			OR projects.tech_stack::text ILIKE @pattern
			OR to_tsvector('english', projects.title || ' ' || projects.abstract) @@ plainto_tsquery('english', @raw)
			OR EXISTS (
				SELECT 1 FROM profiles leader
				WHERE leader.id = projects.student_id AND leader.full_name ILIKE @pattern)
			OR EXISTS (
				SELECT 1 FROM project_collaborators pc
				JOIN profiles member ON member.id = pc.student_id
				WHERE pc.project_id = projects.id AND pc.status = 'accepted' AND member.full_name ILIKE @pattern)`,
			sql.Named("pattern", likePattern(raw)), sql.Named("raw", raw)).
		Order(rank).
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("search", "projects", err)
	}
	return projects, nil
}

// SearchApprovedByTech calls the trigram tech search function. A missing function
// surfaces as errs.ErrSearchUnavailable.
func (r *ProjectRepo) SearchApprovedByTech(ctx context.Context, tag string) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Raw("SELECT * FROM "+models.TechSearchFunction+"(?)", strings.TrimSpace(tag)).
		Scan(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("search", "projects by tech", err)
	}
	return projects, nil
}

// ListApprovedByTechExact is the array-contains fallback for SearchApprovedByTech.
func (r *ProjectRepo) ListApprovedByTechExact(ctx context.Context, tag string) ([]models.Project, error) {
	needle, err := json.Marshal([]string{strings.TrimSpace(tag)})
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("encode tech filter", err)
	}
	var projects []models.Project
	err = r.listQuery(ctx).
		Where("status = ?", models.StatusApproved).
		Where("tech_stack::jsonb @> ?::jsonb", string(needle)).
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects by tech", err)
	}
	return projects, nil
}

func (r *ProjectRepo) ListApproved(ctx context.Context) ([]models.Project, error) {
	return r.ListProjects(ctx, models.StatusApproved)
}
