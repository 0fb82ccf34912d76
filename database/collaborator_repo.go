package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

type CollaboratorRepo struct {
	db *gorm.DB
}

func NewCollaboratorRepo(db *gorm.DB) *CollaboratorRepo {
	return &CollaboratorRepo{db}
}

// CreateLink relies on idx_project_collaborator_unique: a second link for the same
// student and project fails with a 23505 and maps to errs.ErrAlreadyExists.
func (r *CollaboratorRepo) CreateLink(ctx context.Context, link *models.ProjectCollaborator) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		apiErr := errs.NewDatabaseError("create", "collaborator", err)
		if errs.IsAlreadyExists(apiErr) {
			return errs.NewAlreadyExists("collaborator")
		}
		return apiErr
	}
	return nil
}

func (r *CollaboratorRepo) FindLink(ctx context.Context, id uuid.UUID) (*models.ProjectCollaborator, error) {
	var link models.ProjectCollaborator
	if err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "collaborator", err)
	}
	return &link, nil
}

func (r *CollaboratorRepo) ListLinksByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectCollaborator, error) {
	var links []models.ProjectCollaborator
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "collaborators", err)
	}
	return links, nil
}

func (r *CollaboratorRepo) ListLinksByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]models.ProjectCollaborator, error) {
	var links []models.ProjectCollaborator
	if len(projectIDs) == 0 {
		return links, nil
	}
	err := r.db.WithContext(ctx).
		Where("project_id IN ?", projectIDs).
		Order("created_at").
		Find(&links).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "collaborators", err)
	}
	return links, nil
}

func (r *CollaboratorRepo) ListLinksByStudent(ctx context.Context, studentID uuid.UUID, statuses ...models.InviteStatus) ([]models.ProjectCollaborator, error) {
	q := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Project.Leader").
		Where("student_id = ?", studentID).
		Order("created_at DESC")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var links []models.ProjectCollaborator
	if err := q.Find(&links).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "collaborators", err)
	}
	return links, nil
}

// RespondToLink is a compare-and-swap on the invite status, so two concurrent
// answers to the same invitation cannot both succeed.
func (r *CollaboratorRepo) RespondToLink(ctx context.Context, id uuid.UUID, from, to models.InviteStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.ProjectCollaborator{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return errs.NewDatabaseError("update", "collaborator", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Model(&models.ProjectCollaborator{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return errs.NewDatabaseError("count", "collaborator", err)
	}
	if count == 0 {
		return errs.NewNotFound("collaborator")
	}
	return errs.NewStaleStateError("collaborator")
}

func (r *CollaboratorRepo) DeleteLink(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.ProjectCollaborator{}, "id = ?", id)
	if res.Error != nil {
		return errs.NewDatabaseError("delete", "collaborator", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("collaborator")
	}
	return nil
}

func (r *CollaboratorRepo) DeleteLinksByProjects(ctx context.Context, projectIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Delete(&models.ProjectCollaborator{}).Error
	if err != nil {
		return errs.NewDatabaseError("delete", "collaborators", err)
	}
	return nil
}

func (r *CollaboratorRepo) CountAcceptedLinks(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Clauses(dbresolver.Write).
		Model(&models.ProjectCollaborator{}).
		Where("project_id = ? AND status = ?", projectID, models.InviteAccepted).
		Count(&count).Error
	if err != nil {
		return 0, errs.NewDatabaseError("count", "collaborators", err)
	}
	return count, nil
}
