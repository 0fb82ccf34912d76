package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"gorm.io/gorm"
)

type ReviewRepo struct {
	db *gorm.DB
}

func NewReviewRepo(db *gorm.DB) *ReviewRepo {
	return &ReviewRepo{db}
}

func (r *ReviewRepo) AppendReview(ctx context.Context, e *models.ReviewEvent) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return errs.NewDatabaseError("create", "review event", err)
	}
	return nil
}

func (r *ReviewRepo) ListReviews(ctx context.Context, projectID uuid.UUID) ([]models.ReviewEvent, error) {
	var events []models.ReviewEvent
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at").Find(&events).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "review events", err)
	}
	return events, nil
}

func (r *ReviewRepo) DeleteReviewsByProjects(ctx context.Context, projectIDs []uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("project_id IN ?", projectIDs).Delete(&models.ReviewEvent{}).Error
	if err != nil {
		return errs.NewDatabaseError("delete", "review events", err)
	}
	return nil
}
