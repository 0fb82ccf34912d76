package database

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"gorm.io/gorm"
)

type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db}
}

func (r *ProfileRepo) CreateProfile(ctx context.Context, p *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return errs.NewDatabaseError("create", "profile", err)
	}
	return nil
}

func (r *ProfileRepo) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "profile", err)
	}
	return &p, nil
}

func (r *ProfileRepo) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.WithContext(ctx).First(&p, "lower(email) = ?", strings.ToLower(email)).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "profile", err)
	}
	return &p, nil
}

func (r *ProfileRepo) ListFaculty(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("role IN ?", []models.Role{models.RoleTeacher, models.RoleHOD, models.RoleAdmin}).
		Order("full_name").
		Find(&profiles).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "faculty", err)
	}
	return profiles, nil
}

func (r *ProfileRepo) SearchProfiles(ctx context.Context, query string, role models.Role, limit int) ([]models.Profile, error) {
	q := r.db.WithContext(ctx).
		Where("full_name ILIKE ?", likePattern(query)).
		Order("full_name")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var profiles []models.Profile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, errs.NewDatabaseError("search", "profiles", err)
	}
	return profiles, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps s for a substring ILIKE match with wildcards in s escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}
