package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the raw role stored on a profile.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleHOD     Role = "hod"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHOD, RoleAdmin:
		return true
	}
	return false
}

// IsFaculty reports whether profiles with this role can guide projects.
func (r Role) IsFaculty() bool {
	return r == RoleTeacher || r == RoleHOD || r == RoleAdmin
}

// Profile represents a person using the portal
type Profile struct {
	ID           uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Email        string    `json:"email" db:"email" gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string    `json:"-" db:"password_hash" gorm:"type:text;not null"`
	FullName     string    `json:"full_name" db:"full_name" gorm:"type:text;not null;index"`
	Role         Role      `json:"role" db:"role" gorm:"type:text;not null;default:student;index"`
	CollegeID    *string   `json:"college_id,omitempty" db:"college_id" gorm:"type:text"`
	Year         *string   `json:"year,omitempty" db:"year" gorm:"type:text"`
	Section      *string   `json:"section,omitempty" db:"section" gorm:"type:text"`
	// Provisioned is set on faculty accounts created by the HOD or the CLI, never by
	// self-registration.
	Provisioned  bool      `json:"provisioned" db:"provisioned" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// ProfileSummary is the public projection of a profile embedded in other payloads.
type ProfileSummary struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CollegeID *string   `json:"college_id,omitempty"`
}

func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{ID: p.ID, FullName: p.FullName, Role: p.Role, CollegeID: p.CollegeID}
}
