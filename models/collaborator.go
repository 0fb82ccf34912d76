package models

import (
	"time"

	"github.com/google/uuid"
)

type CollaboratorRole string

const (
	CollaboratorLeader      CollaboratorRole = "leader"
	CollaboratorContributor CollaboratorRole = "contributor"
)

func (r CollaboratorRole) IsValid() bool {
	return r == CollaboratorLeader || r == CollaboratorContributor
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

func (s InviteStatus) IsValid() bool {
	return s == InvitePending || s == InviteAccepted || s == InviteRejected
}

// ProjectCollaborator links a student to a project
type ProjectCollaborator struct {
	ID        uuid.UUID        `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	ProjectID uuid.UUID        `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_project_collaborator_unique"`
	StudentID uuid.UUID        `json:"student_id" db:"student_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_project_collaborator_unique"`
	Role      CollaboratorRole `json:"role" db:"role" gorm:"type:text;not null"`
	Status    InviteStatus     `json:"status" db:"status" gorm:"type:text;not null;default:pending"`
	CreatedAt time.Time        `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	Student *Profile `json:"student,omitempty" gorm:"foreignKey:StudentID;references:ID"`
	Project *Project `json:"project,omitempty" gorm:"foreignKey:ProjectID;references:ID"`
}

// TableName keeps the join table name used by existing deployments.
func (ProjectCollaborator) TableName() string {
	return "project_collaborators"
}
