package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewEvent records one status change of a project together with the feedback given.
type ReviewEvent struct {
	ID         uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	ProjectID  uuid.UUID `json:"project_id" db:"project_id" gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `json:"actor_id" db:"actor_id" gorm:"type:uuid;not null"`
	FromStatus Status    `json:"from_status" db:"from_status" gorm:"type:text;not null"`
	ToStatus   Status    `json:"to_status" db:"to_status" gorm:"type:text;not null"`
	Feedback   *string   `json:"feedback,omitempty" db:"feedback" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
}

func (ReviewEvent) TableName() string {
	return "project_reviews"
}
