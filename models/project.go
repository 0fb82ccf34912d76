package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the kind of submission.
type Category string

const (
	CategoryFinalYear Category = "Final Year Project"
	CategoryMini      Category = "Mini Project"
	CategoryResearch  Category = "Research Paper"
	CategoryHackathon Category = "Hackathon Submission"
	CategoryMicro     Category = "Micro Project"
)

// Categories lists every accepted category in display order.
var Categories = []Category{CategoryFinalYear, CategoryMini, CategoryResearch, CategoryHackathon, CategoryMicro}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the review state of a project.
type Status string

const (
	StatusPending       Status = "pending"
	StatusGuideApproved Status = "guide_approved"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusGuideApproved, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Project is a student submission
type Project struct {
	ID            uuid.UUID  `json:"id" db:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	Title         string     `json:"title" db:"title" gorm:"type:text;not null"`
	Abstract      string     `json:"abstract" db:"abstract" gorm:"type:text;not null"`
	Category      Category   `json:"category" db:"category" gorm:"type:text;not null;index"`
	AcademicYear  string     `json:"academic_year" db:"academic_year" gorm:"type:text;not null;index"`
	TechStack     TechStack  `json:"tech_stack" db:"tech_stack" gorm:"not null"`
	ReportLink    string     `json:"report_link" db:"report_link" gorm:"type:text;not null"`
	SourceLink    *string    `json:"source_link,omitempty" db:"source_link" gorm:"type:text"`
	GuideID       *uuid.UUID `json:"guide_id,omitempty" db:"guide_id" gorm:"type:uuid;index"`
	GuideName     *string    `json:"guide_name,omitempty" db:"guide_name" gorm:"type:text"`
	StudentID     uuid.UUID  `json:"student_id" db:"student_id" gorm:"type:uuid;not null;index"`
	Status        Status     `json:"status" db:"status" gorm:"type:text;not null;default:pending;index"`
	Feedback      *string    `json:"feedback,omitempty" db:"feedback" gorm:"type:text"`
	ViewCount     int64      `json:"view_count" db:"view_count" gorm:"not null;default:0"`
	DownloadCount int64      `json:"download_count" db:"download_count" gorm:"not null;default:0"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	Leader        *Profile              `json:"leader,omitempty" gorm:"foreignKey:StudentID;references:ID"`
	Collaborators []ProjectCollaborator `json:"collaborators,omitempty" gorm:"foreignKey:ProjectID;references:ID"`
}

// Guide returns the project's guide reference. The foreign key wins when both columns are set.
// A nil result means no guide was ever assigned.
func (p *Project) Guide() GuideRef {
	if p.GuideID != nil && *p.GuideID != uuid.Nil {
		return ResolvedGuide{ID: *p.GuideID}
	}
	if p.GuideName != nil && strings.TrimSpace(*p.GuideName) != "" {
		return UnresolvedGuide{Name: strings.TrimSpace(*p.GuideName)}
	}
	return nil
}

// SetGuide stores ref in the guide columns. A resolved reference keeps any legacy name
// already stored so older listings still render it.
func (p *Project) SetGuide(ref GuideRef) {
	switch g := ref.(type) {
	case ResolvedGuide:
		id := g.ID
		p.GuideID = &id
	case UnresolvedGuide:
		name := g.Name
		p.GuideID = nil
		p.GuideName = &name
	default:
		p.GuideID = nil
		p.GuideName = nil
	}
}

// IsEditableByOwner reports whether the leader may still change the submission.
func (p *Project) IsEditableByOwner() bool {
	return p.Status == StatusPending || p.Status == StatusRejected
}
