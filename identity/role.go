// Package identity maps an authenticated principal to its profile and effective role.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
)

// Session is the explicit caller context handed to every workflow operation.
type Session struct {
	ProfileID uuid.UUID
	Email     string
	FullName  string
	RawRole   models.Role
	Role      models.Role // effective role: student, teacher or hod
}

func (s Session) IsStudent() bool { return s.Role == models.RoleStudent }
func (s Session) IsTeacher() bool { return s.Role == models.RoleTeacher }
func (s Session) IsHOD() bool     { return s.Role == models.RoleHOD }

// IsFaculty is true for teachers and HODs.
func (s Session) IsFaculty() bool { return s.Role == models.RoleTeacher || s.Role == models.RoleHOD }

// HODEmailOverride is the department rule that promotes specific teacher accounts to
// HOD. The role column cannot tell the department head apart from other faculty, so
// the institution names the head by email instead. Only provisioned accounts qualify:
// claiming a listed address at sign-up must not grant anything.
type HODEmailOverride struct {
	emails map[string]struct{}
}

func NewHODEmailOverride(emails []string) HODEmailOverride {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			set[e] = struct{}{}
		}
	}
	return HODEmailOverride{emails: set}
}

func (o HODEmailOverride) Applies(p models.Profile) bool {
	if p.Role != models.RoleTeacher || !p.Provisioned {
		return false
	}
	_, ok := o.emails[strings.ToLower(strings.TrimSpace(p.Email))]
	return ok
}

// EffectiveRole collapses the stored role into student, teacher or hod.
func EffectiveRole(p models.Profile, override HODEmailOverride) models.Role {
	switch p.Role {
	case models.RoleHOD, models.RoleAdmin:
		return models.RoleHOD
	case models.RoleTeacher:
		if override.Applies(p) {
			return models.RoleHOD
		}
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// ProfileFinder loads profiles by id.
type ProfileFinder interface {
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Resolver turns principal ids into sessions.
type Resolver struct {
	profiles ProfileFinder
	override HODEmailOverride
}

func NewResolver(profiles ProfileFinder, override HODEmailOverride) *Resolver {
	return &Resolver{profiles: profiles, override: override}
}

// Resolve looks up the principal's profile. A principal without a profile is treated
// as unauthenticated.
func (r *Resolver) Resolve(ctx context.Context, principal uuid.UUID) (Session, error) {
	if principal == uuid.Nil {
		return Session{}, errs.NewMissingTokenError()
	}
	profile, err := r.profiles.FindProfile(ctx, principal)
	if err != nil {
		if errs.IsNotFound(err) {
			return Session{}, errs.NewNoProfileError()
		}
		return Session{}, err
	}
	return r.SessionFor(*profile), nil
}

// SessionFor builds a session from an already loaded profile.
func (r *Resolver) SessionFor(p models.Profile) Session {
	return Session{
		ProfileID: p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		RawRole:   p.Role,
		Role:      EffectiveRole(p, r.override),
	}
}
