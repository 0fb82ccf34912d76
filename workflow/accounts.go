package workflow

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
)

type RegisterInput struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	FullName  string      `json:"full_name"`
	Role      models.Role `json:"role"`
	CollegeID *string     `json:"college_id,omitempty"`
	Year      *string     `json:"year,omitempty"`
	Section   *string     `json:"section,omitempty"`
}

func (in *RegisterInput) validate(allowed ...models.Role) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.CollegeID = trimmedOrNil(in.CollegeID)
	in.Year = trimmedOrNil(in.Year)
	in.Section = trimmedOrNil(in.Section)
	if in.Role == "" {
		in.Role = models.RoleStudent
	}

	var problems []errs.FieldProblem
	switch {
	case in.Email == "":
		problems = append(problems, errs.FieldProblem{Field: "email", Missing: true})
	default:
		if _, err := mail.ParseAddress(in.Email); err != nil {
			problems = append(problems, errs.FieldProblem{Field: "email", Reason: "not an email address"})
		}
	}
	switch {
	case in.Password == "":
		problems = append(problems, errs.FieldProblem{Field: "password", Missing: true})
	case len(in.Password) < identity.MinPasswordLength:
		problems = append(problems, errs.FieldProblem{Field: "password", Reason: "too short"})
	}
	if in.FullName == "" {
		problems = append(problems, errs.FieldProblem{Field: "full_name", Missing: true})
	}
	roleOK := false
	for _, r := range allowed {
		if in.Role == r {
			roleOK = true
		}
	}
	if !roleOK {
		problems = append(problems, errs.FieldProblem{Field: "role", Reason: "not allowed"})
	}
	if len(problems) > 0 {
		return errs.NewValidationError(problems)
	}
	return nil
}

// Register creates a student profile. Faculty accounts are provisioned through
// CreateTeacher and CreateHOD.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	if err := in.validate(models.RoleStudent); err != nil {
		return nil, err
	}
	return s.createProfile(ctx, in, false)
}

// CreateTeacher provisions a teacher account on behalf of the HOD.
func (s *Service) CreateTeacher(ctx context.Context, sess identity.Session, in RegisterInput) (*models.Profile, error) {
	if !sess.IsHOD() {
		return nil, errs.NewInsufficientRoleError("hod")
	}
	in.Role = models.RoleTeacher
	if err := in.validate(models.RoleTeacher); err != nil {
		return nil, err
	}
	return s.createProfile(ctx, in, true)
}

// CreateHOD seeds a department head account.
func (s *Service) CreateHOD(ctx context.Context, in RegisterInput) (*models.Profile, error) {
	in.Role = models.RoleHOD
	if err := in.validate(models.RoleHOD); err != nil {
		return nil, err
	}
	return s.createProfile(ctx, in, true)
}

func (s *Service) createProfile(ctx context.Context, in RegisterInput, provisioned bool) (*models.Profile, error) {
	hash, err := identity.HashPassword(in.Password)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("hash password", err)
	}
	p := &models.Profile{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         in.Role,
		Provisioned:  provisioned,
	}
	if in.Role == models.RoleStudent {
		p.CollegeID, p.Year, p.Section = in.CollegeID, in.Year, in.Section
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create profile")
	}
	s.logger.Info().Str("profileID", p.ID.String()).Str("role", string(p.Role)).Msg("Profile created")
	return p, nil
}

// Login checks credentials. Unknown emails and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Profile, error) {
	p, err := s.store.FindProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewInvalidCredentialsError()
		}
		return nil, errors.Wrap(err, "find profile")
	}
	if err := identity.CheckPassword(password, p.PasswordHash); err != nil {
		return nil, err
	}
	return p, nil
}

// FindProfile implements identity.ProfileFinder.
func (s *Service) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return s.store.FindProfile(ctx, id)
}
