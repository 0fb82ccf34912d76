package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/links"
	"github.com/projectshelf/backend/models"
)

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// ProjectInput is the owner-editable part of a project.
type ProjectInput struct {
	Title        string           `json:"title"`
	Abstract     string           `json:"abstract"`
	Category     models.Category  `json:"category"`
	AcademicYear string           `json:"academic_year"`
	TechStack    models.TechStack `json:"tech_stack"`
	ReportLink   string           `json:"report_link"`
	SourceLink   *string          `json:"source_link,omitempty"`
	GuideID      *uuid.UUID       `json:"guide_id,omitempty"`
	GuideName    *string          `json:"guide_name,omitempty"`
	// Members are invited as contributors on creation. Ignored on update.
	Members []uuid.UUID `json:"members,omitempty"`
}

// Validate checks every field and reports all problems in one error.
func (in *ProjectInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Abstract = strings.TrimSpace(in.Abstract)
	in.AcademicYear = strings.TrimSpace(in.AcademicYear)
	in.ReportLink = strings.TrimSpace(in.ReportLink)
	in.TechStack = models.NewTechStack(in.TechStack...)
	in.SourceLink = trimmedOrNil(in.SourceLink)
	in.GuideName = trimmedOrNil(in.GuideName)
	if in.GuideID != nil && *in.GuideID == uuid.Nil {
		in.GuideID = nil
	}

	var problems []errs.FieldProblem
	missing := func(field string) {
		problems = append(problems, errs.FieldProblem{Field: field, Missing: true})
	}
	invalid := func(field, reason string) {
		problems = append(problems, errs.FieldProblem{Field: field, Reason: reason})
	}

	if in.Title == "" {
		missing("title")
	}
	if in.Abstract == "" {
		missing("abstract")
	}
	switch {
	case in.Category == "":
		missing("category")
	case !in.Category.IsValid():
		invalid("category", "unknown category")
	}
	switch {
	case in.AcademicYear == "":
		missing("academic_year")
	case !validAcademicYear(in.AcademicYear):
		invalid("academic_year", "expected YYYY-YYYY with consecutive years")
	}
	if len(in.TechStack) == 0 {
		missing("tech_stack")
	}
	switch {
	case in.ReportLink == "":
		missing("report_link")
	case !links.IsAcceptedReportLink(in.ReportLink):
		invalid("report_link", "must be an https link to Google Drive or Google Docs")
	}
	if in.SourceLink != nil && !links.IsHTTPURL(*in.SourceLink) {
		invalid("source_link", "must be an http or https URL")
	}

	if len(problems) > 0 {
		return errs.NewValidationError(problems)
	}
	return nil
}

func validAcademicYear(year string) bool {
	m := academicYearPattern.FindStringSubmatch(year)
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// apply copies the input onto p. Status, owner and counters are left alone.
func (in *ProjectInput) apply(p *models.Project) {
	p.Title = in.Title
	p.Abstract = in.Abstract
	p.Category = in.Category
	p.AcademicYear = in.AcademicYear
	p.TechStack = in.TechStack
	p.ReportLink = in.ReportLink
	p.SourceLink = in.SourceLink
	p.GuideID = in.GuideID
	p.GuideName = in.GuideName
}

// ReviewInput is a reviewer's decision.
type ReviewInput struct {
	Status   models.Status `json:"status"`
	Feedback string        `json:"feedback"`
}

// UpdateInput is the body of an update. The owner sends ProjectInput fields;
// a guide or HOD sends only Status and Feedback.
type UpdateInput struct {
	ProjectInput
	Status   *models.Status `json:"status,omitempty"`
	Feedback *string        `json:"feedback,omitempty"`
}

// GuideInput reassigns a project's guide. Exactly one of the fields is set, or
// neither to clear the assignment.
type GuideInput struct {
	GuideID   *uuid.UUID `json:"guide_id,omitempty"`
	GuideName *string    `json:"guide_name,omitempty"`
}
