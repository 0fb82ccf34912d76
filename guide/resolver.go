// Package guide reconciles a project's guide reference with the faculty directory.
package guide

import (
	"strings"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/models"
)

// UnknownGuideName is shown for a foreign key that no longer matches a faculty profile.
const UnknownGuideName = "Unknown Guide"

// honorifics are stripped, in any order and repetition, before names are compared.
var honorifics = []string{"prof.", "dr.", "mr.", "mrs.", "ms.", "er."}

// Assignment is a resolved guide. AutoMapped marks a match inferred from a free-text
// name rather than read from the foreign key.
type Assignment struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	AutoMapped bool      `json:"is_auto_mapped"`
}

// Directory is the set of faculty profiles a guide can resolve to.
type Directory struct {
	byID   map[uuid.UUID]models.Profile
	byName map[string][]models.Profile
	order  []models.Profile
}

// NewDirectory indexes every faculty profile in profiles. Students are ignored.
func NewDirectory(profiles []models.Profile) *Directory {
	d := &Directory{
		byID:   make(map[uuid.UUID]models.Profile, len(profiles)),
		byName: make(map[string][]models.Profile, len(profiles)),
	}
	for _, p := range profiles {
		if !p.Role.IsFaculty() {
			continue
		}
		d.byID[p.ID] = p
		key := NormalizeName(p.FullName)
		d.byName[key] = append(d.byName[key], p)
		d.order = append(d.order, p)
	}
	return d
}

// Teachers returns the faculty profiles in the order they were given.
func (d *Directory) Teachers() []models.Profile {
	return d.order
}

func (d *Directory) Lookup(id uuid.UUID) (models.Profile, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// NormalizeName lower-cases name, strips leading honorifics and collapses whitespace.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for stripped := true; stripped; {
		stripped = false
		for _, h := range honorifics {
			if strings.HasPrefix(n, h) {
				n = strings.TrimSpace(strings.TrimPrefix(n, h))
				stripped = true
			}
		}
	}
	return strings.Join(strings.Fields(n), " ")
}

// Resolve returns the project's guide or nil when none is assigned or inferable.
func (d *Directory) Resolve(p *models.Project) *Assignment {
	switch ref := p.Guide().(type) {
	case models.ResolvedGuide:
		if teacher, ok := d.byID[ref.ID]; ok {
			return &Assignment{ID: teacher.ID, Name: teacher.FullName}
		}
		return &Assignment{ID: ref.ID, Name: UnknownGuideName}
	case models.UnresolvedGuide:
		key := NormalizeName(ref.Name)
		if key == "" {
			return nil
		}
		matches := d.byName[key]
		// Two faculty members with the same normalized name cannot be told apart.
		if len(matches) != 1 {
			return nil
		}
		return &Assignment{ID: matches[0].ID, Name: matches[0].FullName, AutoMapped: true}
	}
	return nil
}

// ActiveTeacherCount counts distinct guides that at least one project resolves to.
// Stale foreign keys are not counted.
func (d *Directory) ActiveTeacherCount(projects []models.Project) int {
	seen := make(map[uuid.UUID]struct{})
	for i := range projects {
		if a := d.Resolve(&projects[i]); a != nil {
			if _, known := d.byID[a.ID]; known {
				seen[a.ID] = struct{}{}
			}
		}
	}
	return len(seen)
}

// PendingAllotmentCount counts projects with no resolvable guide.
func (d *Directory) PendingAllotmentCount(projects []models.Project) int {
	n := 0
	for i := range projects {
		if d.Resolve(&projects[i]) == nil {
			n++
		}
	}
	return n
}

// ProjectsGuidedBy keeps the projects whose resolved guide is guideID.
func (d *Directory) ProjectsGuidedBy(projects []models.Project, guideID uuid.UUID) []models.Project {
	var out []models.Project
	for i := range projects {
		if a := d.Resolve(&projects[i]); a != nil && a.ID == guideID {
			out = append(out, projects[i])
		}
	}
	return out
}

// IsGuide reports whether profileID is the resolved guide of p.
func (d *Directory) IsGuide(p *models.Project, profileID uuid.UUID) bool {
	a := d.Resolve(p)
	return a != nil && a.ID == profileID
}
