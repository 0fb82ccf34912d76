package guide

import (
	"testing"

	"github.com/google/uuid"
	"github.com/projectshelf/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teacher(name string) models.Profile {
	return models.Profile{ID: uuid.New(), FullName: name, Role: models.RoleTeacher}
}

func named(name string) models.Project {
	return models.Project{ID: uuid.New(), GuideName: &name}
}

func byID(id uuid.UUID) models.Project {
	return models.Project{ID: uuid.New(), GuideID: &id}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Dr. A. Sharma":      "a. sharma",
		"  PROF.  R.  Patil": "r. patil",
		"Prof. Dr. Mehta":    "mehta",
		"Er.Kulkarni":        "kulkarni",
		"Mrs. Iyer":          "iyer",
		"Rajesh Patil":       "rajesh patil",
		"Dr":                 "dr",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestResolve_AutoMapsFreeTextName(t *testing.T) {
	sharma := teacher("A. Sharma")
	dir := NewDirectory([]models.Profile{sharma})

	p := named("Dr. A. Sharma")
	got := dir.Resolve(&p)
	require.NotNil(t, got)
	assert.Equal(t, Assignment{ID: sharma.ID, Name: "A. Sharma", AutoMapped: true}, *got)
}

func TestResolve_ForeignKeyWinsOverName(t *testing.T) {
	sharma := teacher("A. Sharma")
	patil := teacher("R. Patil")
	dir := NewDirectory([]models.Profile{sharma, patil})

	p := byID(patil.ID)
	name := "Dr. A. Sharma"
	p.GuideName = &name

	got := dir.Resolve(&p)
	require.NotNil(t, got)
	assert.Equal(t, Assignment{ID: patil.ID, Name: "R. Patil"}, *got)
}

func TestResolve_StaleForeignKeyIsUnknownGuide(t *testing.T) {
	dir := NewDirectory([]models.Profile{teacher("A. Sharma")})
	stale := uuid.New()
	p := byID(stale)

	got := dir.Resolve(&p)
	require.NotNil(t, got)
	assert.Equal(t, UnknownGuideName, got.Name)
	assert.Equal(t, stale, got.ID)
	assert.False(t, got.AutoMapped)
}

func TestResolve_SimilarNamesNeverCrossMatch(t *testing.T) {
	rp := teacher("R. Patil")
	rajesh := teacher("Rajesh Patil")
	dir := NewDirectory([]models.Profile{rajesh, rp})

	p := named("Prof. R. Patil")
	got := dir.Resolve(&p)
	require.NotNil(t, got)
	assert.Equal(t, rp.ID, got.ID)

	onlyRajesh := NewDirectory([]models.Profile{rajesh})
	assert.Nil(t, onlyRajesh.Resolve(&p))
}

func TestResolve_AmbiguousNameIsUnassigned(t *testing.T) {
	dir := NewDirectory([]models.Profile{teacher("S. Rao"), teacher("Dr. S. Rao")})
	p := named("S. Rao")
	assert.Nil(t, dir.Resolve(&p))
}

func TestResolve_IgnoresStudentsAndEmptyRefs(t *testing.T) {
	student := models.Profile{ID: uuid.New(), FullName: "A. Sharma", Role: models.RoleStudent}
	dir := NewDirectory([]models.Profile{student})

	p := named("A. Sharma")
	assert.Nil(t, dir.Resolve(&p))

	var none models.Project
	assert.Nil(t, dir.Resolve(&none))
}

func TestDirectoryCounts(t *testing.T) {
	sharma := teacher("A. Sharma")
	patil := teacher("R. Patil")
	idle := teacher("K. Rao")
	dir := NewDirectory([]models.Profile{sharma, patil, idle})

	projects := []models.Project{
		byID(sharma.ID),
		named("Dr. A. Sharma"),
		named("Prof. R. Patil"),
		named("Someone Else"),
		byID(uuid.New()),
		{ID: uuid.New()},
	}

	assert.Equal(t, 2, dir.ActiveTeacherCount(projects))
	assert.Equal(t, 2, dir.PendingAllotmentCount(projects))

	mine := dir.ProjectsGuidedBy(projects, sharma.ID)
	assert.Len(t, mine, 2)
	assert.True(t, dir.IsGuide(&projects[1], sharma.ID))
	assert.False(t, dir.IsGuide(&projects[2], sharma.ID))
	assert.Len(t, dir.Teachers(), 3)
}
