package discovery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	approved  []models.Project
	search    []models.Project
	fuzzy     []models.Project
	fuzzyErr  error
	exact     []models.Project
	calls     []string
	lastQuery string
}

func (f *fakeSearcher) SearchApproved(_ context.Context, q string) ([]models.Project, error) {
	f.calls = append(f.calls, "search")
	f.lastQuery = q
	return f.search, nil
}

func (f *fakeSearcher) SearchApprovedByTech(_ context.Context, tag string) ([]models.Project, error) {
	f.calls = append(f.calls, "fuzzy")
	f.lastQuery = tag
	return f.fuzzy, f.fuzzyErr
}

func (f *fakeSearcher) ListApprovedByTechExact(_ context.Context, tag string) ([]models.Project, error) {
	f.calls = append(f.calls, "exact")
	f.lastQuery = tag
	return f.exact, nil
}

func (f *fakeSearcher) ListApproved(context.Context) ([]models.Project, error) {
	f.calls = append(f.calls, "list")
	return f.approved, nil
}

func project(title string, category models.Category, year string, tech ...string) models.Project {
	return models.Project{
		ID:           uuid.New(),
		Title:        title,
		Category:     category,
		AcademicYear: year,
		TechStack:    models.NewTechStack(tech...),
		Status:       models.StatusApproved,
	}
}

func titles(projects []models.Project) []string {
	out := make([]string, 0, len(projects))
	for _, p := range projects {
		out = append(out, p.Title)
	}
	return out
}

func TestFilter_AndAcrossGroupsOrWithin(t *testing.T) {
	projects := []models.Project{
		project("mini", models.CategoryMini, "2024-2025", "Python"),
		project("final", models.CategoryFinalYear, "2024-2025", "React"),
	}

	none := Filter{Categories: []models.Category{models.CategoryMini}, Tech: []string{"React"}}
	assert.Empty(t, none.Apply(projects))

	either := Filter{Categories: []models.Category{models.CategoryMini, models.CategoryFinalYear}}
	assert.Equal(t, []string{"mini", "final"}, titles(either.Apply(projects)))

	tech := Filter{Tech: []string{"rust", "reac"}}
	assert.Equal(t, []string{"final"}, titles(tech.Apply(projects)))

	year := Filter{Years: []string{"2023-2024"}}
	assert.Empty(t, year.Apply(projects))

	assert.Len(t, Filter{}.Apply(projects), 2)
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Query: "  iot ", Years: []string{" ", "2024-2025 "}, Tech: []string{"", " Go"}}.Normalize()
	assert.Equal(t, "iot", f.Query)
	assert.Equal(t, []string{"2024-2025"}, f.Years)
	assert.Equal(t, []string{"Go"}, f.Tech)
	assert.Nil(t, f.Categories)
}

func TestBrowse_QueryUsesSearchThenFilters(t *testing.T) {
	store := &fakeSearcher{
		search: []models.Project{
			project("b", models.CategoryMini, "2024-2025", "Flutter"),
			project("a", models.CategoryResearch, "2024-2025", "Flutter"),
		},
		approved: []models.Project{project("unused", models.CategoryMini, "2024-2025")},
	}
	got, err := NewBrowser(store).Browse(context.Background(), Filter{
		Query:        "flutter",
		Categories:   []models.Category{models.CategoryMini},
		DeepLinkTech: "Go",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(got))
	assert.Equal(t, []string{"search"}, store.calls)
	assert.Equal(t, "flutter", store.lastQuery)
}

func TestBrowse_NoQueryListsApproved(t *testing.T) {
	store := &fakeSearcher{approved: []models.Project{project("x", models.CategoryMini, "2024-2025", "Go")}}
	got, err := NewBrowser(store).Browse(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{"list"}, store.calls)
}

func TestBrowse_DeepLinkFallsBackToExactMatch(t *testing.T) {
	store := &fakeSearcher{
		fuzzyErr: errs.NewDatabaseError("search", "projects", errors.New("boom")),
		exact:    []models.Project{project("exact", models.CategoryMini, "2024-2025", "React")},
	}
	_, err := NewBrowser(store).Browse(context.Background(), Filter{DeepLinkTech: "React"})
	require.Error(t, err)
	assert.Equal(t, []string{"fuzzy"}, store.calls)

	store = &fakeSearcher{fuzzyErr: errs.NewDatabaseError("search", "projects", &pgconn.PgError{Code: "42P01"})}
	_, err = NewBrowser(store).Browse(context.Background(), Filter{DeepLinkTech: "React"})
	assert.Equal(t, http.StatusInternalServerError, errs.StatusCode(err))
	assert.Equal(t, []string{"fuzzy"}, store.calls)

	store = &fakeSearcher{
		fuzzyErr: errs.NewDatabaseError("search", "projects", &pgconn.PgError{Code: "42883"}),
		exact:    []models.Project{project("exact", models.CategoryMini, "2024-2025", "React")},
	}
	got, err := NewBrowser(store).Browse(context.Background(), Filter{DeepLinkTech: "React"})
	require.NoError(t, err)
	assert.Equal(t, []string{"exact"}, titles(got))
	assert.Equal(t, []string{"fuzzy", "exact"}, store.calls)
}

func TestBrowse_DeepLinkUsesFuzzyResults(t *testing.T) {
	store := &fakeSearcher{fuzzy: []models.Project{project("fuzzy", models.CategoryMini, "2024-2025", "ReactJS")}}
	got, err := NewBrowser(store).Browse(context.Background(), Filter{DeepLinkTech: "react"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fuzzy"}, titles(got))
	assert.Equal(t, "react", store.lastQuery)
}
