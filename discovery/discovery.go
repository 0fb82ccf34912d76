// Package discovery composes the public project browser: a base set from the store's
// search entry points narrowed by year, category and technology filters.
package discovery

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "discovery").Logger()

// Searcher is the read side of the project store used by the browser. Every method
// returns approved projects only.
type Searcher interface {
	// SearchApproved runs the ranked full-text search over title, tech stack, leader
	// and collaborator names.
	SearchApproved(ctx context.Context, query string) ([]models.Project, error)
	// SearchApprovedByTech runs the fuzzy tech-tag match. It fails with
	// errs.ErrSearchUnavailable when the database function is missing.
	SearchApprovedByTech(ctx context.Context, tag string) ([]models.Project, error)
	// ListApprovedByTechExact is the array-contains fallback for SearchApprovedByTech.
	ListApprovedByTechExact(ctx context.Context, tag string) ([]models.Project, error)
	// ListApproved returns every approved project, newest first.
	ListApproved(ctx context.Context) ([]models.Project, error)
}

// Filter is one browsing session's selection. Groups combine with AND; values inside
// a group combine with OR. An empty group does not filter.
type Filter struct {
	Query      string
	Years      []string
	Categories []models.Category
	Tech       []string
	// DeepLinkTech is a technology carried in from a link elsewhere in the app. Without
	// a Query it picks the fuzzy tech search as the base set.
	DeepLinkTech string
}

// Normalize trims every value and drops blanks.
func (f Filter) Normalize() Filter {
	out := Filter{
		Query:        strings.TrimSpace(f.Query),
		DeepLinkTech: strings.TrimSpace(f.DeepLinkTech),
	}
	for _, y := range f.Years {
		if y = strings.TrimSpace(y); y != "" {
			out.Years = append(out.Years, y)
		}
	}
	for _, c := range f.Categories {
		if c = models.Category(strings.TrimSpace(string(c))); c != "" {
			out.Categories = append(out.Categories, c)
		}
	}
	for _, t := range f.Tech {
		if t = strings.TrimSpace(t); t != "" {
			out.Tech = append(out.Tech, t)
		}
	}
	return out
}

// Matches applies the year, category and tech groups to a single project.
func (f Filter) Matches(p models.Project) bool {
	if len(f.Years) > 0 && !containsString(f.Years, p.AcademicYear) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, p.Category) {
		return false
	}
	if len(f.Tech) > 0 {
		hit := false
		for _, t := range f.Tech {
			if p.TechStack.ContainsSubstring(t) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Apply keeps the projects that match, preserving order.
func (f Filter) Apply(projects []models.Project) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsCategory(values []models.Category, v models.Category) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}

// Browser serves the public discovery listing.
type Browser struct {
	store Searcher
}

func NewBrowser(store Searcher) *Browser {
	return &Browser{store: store}
}

// Browse picks the base set and narrows it with f.
func (b *Browser) Browse(ctx context.Context, f Filter) ([]models.Project, error) {
	f = f.Normalize()

	base, err := b.base(ctx, f)
	if err != nil {
		return nil, err
	}
	return f.Apply(base), nil
}

func (b *Browser) base(ctx context.Context, f Filter) ([]models.Project, error) {
	switch {
	case f.Query != "":
		projects, err := b.store.SearchApproved(ctx, f.Query)
		return projects, errors.Wrap(err, "search approved projects")
	case f.DeepLinkTech != "":
		projects, err := b.store.SearchApprovedByTech(ctx, f.DeepLinkTech)
		if err == nil {
			return projects, nil
		}
		if !errs.IsSearchUnavailable(err) {
			return nil, errors.Wrap(err, "search projects by tech")
		}
		logger.Warn().Str("tech", f.DeepLinkTech).Msg("Fuzzy tech search unavailable, falling back to exact match")
		projects, err = b.store.ListApprovedByTechExact(ctx, f.DeepLinkTech)
		return projects, errors.Wrap(err, "list projects by exact tech")
	default:
		projects, err := b.store.ListApproved(ctx)
		return projects, errors.Wrap(err, "list approved projects")
	}
}
