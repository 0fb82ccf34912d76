package dashboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/projectshelf/backend/dashboard"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/projectshelf/backend/workflow/workflowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	svc      *workflow.Service
	resolver *identity.Resolver

	leader, member, sharma, patil, hod models.Profile
	guided, autoMapped, unassigned, other models.Project
}

func strPtr(s string) *string { return &s }

func newWorld(t *testing.T) *world {
	t.Helper()
	store := workflowtest.New()
	w := &world{
		svc:      workflow.NewService(store, nil, nil),
		resolver: identity.NewResolver(store, identity.NewHODEmailOverride(nil)),
		leader:   store.AddProfile("Asha Kulkarni", models.RoleStudent),
		member:   store.AddProfile("Vikram Joshi", models.RoleStudent),
		sharma:   store.AddProfile("A. Sharma", models.RoleTeacher),
		patil:    store.AddProfile("R. Patil", models.RoleTeacher),
		hod:      store.AddProfile("S. Deshmukh", models.RoleHOD),
	}
	outsider := store.AddProfile("Meera Nair", models.RoleStudent)

	w.guided = store.PutProject(models.Project{Title: "Irrigation", StudentID: w.leader.ID, Status: models.StatusPending, GuideID: &w.sharma.ID})
	w.autoMapped = store.PutProject(models.Project{Title: "Crop yield", StudentID: w.leader.ID, Status: models.StatusApproved, GuideName: strPtr("Prof. A. Sharma")})
	w.unassigned = store.PutProject(models.Project{Title: "Library kiosk", StudentID: outsider.ID, Status: models.StatusPending})
	w.other = store.PutProject(models.Project{Title: "Bus tracker", StudentID: outsider.ID, Status: models.StatusRejected, GuideID: &w.patil.ID})

	accepted := func(p models.Project, s models.Profile, role models.CollaboratorRole) {
		store.PutLink(models.ProjectCollaborator{ProjectID: p.ID, StudentID: s.ID, Role: role, Status: models.InviteAccepted})
	}
	accepted(w.guided, w.leader, models.CollaboratorLeader)
	accepted(w.guided, w.member, models.CollaboratorContributor)
	accepted(w.autoMapped, w.leader, models.CollaboratorLeader)
	accepted(w.unassigned, outsider, models.CollaboratorLeader)
	accepted(w.other, outsider, models.CollaboratorLeader)
	store.PutLink(models.ProjectCollaborator{ProjectID: w.unassigned.ID, StudentID: w.member.ID, Role: models.CollaboratorContributor, Status: models.InvitePending})
	return w
}

func (w *world) session(p models.Profile) identity.Session {
	return w.resolver.SessionFor(p)
}

func titles[T any](items []T, title func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, title(it))
	}
	return out
}

func TestStudent(t *testing.T) {
	w := newWorld(t)
	board := dashboard.NewBoard(w.svc)

	view, err := board.Student(context.Background(), w.session(w.leader))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Irrigation", "Crop yield"}, titles(view.Active, func(p models.Project) string { return p.Title }))
	assert.Empty(t, view.Invitations)
	assert.Equal(t, dashboard.StudentStats{Total: 2, Approved: 1, Pending: 1, Members: 3}, view.Stats)
	assert.Empty(t, view.Warnings)

	view, err = board.Student(context.Background(), w.session(w.member))
	require.NoError(t, err)
	assert.Equal(t, []string{"Irrigation"}, titles(view.Active, func(p models.Project) string { return p.Title }))
	require.Len(t, view.Invitations, 1)
	assert.Equal(t, w.unassigned.ID, view.Invitations[0].ProjectID)
}

func TestTeacher_ShowsResolvedGroupsOnly(t *testing.T) {
	w := newWorld(t)
	board := dashboard.NewBoard(w.svc)

	view, err := board.Teacher(context.Background(), w.session(w.sharma))
	require.NoError(t, err)

	name := func(d workflow.ProjectDetail) string { return d.Title }
	assert.ElementsMatch(t, []string{"Irrigation", "Crop yield"}, titles(view.Projects, name))
	assert.Equal(t, []string{"Irrigation"}, titles(view.ReviewQueue, name))
	assert.Equal(t, dashboard.StatusCounts{Total: 2, Pending: 1, Approved: 1}, view.Counts)
}

func TestMonitor(t *testing.T) {
	w := newWorld(t)
	board := dashboard.NewBoard(w.svc)

	view, err := board.Monitor(context.Background(), w.session(w.hod))
	require.NoError(t, err)
	assert.Len(t, view.Projects, 4)
	assert.Equal(t, 2, view.ActiveTeachers)
	assert.Equal(t, 1, view.PendingAllotment)
	assert.Equal(t, 1, view.AutoMapped)
	assert.Equal(t, dashboard.StatusCounts{Total: 4, Pending: 2, Approved: 1, Rejected: 1}, view.Counts)

	for _, d := range view.Projects {
		if d.ID == w.autoMapped.ID {
			require.NotNil(t, d.ResolvedGuide)
			assert.Equal(t, w.sharma.ID, d.ResolvedGuide.ID)
			assert.True(t, d.ResolvedGuide.AutoMapped)
		}
	}
}

func TestRoleGates(t *testing.T) {
	w := newWorld(t)
	board := dashboard.NewBoard(w.svc)
	ctx := context.Background()

	_, err := board.Student(ctx, w.session(w.sharma))
	assert.True(t, errs.IsInsufficientRoleError(err))
	_, err = board.Teacher(ctx, w.session(w.leader))
	assert.True(t, errs.IsInsufficientRoleError(err))
	_, err = board.Monitor(ctx, w.session(w.sharma))
	assert.True(t, errs.IsInsufficientRoleError(err))

	_, err = board.Teacher(ctx, w.session(w.hod))
	assert.NoError(t, err)
}

func TestMonitor_PromotedTeacherSeesBothViews(t *testing.T) {
	store := workflowtest.New()
	head := store.AddProfile("K. Rao", models.RoleTeacher)
	resolver := identity.NewResolver(store, identity.NewHODEmailOverride([]string{head.Email}))
	board := dashboard.NewBoard(workflow.NewService(store, nil, nil))

	sess := resolver.SessionFor(head)
	_, err := board.Monitor(context.Background(), sess)
	assert.NoError(t, err)
	_, err = board.Teacher(context.Background(), sess)
	assert.NoError(t, err)
}

type flakySource struct {
	dashboard.Source
	failInvitations bool
}

var errFlaky = errors.New("connection reset")

func (f flakySource) Invitations(ctx context.Context, sess identity.Session) ([]models.ProjectCollaborator, error) {
	if f.failInvitations {
		return nil, errFlaky
	}
	return f.Source.Invitations(ctx, sess)
}

func TestFailedSectionDegradesToWarning(t *testing.T) {
	w := newWorld(t)

	board := dashboard.NewBoard(flakySource{Source: w.svc, failInvitations: true})
	view, err := board.Student(context.Background(), w.session(w.member))
	require.NoError(t, err)
	assert.Len(t, view.Active, 1)
	assert.Empty(t, view.Invitations)
	assert.Equal(t, []string{"invitations unavailable"}, view.Warnings)
}

func TestCancelledRequestFails(t *testing.T) {
	w := newWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	board := dashboard.NewBoard(flakySource{Source: w.svc, failInvitations: true})
	_, err := board.Student(ctx, w.session(w.member))
	assert.ErrorIs(t, err, context.Canceled)
}
