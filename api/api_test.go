package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/projectshelf/backend/dashboard"
	"github.com/projectshelf/backend/discovery"
	"github.com/projectshelf/backend/drafts"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/metrics"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/projectshelf/backend/workflow/workflowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t      *testing.T
	store  *workflowtest.Store
	tokens *identity.TokenIssuer
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := workflowtest.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, reg)
	svc := workflow.NewService(store, nil, m)
	tokens := identity.NewTokenIssuer("test-secret", time.Hour)

	deps := Dependencies{
		Workflow: svc,
		Browser:  discovery.NewBrowser(store),
		Board:    dashboard.NewBoard(svc),
		Drafts:   drafts.NewManager(drafts.NewMemoryStore(time.Hour), store),
		Tokens:   tokens,
		Resolver: identity.NewResolver(store, identity.NewHODEmailOverride(nil)),
		Metrics:  m,
	}
	return &testServer{
		t:      t,
		store:  store,
		tokens: tokens,
		router: newRouter(deps, withOrigins([]string{"https://shelf.college.edu"}), withoutRequestLogging()),
	}
}

func (s *testServer) tokenFor(p models.Profile) string {
	s.t.Helper()
	token, _, err := s.tokens.Issue(p.ID)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func submission(guideID uuid.UUID, members ...uuid.UUID) workflow.ProjectInput {
	return workflow.ProjectInput{
		Title:        "Smart Irrigation",
		Abstract:     "Soil moisture driven watering",
		Category:     models.CategoryFinalYear,
		AcademicYear: "2024-2025",
		TechStack:    models.NewTechStack("Python", "IoT"),
		ReportLink:   "https://drive.google.com/file/d/abc123/view",
		GuideID:      &guideID,
		Members:      members,
	}
}

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", "", workflow.RegisterInput{
		Email: "asha@college.edu", Password: "correct-horse", FullName: "Asha Kulkarni", Role: models.RoleStudent,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := decode[sessionResponse](t, rec)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, models.RoleStudent, registered.Role)

	rec = s.do(http.MethodPost, "/auth/login", "", loginRequest{Email: "asha@college.edu", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", loginRequest{Email: "asha@college.edu", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := decode[sessionResponse](t, rec)

	rec = s.do(http.MethodGet, "/me", session.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[meResponse](t, rec)
	assert.Equal(t, "Asha Kulkarni", me.Profile.FullName)
	assert.Equal(t, models.RoleStudent, me.Role)
}

func TestFacultyAccountsAreProvisioned(t *testing.T) {
	s := newTestServer(t)
	hod := s.store.AddProfile("S. Deshmukh", models.RoleHOD)
	teacher := s.store.AddProfile("A. Sharma", models.RoleTeacher)

	rec := s.do(http.MethodPost, "/auth/register", "", workflow.RegisterInput{
		Email: "k.rao@college.edu", Password: "correct-horse", FullName: "K. Rao", Role: models.RoleTeacher,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"role"}, decode[ErrorResponse](t, rec).Fields)

	in := workflow.RegisterInput{Email: "k.rao@college.edu", Password: "correct-horse", FullName: "K. Rao"}
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/teachers", "", in).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/teachers", s.tokenFor(teacher), in).Code)

	rec = s.do(http.MethodPost, "/teachers", s.tokenFor(hod), in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Profile](t, rec)
	assert.Equal(t, models.RoleTeacher, created.Role)
	assert.True(t, created.Provisioned)

	rec = s.do(http.MethodPost, "/auth/login", "", loginRequest{Email: "k.rao@college.edu", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoleTeacher, decode[sessionResponse](t, rec).Role)

	rec = s.do(http.MethodGet, "/teachers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ProfileSummary](t, rec), 3)
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/me", "not-a-jwt", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/projects", "", submission(uuid.New())).Code)
}

func TestCreateProject_ValidationListsEveryField(t *testing.T) {
	s := newTestServer(t)
	leader := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	guide := s.store.AddProfile("A. Sharma", models.RoleTeacher)

	in := submission(guide.ID)
	in.Abstract = ""
	in.ReportLink = "https://example.com/report.pdf"

	rec := s.do(http.MethodPost, "/projects", s.tokenFor(leader), in)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, []string{"abstract", "report_link"}, body.Fields)
	assert.Equal(t, 0, s.store.ProjectCount())
}

func TestCreateProject_PartialFailureIs207(t *testing.T) {
	s := newTestServer(t)
	leader := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	member := s.store.AddProfile("Vikram Joshi", models.RoleStudent)
	broken := s.store.AddProfile("Meera Nair", models.RoleStudent)
	guide := s.store.AddProfile("A. Sharma", models.RoleTeacher)
	s.store.LinkErrs[broken.ID] = errors.New("connection reset")

	rec := s.do(http.MethodPost, "/projects", s.tokenFor(leader), submission(guide.ID, member.ID, broken.ID))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var body struct {
		Project  models.Project            `json:"project"`
		Unlinked []workflow.UnlinkedMember `json:"unlinked"`
		Warning  string                    `json:"warning"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEqual(t, uuid.Nil, body.Project.ID)
	require.Len(t, body.Unlinked, 1)
	assert.Equal(t, broken.ID, body.Unlinked[0].StudentID)
	assert.NotEmpty(t, body.Warning)
	assert.Len(t, s.store.Links(body.Project.ID), 2)
}

func TestProjectLifecycle(t *testing.T) {
	s := newTestServer(t)
	leader := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	guide := s.store.AddProfile("A. Sharma", models.RoleTeacher)
	outsider := s.store.AddProfile("Meera Nair", models.RoleStudent)

	rec := s.do(http.MethodPost, "/projects", s.tokenFor(leader), submission(guide.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[workflow.CreateResult](t, rec)
	path := "/projects/" + created.Project.ID.String()

	// Pending projects are hidden from the public and from unrelated students.
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, s.tokenFor(outsider), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, path, s.tokenFor(leader), nil).Code)

	rec = s.do(http.MethodPost, path+"/review", s.tokenFor(leader), workflow.ReviewInput{Status: models.StatusApproved})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path+"/review", s.tokenFor(guide), workflow.ReviewInput{Status: models.StatusApproved})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.StatusApproved, decode[models.Project](t, rec).Status)

	rec = s.do(http.MethodPost, path+"/review", s.tokenFor(guide), workflow.ReviewInput{Status: models.StatusGuideApproved})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[workflow.ProjectDetail](t, rec)
	require.NotNil(t, detail.ResolvedGuide)
	assert.Equal(t, guide.ID, detail.ResolvedGuide.ID)

	rec = s.do(http.MethodGet, "/projects?q=irrigation&year[]=2024-2025&tech=pyth", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[projectCollection](t, rec).Total)

	rec = s.do(http.MethodGet, "/projects?year=2019-2020", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[projectCollection](t, rec).Total)

	rec = s.do(http.MethodPost, path+"/download", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	counter := decode[counterResponse](t, rec)
	assert.Equal(t, int64(1), counter.Count)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc123", counter.DownloadURL)

	rec = s.do(http.MethodGet, path+"/reviews", s.tokenFor(leader), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]models.ReviewEvent](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, models.StatusApproved, events[0].ToStatus)
}

func TestInvitationFlow(t *testing.T) {
	s := newTestServer(t)
	leader := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	member := s.store.AddProfile("Vikram Joshi", models.RoleStudent)
	guide := s.store.AddProfile("A. Sharma", models.RoleTeacher)

	rec := s.do(http.MethodPost, "/projects", s.tokenFor(leader), submission(guide.ID))
	require.Equal(t, http.StatusCreated, rec.Code)
	projectPath := "/projects/" + decode[workflow.CreateResult](t, rec).Project.ID.String()

	rec = s.do(http.MethodPost, projectPath+"/collaborators", s.tokenFor(leader), inviteRequest{StudentID: member.ID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	link := decode[models.ProjectCollaborator](t, rec)

	rec = s.do(http.MethodPost, projectPath+"/collaborators", s.tokenFor(leader), inviteRequest{StudentID: member.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/invitations", s.tokenFor(member), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ProjectCollaborator](t, rec), 1)

	respondPath := "/invitations/" + link.ID.String() + "/respond"
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, respondPath, s.tokenFor(leader), respondRequest{Status: models.InviteAccepted}).Code)

	rec = s.do(http.MethodPost, respondPath, s.tokenFor(member), respondRequest{Status: models.InviteAccepted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(2), decode[workflow.RespondResult](t, rec).MemberCount)

	rec = s.do(http.MethodPost, respondPath, s.tokenFor(member), respondRequest{Status: models.InviteRejected})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/dashboard/student", s.tokenFor(member), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dashboard.StudentView](t, rec).Active, 1)
}

func TestDrafts(t *testing.T) {
	s := newTestServer(t)
	student := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	token := s.tokenFor(student)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/drafts/new", token, nil).Code)

	rec := s.do(http.MethodPut, "/drafts/new", token, map[string]string{"title": "Half written"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/drafts/new", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	d := decode[drafts.Draft](t, rec)
	assert.JSONEq(t, `{"title":"Half written"}`, string(d.Payload))
	assert.False(t, d.Stale)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/drafts/not-a-key", token, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/drafts/new", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/drafts/new", token, nil).Code)
}

func TestCreateClearsNewDraft(t *testing.T) {
	s := newTestServer(t)
	leader := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)
	guide := s.store.AddProfile("A. Sharma", models.RoleTeacher)
	token := s.tokenFor(leader)

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/drafts/new", token, map[string]string{"title": "x"}).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/projects", token, submission(guide.ID)).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/drafts/new", token, nil).Code)
}

func TestHODOnlyRoutes(t *testing.T) {
	s := newTestServer(t)
	teacher := s.store.AddProfile("A. Sharma", models.RoleTeacher)
	hod := s.store.AddProfile("S. Deshmukh", models.RoleHOD)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/dashboard/admin", s.tokenFor(teacher), nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/admin/integrity", s.tokenFor(teacher), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/dashboard/admin", s.tokenFor(hod), nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/admin/integrity", s.tokenFor(hod), nil).Code)

	rec := s.do(http.MethodPost, "/projects/bulk-delete", s.tokenFor(teacher), bulkDeleteRequest{IDs: []uuid.UUID{uuid.New()}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/projects/"+uuid.NewString(), s.tokenFor(hod), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "projectshelf_http_request_duration_ms")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://shelf.college.edu")
	assert.Equal(t, "https://shelf.college.edu", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	student := s.store.AddProfile("Asha Kulkarni", models.RoleStudent)

	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(`{"title": `))
	req.Header.Set("Authorization", "Bearer "+s.tokenFor(student))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
