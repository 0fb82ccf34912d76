package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/projectshelf/backend/discovery"
	"github.com/projectshelf/backend/drafts"
	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	workflow  *workflow.Service
	browser   *discovery.Browser
	drafts    *drafts.Manager
}

func newProjectHandler(svc *workflow.Service, browser *discovery.Browser, draftManager *drafts.Manager) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		workflow:  svc,
		browser:   browser,
		drafts:    draftManager,
	}
}

func urlUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, errs.NewBadRequestError("missing " + param)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid " + param)
	}
	return id, nil
}

// queryValues accepts both "year=a&year=b" and "year[]=a&year[]=b".
func queryValues(r *http.Request, key string) []string {
	q := r.URL.Query()
	return append(q[key], q[key+"[]"]...)
}

// discoveryFilter builds the browsing filter from the query string.
func discoveryFilter(r *http.Request) discovery.Filter {
	f := discovery.Filter{
		Query:        r.URL.Query().Get("q"),
		Years:        queryValues(r, "year"),
		Tech:         queryValues(r, "tech"),
		DeepLinkTech: r.URL.Query().Get("tech_link"),
	}
	for _, c := range queryValues(r, "category") {
		f.Categories = append(f.Categories, models.Category(c))
	}
	return f
}

// getAllProjects is the public discovery listing of approved projects
// @Summary Browse approved projects
// @Tags Projects
// @Produce json
// @Param q query string false "Free-text search"
// @Param year query []string false "Academic years (OR)"
// @Param category query []string false "Categories (OR)"
// @Param tech query []string false "Technologies, substring match (OR)"
// @Param tech_link query string false "Technology deep link"
// @Success 200 {object} projectCollection
// @Router /projects [get]
func (h projectHandler) getAllProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.browser.Browse(r.Context(), discoveryFilter(r))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if projects == nil {
			projects = []models.Project{}
		}
		h.responder.WriteJSON(w, projectCollection{Projects: projects, Total: len(projects)})
	}
}

// getProject returns a project with its resolved guide. Non-approved projects are
// reported as not found unless the caller is related to them.
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} workflow.ProjectDetail
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		detail, err := h.workflow.Get(r.Context(), ctxGetSession(r.Context()), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, detail)
	}
}

// createProject submits a project and invites the selected members
// @Summary Submit project
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body workflow.ProjectInput true "Submission"
// @Success 201 {object} workflow.CreateResult
// @Success 207 {object} partialCreateResponse "Project stored, some members not linked"
// @Failure 400 {object} ErrorResponse "Validation error listing every bad field"
// @Router /projects [post]
func (h projectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in workflow.ProjectInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.workflow.Create(r.Context(), sess, in)
		switch {
		case err == nil:
			h.logger.Info().Str("projectID", result.Project.ID.String()).Msg("Project submitted")
			h.drafts.Clear(r.Context(), sess.ProfileID, drafts.NewProjectKey)
			h.responder.WriteStatusJSON(w, http.StatusCreated, result)
		case errs.IsPartialFailure(err) && result != nil:
			h.drafts.Clear(r.Context(), sess.ProfileID, drafts.NewProjectKey)
			h.responder.WriteStatusJSON(w, errs.StatusCode(err), partialCreateResponse{CreateResult: result, Warning: err.Error()})
		default:
			h.responder.WriteError(w, err)
		}
	}
}

// updateProject lets the owner edit a pending or rejected submission, or a guide/HOD
// change its status
// @Summary Update project
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param body body workflow.UpdateInput true "Changes"
// @Success 200 {object} models.Project
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Not editable, invalid transition or concurrent change"
// @Router /projects/{projectID} [put]
func (h projectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in workflow.UpdateInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.workflow.Update(r.Context(), sess, projectID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.drafts.Clear(r.Context(), sess.ProfileID, projectID.String())
		h.responder.WriteJSON(w, project)
	}
}

// reviewProject applies a guide or HOD decision
// @Summary Review project
// @Tags Review
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param body body workflow.ReviewInput true "Decision"
// @Success 200 {object} models.Project
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /projects/{projectID}/review [post]
func (h projectHandler) reviewProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in workflow.ReviewInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.workflow.Review(r.Context(), sess, projectID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, project)
	}
}

// @Router /projects/{projectID}/reviews [get]
func (h projectHandler) getReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		events, err := h.workflow.ReviewHistory(r.Context(), sess, projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if events == nil {
			events = []models.ReviewEvent{}
		}
		h.responder.WriteJSON(w, events)
	}
}

// @Router /projects/{projectID}/guide [put]
func (h projectHandler) assignGuide() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in workflow.GuideInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.workflow.AssignGuide(r.Context(), sess, projectID, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, project)
	}
}

func (h projectHandler) deleteIDs(w http.ResponseWriter, r *http.Request, ids []uuid.UUID) {
	sess, err := ctxMustSession(r.Context())
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	deleted, err := h.workflow.Delete(r.Context(), sess, ids)
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteJSON(w, deleteResponse{Status: "success", Deleted: deleted})
}

// deleteProject removes a project with its links and review history (HOD only)
// @Summary Delete project
// @Tags Projects
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} deleteResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /projects/{projectID} [delete]
func (h projectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.deleteIDs(w, r, []uuid.UUID{projectID})
	}
}

// @Router /projects/bulk-delete [post]
func (h projectHandler) bulkDeleteProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkDeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if len(req.IDs) == 0 {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("ids"))
			return
		}
		h.deleteIDs(w, r, req.IDs)
	}
}

// @Router /projects/{projectID}/view [post]
func (h projectHandler) recordView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		count, err := h.workflow.RecordView(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, counterResponse{Count: count})
	}
}

// recordDownload counts a report download and returns the direct download URL
// @Router /projects/{projectID}/download [post]
func (h projectHandler) recordDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		url, count, err := h.workflow.RecordDownload(r.Context(), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, counterResponse{Count: count, DownloadURL: url})
	}
}

// @Router /teachers [get]
func (h projectHandler) getTeachers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teachers, err := h.workflow.Teachers(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, teachers)
	}
}
