package api

import (
	"net/http"

	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type collaboratorHandler struct {
	responder Responder
	logger    zerolog.Logger
	workflow  *workflow.Service
}

func newCollaboratorHandler(svc *workflow.Service) collaboratorHandler {
	logger := log.With().Str("handlerName", "collaboratorHandler").Logger()
	return collaboratorHandler{
		responder: NewResponder(logger),
		logger:    logger,
		workflow:  svc,
	}
}

// getCollaborators lists every link of a project, pending and rejected included
// @Summary List team
// @Tags Collaborators
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {array} models.ProjectCollaborator
// @Router /projects/{projectID}/collaborators [get]
func (h collaboratorHandler) getCollaborators() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := urlUUID(r, "projectID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		team, err := h.workflow.Collaborators(r.Context(), ctxGetSession(r.Context()), projectID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if team == nil {
			team = []models.ProjectCollaborator{}
		}
		h.responder.WriteJSON(w, team)
	}
}

// inviteCollaborator adds a pending contributor link
// @Summary Invite student
// @Tags Collaborators
// @Accept json
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Param body body inviteRequest true "Invitee"
// @Success 201 {object} models.ProjectCollaborator
// @Failure 409 {object} ErrorResponse "Student already linked"
// @Router /projects/{projectID}/collaborators [post]
func (h collaboratorHandler) inviteCollaborator() http.HandlerFunc {
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

		var req inviteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		link, err := h.workflow.Invite(r.Context(), sess, projectID, req.StudentID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteStatusJSON(w, http.StatusCreated, link)
	}
}

// @Router /projects/{projectID}/candidates [get]
func (h collaboratorHandler) getCandidates() http.HandlerFunc {
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

		candidates, err := h.workflow.Candidates(r.Context(), sess, projectID, r.URL.Query().Get("q"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, candidates)
	}
}

// @Router /collaborators/{linkID} [delete]
func (h collaboratorHandler) removeCollaborator() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		linkID, err := urlUUID(r, "linkID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.workflow.RemoveCollaborator(r.Context(), sess, linkID); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// @Router /invitations [get]
func (h collaboratorHandler) getInvitations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		invitations, err := h.workflow.Invitations(r.Context(), sess)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if invitations == nil {
			invitations = []models.ProjectCollaborator{}
		}
		h.responder.WriteJSON(w, invitations)
	}
}

// respondToInvitation accepts or declines a pending invitation
// @Summary Respond to invitation
// @Tags Collaborators
// @Accept json
// @Produce json
// @Param linkID path string true "Link ID" format(uuid)
// @Param body body respondRequest true "accepted or rejected"
// @Success 200 {object} workflow.RespondResult
// @Failure 409 {object} ErrorResponse "Invitation already answered"
// @Router /invitations/{linkID}/respond [post]
func (h collaboratorHandler) respondToInvitation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		linkID, err := urlUUID(r, "linkID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var req respondRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.workflow.Respond(r.Context(), sess, linkID, req.Status)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Debug().Str("linkID", linkID.String()).Str("decision", string(req.Status)).Msg("Invitation answered")
		h.responder.WriteJSON(w, result)
	}
}
