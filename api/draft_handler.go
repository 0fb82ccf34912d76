package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/projectshelf/backend/drafts"
	"github.com/rs/zerolog/log"
)

type draftHandler struct {
	responder Responder
	drafts    *drafts.Manager
}

func newDraftHandler(manager *drafts.Manager) draftHandler {
	logger := log.With().Str("handlerName", "draftHandler").Logger()
	return draftHandler{responder: NewResponder(logger), drafts: manager}
}

// getDraft returns the caller's saved form, flagged stale when the project changed since
// @Router /drafts/{draftKey} [get]
func (h draftHandler) getDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		d, err := h.drafts.Load(r.Context(), sess.ProfileID, chi.URLParam(r, "draftKey"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, d)
	}
}

// @Router /drafts/{draftKey} [put]
func (h draftHandler) putDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		payload, err := readRawJSON(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		d, err := h.drafts.Save(r.Context(), sess.ProfileID, chi.URLParam(r, "draftKey"), payload)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, d)
	}
}

// @Router /drafts/{draftKey} [delete]
func (h draftHandler) deleteDraft() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := h.drafts.Discard(r.Context(), sess.ProfileID, chi.URLParam(r, "draftKey")); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
