package api

import (
	"context"
	"net/http"

	"github.com/projectshelf/backend/dashboard"
	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog/log"
)

type dashboardHandler struct {
	responder Responder
	board     *dashboard.Board
	workflow  *workflow.Service
}

func newDashboardHandler(board *dashboard.Board, svc *workflow.Service) dashboardHandler {
	logger := log.With().Str("handlerName", "dashboardHandler").Logger()
	return dashboardHandler{
		responder: NewResponder(logger),
		board:     board,
		workflow:  svc,
	}
}

// view adapts a session-scoped read into a handler.
func view[T any](responder Responder, read func(context.Context, identity.Session) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			responder.WriteError(w, err)
			return
		}
		out, err := read(r.Context(), sess)
		if err != nil {
			responder.WriteError(w, err)
			return
		}
		responder.WriteJSON(w, out)
	}
}

// @Router /dashboard/student [get]
func (h dashboardHandler) student() http.HandlerFunc {
	return view(h.responder, h.board.Student)
}

// @Router /dashboard/teacher [get]
func (h dashboardHandler) teacher() http.HandlerFunc {
	return view(h.responder, h.board.Teacher)
}

// @Router /dashboard/admin [get]
func (h dashboardHandler) admin() http.HandlerFunc {
	return view(h.responder, h.board.Monitor)
}

// integrity lists projects violating the one-accepted-leader rule (HOD only)
// @Router /admin/integrity [get]
func (h dashboardHandler) integrity() http.HandlerFunc {
	return view(h.responder, h.workflow.Audit)
}
