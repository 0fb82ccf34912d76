package api

import (
	"net/http"

	"github.com/projectshelf/backend/identity"
	"github.com/projectshelf/backend/models"
	"github.com/projectshelf/backend/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	workflow  *workflow.Service
	tokens    *identity.TokenIssuer
	resolver  *identity.Resolver
}

func newAuthHandler(svc *workflow.Service, tokens *identity.TokenIssuer, resolver *identity.Resolver) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()
	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		workflow:  svc,
		tokens:    tokens,
		resolver:  resolver,
	}
}

func (h authHandler) issue(w http.ResponseWriter, status int, profile *models.Profile) {
	token, expiresAt, err := h.tokens.Issue(profile.ID)
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteStatusJSON(w, status, sessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Profile:   *profile,
		Role:      h.resolver.SessionFor(*profile).Role,
	})
}

// register creates a student account and signs it in
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body workflow.RegisterInput true "Account details"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} ErrorResponse "Validation error listing every bad field"
// @Failure 409 {object} ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h authHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in workflow.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.workflow.Register(r.Context(), in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.issue(w, http.StatusCreated, profile)
	}
}

// login exchanges email and password for a bearer token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.workflow.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Str("profileID", profile.ID.String()).Msg("Login")
		h.issue(w, http.StatusOK, profile)
	}
}

// me returns the caller's profile and effective role
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} meResponse
// @Failure 401 {object} ErrorResponse
// @Router /me [get]
func (h authHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		profile, err := h.workflow.FindProfile(r.Context(), sess.ProfileID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, meResponse{Profile: *profile, Role: sess.Role})
	}
}

// createTeacher provisions a faculty account. Teachers cannot self-register.
// @Summary Create teacher
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body workflow.RegisterInput true "Account details"
// @Success 201 {object} models.Profile
// @Failure 403 {object} ErrorResponse "Caller is not the HOD"
// @Router /teachers [post]
func (h authHandler) createTeacher() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := ctxMustSession(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var in workflow.RegisterInput
		if err := decodeJSON(w, r, &in); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		profile, err := h.workflow.CreateTeacher(r.Context(), sess, in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.logger.Info().Str("profileID", profile.ID.String()).Str("createdBy", sess.ProfileID.String()).Msg("Teacher provisioned")
		h.responder.WriteStatusJSON(w, http.StatusCreated, profile)
	}
}
