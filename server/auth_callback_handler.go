package server

import (
	"net/http"

	"github.com/jrsteele09/studio-gateway/apiclient"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/metrics"
	"github.com/jrsteele09/studio-gateway/oauthmodel"
	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler finishes the backend redirect handshake (GET /oauth/callback).
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := oauthmodel.ParseCallback(r.URL.Query())
		if err != nil {
			s.metrics.RecordHandshake(metrics.HandshakeInvalid)
			log.Warn().Err(err).Msg("callback without usable handshake parameters")
			s.renderHandshakeError(w, http.StatusBadRequest, "The sign-in response was incomplete. Please sign in again.")
			return
		}
		s.completeHandshake(w, r, outcome, RouteHome)
	}
}

// completeHandshake applies a login or sign-up outcome to the request's session. The same login
// replayed on the same session stores the same tokens again.
func (s *Server) completeHandshake(w http.ResponseWriter, r *http.Request, outcome oauthmodel.Outcome, returnURL string) {
	ctx := r.Context()
	sessionID := s.requestSessionID(r)

	switch o := outcome.(type) {
	case oauthmodel.LoginSuccess:
		session, err := s.lifecycle.SignIn(ctx, sessionID, sessions.SignInParams{
			Pair:                   o.Pair,
			OrganizationID:         o.OrganizationID,
			PendingOrganizationIDs: o.PendingOrganizationIDs,
		})
		if err != nil {
			log.Err(err).Msg("failed to store login session")
			s.renderHandshakeError(w, http.StatusInternalServerError, "Your session could not be created. Please try again.")
			return
		}
		if err := s.setSessionCookie(w, session.ID); err != nil {
			log.Err(err).Msg("failed to set session cookie")
			s.renderHandshakeError(w, http.StatusInternalServerError, "Your session could not be created. Please try again.")
			return
		}
		s.refreshProfile(r, session.ID)
		s.metrics.RecordHandshake(metrics.HandshakeLogin)
		http.Redirect(w, r, safeReturnURL(returnURL), http.StatusSeeOther)

	case oauthmodel.SignupRequired:
		session, err := s.lifecycle.BeginSignup(ctx, sessionID, o.SignupToken, o.Name, o.Email)
		if err == nil {
			err = s.setSessionCookie(w, session.ID)
		}
		if err != nil {
			log.Err(err).Msg("failed to store pending sign-up")
		}
		s.metrics.RecordHandshake(metrics.HandshakeSignup)
		http.Redirect(w, r, o.IdentityURL(RouteIdentity), http.StatusSeeOther)

	default:
		s.metrics.RecordHandshake(metrics.HandshakeInvalid)
		s.renderHandshakeError(w, http.StatusBadRequest, "The sign-in response was not recognised.")
	}
}

// refreshProfile fetches the live profile into the session. Failures are logged and tolerated.
func (s *Server) refreshProfile(r *http.Request, sessionID string) {
	ctx := sessions.ContextWithID(r.Context(), sessionID)
	user, err := s.api.GetMe(ctx, apiclient.SkipAuthRedirect())
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("profile fetch after sign-in failed")
		return
	}
	if _, err := s.lifecycle.ApplyProfile(ctx, sessionID, user); err != nil && !apperrors.Is(err, apperrors.ErrSessionNotFound) {
		log.Err(err).Str("session", sessionID).Msg("failed to store profile")
	}
}
