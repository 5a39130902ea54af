package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/studio-gateway/apiclient"
	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/navigation"
	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/jrsteele09/studio-gateway/users"
	"github.com/rs/zerolog/log"
)

// SessionHandler returns the token-free view of the current session, refreshing it when due.
// A request without a session gets an empty object.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.requestSessionID(r)
		if sessionID == "" {
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}

		session, err := s.lifecycle.Resolve(r.Context(), sessionID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrSessionNotFound) {
				http.SetCookie(w, s.cookies.Clear())
			} else {
				log.Err(err).Str("session", sessionID).Msg("failed to resolve session")
			}
			writeJSON(w, http.StatusOK, struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, session.View())
	}
}

// meResponse is the live profile with the authentication state it implies.
type meResponse struct {
	User      *users.User     `json:"user"`
	AuthState users.AuthState `json:"authState"`
}

// MeHandler fetches the live profile of the session's user. Authorization-sensitive screens use
// this rather than the cached session claims.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.requestSessionID(r)
		session, err := s.lifecycle.Resolve(r.Context(), sessionID)
		if err != nil || session.Status() != sessions.StatusAuthenticated {
			location := RouteLogin
			if err == nil && session.Status() == sessions.StatusExpired {
				location = LoginSessionExpired
			}
			writeJSON(w, http.StatusUnauthorized, redirectResponse{Error: "unauthorized", Redirect: location})
			return
		}

		ctx := sessions.ContextWithID(r.Context(), session.ID)
		user, err := s.api.GetMe(ctx)
		if err != nil {
			s.writeBackendError(w, err)
			return
		}
		if _, err := s.lifecycle.ApplyProfile(ctx, session.ID, user); err != nil {
			log.Err(err).Str("session", session.ID).Msg("failed to store profile")
		}
		writeJSON(w, http.StatusOK, meResponse{User: user, AuthState: user.AuthState()})
	}
}

// SignOutHandler ends the session (POST /api/auth/signout).
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.signOut(w, r)
		writeJSON(w, http.StatusOK, redirectResponse{Redirect: RouteLogin})
	}
}

// LogoutHandler ends the session and returns to the login page (GET /logout).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.signOut(w, r)
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if sessionID := s.requestSessionID(r); sessionID != "" {
		if err := s.lifecycle.SignOut(r.Context(), sessionID); err != nil {
			log.Err(err).Str("session", sessionID).Msg("sign-out failed")
		}
	}
	http.SetCookie(w, s.cookies.Clear())
}

// signupRequest completes a pending OAuth sign-up. The signup token falls back to the one held by
// the pending session.
type signupRequest struct {
	SignupToken string `json:"signupToken"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
}

// SignupHandler registers a pending OAuth identity (POST /api/auth/signup).
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
			return
		}

		sessionID := s.requestSessionID(r)
		var pending *sessions.Session
		if sessionID != "" {
			if session, err := s.lifecycle.Load(r.Context(), sessionID); err == nil && session.Status() == sessions.StatusPendingSignup {
				pending = session
			}
		}

		signupToken := req.SignupToken
		if signupToken == "" && pending != nil {
			signupToken = pending.SignupToken
		}
		if signupToken == "" {
			writeJSONError(w, http.StatusBadRequest, "signup_token_missing", apperrors.ErrSignupTokenMissing.Error())
			return
		}
		role := users.ParseRole(req.Role)
		if role == nil || *role == users.RoleSystemAdmin {
			writeJSONError(w, http.StatusBadRequest, "invalid_role", "role must be OWNER, INSTRUCTOR or MEMBER")
			return
		}
		name := req.Name
		if name == "" && pending != nil {
			name = pending.Name
		}

		pair, err := s.api.SignUp(r.Context(), apiclient.SignupRequest{
			SignupToken: signupToken,
			Role:        *role,
			Name:        name,
			Phone:       req.Phone,
		})
		if err != nil {
			s.writeBackendError(w, err)
			return
		}

		var session *sessions.Session
		if pending != nil {
			session, err = s.lifecycle.CompleteSignup(r.Context(), pending.ID, pair)
		} else {
			session, err = s.lifecycle.SignIn(r.Context(), sessionID, sessions.SignInParams{Pair: pair})
		}
		if err == nil {
			err = s.setSessionCookie(w, session.ID)
		}
		if err != nil {
			log.Err(err).Msg("failed to store session after sign-up")
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "session could not be created")
			return
		}

		s.refreshProfile(r, session.ID)
		if updated, err := s.lifecycle.Load(r.Context(), session.ID); err == nil {
			session = updated
		}
		writeJSON(w, http.StatusOK, session.View())
	}
}

// navigationResponse is the role navigation of the current session.
type navigationResponse struct {
	Role  *users.RoleType      `json:"role"`
	Items []navigation.NavItem `json:"items"`
}

// NavigationHandler returns the navigation tree for the session role (GET /api/nav).
func (s *Server) NavigationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		var role *users.RoleType
		if session != nil {
			role = session.Role
		}
		writeJSON(w, http.StatusOK, navigationResponse{Role: role, Items: navigation.For(role)})
	}
}
