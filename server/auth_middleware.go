package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/studio-gateway/internal/errors"
	"github.com/jrsteele09/studio-gateway/oauthmodel"
	"github.com/jrsteele09/studio-gateway/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the resolved *sessions.Session of a guarded request
const ContextKeySession ContextKey = "session"

// publicPaths never require a session.
var publicPaths = map[string]struct{}{
	RouteLogin:        {},
	RouteLoginPending: {},
	RouteIdentity:     {},
	RouteLogout:       {},
	RouteCallback:     {},
	RouteHealth:       {},
	RouteMetrics:      {},
	RouteFavicon:      {},
}

// publicPrefixes never require a session.
var publicPrefixes = []string{
	RouteAPIAuthPrefix,
	RouteStaticNext,
	RouteStaticImg,
}

// isPublic reports whether r may proceed without a session. Any request carrying login tokens or
// a signup token in its query is public so the handshake can finish.
func isPublic(r *http.Request) bool {
	path := r.URL.Path
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	q := r.URL.Query()
	return q.Get(oauthmodel.ParamAccessToken) != "" || q.Get(oauthmodel.ParamSignupToken) != ""
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// TokenQueryRedirectMiddleware sends any request whose query carries a login token pair to the
// callback route with the query forwarded unchanged.
func (s *Server) TokenQueryRedirectMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RouteCallback && oauthmodel.HasLoginTokens(r.URL.Query()) {
			http.Redirect(w, r, RouteCallback+"?"+r.URL.RawQuery, http.StatusTemporaryRedirect)
			return
		}
		next(w, r)
	}
}

// RouteGuardMiddleware requires an authenticated session on every non-public route. The session is
// resolved (and refreshed when due) on each guarded request.
func (s *Server) RouteGuardMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r) {
			next(w, r)
			return
		}

		sessionID, err := s.cookies.SessionID(r)
		if err != nil {
			s.denyUnauthenticated(w, r, RouteLogin)
			return
		}

		session, err := s.lifecycle.Resolve(r.Context(), sessionID)
		if err != nil {
			// Only a missing session drops the cookie. An interrupted refresh leaves it usable.
			if apperrors.Is(err, apperrors.ErrSessionNotFound) {
				http.SetCookie(w, s.cookies.Clear())
			} else {
				log.Err(err).Str("session", sessionID).Msg("failed to resolve session")
			}
			s.denyUnauthenticated(w, r, RouteLogin)
			return
		}

		switch session.Status() {
		case sessions.StatusAuthenticated:
		case sessions.StatusExpired:
			s.denyUnauthenticated(w, r, LoginSessionExpired)
			return
		default:
			s.denyUnauthenticated(w, r, RouteLogin)
			return
		}

		next(w, r.WithContext(withSession(r.Context(), session)))
	}
}

func (s *Server) denyUnauthenticated(w http.ResponseWriter, r *http.Request, location string) {
	if isAPIRequest(r) {
		writeJSON(w, http.StatusUnauthorized, redirectResponse{
			Error:    "unauthorized",
			Redirect: location,
		})
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func withSession(ctx context.Context, session *sessions.Session) context.Context {
	ctx = context.WithValue(ctx, ContextKeySession, session)
	return sessions.ContextWithID(ctx, session.ID)
}

// sessionFromContext returns the session set by RouteGuardMiddleware.
func sessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}
